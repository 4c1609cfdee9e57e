package service

import (
	"context"
	"fmt"
	"time"

	"campus-carpool/internal/domain/request"
	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/observability"
	"campus-carpool/internal/ports"

	"github.com/google/uuid"
)

// generateRideNumber returns an ID like: CARPOOL_YYYYMMDD_HHMMSS_XXX
// where XXX is a monotonic millisecond fragment to reduce collisions.
func generateRideNumber() string {
	now := time.Now().UTC()
	return fmt.Sprintf("CARPOOL_%04d%02d%02d_%02d%02d%02d_%03d",
		now.Year(), int(now.Month()), now.Day(),
		now.Hour(), now.Minute(), now.Second(),
		now.Nanosecond()/1e6, // ms
	)
}

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	return "req_" + uuid.NewString()
}

// notify delivers one notification, best-effort. A publish failure is logged
// and counted but never fails the operation that triggered it.
func (service *bookingService) notify(ctx context.Context, n ports.Notification) {
	if service.notifier == nil {
		return
	}
	if err := service.notifier.Notify(ctx, n); err != nil {
		observability.NotificationPublishFailures.Inc()
		service.logger.Error(ctx, "notification_publish_failed", "Failed to publish notification", err, map[string]any{
			"kind":         string(n.Kind),
			"recipient_id": n.RecipientID,
			"ride_id":      n.RideID,
		})
		return
	}
	observability.NotificationsPublishedTotal.WithLabelValues(string(n.Kind)).Inc()
}

// expireIfDue applies the lazy counterpart of the sweep: when a ride's grace
// window has passed but the sweep has not caught it yet, flip it EXPIRED in
// the current transaction. Reports whether the ride is (now) expired.
func (service *bookingService) expireIfDue(ctx context.Context, r *ride.Ride, now time.Time) (bool, error) {
	if r.Status == ride.StatusExpired {
		return true, nil
	}
	if r.Status.Terminal() {
		return false, nil
	}
	if !r.ExpiryAt(now, service.grace).IsExpired {
		return false, nil
	}

	changed, err := service.rideRepo.MarkExpired(ctx, r.ID, now)
	if err != nil {
		return false, err
	}
	if changed {
		r.Expire(now)
	}
	return true, nil
}

// toRideView maps a ride (and optionally its passengers) onto the read model.
func (service *bookingService) toRideView(r *ride.Ride, passengers []ride.Passenger, now time.Time) ports.RideView {
	exp := r.ExpiryAt(now, service.grace)

	view := ports.RideView{
		RideID:         r.ID,
		RideNumber:     r.RideNumber,
		DriverID:       r.DriverID,
		From:           r.FromLocation,
		To:             r.ToLocation,
		DepartureTime:  r.DepartureTime,
		TotalSeats:     r.TotalSeats,
		AvailableSeats: r.AvailableSeats,
		PricePerSeat:   r.PricePerSeat,
		InstantBooking: r.InstantBooking,
		Status:         r.Status.String(),
		IsExpired:      r.Status == ride.StatusExpired || exp.IsExpired,
		CreatedAt:      r.CreatedAt,
	}

	if !view.IsExpired && !r.Status.Terminal() {
		if exp.TimeUntilStart > 0 {
			view.TimeUntilStart = exp.TimeUntilStart.Truncate(time.Second).String()
		}
		if exp.TimeUntilExpiry > 0 {
			view.TimeUntilExpiry = exp.TimeUntilExpiry.Truncate(time.Second).String()
		}
	}

	for _, p := range passengers {
		view.Passengers = append(view.Passengers, ports.PassengerView{
			PassengerID: p.PassengerID,
			SeatsBooked: p.SeatsBooked,
			Status:      p.Status.String(),
			JoinedAt:    p.JoinedAt,
		})
	}

	return view
}

// toRequestView maps a join request onto the read model.
func toRequestView(req *request.JoinRequest) ports.RequestView {
	return ports.RequestView{
		RequestID:   req.ID,
		RideID:      req.RideID,
		PassengerID: req.PassengerID,
		Seats:       req.SeatsRequested,
		Message:     req.Message,
		Status:      req.Status.String(),
		RequestedAt: req.CreatedAt,
		DecidedAt:   req.DecidedAt,
	}
}

// appendEvent writes an audit event inside the current transaction.
func (service *bookingService) appendEvent(ctx context.Context, rideID string, eventType ride.EventType, data map[string]any) error {
	ev, err := ride.NewEvent(rideID, eventType, data)
	if err != nil {
		return err
	}
	return service.eventRepo.Append(ctx, ev)
}
