package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-carpool/internal/domain/request"
	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/observability"
	"campus-carpool/internal/ports"
)

// DecideRequest applies the driver's verdict to a pending join request. An
// accept re-validates seat availability at decision time and reserves seats
// plus creates the confirmed passenger in the same transaction; a failed
// re-validation leaves the request pending. A reject never touches the ledger.
func (service *bookingService) DecideRequest(ctx context.Context, in ports.DecideInput) (ports.DecisionResult, error) {
	if !in.Decision.Valid() {
		return ports.DecisionResult{}, ports.ErrInvalidDecision
	}

	var (
		result        ports.DecisionResult
		passengerID   string
		fromLocation  string
		toLocation    string
		seats         int
		correlationID = generateCorrelationID()
	)
	ctx = service.logger.WithRequestID(ctx, correlationID)
	ctx = service.logger.WithJoinRequestID(ctx, in.RequestID)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// lock the request row first, then the ride row; every decision for a
		// ride serializes on the ride lock
		req, err := service.requestRepo.GetByIDForUpdate(txCtx, in.RequestID)
		if err != nil {
			return err
		}
		passengerID = req.PassengerID
		seats = req.SeatsRequested

		r, err := service.rideRepo.GetByIDForUpdate(txCtx, req.RideID)
		if err != nil {
			return err
		}
		fromLocation = r.FromLocation
		toLocation = r.ToLocation

		if r.DriverID != in.DriverID {
			return fmt.Errorf("only the ride's driver may decide join requests: %w", ports.ErrUnauthorized)
		}
		if req.Status.Terminal() {
			return request.ErrAlreadyDecided
		}

		// requests on a terminal ride are inert
		expired, err := service.expireIfDue(txCtx, r, time.Now().UTC())
		if err != nil {
			return err
		}
		if expired || r.Status.Terminal() {
			return ride.ErrRideNotJoinable
		}

		now := time.Now().UTC()

		if in.Decision == ports.DecisionRejected {
			if err := service.requestRepo.UpdateStatus(txCtx, req.ID, request.StatusRejected, now); err != nil {
				return err
			}
			if err := service.appendEvent(txCtx, r.ID, ride.EventRequestRejected, map[string]any{
				"request_id":   req.ID,
				"passenger_id": req.PassengerID,
			}); err != nil {
				return err
			}

			result = ports.DecisionResult{
				RequestID:      req.ID,
				RideID:         r.ID,
				Status:         request.StatusRejected.String(),
				AvailableSeats: r.AvailableSeats,
				RideStatus:     r.Status.String(),
			}
			return nil
		}

		// accept path: seats may have evaporated since submission
		remaining, err := service.rideRepo.ReserveSeats(txCtx, r.ID, req.SeatsRequested)
		if err != nil {
			if errors.Is(err, ride.ErrInsufficientSeats) || errors.Is(err, ride.ErrRideNotJoinable) {
				return fmt.Errorf("%w: %w", request.ErrInsufficientSeatsAtDecision, err)
			}
			return err
		}

		p, err := ride.NewPassenger(r.ID, req.PassengerID, req.SeatsRequested)
		if err != nil {
			return err
		}
		if err := service.passengerRepo.Add(txCtx, p); err != nil {
			return err
		}

		if err := service.requestRepo.UpdateStatus(txCtx, req.ID, request.StatusAccepted, now); err != nil {
			return err
		}
		if err := service.appendEvent(txCtx, r.ID, ride.EventRequestAccepted, map[string]any{
			"request_id":   req.ID,
			"passenger_id": req.PassengerID,
			"seats_booked": req.SeatsRequested,
		}); err != nil {
			return err
		}

		status := ride.StatusActive
		if remaining == 0 {
			status = ride.StatusFull
		}
		result = ports.DecisionResult{
			RequestID:      req.ID,
			RideID:         r.ID,
			Status:         request.StatusAccepted.String(),
			AvailableSeats: remaining,
			RideStatus:     status.String(),
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "request_decision_failed", "Join request decision failed", err, map[string]any{
			"request_id": in.RequestID,
			"driver_id":  in.DriverID,
			"decision":   string(in.Decision),
		})
		return ports.DecisionResult{}, err
	}

	observability.RequestsDecidedTotal.WithLabelValues(strings.ToLower(string(in.Decision))).Inc()

	ctx = service.logger.WithRideID(ctx, result.RideID)
	service.logger.Info(ctx, "request_decided", fmt.Sprintf("Join request %s", strings.ToLower(result.Status)), map[string]any{
		"request_id":      result.RequestID,
		"passenger_id":    passengerID,
		"available_seats": result.AvailableSeats,
	})

	// exactly one notification per successful decide, directed at the passenger
	kind := ports.NotifyRequestRejected
	if in.Decision == ports.DecisionAccepted {
		kind = ports.NotifyRequestAccepted
	}
	service.notify(ctx, ports.Notification{
		Kind:         kind,
		RecipientID:  passengerID,
		RideID:       result.RideID,
		RequestID:    result.RequestID,
		FromLocation: fromLocation,
		ToLocation:   toLocation,
		Seats:        seats,
	})

	return result, nil
}
