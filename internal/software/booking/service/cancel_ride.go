package service

import (
	"context"
	"fmt"
	"time"

	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/observability"
	"campus-carpool/internal/ports"
)

// CancelRide soft-deletes a ride: only the owning driver, terminal, never
// reopened. Pending join requests are left untouched; deciding one afterwards
// fails because the ride is terminal.
func (service *bookingService) CancelRide(ctx context.Context, rideID, driverID string) (ports.CancelResult, error) {
	var (
		result        ports.CancelResult
		passengers    []ride.Passenger
		fromLocation  string
		toLocation    string
		correlationID = generateCorrelationID()
	)
	ctx = service.logger.WithRequestID(ctx, correlationID)
	ctx = service.logger.WithRideID(ctx, rideID)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.rideRepo.GetByIDForUpdate(txCtx, rideID)
		if err != nil {
			return err
		}
		fromLocation = r.FromLocation
		toLocation = r.ToLocation

		if r.DriverID != driverID {
			return fmt.Errorf("only the owning driver may cancel a ride: %w", ports.ErrUnauthorized)
		}

		// confirmed passengers get notified after commit
		passengers, err = service.passengerRepo.ListByRide(txCtx, rideID)
		if err != nil {
			return err
		}

		// idempotent on already-cancelled; appends RIDE_CANCELLED
		if err := service.rideRepo.Cancel(txCtx, rideID, time.Now().UTC()); err != nil {
			return err
		}

		result = ports.CancelResult{
			RideID:  rideID,
			Status:  ride.StatusCancelled.String(),
			Message: "ride cancelled",
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "ride_cancel_failed", "Failed to cancel ride", err, map[string]any{
			"driver_id": driverID,
		})
		return ports.CancelResult{}, err
	}

	observability.RidesCancelledTotal.Inc()
	service.logger.Info(ctx, "ride_cancelled", "Ride cancelled by its driver", map[string]any{
		"driver_id":            driverID,
		"confirmed_passengers": len(passengers),
	})

	for _, p := range passengers {
		service.notify(ctx, ports.Notification{
			Kind:         ports.NotifyRideCancelled,
			RecipientID:  p.PassengerID,
			RideID:       rideID,
			FromLocation: fromLocation,
			ToLocation:   toLocation,
			Seats:        p.SeatsBooked,
		})
	}

	return result, nil
}
