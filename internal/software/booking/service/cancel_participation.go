package service

import (
	"context"

	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/ports"
)

// CancelParticipation removes a confirmed passenger and returns their seats to
// the ledger, reopening a FULL ride. A terminal ride refuses the leave: its
// ledger is frozen, and the passenger rows must keep backing the seat counts.
func (service *bookingService) CancelParticipation(ctx context.Context, rideID, passengerID string) (ports.CancelResult, error) {
	var (
		result        ports.CancelResult
		driverID      string
		fromLocation  string
		toLocation    string
		seatsFreed    int
		correlationID = generateCorrelationID()
	)
	ctx = service.logger.WithRequestID(ctx, correlationID)
	ctx = service.logger.WithRideID(ctx, rideID)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.rideRepo.GetByIDForUpdate(txCtx, rideID)
		if err != nil {
			return err
		}
		driverID = r.DriverID
		fromLocation = r.FromLocation
		toLocation = r.ToLocation

		// availableSeats == totalSeats - sum(seatsBooked) must keep holding
		// on the frozen ledger, so no row may leave a terminal ride
		if r.Status.Terminal() {
			return ride.ErrInvalidStatusTransition
		}

		removed, err := service.passengerRepo.Remove(txCtx, rideID, passengerID)
		if err != nil {
			return err
		}
		if removed == nil {
			return ride.ErrNotAPassenger
		}
		seatsFreed = removed.SeatsBooked

		wasFull := r.Status == ride.StatusFull
		remaining, err := service.rideRepo.ReleaseSeats(txCtx, rideID, removed.SeatsBooked)
		if err != nil {
			return err
		}

		if err := service.appendEvent(txCtx, rideID, ride.EventPassengerLeft, map[string]any{
			"passenger_id": passengerID,
			"seats_freed":  removed.SeatsBooked,
		}); err != nil {
			return err
		}
		if wasFull {
			if err := service.appendEvent(txCtx, rideID, ride.EventRideReopened, map[string]any{
				"available_seats": remaining,
			}); err != nil {
				return err
			}
		}

		status := ride.StatusActive
		if remaining == 0 {
			status = ride.StatusFull
		}
		result = ports.CancelResult{
			RideID:         rideID,
			Status:         status.String(),
			AvailableSeats: remaining,
			Message:        "participation cancelled, seats returned",
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "participation_cancel_failed", "Failed to cancel participation", err, map[string]any{
			"passenger_id": passengerID,
		})
		return ports.CancelResult{}, err
	}

	service.logger.Info(ctx, "participation_cancelled", "Passenger left the ride", map[string]any{
		"passenger_id":    passengerID,
		"seats_freed":     seatsFreed,
		"available_seats": result.AvailableSeats,
	})

	service.notify(ctx, ports.Notification{
		Kind:         ports.NotifyPassengerLeft,
		RecipientID:  driverID,
		RideID:       rideID,
		FromLocation: fromLocation,
		ToLocation:   toLocation,
		Seats:        seatsFreed,
	})

	return result, nil
}
