package service

import (
	"context"
	"fmt"
	"time"

	"campus-carpool/internal/domain/request"
	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/observability"
	"campus-carpool/internal/ports"
)

// JoinInstant books seats immediately on an instant-booking ride: the seat
// reservation and the confirmed passenger record commit as one transaction,
// with no request state machine involved.
func (service *bookingService) JoinInstant(ctx context.Context, in ports.JoinInstantInput) (ports.JoinResult, error) {
	var (
		result        ports.JoinResult
		driverID      string
		fromLocation  string
		toLocation    string
		correlationID = generateCorrelationID()
	)
	ctx = service.logger.WithRequestID(ctx, correlationID)
	ctx = service.logger.WithRideID(ctx, in.RideID)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.rideRepo.GetByID(txCtx, in.RideID)
		if err != nil {
			return err
		}
		driverID = r.DriverID
		fromLocation = r.FromLocation
		toLocation = r.ToLocation

		if !r.InstantBooking {
			return fmt.Errorf("instant booking is disabled for this ride: %w", ride.ErrRideNotJoinable)
		}
		if r.DriverID == in.PassengerID {
			return fmt.Errorf("driver cannot book a seat on their own ride: %w", ports.ErrUnauthorized)
		}

		// the sweep may not have caught this ride yet
		expired, err := service.expireIfDue(txCtx, r, time.Now().UTC())
		if err != nil {
			return err
		}
		if expired {
			return ride.ErrRideNotJoinable
		}

		// duplicate checks mirror the approval flow
		if existing, err := service.passengerRepo.GetByRideAndPassenger(txCtx, in.RideID, in.PassengerID); err != nil {
			return err
		} else if existing != nil {
			return ride.ErrAlreadyConfirmedPassenger
		}
		if pending, err := service.requestRepo.GetActiveForPassenger(txCtx, in.RideID, in.PassengerID); err != nil {
			return err
		} else if pending != nil {
			return request.ErrDuplicateActiveRequest
		}

		// conditional decrement; the loser of a race sees a domain error
		remaining, err := service.rideRepo.ReserveSeats(txCtx, in.RideID, in.Seats)
		if err != nil {
			return err
		}

		p, err := ride.NewPassenger(in.RideID, in.PassengerID, in.Seats)
		if err != nil {
			return err
		}
		if err := service.passengerRepo.Add(txCtx, p); err != nil {
			return err
		}

		if err := service.appendEvent(txCtx, in.RideID, ride.EventPassengerJoined, map[string]any{
			"passenger_id": in.PassengerID,
			"seats_booked": in.Seats,
			"mode":         "instant",
		}); err != nil {
			return err
		}

		status := ride.StatusActive
		if remaining == 0 {
			status = ride.StatusFull
		}
		result = ports.JoinResult{
			RideID:         in.RideID,
			PassengerID:    in.PassengerID,
			SeatsBooked:    in.Seats,
			AvailableSeats: remaining,
			RideStatus:     status.String(),
		}
		return nil
	})
	if err != nil {
		observability.InstantJoinsTotal.WithLabelValues("failed").Inc()
		service.logger.Error(ctx, "instant_join_failed", "Instant booking failed", err, map[string]any{
			"passenger_id": in.PassengerID,
			"seats":        in.Seats,
		})
		return ports.JoinResult{}, err
	}

	observability.InstantJoinsTotal.WithLabelValues("success").Inc()
	service.logger.Info(ctx, "instant_join_succeeded", "Passenger booked instantly", map[string]any{
		"passenger_id":    in.PassengerID,
		"seats":           in.Seats,
		"available_seats": result.AvailableSeats,
	})

	// best-effort, after commit
	service.notify(ctx, ports.Notification{
		Kind:         ports.NotifyPassengerJoined,
		RecipientID:  driverID,
		RideID:       in.RideID,
		FromLocation: fromLocation,
		ToLocation:   toLocation,
		Seats:        in.Seats,
	})

	return result, nil
}
