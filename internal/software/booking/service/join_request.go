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

// JoinByRequest submits a join request on an approval-flow ride. Seats are
// validated against current availability but NOT reserved; only the driver's
// accept touches the ledger.
func (service *bookingService) JoinByRequest(ctx context.Context, in ports.JoinRequestInput) (ports.RequestResult, error) {
	var (
		result        ports.RequestResult
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

		if r.DriverID == in.PassengerID {
			return fmt.Errorf("driver cannot request a seat on their own ride: %w", ports.ErrUnauthorized)
		}

		expired, err := service.expireIfDue(txCtx, r, time.Now().UTC())
		if err != nil {
			return err
		}
		if expired || !r.Status.Joinable() {
			return ride.ErrRideNotJoinable
		}

		if existing, err := service.passengerRepo.GetByRideAndPassenger(txCtx, in.RideID, in.PassengerID); err != nil {
			return err
		} else if existing != nil {
			return ride.ErrAlreadyConfirmedPassenger
		}

		// seats are checked at submission time only; availability may change
		// before the driver decides
		if in.Seats > r.AvailableSeats {
			return ride.ErrInsufficientSeats
		}

		req, err := request.NewJoinRequest(in.RideID, in.PassengerID, in.Seats, in.Message)
		if err != nil {
			return err
		}

		// the partial unique index turns a concurrent duplicate submit into
		// ErrDuplicateActiveRequest here
		if err := service.requestRepo.Create(txCtx, req); err != nil {
			return err
		}

		if err := service.appendEvent(txCtx, in.RideID, ride.EventRequestSubmitted, map[string]any{
			"request_id":      req.ID,
			"passenger_id":    in.PassengerID,
			"seats_requested": in.Seats,
		}); err != nil {
			return err
		}

		result = ports.RequestResult{
			RequestID: req.ID,
			RideID:    in.RideID,
			Status:    req.Status.String(),
			Message:   "join request submitted, awaiting driver decision",
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "join_request_failed", "Join request submission failed", err, map[string]any{
			"passenger_id": in.PassengerID,
			"seats":        in.Seats,
		})
		return ports.RequestResult{}, err
	}

	observability.JoinRequestsTotal.Inc()
	ctx = service.logger.WithJoinRequestID(ctx, result.RequestID)
	service.logger.Info(ctx, "join_request_submitted", "Join request submitted", map[string]any{
		"request_id":   result.RequestID,
		"passenger_id": in.PassengerID,
		"seats":        in.Seats,
	})

	// exactly one notification per successful submit, directed at the driver
	service.notify(ctx, ports.Notification{
		Kind:         ports.NotifyRequestSubmitted,
		RecipientID:  driverID,
		RideID:       in.RideID,
		RequestID:    result.RequestID,
		FromLocation: fromLocation,
		ToLocation:   toLocation,
		Seats:        in.Seats,
	})

	return result, nil
}
