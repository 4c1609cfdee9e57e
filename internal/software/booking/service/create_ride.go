package service

import (
	"context"
	"fmt"
	"time"

	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/observability"
	"campus-carpool/internal/ports"
)

// CreateRide publishes a new ride with a full seat ledger (ACTIVE status).
func (service *bookingService) CreateRide(ctx context.Context, in ports.CreateRideInput) (ports.RideView, error) {
	var (
		created       *ride.Ride
		rideNumber    = generateRideNumber()
		correlationID = generateCorrelationID()
	)
	ctx = service.logger.WithRequestID(ctx, correlationID)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// build the ride (ACTIVE, available_seats = total_seats)
		r, err := ride.NewRide(
			rideNumber,
			in.DriverID,
			in.FromLocation,
			in.ToLocation,
			in.DepartureTime,
			in.TotalSeats,
			in.PricePerSeat,
			in.InstantBooking,
		)
		if err != nil {
			return err
		}
		r.Vehicle = in.Vehicle
		r.Preferences = in.Preferences
		r.ChatEnabled = in.ChatEnabled

		// persist (also appends the RIDE_CREATED event)
		if err := service.rideRepo.CreateRide(txCtx, r); err != nil {
			return err
		}
		created = r

		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "ride_create_failed", "Failed to create ride", err, map[string]any{
			"driver_id":   in.DriverID,
			"ride_number": rideNumber,
		})
		return ports.RideView{}, err
	}

	observability.RidesCreatedTotal.Inc()

	ctx = service.logger.WithRideID(ctx, created.ID)
	service.logger.Info(ctx, "ride_created", fmt.Sprintf("Ride %s created", created.ID), map[string]any{
		"ride_number":     rideNumber,
		"driver_id":       in.DriverID,
		"total_seats":     in.TotalSeats,
		"instant_booking": in.InstantBooking,
		"departure_time":  in.DepartureTime.UTC().Format(time.RFC3339),
	})

	return service.toRideView(created, nil, time.Now().UTC()), nil
}
