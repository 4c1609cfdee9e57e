package service

import (
	"context"
	"fmt"
	"time"

	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/ports"
)

// GetRide returns the full read model of one ride including its passengers.
func (service *bookingService) GetRide(ctx context.Context, rideID string) (ports.RideView, error) {
	var view ports.RideView

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.rideRepo.GetByID(txCtx, rideID)
		if err != nil {
			return err
		}
		passengers, err := service.passengerRepo.ListByRide(txCtx, rideID)
		if err != nil {
			return err
		}

		view = service.toRideView(r, passengers, time.Now().UTC())
		return nil
	})
	if err != nil {
		return ports.RideView{}, err
	}
	return view, nil
}

// ListActiveRides returns browseable rides matching the filter.
func (service *bookingService) ListActiveRides(ctx context.Context, filter ports.RideFilter) ([]ports.RideView, error) {
	var views []ports.RideView

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		rides, err := service.rideRepo.ListActive(txCtx, filter)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		views = make([]ports.RideView, 0, len(rides))
		for _, r := range rides {
			views = append(views, service.toRideView(r, nil, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// ListPendingRequests returns the pending join requests of a ride, oldest
// first. Only the owning driver may read them.
func (service *bookingService) ListPendingRequests(ctx context.Context, rideID, driverID string) ([]ports.RequestView, error) {
	var views []ports.RequestView

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.rideRepo.GetByID(txCtx, rideID)
		if err != nil {
			return err
		}
		if r.DriverID != driverID {
			return fmt.Errorf("only the owning driver may list join requests: %w", ports.ErrUnauthorized)
		}

		requests, err := service.requestRepo.ListPendingByRide(txCtx, rideID)
		if err != nil {
			return err
		}

		views = make([]ports.RequestView, 0, len(requests))
		for _, req := range requests {
			views = append(views, toRequestView(req))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// Stats summarizes the ride inventory by status.
func (service *bookingService) Stats(ctx context.Context) (ports.StatsView, error) {
	var stats ports.StatsView

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		counts, err := service.rideRepo.StatusCounts(txCtx)
		if err != nil {
			return err
		}

		stats = ports.StatsView{
			Active:    counts[ride.StatusActive],
			Full:      counts[ride.StatusFull],
			Completed: counts[ride.StatusCompleted],
			Cancelled: counts[ride.StatusCancelled],
			Expired:   counts[ride.StatusExpired],
		}
		return nil
	})
	if err != nil {
		return ports.StatsView{}, err
	}
	return stats, nil
}
