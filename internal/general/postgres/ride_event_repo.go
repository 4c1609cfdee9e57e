package postgres

import (
	"context"

	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/ports"
)

// RideEventRepo appends audit events to the `ride_events` table.
type RideEventRepo struct{}

// NewRideEventRepo constructs a new RideEventRepo.
func NewRideEventRepo() ports.RideEventRepository {
	return &RideEventRepo{}
}

// Append writes one audit event within the current transaction.
func (repo *RideEventRepo) Append(ctx context.Context, e *ride.Event) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	return insertRideEvent(ctx, tx, e.RideID, e.Type, e.Data)
}
