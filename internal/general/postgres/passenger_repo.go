package postgres

import (
	"context"
	"errors"

	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PassengerRepo persists confirmed seat holders using pgx and plain SQL.
type PassengerRepo struct{}

// NewPassengerRepo constructs a new PassengerRepo.
func NewPassengerRepo() ports.PassengerRepository {
	return &PassengerRepo{}
}

// Add inserts a confirmed passenger row. The unique constraint on
// (ride_id, passenger_id) backs the one-booking-per-passenger invariant.
func (repo *PassengerRepo) Add(ctx context.Context, p *ride.Passenger) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO ride_passengers (ride_id, passenger_id, seats_booked, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, joined_at
	`,
		p.RideID,
		p.PassengerID,
		p.SeatsBooked,
		p.Status.String(),
	).Scan(&p.ID, &p.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ride.ErrAlreadyConfirmedPassenger
		}
		return storeUnavailable("insert passenger", err)
	}

	return nil
}

// GetByRideAndPassenger returns the passenger's booking on a ride, or
// (nil, nil) when the passenger holds no seat there.
func (repo *PassengerRepo) GetByRideAndPassenger(ctx context.Context, rideID, passengerID string) (*ride.Passenger, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out ride.Passenger
	var status string
	err = tx.QueryRow(ctx, `
		SELECT id, ride_id, passenger_id, seats_booked, status, joined_at
		FROM ride_passengers
		WHERE ride_id = $1 AND passenger_id = $2
	`, rideID, passengerID).Scan(
		&out.ID, &out.RideID, &out.PassengerID, &out.SeatsBooked, &status, &out.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeUnavailable("query passenger", err)
	}
	out.Status = ride.PassengerStatus(status)

	return &out, nil
}

// ListByRide returns all confirmed passengers of a ride, in join order.
func (repo *PassengerRepo) ListByRide(ctx context.Context, rideID string) ([]ride.Passenger, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, ride_id, passenger_id, seats_booked, status, joined_at
		FROM ride_passengers
		WHERE ride_id = $1
		ORDER BY joined_at ASC
	`, rideID)
	if err != nil {
		return nil, storeUnavailable("query passengers", err)
	}
	defer rows.Close()

	var passengers []ride.Passenger
	for rows.Next() {
		var p ride.Passenger
		var status string
		if err := rows.Scan(&p.ID, &p.RideID, &p.PassengerID, &p.SeatsBooked, &status, &p.JoinedAt); err != nil {
			return nil, storeUnavailable("scan passenger", err)
		}
		p.Status = ride.PassengerStatus(status)
		passengers = append(passengers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeUnavailable("rows error", err)
	}

	return passengers, nil
}

// Remove deletes the passenger's booking and returns the removed row so the
// caller can release its seats. Returns (nil, nil) when no booking exists.
func (repo *PassengerRepo) Remove(ctx context.Context, rideID, passengerID string) (*ride.Passenger, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out ride.Passenger
	var status string
	err = tx.QueryRow(ctx, `
		DELETE FROM ride_passengers
		WHERE ride_id = $1 AND passenger_id = $2
		RETURNING id, ride_id, passenger_id, seats_booked, status, joined_at
	`, rideID, passengerID).Scan(
		&out.ID, &out.RideID, &out.PassengerID, &out.SeatsBooked, &status, &out.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeUnavailable("delete passenger", err)
	}
	out.Status = ride.PassengerStatus(status)

	return &out, nil
}
