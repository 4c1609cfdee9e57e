package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/ports"

	"github.com/jackc/pgx/v5"
)

// RideRepo persists rides using pgx and plain SQL.
type RideRepo struct{}

// NewRideRepo constructs a new RideRepo.
func NewRideRepo() ports.RideRepository {
	return &RideRepo{}
}

const rideColumns = `
	id, ride_number, driver_id, from_location, to_location, departure_time,
	total_seats, available_seats, instant_booking, status, price_per_seat,
	vehicle_make, vehicle_model, vehicle_color, vehicle_ac,
	smoking_allowed, music_allowed, pets_allowed, chat_enabled,
	created_at, updated_at, completed_at, cancelled_at, expired_at`

// CreateRide inserts a new ride row and writes an initial RIDE_CREATED event.
func (repo *RideRepo) CreateRide(ctx context.Context, r *ride.Ride) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var vMake, vModel, vColor *string
	var vAC *bool
	if r.Vehicle != nil {
		vMake, vModel, vColor, vAC = &r.Vehicle.Make, &r.Vehicle.Model, &r.Vehicle.Color, &r.Vehicle.AC
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO rides (
			ride_number, driver_id, from_location, to_location, departure_time,
			total_seats, available_seats, instant_booking, status, price_per_seat,
			vehicle_make, vehicle_model, vehicle_color, vehicle_ac,
			smoking_allowed, music_allowed, pets_allowed, chat_enabled
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at
	`,
		r.RideNumber,
		r.DriverID,
		r.FromLocation,
		r.ToLocation,
		r.DepartureTime,
		r.TotalSeats,
		r.AvailableSeats,
		r.InstantBooking,
		r.Status.String(), // "ACTIVE" at creation
		r.PricePerSeat,
		vMake, vModel, vColor, vAC,
		r.Preferences.SmokingAllowed,
		r.Preferences.MusicAllowed,
		r.Preferences.PetsAllowed,
		r.ChatEnabled,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return storeUnavailable("insert ride", err)
	}

	eventData := map[string]any{
		"driver_id":       r.DriverID,
		"total_seats":     r.TotalSeats,
		"instant_booking": r.InstantBooking,
		"departure_time":  r.DepartureTime.UTC().Format(time.RFC3339),
	}
	if err := insertRideEvent(ctx, tx, r.ID, ride.EventRideCreated, eventData); err != nil {
		return err
	}

	return nil
}

// GetByID fetches a ride by primary key (uuid).
func (repo *RideRepo) GetByID(ctx context.Context, id string) (*ride.Ride, error) {
	return repo.get(ctx, id, false)
}

// GetByIDForUpdate fetches a ride and locks its row for the rest of the tx.
func (repo *RideRepo) GetByIDForUpdate(ctx context.Context, id string) (*ride.Ride, error) {
	return repo.get(ctx, id, true)
}

func (repo *RideRepo) get(ctx context.Context, id string, forUpdate bool) (*ride.Ride, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + rideColumns + ` FROM rides WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	out, err := scanRide(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ride.ErrRideNotFound
		}
		return nil, storeUnavailable("query ride", err)
	}
	return out, nil
}

// ListActive returns browseable rides (ACTIVE, FULL, and recently EXPIRED so
// the UI can still render them with an expired badge), soonest departure first.
func (repo *RideRepo) ListActive(ctx context.Context, filter ports.RideFilter) ([]*ride.Ride, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + rideColumns + `
		FROM rides
		WHERE status IN ('ACTIVE', 'FULL', 'EXPIRED')`
	args := []any{}

	if filter.From != "" {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND from_location ILIKE '%%' || $%d || '%%'", len(args))
	}
	if filter.To != "" {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND to_location ILIKE '%%' || $%d || '%%'", len(args))
	}
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		query += fmt.Sprintf(" AND driver_id = $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY departure_time ASC LIMIT $%d", len(args))

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, storeUnavailable("query rides", err)
	}
	defer rows.Close()

	var rides []*ride.Ride
	for rows.Next() {
		rd, err := scanRide(rows)
		if err != nil {
			return nil, storeUnavailable("scan ride", err)
		}
		rides = append(rides, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, storeUnavailable("rows error", err)
	}

	return rides, nil
}

// ReserveSeats atomically decrements available_seats by `seats`, flipping the
// ride to FULL when the counter hits zero. The decrement and its guard run in
// one conditional UPDATE, so concurrent reserves serialize on the row and the
// loser observes a domain error rather than a corrupted counter.
func (repo *RideRepo) ReserveSeats(ctx context.Context, rideID string, seats int) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}
	if seats < 1 {
		return 0, ride.ErrInvalidSeatCount
	}

	var remaining int
	err = tx.QueryRow(ctx, `
		UPDATE rides
		SET available_seats = available_seats - $2,
		    status = CASE WHEN available_seats - $2 = 0 THEN 'FULL' ELSE status END,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'ACTIVE'
		  AND available_seats >= $2
		RETURNING available_seats
	`, rideID, seats).Scan(&remaining)
	if err == nil {
		if remaining == 0 {
			if err := insertRideEvent(ctx, tx, rideID, ride.EventRideFull, map[string]any{
				"seats_reserved": seats,
			}); err != nil {
				return 0, err
			}
		}
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, storeUnavailable("reserve seats", err)
	}

	// the guard failed: find out why
	var status string
	var available int
	err = tx.QueryRow(ctx, `SELECT status, available_seats FROM rides WHERE id = $1`, rideID).
		Scan(&status, &available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ride.ErrRideNotFound
		}
		return 0, storeUnavailable("inspect ride", err)
	}
	if status != ride.StatusActive.String() {
		return available, ride.ErrRideNotJoinable
	}
	return available, ride.ErrInsufficientSeats
}

// ReleaseSeats returns seats to the ledger, capped at total_seats, reopening a
// FULL ride. Terminal rides are left untouched and the call is a no-op.
func (repo *RideRepo) ReleaseSeats(ctx context.Context, rideID string, seats int) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}
	if seats < 1 {
		return 0, ride.ErrInvalidSeatCount
	}

	var remaining int
	var reopened bool
	err = tx.QueryRow(ctx, `
		UPDATE rides
		SET available_seats = LEAST(available_seats + $2, total_seats),
		    status = CASE WHEN status = 'FULL' THEN 'ACTIVE' ELSE status END,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('ACTIVE', 'FULL')
		RETURNING available_seats, (status = 'ACTIVE')
	`, rideID, seats).Scan(&remaining, &reopened)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, storeUnavailable("release seats", err)
	}

	// no-op on terminal rides; still distinguish a missing ride
	var available int
	err = tx.QueryRow(ctx, `SELECT available_seats FROM rides WHERE id = $1`, rideID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ride.ErrRideNotFound
		}
		return 0, storeUnavailable("inspect ride", err)
	}
	return available, nil
}

// Cancel sets the ride to CANCELLED, stamps cancelled_at, and appends the
// RIDE_CANCELLED event. Idempotent when already cancelled.
func (repo *RideRepo) Cancel(ctx context.Context, rideID string, cancelledAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM rides
		WHERE id = $1
		FOR UPDATE
	`, rideID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ride.ErrRideNotFound
		}
		return storeUnavailable("query ride status", err)
	}

	// idempotent success
	if current == ride.StatusCancelled.String() {
		return nil
	}

	// terminal states are never reopened or re-tagged
	if ride.Status(current).Terminal() {
		return ride.ErrInvalidStatusTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE rides
		SET status = 'CANCELLED',
		    cancelled_at = $1,
		    updated_at = now()
		WHERE id = $2
	`, cancelledAt, rideID)
	if err != nil {
		return storeUnavailable("cancel ride", err)
	}

	eventData := map[string]any{
		"old_status":   current,
		"new_status":   ride.StatusCancelled.String(),
		"cancelled_at": cancelledAt.UTC().Format(time.RFC3339),
	}
	return insertRideEvent(ctx, tx, rideID, ride.EventRideCancelled, eventData)
}

// MarkExpired is the sweep's compare-and-set: only ACTIVE/FULL rides flip to
// EXPIRED, so a ride that was concurrently cancelled or completed keeps its
// status. Returns false (no error) when nothing changed.
func (repo *RideRepo) MarkExpired(ctx context.Context, rideID string, expiredAt time.Time) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE rides
		SET status = 'EXPIRED',
		    expired_at = $1,
		    updated_at = now()
		WHERE id = $2
		  AND status IN ('ACTIVE', 'FULL')
	`, expiredAt, rideID)
	if err != nil {
		return false, storeUnavailable("mark ride expired", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	eventData := map[string]any{
		"new_status": ride.StatusExpired.String(),
		"expired_at": expiredAt.UTC().Format(time.RFC3339),
	}
	if err := insertRideEvent(ctx, tx, rideID, ride.EventRideExpired, eventData); err != nil {
		return false, err
	}
	return true, nil
}

// ListExpiryCandidates returns non-terminal rides whose departure time lies
// before the given cutoff (now minus grace period).
func (repo *RideRepo) ListExpiryCandidates(ctx context.Context, departedBefore time.Time, limit int) ([]*ride.Ride, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := tx.Query(ctx, `SELECT`+rideColumns+`
		FROM rides
		WHERE status IN ('ACTIVE', 'FULL')
		  AND departure_time < $1
		ORDER BY departure_time ASC
		LIMIT $2
	`, departedBefore, limit)
	if err != nil {
		return nil, storeUnavailable("query expiry candidates", err)
	}
	defer rows.Close()

	var rides []*ride.Ride
	for rows.Next() {
		rd, err := scanRide(rows)
		if err != nil {
			return nil, storeUnavailable("scan ride", err)
		}
		rides = append(rides, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, storeUnavailable("rows error", err)
	}

	return rides, nil
}

// StatusCounts returns how many rides sit in each status.
func (repo *RideRepo) StatusCounts(ctx context.Context) (map[ride.Status]int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT status, COUNT(*) FROM rides GROUP BY status`)
	if err != nil {
		return nil, storeUnavailable("query status counts", err)
	}
	defer rows.Close()

	counts := make(map[ride.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storeUnavailable("scan status count", err)
		}
		counts[ride.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeUnavailable("rows error", err)
	}

	return counts, nil
}

// --- helpers ---

// scanRide reads one ride row in rideColumns order.
func scanRide(row pgx.Row) (*ride.Ride, error) {
	var out ride.Ride
	var status string
	var vMake, vModel, vColor *string
	var vAC *bool

	err := row.Scan(
		&out.ID, &out.RideNumber, &out.DriverID, &out.FromLocation, &out.ToLocation, &out.DepartureTime,
		&out.TotalSeats, &out.AvailableSeats, &out.InstantBooking, &status, &out.PricePerSeat,
		&vMake, &vModel, &vColor, &vAC,
		&out.Preferences.SmokingAllowed, &out.Preferences.MusicAllowed, &out.Preferences.PetsAllowed, &out.ChatEnabled,
		&out.CreatedAt, &out.UpdatedAt, &out.CompletedAt, &out.CancelledAt, &out.ExpiredAt,
	)
	if err != nil {
		return nil, err
	}

	out.Status = ride.Status(status)
	if vMake != nil {
		out.Vehicle = &ride.VehicleInfo{Make: *vMake}
		if vModel != nil {
			out.Vehicle.Model = *vModel
		}
		if vColor != nil {
			out.Vehicle.Color = *vColor
		}
		if vAC != nil {
			out.Vehicle.AC = *vAC
		}
	}

	return &out, nil
}

// insertRideEvent writes a row into ride_events with encoded event_data.
func insertRideEvent(ctx context.Context, tx pgx.Tx, rideID string, eventType ride.EventType, eventData any) error {
	body, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ride_events (ride_id, event_type, event_data)
		VALUES ($1, $2, $3::jsonb)
	`, rideID, eventType.String(), string(body))
	if err != nil {
		return storeUnavailable("insert ride event", err)
	}
	return nil
}
