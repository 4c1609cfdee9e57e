package postgres

import (
	"context"
	"errors"
	"time"

	"campus-carpool/internal/domain/request"
	"campus-carpool/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// JoinRequestRepo persists join requests using pgx and plain SQL. Rows are
// never deleted: decided requests remain as the booking audit record.
type JoinRequestRepo struct{}

// NewJoinRequestRepo constructs a new JoinRequestRepo.
func NewJoinRequestRepo() ports.JoinRequestRepository {
	return &JoinRequestRepo{}
}

const requestColumns = `
	id, ride_id, passenger_id, seats_requested, message, status, created_at, decided_at`

// Create inserts a PENDING request. A partial unique index over
// (ride_id, passenger_id) WHERE status = 'PENDING' enforces the
// one-active-request-per-pair invariant at the store level; its violation
// maps to request.ErrDuplicateActiveRequest.
func (repo *JoinRequestRepo) Create(ctx context.Context, req *request.JoinRequest) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO join_requests (ride_id, passenger_id, seats_requested, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		req.RideID,
		req.PassengerID,
		req.SeatsRequested,
		req.Message,
		req.Status.String(),
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return request.ErrDuplicateActiveRequest
		}
		return storeUnavailable("insert join request", err)
	}

	return nil
}

// GetByID fetches a join request by primary key (uuid).
func (repo *JoinRequestRepo) GetByID(ctx context.Context, id string) (*request.JoinRequest, error) {
	return repo.get(ctx, id, false)
}

// GetByIDForUpdate fetches a join request and locks its row for the rest of
// the tx, serializing concurrent decisions on the same request.
func (repo *JoinRequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*request.JoinRequest, error) {
	return repo.get(ctx, id, true)
}

func (repo *JoinRequestRepo) get(ctx context.Context, id string, forUpdate bool) (*request.JoinRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + requestColumns + ` FROM join_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	out, err := scanRequest(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrNotFound
		}
		return nil, storeUnavailable("query join request", err)
	}
	return out, nil
}

// GetActiveForPassenger returns the passenger's PENDING request on a ride,
// or (nil, nil) when none exists.
func (repo *JoinRequestRepo) GetActiveForPassenger(ctx context.Context, rideID, passengerID string) (*request.JoinRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out, err := scanRequest(tx.QueryRow(ctx, `SELECT`+requestColumns+`
		FROM join_requests
		WHERE ride_id = $1 AND passenger_id = $2 AND status = 'PENDING'
	`, rideID, passengerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeUnavailable("query active join request", err)
	}
	return out, nil
}

// ListPendingByRide returns all undecided requests for a ride, oldest first.
func (repo *JoinRequestRepo) ListPendingByRide(ctx context.Context, rideID string) ([]*request.JoinRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT`+requestColumns+`
		FROM join_requests
		WHERE ride_id = $1 AND status = 'PENDING'
		ORDER BY created_at ASC
	`, rideID)
	if err != nil {
		return nil, storeUnavailable("query pending requests", err)
	}
	defer rows.Close()

	var requests []*request.JoinRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, storeUnavailable("scan join request", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, storeUnavailable("rows error", err)
	}

	return requests, nil
}

// UpdateStatus finalizes a decision. The status guard makes the terminal
// states sticky: deciding an already-decided request fails with
// request.ErrAlreadyDecided rather than overwriting the verdict.
func (repo *JoinRequestRepo) UpdateStatus(ctx context.Context, id string, status request.Status, decidedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	if !status.Valid() {
		return request.ErrInvalidStatus
	}

	tag, err := tx.Exec(ctx, `
		UPDATE join_requests
		SET status = $1,
		    decided_at = $2
		WHERE id = $3
		  AND status = 'PENDING'
	`, status.String(), decidedAt, id)
	if err != nil {
		return storeUnavailable("update join request status", err)
	}
	if tag.RowsAffected() == 0 {
		// distinguish a missing row from a decided one
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM join_requests WHERE id = $1`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return request.ErrNotFound
			}
			return storeUnavailable("inspect join request", err)
		}
		return request.ErrAlreadyDecided
	}

	return nil
}

// --- helpers ---

// scanRequest reads one join request row in requestColumns order.
func scanRequest(row pgx.Row) (*request.JoinRequest, error) {
	var out request.JoinRequest
	var status string

	err := row.Scan(
		&out.ID, &out.RideID, &out.PassengerID, &out.SeatsRequested,
		&out.Message, &status, &out.CreatedAt, &out.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	out.Status = request.Status(status)

	return &out, nil
}
