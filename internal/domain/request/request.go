package request

import (
	"errors"
	"strings"
	"time"
)

// JoinRequest is the domain entity corresponding to the `join_requests`
// table: one passenger's ask to join one ride, awaiting a driver decision.
// Pending requests never hold seats; the ledger is only touched when the
// driver accepts.
type JoinRequest struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time

	// Actors
	RideID      string
	PassengerID string

	// Core payload
	SeatsRequested int
	Message        string
	Status         Status

	// Decision
	DecidedAt *time.Time
}

var (
	ErrRideIDRequired              = errors.New("ride id is required")
	ErrPassengerRequired           = errors.New("passenger id is required")
	ErrInvalidSeatCount            = errors.New("seats requested must be at least 1")
	ErrAlreadyDecided              = errors.New("join request has already been decided")
	ErrDuplicateActiveRequest      = errors.New("an active join request already exists for this ride")
	ErrInsufficientSeatsAtDecision = errors.New("not enough seats left to accept this request")
	ErrNotFound                    = errors.New("join request not found")
)

// NewJoinRequest creates a request in PENDING state.
func NewJoinRequest(rideID, passengerID string, seats int, message string) (*JoinRequest, error) {
	if rideID = strings.TrimSpace(rideID); rideID == "" {
		return nil, ErrRideIDRequired
	}
	if passengerID = strings.TrimSpace(passengerID); passengerID == "" {
		return nil, ErrPassengerRequired
	}
	if seats < 1 {
		return nil, ErrInvalidSeatCount
	}

	return &JoinRequest{
		CreatedAt:      time.Now().UTC(),
		RideID:         rideID,
		PassengerID:    passengerID,
		SeatsRequested: seats,
		Message:        strings.TrimSpace(message),
		Status:         StatusPending,
	}, nil
}

// Accept moves PENDING -> ACCEPTED.
func (req *JoinRequest) Accept() error {
	return req.decide(StatusAccepted)
}

// Reject moves PENDING -> REJECTED.
func (req *JoinRequest) Reject() error {
	return req.decide(StatusRejected)
}

func (req *JoinRequest) decide(next Status) error {
	if req.Status.Terminal() {
		return ErrAlreadyDecided
	}
	now := time.Now().UTC()
	req.DecidedAt = &now
	req.Status = next
	return nil
}
