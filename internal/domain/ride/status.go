package ride

import (
	"errors"
	"strings"
)

// Status is a ride status as stored in the `rides` table.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusFull      Status = "FULL"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

var ErrInvalidStatus = errors.New("invalid ride status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed ride status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusActive, StatusFull, StatusCompleted, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo specifies if the status can transition to the next status.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusActive:
		return next == StatusFull || next == StatusCompleted || next == StatusCancelled || next == StatusExpired

	case StatusFull:
		// releasing seats reopens the ride
		return next == StatusActive || next == StatusCompleted || next == StatusCancelled || next == StatusExpired

	case StatusCompleted, StatusCancelled, StatusExpired:
		return false

	default:
		return false
	}
}

// Terminal indicates if the status is in a terminal state. A terminal ride
// freezes its seat ledger and rejects every further join or decision.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusCancelled || status == StatusExpired
}

// Joinable reports whether new passengers may still enter the ride.
func (status Status) Joinable() bool {
	return status == StatusActive
}
