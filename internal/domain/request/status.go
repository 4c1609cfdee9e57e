package request

import (
	"errors"
	"strings"
)

// Status is a join request status as stored in the `join_requests` table.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

var ErrInvalidStatus = errors.New("invalid join request status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// Terminal indicates whether the request has been decided. A request never
// transitions out of ACCEPTED or REJECTED.
func (status Status) Terminal() bool {
	return status == StatusAccepted || status == StatusRejected
}
