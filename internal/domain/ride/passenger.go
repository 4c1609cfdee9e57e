package ride

import (
	"errors"
	"strings"
	"time"
)

// PassengerStatus is the state of a confirmed seat holder as stored in the
// `ride_passengers` table. CONFIRMED is terminal; PENDING/ACCEPTED only
// appear transiently for approval-flow entries that are not finalized yet.
type PassengerStatus string

const (
	PassengerPending   PassengerStatus = "PENDING"
	PassengerAccepted  PassengerStatus = "ACCEPTED"
	PassengerConfirmed PassengerStatus = "CONFIRMED"
)

var ErrInvalidPassengerStatus = errors.New("invalid passenger status")

// Valid reports whether status is one of the allowed passenger status constants.
func (status PassengerStatus) Valid() bool {
	switch status {
	case PassengerPending, PassengerAccepted, PassengerConfirmed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the PassengerStatus.
func (status PassengerStatus) String() string {
	return string(status)
}

// Passenger is a confirmed seat holder on a ride, created either directly by
// an instant booking or by the driver accepting a join request.
type Passenger struct {
	ID          string
	RideID      string
	PassengerID string
	SeatsBooked int
	Status      PassengerStatus
	JoinedAt    time.Time
}

var (
	ErrPassengerRequired = errors.New("passenger id is required")
	ErrNotAPassenger     = errors.New("passenger does not hold a seat on this ride")
)

// NewPassenger constructs a confirmed passenger entry for a ride.
func NewPassenger(rideID, passengerID string, seats int) (*Passenger, error) {
	if rideID = strings.TrimSpace(rideID); rideID == "" {
		return nil, ErrRideIDRequired
	}
	if passengerID = strings.TrimSpace(passengerID); passengerID == "" {
		return nil, ErrPassengerRequired
	}
	if seats < 1 {
		return nil, ErrInvalidSeatCount
	}

	return &Passenger{
		RideID:      rideID,
		PassengerID: passengerID,
		SeatsBooked: seats,
		Status:      PassengerConfirmed,
		JoinedAt:    time.Now().UTC(),
	}, nil
}
