package ride

import (
	"errors"
	"strings"
	"time"
)

// Ride is the domain entity corresponding to the `rides` table.
type Ride struct {
	// Identity & audit
	ID         string
	RideNumber string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Actors
	DriverID string

	// Route & schedule
	FromLocation  string
	ToLocation    string
	DepartureTime time.Time

	// Seat ledger
	TotalSeats     int
	AvailableSeats int

	// Booking mode
	InstantBooking bool

	// Core state
	Status Status

	// Additional info
	PricePerSeat float64
	Vehicle      *VehicleInfo
	Preferences  Preferences
	ChatEnabled  bool

	// Lifecycle timestamps
	CompletedAt *time.Time
	CancelledAt *time.Time
	ExpiredAt   *time.Time
}

var (
	ErrDriverRequired            = errors.New("driver id is required")
	ErrRideNumberRequired        = errors.New("ride number is required")
	ErrRouteRequired             = errors.New("from and to locations are required")
	ErrDepartureRequired         = errors.New("departure time is required")
	ErrInvalidTotalSeats         = errors.New("total seats must be at least 1")
	ErrInvalidSeatCount          = errors.New("seats must be at least 1")
	ErrInvalidPrice              = errors.New("price per seat must not be negative")
	ErrInvalidStatusTransition   = errors.New("invalid ride status transition")
	ErrInsufficientSeats         = errors.New("not enough available seats")
	ErrRideNotJoinable           = errors.New("ride is not accepting new passengers")
	ErrAlreadyConfirmedPassenger = errors.New("passenger already holds a seat on this ride")
	ErrRideNotFound              = errors.New("ride not found")
)

// NewRide creates a ride in ACTIVE state with a full seat ledger.
func NewRide(rideNumber, driverID, from, to string, departure time.Time, totalSeats int, pricePerSeat float64, instantBooking bool) (*Ride, error) {
	if rideNumber = strings.TrimSpace(rideNumber); rideNumber == "" {
		return nil, ErrRideNumberRequired
	}
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrDriverRequired
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return nil, ErrRouteRequired
	}
	if departure.IsZero() {
		return nil, ErrDepartureRequired
	}
	if totalSeats < 1 {
		return nil, ErrInvalidTotalSeats
	}
	if pricePerSeat < 0 {
		return nil, ErrInvalidPrice
	}

	now := time.Now().UTC()
	return &Ride{
		RideNumber:     rideNumber,
		CreatedAt:      now,
		UpdatedAt:      now,
		DriverID:       driverID,
		FromLocation:   from,
		ToLocation:     to,
		DepartureTime:  departure.UTC(),
		TotalSeats:     totalSeats,
		AvailableSeats: totalSeats,
		InstantBooking: instantBooking,
		Status:         StatusActive,
		PricePerSeat:   pricePerSeat,
		ChatEnabled:    true,
	}, nil
}

// Reserve decrements the available seat counter. When the last seat is taken
// the ride flips to FULL. The counter never goes below zero: a request for
// more seats than available fails with ErrInsufficientSeats and leaves the
// ledger untouched.
func (ride *Ride) Reserve(seats int) error {
	if seats < 1 {
		return ErrInvalidSeatCount
	}
	if !ride.Status.Joinable() {
		return ErrRideNotJoinable
	}
	if seats > ride.AvailableSeats {
		return ErrInsufficientSeats
	}

	ride.AvailableSeats -= seats
	if ride.AvailableSeats == 0 {
		ride.setStatus(StatusFull)
		return nil
	}
	ride.touch()
	return nil
}

// Release returns seats to the ledger, capped at TotalSeats. A FULL ride
// reopens to ACTIVE; terminal rides are frozen and never reopened.
func (ride *Ride) Release(seats int) {
	if seats < 1 || ride.Status.Terminal() {
		return
	}

	ride.AvailableSeats += seats
	if ride.AvailableSeats > ride.TotalSeats {
		ride.AvailableSeats = ride.TotalSeats
	}
	if ride.Status == StatusFull {
		ride.setStatus(StatusActive)
		return
	}
	ride.touch()
}

// Cancel transitions to CANCELLED (if not terminal).
func (ride *Ride) Cancel() error {
	if ride.Status.Terminal() {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	ride.CancelledAt = &now
	ride.setStatus(StatusCancelled)
	return nil
}

// Complete transitions to COMPLETED (if not terminal).
func (ride *Ride) Complete() error {
	if ride.Status.Terminal() {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	ride.CompletedAt = &now
	ride.setStatus(StatusCompleted)
	return nil
}

// Expire marks the ride EXPIRED. The transition is one-way and idempotent:
// expiring an already-expired ride is a no-op, and cancelled/completed rides
// keep their status.
func (ride *Ride) Expire(at time.Time) {
	if ride.Status.Terminal() {
		return
	}
	ts := at.UTC()
	ride.ExpiredAt = &ts
	ride.setStatus(StatusExpired)
}

// SeatsConsistent reports whether the ledger matches the confirmed passenger
// list: available_seats == total_seats - sum(seats_booked).
func (ride *Ride) SeatsConsistent(passengers []Passenger) bool {
	booked := 0
	for _, p := range passengers {
		booked += p.SeatsBooked
	}
	return ride.AvailableSeats == ride.TotalSeats-booked &&
		ride.AvailableSeats >= 0 && ride.AvailableSeats <= ride.TotalSeats
}

// ----- internal helpers -----

func (ride *Ride) setStatus(status Status) {
	ride.Status = status
	ride.touch()
}

func (ride *Ride) touch() {
	ride.UpdatedAt = time.Now().UTC()
}
