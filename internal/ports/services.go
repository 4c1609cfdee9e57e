package ports

import (
	"context"
	"time"

	"campus-carpool/internal/domain/ride"
)

// ----- DTOs for the Booking Service -----

// CreateRideInput is the validated input required to publish a ride.
type CreateRideInput struct {
	DriverID       string
	FromLocation   string
	ToLocation     string
	DepartureTime  time.Time
	TotalSeats     int
	PricePerSeat   float64
	InstantBooking bool
	Vehicle        *ride.VehicleInfo
	Preferences    ride.Preferences
	ChatEnabled    bool
}

// JoinInstantInput is the validated input for an instant booking.
type JoinInstantInput struct {
	RideID      string
	PassengerID string
	Seats       int
}

// JoinRequestInput is the validated input for an approval-flow join.
type JoinRequestInput struct {
	RideID      string
	PassengerID string
	Seats       int
	Message     string
}

// Decision is the driver's verdict on a pending join request.
type Decision string

const (
	DecisionAccepted Decision = "ACCEPTED"
	DecisionRejected Decision = "REJECTED"
)

// Valid reports whether the decision is one of the two allowed verdicts.
func (d Decision) Valid() bool {
	return d == DecisionAccepted || d == DecisionRejected
}

// DecideInput identifies the request being decided and the deciding driver.
type DecideInput struct {
	RequestID string
	DriverID  string
	Decision  Decision
}

// RideView is the read model returned by queries and mutations.
type RideView struct {
	RideID          string           `json:"ride_id"`
	RideNumber      string           `json:"ride_number"`
	DriverID        string           `json:"driver_id"`
	From            string           `json:"from"`
	To              string           `json:"to"`
	DepartureTime   time.Time        `json:"departure_time"`
	TotalSeats      int              `json:"total_seats"`
	AvailableSeats  int              `json:"available_seats"`
	PricePerSeat    float64          `json:"price_per_seat"`
	InstantBooking  bool             `json:"instant_booking"`
	Status          string           `json:"status"`
	IsExpired       bool             `json:"is_expired"`
	TimeUntilStart  string           `json:"time_until_start,omitempty"`
	TimeUntilExpiry string           `json:"time_until_expiry,omitempty"`
	Passengers      []PassengerView  `json:"passengers,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// PassengerView is the read model of one confirmed seat holder.
type PassengerView struct {
	PassengerID string    `json:"passenger_id"`
	SeatsBooked int       `json:"seats_booked"`
	Status      string    `json:"status"`
	JoinedAt    time.Time `json:"joined_at"`
}

// RequestView is the read model of one join request.
type RequestView struct {
	RequestID   string     `json:"request_id"`
	RideID      string     `json:"ride_id"`
	PassengerID string     `json:"passenger_id"`
	Seats       int        `json:"seats"`
	Message     string     `json:"message,omitempty"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

// JoinResult is returned by JoinInstant.
type JoinResult struct {
	RideID         string `json:"ride_id"`
	PassengerID    string `json:"passenger_id"`
	SeatsBooked    int    `json:"seats_booked"`
	AvailableSeats int    `json:"available_seats"`
	RideStatus     string `json:"ride_status"`
}

// RequestResult is returned by JoinByRequest.
type RequestResult struct {
	RequestID string `json:"request_id"`
	RideID    string `json:"ride_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// DecisionResult is returned by DecideRequest.
type DecisionResult struct {
	RequestID      string `json:"request_id"`
	RideID         string `json:"ride_id"`
	Status         string `json:"status"`
	AvailableSeats int    `json:"available_seats"`
	RideStatus     string `json:"ride_status"`
}

// CancelResult is returned by the two cancellation operations.
type CancelResult struct {
	RideID         string `json:"ride_id"`
	Status         string `json:"status"`
	AvailableSeats int    `json:"available_seats,omitempty"`
	Message        string `json:"message"`
}

// StatsView summarizes the ride inventory by status.
type StatsView struct {
	Active    int `json:"active"`
	Full      int `json:"full"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Expired   int `json:"expired"`
}

// ----- Booking Service Interface -----

// BookingService exposes the boundary of the booking workflow engine: the
// two booking modes, the driver decision path, the cancellation paths, and
// the read queries used by the presentation layer.
type BookingService interface {
	CreateRide(ctx context.Context, in CreateRideInput) (RideView, error)
	JoinInstant(ctx context.Context, in JoinInstantInput) (JoinResult, error)
	JoinByRequest(ctx context.Context, in JoinRequestInput) (RequestResult, error)
	DecideRequest(ctx context.Context, in DecideInput) (DecisionResult, error)
	CancelParticipation(ctx context.Context, rideID, passengerID string) (CancelResult, error)
	CancelRide(ctx context.Context, rideID, driverID string) (CancelResult, error)

	GetRide(ctx context.Context, rideID string) (RideView, error)
	ListActiveRides(ctx context.Context, filter RideFilter) ([]RideView, error)
	ListPendingRequests(ctx context.Context, rideID, driverID string) ([]RequestView, error)
	Stats(ctx context.Context) (StatsView, error)
}

// ----- Notifier port -----

// NotificationKind enumerates the events the engine reports to counterparties.
type NotificationKind string

const (
	NotifyRequestSubmitted NotificationKind = "REQUEST_SUBMITTED"
	NotifyRequestAccepted  NotificationKind = "REQUEST_ACCEPTED"
	NotifyRequestRejected  NotificationKind = "REQUEST_REJECTED"
	NotifyPassengerJoined  NotificationKind = "PASSENGER_JOINED"
	NotifyPassengerLeft    NotificationKind = "PASSENGER_LEFT"
	NotifyRideCancelled    NotificationKind = "RIDE_CANCELLED"
	NotifyRideExpired      NotificationKind = "RIDE_EXPIRED"
)

// Notification is one fire-and-forget event directed at a single recipient.
type Notification struct {
	Kind         NotificationKind
	RecipientID  string
	RideID       string
	RequestID    string
	FromLocation string
	ToLocation   string
	Seats        int
}

// Notifier delivers notifications to their recipients. Delivery and retry
// are the implementation's responsibility; the engine never blocks on or
// rolls back over a failed notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
