package ride

import (
	"errors"
	"strings"
)

// EventType corresponds to the values in the `ride_event_type` table.
type EventType string

const (
	EventRideCreated      EventType = "RIDE_CREATED"
	EventPassengerJoined  EventType = "PASSENGER_JOINED"
	EventPassengerLeft    EventType = "PASSENGER_LEFT"
	EventRequestSubmitted EventType = "REQUEST_SUBMITTED"
	EventRequestAccepted  EventType = "REQUEST_ACCEPTED"
	EventRequestRejected  EventType = "REQUEST_REJECTED"
	EventRideFull         EventType = "RIDE_FULL"
	EventRideReopened     EventType = "RIDE_REOPENED"
	EventRideCancelled    EventType = "RIDE_CANCELLED"
	EventRideExpired      EventType = "RIDE_EXPIRED"
	EventStatusChanged    EventType = "STATUS_CHANGED"
)

var ErrInvalidEventType = errors.New("invalid ride event type")

// ParseEventType normalizes (uppercases+trims) and validates an event type string.
func ParseEventType(input string) (EventType, error) {
	eventType := EventType(strings.ToUpper(strings.TrimSpace(input)))
	if eventType.Valid() {
		return eventType, nil
	}
	return "", ErrInvalidEventType
}

// Valid reports whether eventType is one of the allowed event type constants.
func (eventType EventType) Valid() bool {
	switch eventType {
	case EventRideCreated,
		EventPassengerJoined,
		EventPassengerLeft,
		EventRequestSubmitted,
		EventRequestAccepted,
		EventRequestRejected,
		EventRideFull,
		EventRideReopened,
		EventRideCancelled,
		EventRideExpired,
		EventStatusChanged:
		return true
	default:
		return false
	}
}

// String returns the string representation of the EventType.
func (eventType EventType) String() string {
	return string(eventType)
}
