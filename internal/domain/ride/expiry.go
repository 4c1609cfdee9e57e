package ride

import "time"

// DefaultGracePeriod is how long past departure a ride stays visible before
// the sweep marks it EXPIRED. Integrators override it via configuration.
const DefaultGracePeriod = 30 * time.Minute

// Expiry is the time-based view of a ride computed from its departure time.
type Expiry struct {
	IsExpired       bool
	TimeUntilStart  time.Duration // zero once departure has passed
	TimeUntilExpiry time.Duration // zero once departure+grace has passed
}

// EvaluateExpiry computes the time-based status of a ride. It is pure and
// idempotent: callers may evaluate repeatedly for display or for batch
// expiry sweeps without side effects.
func EvaluateExpiry(departure, now time.Time, grace time.Duration) Expiry {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	deadline := departure.Add(grace)

	out := Expiry{
		IsExpired:       now.After(deadline),
		TimeUntilStart:  departure.Sub(now),
		TimeUntilExpiry: deadline.Sub(now),
	}
	if out.TimeUntilStart < 0 {
		out.TimeUntilStart = 0
	}
	if out.TimeUntilExpiry < 0 {
		out.TimeUntilExpiry = 0
	}
	return out
}

// ExpiryAt evaluates the ride's own departure time against now.
func (ride *Ride) ExpiryAt(now time.Time, grace time.Duration) Expiry {
	return EvaluateExpiry(ride.DepartureTime, now, grace)
}
