package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/general/logger"
	"campus-carpool/internal/ports"
)

// sweepStore is a minimal in-memory ride store for sweeper tests.
type sweepStore struct {
	mu    sync.Mutex
	rides map[string]*ride.Ride
}

func newSweepStore() *sweepStore {
	return &sweepStore{rides: make(map[string]*ride.Ride)}
}

func (s *sweepStore) add(id, driverID string, status ride.Status, departure time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides[id] = &ride.Ride{
		ID:             id,
		RideNumber:     "CARPOOL_SWEEP_" + id,
		DriverID:       driverID,
		FromLocation:   "North Campus",
		ToLocation:     "City Center",
		DepartureTime:  departure.UTC(),
		TotalSeats:     4,
		AvailableSeats: 4,
		Status:         status,
	}
}

func (s *sweepStore) status(id string) ride.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rides[id].Status
}

type passthroughUOW struct{}

func (passthroughUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// sweepRideRepo implements only the methods the sweeper touches; the rest
// panic so an unexpected call surfaces immediately.
type sweepRideRepo struct {
	store *sweepStore
}

func (repo *sweepRideRepo) ListExpiryCandidates(_ context.Context, departedBefore time.Time, limit int) ([]*ride.Ride, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()
	var out []*ride.Ride
	for _, r := range repo.store.rides {
		if r.Status != ride.StatusActive && r.Status != ride.StatusFull {
			continue
		}
		if !r.DepartureTime.Before(departedBefore) {
			continue
		}
		c := *r
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (repo *sweepRideRepo) MarkExpired(_ context.Context, rideID string, expiredAt time.Time) (bool, error) {
	repo.store.mu.Lock()
	defer repo.store.mu.Unlock()
	r, ok := repo.store.rides[rideID]
	if !ok {
		return false, ride.ErrRideNotFound
	}
	if r.Status != ride.StatusActive && r.Status != ride.StatusFull {
		return false, nil
	}
	ts := expiredAt.UTC()
	r.Status = ride.StatusExpired
	r.ExpiredAt = &ts
	return true, nil
}

func (repo *sweepRideRepo) CreateRide(context.Context, *ride.Ride) error { panic("unexpected") }
func (repo *sweepRideRepo) GetByID(context.Context, string) (*ride.Ride, error) {
	panic("unexpected")
}
func (repo *sweepRideRepo) GetByIDForUpdate(context.Context, string) (*ride.Ride, error) {
	panic("unexpected")
}
func (repo *sweepRideRepo) ListActive(context.Context, ports.RideFilter) ([]*ride.Ride, error) {
	panic("unexpected")
}
func (repo *sweepRideRepo) ReserveSeats(context.Context, string, int) (int, error) {
	panic("unexpected")
}
func (repo *sweepRideRepo) ReleaseSeats(context.Context, string, int) (int, error) {
	panic("unexpected")
}
func (repo *sweepRideRepo) Cancel(context.Context, string, time.Time) error { panic("unexpected") }
func (repo *sweepRideRepo) StatusCounts(context.Context) (map[ride.Status]int, error) {
	panic("unexpected")
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

func (n *recordingNotifier) all() []ports.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ports.Notification(nil), n.sent...)
}

func newTestSweeper(store *sweepStore, notifier ports.Notifier) *Sweeper {
	return NewSweeper(
		logger.New("expiry-test"),
		passthroughUOW{},
		&sweepRideRepo{store: store},
		notifier,
		30*time.Minute,
		time.Minute,
		100,
	)
}

func TestSweepOnceExpiresOverdueRides(t *testing.T) {
	store := newSweepStore()
	notifier := &recordingNotifier{}
	now := time.Now()

	store.add("ride-overdue", "driver-1", ride.StatusActive, now.Add(-2*time.Hour))
	store.add("ride-full-overdue", "driver-2", ride.StatusFull, now.Add(-time.Hour))
	store.add("ride-in-grace", "driver-3", ride.StatusActive, now.Add(-10*time.Minute))
	store.add("ride-upcoming", "driver-4", ride.StatusActive, now.Add(2*time.Hour))

	if err := newTestSweeper(store, notifier).SweepOnce(context.Background()); err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}

	if got := store.status("ride-overdue"); got != ride.StatusExpired {
		t.Errorf("ride-overdue: got %s, want EXPIRED", got)
	}
	if got := store.status("ride-full-overdue"); got != ride.StatusExpired {
		t.Errorf("ride-full-overdue: got %s, want EXPIRED (FULL rides expire too)", got)
	}
	if got := store.status("ride-in-grace"); got != ride.StatusActive {
		t.Errorf("ride-in-grace: got %s, want ACTIVE (still within grace)", got)
	}
	if got := store.status("ride-upcoming"); got != ride.StatusActive {
		t.Errorf("ride-upcoming: got %s, want ACTIVE", got)
	}

	sent := notifier.all()
	if len(sent) != 2 {
		t.Fatalf("got %d notifications, want 2", len(sent))
	}
	for _, n := range sent {
		if n.Kind != ports.NotifyRideExpired {
			t.Errorf("got kind %s, want RIDE_EXPIRED", n.Kind)
		}
	}
}

func TestSweepOnceIsIdempotent(t *testing.T) {
	store := newSweepStore()
	notifier := &recordingNotifier{}

	store.add("ride-overdue", "driver-1", ride.StatusActive, time.Now().Add(-2*time.Hour))
	sweeper := newTestSweeper(store, notifier)
	ctx := context.Background()

	if err := sweeper.SweepOnce(ctx); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if err := sweeper.SweepOnce(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}

	// expired on the first pass, skipped on the second: exactly one notification
	if got := len(notifier.all()); got != 1 {
		t.Fatalf("got %d notifications after two sweeps, want 1", got)
	}
}

func TestSweepNeverResurrectsTerminalRides(t *testing.T) {
	store := newSweepStore()

	store.add("ride-cancelled", "driver-1", ride.StatusCancelled, time.Now().Add(-2*time.Hour))
	store.add("ride-completed", "driver-2", ride.StatusCompleted, time.Now().Add(-2*time.Hour))

	if err := newTestSweeper(store, &recordingNotifier{}).SweepOnce(context.Background()); err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}

	if got := store.status("ride-cancelled"); got != ride.StatusCancelled {
		t.Errorf("cancelled ride changed to %s", got)
	}
	if got := store.status("ride-completed"); got != ride.StatusCompleted {
		t.Errorf("completed ride changed to %s", got)
	}
}

func TestSweepWithoutNotifierStillExpires(t *testing.T) {
	store := newSweepStore()
	store.add("ride-overdue", "driver-1", ride.StatusActive, time.Now().Add(-2*time.Hour))

	if err := newTestSweeper(store, nil).SweepOnce(context.Background()); err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if got := store.status("ride-overdue"); got != ride.StatusExpired {
		t.Fatalf("got %s, want EXPIRED", got)
	}
}
