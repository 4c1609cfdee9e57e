package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"campus-carpool/internal/domain/request"
	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/general/logger"
	"campus-carpool/internal/ports"
)

// memStore is the shared backing state of the in-memory fakes. The fake unit
// of work holds the mutex for the whole transaction, so repository methods
// run lock-free and every transaction is serialized, like row locks would.
type memStore struct {
	mu         sync.Mutex
	rides      map[string]*ride.Ride
	passengers map[string]*ride.Passenger // key: rideID + "/" + passengerID
	requests   map[string]*request.JoinRequest
	events     []*ride.Event
	seq        int
}

func newMemStore() *memStore {
	return &memStore{
		rides:      make(map[string]*ride.Ride),
		passengers: make(map[string]*ride.Passenger),
		requests:   make(map[string]*request.JoinRequest),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

func passengerKey(rideID, passengerID string) string {
	return rideID + "/" + passengerID
}

func cloneRide(r *ride.Ride) *ride.Ride {
	c := *r
	if r.Vehicle != nil {
		v := *r.Vehicle
		c.Vehicle = &v
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		c.CancelledAt = &t
	}
	if r.ExpiredAt != nil {
		t := *r.ExpiredAt
		c.ExpiredAt = &t
	}
	return &c
}

func cloneRequest(req *request.JoinRequest) *request.JoinRequest {
	c := *req
	if req.DecidedAt != nil {
		t := *req.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}

func clonePassenger(p *ride.Passenger) *ride.Passenger {
	c := *p
	return &c
}

// snapshot deep-copies the mutable state so a failed transaction can roll back.
func (s *memStore) snapshot() *memStore {
	snap := newMemStore()
	snap.seq = s.seq
	for id, r := range s.rides {
		snap.rides[id] = cloneRide(r)
	}
	for k, p := range s.passengers {
		snap.passengers[k] = clonePassenger(p)
	}
	for id, req := range s.requests {
		snap.requests[id] = cloneRequest(req)
	}
	snap.events = append([]*ride.Event(nil), s.events...)
	return snap
}

func (s *memStore) restore(snap *memStore) {
	s.rides = snap.rides
	s.passengers = snap.passengers
	s.requests = snap.requests
	s.events = snap.events
	s.seq = snap.seq
}

// ----- unit of work -----

// fakeUOW serializes transactions on the store mutex and rolls the store back
// when the transaction function returns an error.
type fakeUOW struct {
	store *memStore
}

func (u *fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	snap := u.store.snapshot()
	if err := fn(ctx); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

// ----- ride repository -----

type fakeRideRepo struct {
	store *memStore
}

func (repo *fakeRideRepo) CreateRide(_ context.Context, r *ride.Ride) error {
	if r.ID == "" {
		r.ID = repo.store.nextID("ride")
	}
	repo.store.rides[r.ID] = cloneRide(r)
	repo.appendEvent(r.ID, ride.EventRideCreated)
	return nil
}

func (repo *fakeRideRepo) GetByID(_ context.Context, id string) (*ride.Ride, error) {
	r, ok := repo.store.rides[id]
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	return cloneRide(r), nil
}

func (repo *fakeRideRepo) GetByIDForUpdate(ctx context.Context, id string) (*ride.Ride, error) {
	return repo.GetByID(ctx, id)
}

func (repo *fakeRideRepo) ListActive(_ context.Context, filter ports.RideFilter) ([]*ride.Ride, error) {
	var out []*ride.Ride
	for _, r := range repo.store.rides {
		switch r.Status {
		case ride.StatusActive, ride.StatusFull, ride.StatusExpired:
		default:
			continue
		}
		if filter.From != "" && r.FromLocation != filter.From {
			continue
		}
		if filter.To != "" && r.ToLocation != filter.To {
			continue
		}
		if filter.DriverID != "" && r.DriverID != filter.DriverID {
			continue
		}
		out = append(out, cloneRide(r))
	}
	// soonest departure first, matching the SQL repo's ORDER BY
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.Before(out[j].DepartureTime) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (repo *fakeRideRepo) ReserveSeats(_ context.Context, rideID string, seats int) (int, error) {
	r, ok := repo.store.rides[rideID]
	if !ok {
		return 0, ride.ErrRideNotFound
	}
	if r.Status != ride.StatusActive {
		return 0, ride.ErrRideNotJoinable
	}
	if r.AvailableSeats < seats {
		return 0, ride.ErrInsufficientSeats
	}
	r.AvailableSeats -= seats
	if r.AvailableSeats == 0 {
		r.Status = ride.StatusFull
	}
	return r.AvailableSeats, nil
}

func (repo *fakeRideRepo) ReleaseSeats(_ context.Context, rideID string, seats int) (int, error) {
	r, ok := repo.store.rides[rideID]
	if !ok {
		return 0, ride.ErrRideNotFound
	}
	// terminal rides keep their frozen ledger
	if r.Status.Terminal() {
		return r.AvailableSeats, nil
	}
	r.AvailableSeats += seats
	if r.AvailableSeats > r.TotalSeats {
		r.AvailableSeats = r.TotalSeats
	}
	if r.Status == ride.StatusFull {
		r.Status = ride.StatusActive
	}
	return r.AvailableSeats, nil
}

func (repo *fakeRideRepo) Cancel(_ context.Context, rideID string, cancelledAt time.Time) error {
	r, ok := repo.store.rides[rideID]
	if !ok {
		return ride.ErrRideNotFound
	}
	if r.Status == ride.StatusCancelled {
		return nil
	}
	if r.Status.Terminal() {
		return ride.ErrInvalidStatusTransition
	}
	ts := cancelledAt.UTC()
	r.Status = ride.StatusCancelled
	r.CancelledAt = &ts
	repo.appendEvent(rideID, ride.EventRideCancelled)
	return nil
}

func (repo *fakeRideRepo) MarkExpired(_ context.Context, rideID string, expiredAt time.Time) (bool, error) {
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
	repo.appendEvent(rideID, ride.EventRideExpired)
	return true, nil
}

func (repo *fakeRideRepo) ListExpiryCandidates(_ context.Context, departedBefore time.Time, limit int) ([]*ride.Ride, error) {
	var out []*ride.Ride
	for _, r := range repo.store.rides {
		if r.Status != ride.StatusActive && r.Status != ride.StatusFull {
			continue
		}
		if !r.DepartureTime.Before(departedBefore) {
			continue
		}
		out = append(out, cloneRide(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.Before(out[j].DepartureTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (repo *fakeRideRepo) StatusCounts(_ context.Context) (map[ride.Status]int, error) {
	counts := make(map[ride.Status]int)
	for _, r := range repo.store.rides {
		counts[r.Status]++
	}
	return counts, nil
}

func (repo *fakeRideRepo) appendEvent(rideID string, eventType ride.EventType) {
	ev, err := ride.NewEvent(rideID, eventType, map[string]any{})
	if err != nil {
		return
	}
	ev.ID = repo.store.nextID("event")
	repo.store.events = append(repo.store.events, ev)
}

// ----- passenger repository -----

type fakePassengerRepo struct {
	store *memStore
}

func (repo *fakePassengerRepo) Add(_ context.Context, p *ride.Passenger) error {
	key := passengerKey(p.RideID, p.PassengerID)
	if _, exists := repo.store.passengers[key]; exists {
		return ride.ErrAlreadyConfirmedPassenger
	}
	if p.ID == "" {
		p.ID = repo.store.nextID("pass")
	}
	repo.store.passengers[key] = clonePassenger(p)
	return nil
}

func (repo *fakePassengerRepo) GetByRideAndPassenger(_ context.Context, rideID, passengerID string) (*ride.Passenger, error) {
	p, ok := repo.store.passengers[passengerKey(rideID, passengerID)]
	if !ok {
		return nil, nil
	}
	return clonePassenger(p), nil
}

func (repo *fakePassengerRepo) ListByRide(_ context.Context, rideID string) ([]ride.Passenger, error) {
	var out []ride.Passenger
	for _, p := range repo.store.passengers {
		if p.RideID == rideID {
			out = append(out, *clonePassenger(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (repo *fakePassengerRepo) Remove(_ context.Context, rideID, passengerID string) (*ride.Passenger, error) {
	key := passengerKey(rideID, passengerID)
	p, ok := repo.store.passengers[key]
	if !ok {
		return nil, nil
	}
	delete(repo.store.passengers, key)
	return clonePassenger(p), nil
}

// ----- join request repository -----

type fakeRequestRepo struct {
	store *memStore
}

func (repo *fakeRequestRepo) Create(_ context.Context, req *request.JoinRequest) error {
	for _, existing := range repo.store.requests {
		if existing.RideID == req.RideID &&
			existing.PassengerID == req.PassengerID &&
			existing.Status == request.StatusPending {
			return request.ErrDuplicateActiveRequest
		}
	}
	if req.ID == "" {
		req.ID = repo.store.nextID("jreq")
	}
	repo.store.requests[req.ID] = cloneRequest(req)
	return nil
}

func (repo *fakeRequestRepo) GetByID(_ context.Context, id string) (*request.JoinRequest, error) {
	req, ok := repo.store.requests[id]
	if !ok {
		return nil, request.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (repo *fakeRequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*request.JoinRequest, error) {
	return repo.GetByID(ctx, id)
}

func (repo *fakeRequestRepo) GetActiveForPassenger(_ context.Context, rideID, passengerID string) (*request.JoinRequest, error) {
	for _, req := range repo.store.requests {
		if req.RideID == rideID && req.PassengerID == passengerID && req.Status == request.StatusPending {
			return cloneRequest(req), nil
		}
	}
	return nil, nil
}

func (repo *fakeRequestRepo) ListPendingByRide(_ context.Context, rideID string) ([]*request.JoinRequest, error) {
	var out []*request.JoinRequest
	for _, req := range repo.store.requests {
		if req.RideID == rideID && req.Status == request.StatusPending {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (repo *fakeRequestRepo) UpdateStatus(_ context.Context, id string, status request.Status, decidedAt time.Time) error {
	req, ok := repo.store.requests[id]
	if !ok {
		return request.ErrNotFound
	}
	if req.Status.Terminal() {
		return request.ErrAlreadyDecided
	}
	ts := decidedAt.UTC()
	req.Status = status
	req.DecidedAt = &ts
	return nil
}

// ----- event repository -----

type fakeEventRepo struct {
	store *memStore
}

func (repo *fakeEventRepo) Append(_ context.Context, e *ride.Event) error {
	if e.ID == "" {
		e.ID = repo.store.nextID("event")
	}
	repo.store.events = append(repo.store.events, e)
	return nil
}

// ----- notifier -----

type fakeNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
	fail error
}

func (n *fakeNotifier) Notify(_ context.Context, notification ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, notification)
	return nil
}

func (n *fakeNotifier) sentOfKind(kind ports.NotificationKind) []ports.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []ports.Notification
	for _, sent := range n.sent {
		if sent.Kind == kind {
			out = append(out, sent)
		}
	}
	return out
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

// ----- test harness -----

type testEnv struct {
	svc      ports.BookingService
	store    *memStore
	notifier *fakeNotifier
}

func newTestEnv() *testEnv {
	store := newMemStore()
	notifier := &fakeNotifier{}
	svc := NewBookingService(
		logger.New("booking-test"),
		&fakeUOW{store: store},
		&fakeRideRepo{store: store},
		&fakePassengerRepo{store: store},
		&fakeRequestRepo{store: store},
		&fakeEventRepo{store: store},
		notifier,
		30*time.Minute,
	)
	return &testEnv{svc: svc, store: store, notifier: notifier}
}

// seedRide puts a ride directly into the store, bypassing the service.
func (env *testEnv) seedRide(driverID string, seats int, instant bool, departure time.Time) *ride.Ride {
	r, err := ride.NewRide("CARPOOL_SEED_001", driverID, "North Campus", "City Center",
		departure, seats, 2.50, instant)
	if err != nil {
		panic(err)
	}
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	r.ID = env.store.nextID("ride")
	r.RideNumber = "CARPOOL_SEED_" + r.ID
	env.store.rides[r.ID] = r
	return cloneRide(r)
}

// rideState reads the current store state of one ride.
func (env *testEnv) rideState(id string) *ride.Ride {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	r, ok := env.store.rides[id]
	if !ok {
		return nil
	}
	return cloneRide(r)
}

// requestState reads the current store state of one join request.
func (env *testEnv) requestState(id string) *request.JoinRequest {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	req, ok := env.store.requests[id]
	if !ok {
		return nil
	}
	return cloneRequest(req)
}

// passengerCount counts confirmed passengers on one ride.
func (env *testEnv) passengerCount(rideID string) int {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	count := 0
	for _, p := range env.store.passengers {
		if p.RideID == rideID {
			count++
		}
	}
	return count
}

// eventTypes lists the audit event types recorded for one ride, in order.
func (env *testEnv) eventTypes(rideID string) []ride.EventType {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	var out []ride.EventType
	for _, e := range env.store.events {
		if e.RideID == rideID {
			out = append(out, e.Type)
		}
	}
	return out
}
