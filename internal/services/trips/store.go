package trips

import (
	"cmp"
	"slices"
	"sync"

	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/services/verifier"
	"github.com/pkg/errors"
)

// Store owns the driver's trips for the session. It is volatile: the feed rebuilds it.
//
// One RWMutex guards everything. Queries return deep copies, so a reader never
// observes a half-applied mutation, and two racing mutations of the same pickup
// resolve with exactly one winner.
type Store struct {
	mu       sync.RWMutex
	verifier verifier.Verifier

	trips map[string]*tripEntry
	order []string
}

type tripEntry struct {
	trip    models.Trip // Pickups is always nil here, see pickups
	pickups []*models.Pickup
	byID    map[string]*models.Pickup
}

func NewStore(v verifier.Verifier) *Store {
	if v == nil {
		v = verifier.Exact{}
	}
	return &Store{
		verifier: v,
		trips:    make(map[string]*tripEntry),
	}
}

// Sync upserts trips from the feed. New trips are appended in feed order, known
// trips keep their position. A pickup already resolved here keeps its terminal
// status even if the feed still reports it pending, and stays in the trip when the
// feed record omits it. Trips missing from the feed are kept. Nothing is applied
// when any record is invalid.
func (s *Store) Sync(trips []models.Trip) error {
	entries, err := buildEntries(trips)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if old, ok := s.trips[e.trip.ID]; ok {
			if err := e.keepResolved(old); err != nil {
				return err
			}
		}
	}

	for _, e := range entries {
		id := e.trip.ID
		if _, ok := s.trips[id]; !ok {
			s.order = append(s.order, id)
		}
		s.trips[id] = e
	}
	return nil
}

// ListTrips returns trips in insertion order. An empty status means no filter.
func (s *Store) ListTrips(status string) []models.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Trip, 0, len(s.order))
	for _, id := range s.order {
		e := s.trips[id]
		if status != "" && e.trip.Status != status {
			continue
		}
		out = append(out, e.snapshot())
	}
	return out
}

func (s *Store) Trip(tripID string) (models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.entry(tripID)
	if err != nil {
		return models.Trip{}, err
	}
	return e.snapshot(), nil
}

// CurrentPickup returns the lowest-order pending pickup. ok is false when every
// pickup of the trip is resolved.
func (s *Store) CurrentPickup(tripID string) (p models.Pickup, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.entry(tripID)
	if err != nil {
		return models.Pickup{}, false, err
	}
	cur := e.current()
	if cur == nil {
		return models.Pickup{}, false, nil
	}
	return *cur, true, nil
}

// MarkPicked resolves a pending pickup when code matches its stored code.
// Order of checks: ids, then state (pending, trip active, next in order), then code.
func (s *Store) MarkPicked(tripID, pickupID, code string) (models.Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pendingPickup(tripID, pickupID)
	if err != nil {
		return models.Pickup{}, err
	}
	if !s.verifier.Verify(p.Code, code) {
		return models.Pickup{}, errors.Wrapf(ErrInvalidCode, "pickup %q of trip %q", pickupID, tripID)
	}
	p.Status = models.PickupStatusPicked
	return *p, nil
}

func (s *Store) MarkNoShow(tripID, pickupID string) (models.Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pendingPickup(tripID, pickupID)
	if err != nil {
		return models.Pickup{}, err
	}
	p.Status = models.PickupStatusNoShow
	return *p, nil
}

func (s *Store) CompletionStats(tripID string) (models.CompletionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.entry(tripID)
	if err != nil {
		return models.CompletionStats{}, err
	}
	return e.snapshot().CompletionStats(), nil
}

// Destination is the navigation hand-off accessor. ok is false when the trip has no coordinates.
func (s *Store) Destination(tripID string) (c models.Coordinates, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.entry(tripID)
	if err != nil {
		return models.Coordinates{}, false, err
	}
	if e.trip.Coordinates == nil {
		return models.Coordinates{}, false, nil
	}
	return *e.trip.Coordinates, true, nil
}

func (s *Store) entry(tripID string) (*tripEntry, error) {
	e, ok := s.trips[tripID]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "trip %q", tripID)
	}
	return e, nil
}

// pendingPickup returns the pickup a driver may act on right now: pending, on an
// active trip and next in pickup order. Must be called with the write lock held.
func (s *Store) pendingPickup(tripID, pickupID string) (*models.Pickup, error) {
	e, err := s.entry(tripID)
	if err != nil {
		return nil, err
	}
	p, ok := e.byID[pickupID]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "pickup %q of trip %q", pickupID, tripID)
	}
	if p.Status != models.PickupStatusPending {
		return nil, errors.Wrapf(ErrInvalidState, "pickup %q is %s", pickupID, p.Status)
	}
	if e.trip.Status != models.TripStatusActive {
		return nil, errors.Wrapf(ErrInvalidState, "trip %q is %s", tripID, e.trip.Status)
	}
	if cur := e.current(); cur != p {
		return nil, errors.Wrapf(ErrInvalidState, "pickup %q is out of order, next is %q", pickupID, cur.ID)
	}
	return p, nil
}

// Validate checks feed records with the same rules as Sync without touching a store.
func Validate(trips []models.Trip) error {
	_, err := buildEntries(trips)
	return err
}

func buildEntries(trips []models.Trip) ([]*tripEntry, error) {
	entries := make([]*tripEntry, 0, len(trips))
	seen := make(map[string]struct{}, len(trips))
	for _, t := range trips {
		e, err := newTripEntry(t)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[t.ID]; ok {
			return nil, errors.Wrapf(ErrInvalidTrip, "duplicate trip id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		entries = append(entries, e)
	}
	return entries, nil
}

func newTripEntry(t models.Trip) (*tripEntry, error) {
	if t.ID == "" {
		return nil, errors.Wrap(ErrInvalidTrip, "empty trip id")
	}
	if !models.IsTripStatus(t.Status) {
		return nil, errors.Wrapf(ErrInvalidTrip, "trip %q: unknown status %q", t.ID, t.Status)
	}

	e := &tripEntry{
		trip:    t,
		pickups: make([]*models.Pickup, 0, len(t.Pickups)),
		byID:    make(map[string]*models.Pickup, len(t.Pickups)),
	}
	e.trip.Pickups = nil
	if t.Coordinates != nil {
		c := *t.Coordinates
		e.trip.Coordinates = &c
	}

	orders := make(map[int]struct{}, len(t.Pickups))
	for _, in := range t.Pickups {
		p := in
		if p.ID == "" {
			return nil, errors.Wrapf(ErrInvalidTrip, "trip %q: empty pickup id", t.ID)
		}
		if _, ok := e.byID[p.ID]; ok {
			return nil, errors.Wrapf(ErrInvalidTrip, "trip %q: duplicate pickup id %q", t.ID, p.ID)
		}
		if p.PickupOrder <= 0 {
			return nil, errors.Wrapf(ErrInvalidTrip, "trip %q: pickup %q has order %d", t.ID, p.ID, p.PickupOrder)
		}
		if _, ok := orders[p.PickupOrder]; ok {
			return nil, errors.Wrapf(ErrInvalidTrip, "trip %q: duplicate pickup order %d", t.ID, p.PickupOrder)
		}
		if p.Status == "" {
			p.Status = models.PickupStatusPending
		}
		if !models.IsPickupStatus(p.Status) {
			return nil, errors.Wrapf(ErrInvalidTrip, "trip %q: pickup %q has unknown status %q", t.ID, p.ID, p.Status)
		}
		orders[p.PickupOrder] = struct{}{}
		e.byID[p.ID] = &p
		e.pickups = append(e.pickups, &p)
	}
	sortPickups(e.pickups)
	return e, nil
}

func sortPickups(ps []*models.Pickup) {
	slices.SortFunc(ps, func(a, b *models.Pickup) int {
		return cmp.Compare(a.PickupOrder, b.PickupOrder)
	})
}

// keepResolved carries terminal statuses from old into e. Resolved pickups the
// feed dropped are kept; one whose order the feed gave to another pickup makes
// the record invalid.
func (e *tripEntry) keepResolved(old *tripEntry) error {
	orders := make(map[int]string, len(e.pickups))
	for _, p := range e.pickups {
		orders[p.PickupOrder] = p.ID
		if prev, ok := old.byID[p.ID]; ok && prev.Status != models.PickupStatusPending {
			p.Status = prev.Status
		}
	}

	carried := false
	for _, prev := range old.pickups {
		if prev.Status == models.PickupStatusPending {
			continue
		}
		if _, ok := e.byID[prev.ID]; ok {
			continue
		}
		if other, ok := orders[prev.PickupOrder]; ok {
			return errors.Wrapf(ErrInvalidTrip, "trip %q: pickup %q takes order %d of resolved pickup %q",
				e.trip.ID, other, prev.PickupOrder, prev.ID)
		}
		p := *prev
		e.byID[p.ID] = &p
		e.pickups = append(e.pickups, &p)
		orders[p.PickupOrder] = p.ID
		carried = true
	}
	if carried {
		sortPickups(e.pickups)
	}
	return nil
}

func (e *tripEntry) current() *models.Pickup {
	for _, p := range e.pickups {
		if p.Status == models.PickupStatusPending {
			return p
		}
	}
	return nil
}

func (e *tripEntry) snapshot() models.Trip {
	t := e.trip
	if e.trip.Coordinates != nil {
		c := *e.trip.Coordinates
		t.Coordinates = &c
	}
	t.Pickups = make([]models.Pickup, 0, len(e.pickups))
	for _, p := range e.pickups {
		t.Pickups = append(t.Pickups, *p)
	}
	return t
}
