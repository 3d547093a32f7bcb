package trips

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/DriverPortal/internal/broker/messages"
	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Feed interface {
	FetchTrips(ctx context.Context) ([]models.Trip, error)
}

type EventLog interface {
	RecordPickupEvent(ctx context.Context, e models.PickupEvent) error
	ListPickupEvents(ctx context.Context, tripID string, limit, offset int) ([]models.PickupEvent, error)
}

// Mirror persists trips that arrive outside the feed (Kafka) so the next feed read sees them.
type Mirror interface {
	UpsertTrips(ctx context.Context, trips []models.Trip) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

type Resyncer interface {
	Trigger()
}

type DriverSource interface {
	Current() (models.Session, bool)
}

type Option func(*Service)

func WithEventLog(l EventLog) Option { return func(s *Service) { s.events = l } }

func WithMirror(m Mirror) Option { return func(s *Service) { s.mirror = m } }

func WithPublisher(p Publisher, topic string) Option {
	return func(s *Service) { s.pub, s.topic = p, topic }
}

func WithDriver(d DriverSource) Option { return func(s *Service) { s.driver = d } }

// Service puts the store behind the outside world: feed in, audit log and resolution events out.
type Service struct {
	store  *Store
	feed   Feed
	events EventLog
	mirror Mirror
	pub    Publisher
	topic  string
	driver DriverSource
	resync Resyncer

	now   func() time.Time
	newID func() string
}

func NewService(store *Store, feed Feed, opts ...Option) *Service {
	s := &Service{
		store: store,
		feed:  feed,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetResyncer is separate from the options because the syncer itself is built on top of the service.
func (s *Service) SetResyncer(r Resyncer) {
	s.resync = r
}

func (s *Service) Store() *Store { return s.store }

// SyncFromFeed pulls the feed and merges it into the store. Returns the number of trips received.
func (s *Service) SyncFromFeed(ctx context.Context) (int, error) {
	if s.feed == nil {
		return 0, errors.New("feed is not configured")
	}
	trips, err := s.feed.FetchTrips(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "fetch trips")
	}
	if err := s.store.Sync(trips); err != nil {
		return 0, err
	}
	return len(trips), nil
}

func (s *Service) ApplyTripAssigned(ctx context.Context, msg messages.TripAssigned) error {
	if msg.Trip.ID == "" {
		return errors.Wrap(ErrInvalidTrip, "trip.id is required")
	}
	t := msg.Trip.ToModel()
	if err := s.store.Sync([]models.Trip{t}); err != nil {
		return err
	}
	if s.mirror != nil {
		if err := s.mirror.UpsertTrips(ctx, []models.Trip{t}); err != nil {
			slog.Warn("mirror assigned trip", "trip_id", t.ID, "error", err.Error())
		}
	}
	return nil
}

func (s *Service) ListTrips(status string) []models.Trip {
	return s.store.ListTrips(status)
}

func (s *Service) Trip(tripID string) (models.Trip, error) {
	return s.store.Trip(tripID)
}

func (s *Service) CurrentPickup(tripID string) (models.Pickup, bool, error) {
	return s.store.CurrentPickup(tripID)
}

func (s *Service) CompletionStats(tripID string) (models.CompletionStats, error) {
	return s.store.CompletionStats(tripID)
}

func (s *Service) Destination(tripID string) (models.Coordinates, bool, error) {
	return s.store.Destination(tripID)
}

func (s *Service) MarkPicked(ctx context.Context, tripID, pickupID, code string) (models.Pickup, error) {
	p, err := s.store.MarkPicked(tripID, pickupID, code)
	if err != nil {
		s.onMutationError(tripID, pickupID, err)
		return models.Pickup{}, err
	}
	s.resolved(ctx, tripID, p)
	return p, nil
}

func (s *Service) MarkNoShow(ctx context.Context, tripID, pickupID string) (models.Pickup, error) {
	p, err := s.store.MarkNoShow(tripID, pickupID)
	if err != nil {
		s.onMutationError(tripID, pickupID, err)
		return models.Pickup{}, err
	}
	s.resolved(ctx, tripID, p)
	return p, nil
}

// ListPickupEvents returns the audit trail of a trip, newest first.
func (s *Service) ListPickupEvents(ctx context.Context, tripID string, limit, offset int) ([]models.PickupEvent, error) {
	if tripID == "" {
		return nil, errors.New("tripId is required")
	}
	if s.events == nil {
		return []models.PickupEvent{}, nil
	}
	return s.events.ListPickupEvents(ctx, tripID, limit, offset)
}

func (s *Service) onMutationError(tripID, pickupID string, err error) {
	if !IsStale(err) || s.resync == nil {
		return
	}
	slog.Info("stale trip view, requesting feed sync", "trip_id", tripID, "pickup_id", pickupID, "error", err.Error())
	s.resync.Trigger()
}

// resolved fans a successful transition out to the audit log and the broker. Both are best effort.
func (s *Service) resolved(ctx context.Context, tripID string, p models.Pickup) {
	ev := models.PickupEvent{
		EventID:     s.newID(),
		TripID:      tripID,
		PickupID:    p.ID,
		PickupOrder: p.PickupOrder,
		Status:      p.Status,
		ResolvedAt:  s.now().UTC(),
	}

	if s.events != nil {
		if err := s.events.RecordPickupEvent(ctx, ev); err != nil {
			slog.Warn("record pickup event", "trip_id", tripID, "pickup_id", p.ID, "error", err.Error())
		}
	}

	if s.pub == nil || s.topic == "" {
		return
	}
	msg := messages.PickupResolved{
		EventID:     ev.EventID,
		TripID:      ev.TripID,
		PickupID:    ev.PickupID,
		PickupOrder: ev.PickupOrder,
		Status:      ev.Status,
		ResolvedAt:  ev.ResolvedAt,
	}
	if s.driver != nil {
		if sess, ok := s.driver.Current(); ok {
			msg.DriverID = sess.Driver.ID
		}
	}
	if err := s.pub.PublishJSON(ctx, s.topic, tripID, msg); err != nil {
		slog.Warn("publish pickup resolved", "trip_id", tripID, "pickup_id", p.ID, "error", err.Error())
	}
}
