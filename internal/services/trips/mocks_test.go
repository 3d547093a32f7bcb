package trips

import (
	"context"
	"sync/atomic"

	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockFeed struct{ mock.Mock }

func (m *MockFeed) FetchTrips(ctx context.Context) ([]models.Trip, error) {
	args := m.Called(ctx)
	ts, _ := args.Get(0).([]models.Trip)
	return ts, args.Error(1)
}

type MockEventLog struct{ mock.Mock }

func (m *MockEventLog) RecordPickupEvent(ctx context.Context, e models.PickupEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEventLog) ListPickupEvents(ctx context.Context, tripID string, limit, offset int) ([]models.PickupEvent, error) {
	args := m.Called(ctx, tripID, limit, offset)
	evs, _ := args.Get(0).([]models.PickupEvent)
	return evs, args.Error(1)
}

type MockMirror struct{ mock.Mock }

func (m *MockMirror) UpsertTrips(ctx context.Context, trips []models.Trip) error {
	return m.Called(ctx, trips).Error(0)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) PublishJSON(ctx context.Context, topic, key string, v any) error {
	return m.Called(ctx, topic, key, v).Error(0)
}

type countingResyncer struct{ n atomic.Int32 }

func (r *countingResyncer) Trigger() { r.n.Add(1) }

type staticDriver struct{ id string }

func (d staticDriver) Current() (models.Session, bool) {
	return models.Session{Driver: models.Driver{ID: d.id}}, d.id != ""
}
