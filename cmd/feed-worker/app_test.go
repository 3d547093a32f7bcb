package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/DriverPortal/config"
	"github.com/BearBump/DriverPortal/internal/broker/messages"
	"github.com/BearBump/DriverPortal/internal/integrations/fakefeed"
	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/services/ingest"
	"github.com/BearBump/DriverPortal/internal/services/session"
)

type memRepo struct {
	mu    sync.Mutex
	trips map[string]models.Trip
}

func newMemRepo() *memRepo {
	return &memRepo{trips: map[string]models.Trip{}}
}

func (r *memRepo) UpsertTrips(ctx context.Context, ts []models.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range ts {
		r.trips[t.ID] = t
	}
	return nil
}

func (r *memRepo) Ping(ctx context.Context) error { return nil }

func (r *memRepo) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.trips[id]
	return ok
}

type fakeConsumer struct {
	msgs   [][]byte
	closed bool
}

func (c *fakeConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for _, m := range c.msgs {
		if err := handler(nil, m); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *fakeConsumer) Close() error {
	c.closed = true
	return nil
}

func TestDefaultWorkerFactories_Selection(t *testing.T) {
	f := defaultWorkerFactories()

	empty := &config.Config{}
	require.Nil(t, f.newConsumer(empty, "trip.assigned", "g"))
	require.Nil(t, f.newRateLimiter(empty))
	src, ref := f.newSource(empty)
	require.Nil(t, src)
	require.Nil(t, ref)

	full := &config.Config{
		Kafka:  config.KafkaConfig{Host: "localhost", Port: 9092},
		Redis:  config.RedisConfig{Host: "localhost", Port: 6379},
		Worker: config.WorkerConfig{PollPortal: true},
	}
	c := f.newConsumer(full, "trip.assigned", "g")
	require.NotNil(t, c)
	require.NoError(t, c.Close())
	require.NotNil(t, f.newRateLimiter(full))

	src, ref = f.newSource(full)
	require.NotNil(t, src)
	_, ok := ref.(*session.Store)
	require.True(t, ok)
}

func TestRunFeedWorker_NothingToIngest(t *testing.T) {
	f := workerFactories{
		newStorage: func(cfg *config.Config) (repository, func(), error) {
			return newMemRepo(), nil, nil
		},
		newConsumer:    func(cfg *config.Config, topic, group string) tripConsumer { return nil },
		newRateLimiter: func(cfg *config.Config) ingest.RateLimiter { return nil },
		newSource:      func(cfg *config.Config) (ingest.Source, ingest.Refresher) { return nil, nil },
	}
	err := RunFeedWorker(context.Background(), &config.Config{}, f, workerOpts{})
	require.ErrorContains(t, err, "nothing to ingest")
}

func TestRunFeedWorker_StorageError(t *testing.T) {
	f := defaultWorkerFactories()
	f.newStorage = func(cfg *config.Config) (repository, func(), error) {
		return nil, nil, fmt.Errorf("db down")
	}
	err := RunFeedWorker(context.Background(), &config.Config{}, f, workerOpts{})
	require.ErrorContains(t, err, "db down")
}

func TestRunFeedWorker_IngestsKafkaAndFeed(t *testing.T) {
	repo := newMemRepo()
	closed := false

	msg, err := json.Marshal(messages.TripAssigned{Trip: messages.Trip{
		ID: "TR009", Status: models.TripStatusUpcoming,
		Employees: []messages.Employee{{ID: "E100", Name: "Asha", PickupOrder: 1, OTP: "4321"}},
	}})
	require.NoError(t, err)
	consumer := &fakeConsumer{msgs: [][]byte{[]byte("{broken"), msg}}

	f := workerFactories{
		newStorage: func(cfg *config.Config) (repository, func(), error) {
			return repo, func() { closed = true }, nil
		},
		newConsumer:    func(cfg *config.Config, topic, group string) tripConsumer { return consumer },
		newRateLimiter: func(cfg *config.Config) ingest.RateLimiter { return nil },
		newSource: func(cfg *config.Config) (ingest.Source, ingest.Refresher) {
			return fakefeed.New(), nil
		},
	}

	cfg := &config.Config{Worker: config.WorkerConfig{HTTPAddr: "127.0.0.1:0", PollPortal: true, PollIntervalSeconds: 3600}}
	addrCh := make(chan string, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunFeedWorker(ctx, cfg, f, workerOpts{onListen: func(a string) { addrCh <- a }})
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case <-time.After(2 * time.Second):
		t.Fatal("worker http did not start")
	}

	require.Eventually(t, func() bool {
		return repo.has("TR009") && repo.has("TR001") && repo.has("TR002")
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st ingest.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.EqualValues(t, 2, st.TotalConsumed)
	require.EqualValues(t, 1, st.TotalSkipped)
	require.True(t, st.Polling)

	trig, err := http.Post("http://"+addr+"/trigger", "application/json", nil)
	require.NoError(t, err)
	trig.Body.Close()
	require.Equal(t, http.StatusAccepted, trig.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}
	require.True(t, closed)
	require.True(t, consumer.closed)
}

func TestWorkerRouter(t *testing.T) {
	in := ingest.New(newMemRepo(), nil, nil)
	h := newWorkerRouter(workerHTTPOpts{
		ingester: in,
		ready:    func(ctx context.Context) error { return fmt.Errorf("pg down") },
		cfg:      &config.Config{Worker: config.WorkerConfig{PollIntervalSeconds: 60}, Portal: config.PortalConfig{ClientSecret: "s3cret"}},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "pg down")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"pollIntervalSeconds":60`)
	require.NotContains(t, rec.Body.String(), "s3cret")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"polling":false`)
}
