package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/DriverPortal/internal/broker/messages"
	"github.com/BearBump/DriverPortal/internal/cache/rediscache"
	"github.com/BearBump/DriverPortal/internal/integrations/fakefeed"
	"github.com/BearBump/DriverPortal/internal/models"
)

type fakeRepo struct {
	mu      sync.Mutex
	batches [][]models.Trip
	failN   int
	err     error
}

func (r *fakeRepo) UpsertTrips(ctx context.Context, ts []models.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failN > 0 {
		r.failN--
		return errors.New("connection refused")
	}
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, ts)
	return nil
}

func (r *fakeRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

type fakeSource struct {
	trips []models.Trip
	err   error
	calls int
}

func (s *fakeSource) FetchTrips(ctx context.Context) ([]models.Trip, error) {
	s.calls++
	return s.trips, s.err
}

type countingRefresher struct{ n int }

func (r *countingRefresher) Restore(ctx context.Context) error {
	r.n++
	return nil
}

func assigned(t *testing.T, trip messages.Trip) []byte {
	t.Helper()
	b, err := json.Marshal(messages.TripAssigned{Trip: trip})
	require.NoError(t, err)
	return b
}

func TestIngester_PollOnce_UpsertsFeed(t *testing.T) {
	repo := &fakeRepo{}
	auth := &countingRefresher{}
	in := New(repo, fakefeed.New(), nil).WithRefresher(auth)

	n, err := in.PollOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(fakefeed.DemoTrips()), n)
	require.Equal(t, 1, repo.calls())
	require.Equal(t, 1, auth.n)

	st := in.Stats()
	require.True(t, st.Polling)
	require.EqualValues(t, 1, st.TotalPolls)
	require.EqualValues(t, n, st.TotalUpserted)
	require.NotNil(t, st.LastPollAt)
}

func TestIngester_PollOnce_InvalidFeedNotWritten(t *testing.T) {
	repo := &fakeRepo{}
	src := &fakeSource{trips: []models.Trip{{ID: "T", Status: "cancelled"}}}
	in := New(repo, src, nil)

	_, err := in.PollOnce(context.Background())
	require.Error(t, err)
	require.Zero(t, repo.calls())
	require.EqualValues(t, 1, in.Stats().TotalErrors)
	require.Contains(t, in.Stats().LastError, "cancelled")
}

func TestIngester_PollOnce_SourceError(t *testing.T) {
	in := New(&fakeRepo{}, &fakeSource{err: errors.New("502")}, nil)
	_, err := in.PollOnce(context.Background())
	require.ErrorContains(t, err, "fetch trips")
}

func TestIngester_PollOnce_NoSource(t *testing.T) {
	in := New(&fakeRepo{}, nil, nil)
	_, err := in.PollOnce(context.Background())
	require.Error(t, err)
	require.False(t, in.Stats().Polling)
}

func TestIngester_PollOnce_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := rediscache.NewRateLimiter(mr.Addr())
	src := &fakeSource{trips: fakefeed.DemoTrips()}
	in := New(&fakeRepo{}, src, rl).WithSettings(0, 2)

	for i := 0; i < 3; i++ {
		_, err := in.PollOnce(context.Background())
		require.NoError(t, err)
	}
	// третий опрос в той же минуте не доходит до источника
	require.Equal(t, 2, src.calls)
}

func TestIngester_HandleTripAssigned(t *testing.T) {
	repo := &fakeRepo{}
	in := New(repo, nil, nil)
	h := in.HandleTripAssigned(context.Background())

	require.NoError(t, h([]byte("TR009"), assigned(t, messages.Trip{
		ID: "TR009", Status: models.TripStatusUpcoming,
		Employees: []messages.Employee{{ID: "E1", Name: "Asha", PickupOrder: 1, OTP: "4321"}},
	})))
	require.Equal(t, 1, repo.calls())
	require.Equal(t, "TR009", repo.batches[0][0].ID)
	require.Equal(t, "4321", repo.batches[0][0].Pickups[0].Code)

	// битые сообщения пропускаются, а не останавливают консьюмера
	require.NoError(t, h([]byte("x"), []byte("{not json")))
	require.NoError(t, h([]byte("y"), assigned(t, messages.Trip{ID: "", Status: models.TripStatusActive})))
	require.Equal(t, 1, repo.calls())

	st := in.Stats()
	require.EqualValues(t, 3, st.TotalConsumed)
	require.EqualValues(t, 2, st.TotalSkipped)
	require.EqualValues(t, 1, st.TotalUpserted)
}

func TestIngester_HandleTripAssigned_RetriesStorage(t *testing.T) {
	repo := &fakeRepo{failN: 2}
	in := New(repo, nil, nil).withRetry(3, time.Millisecond)
	h := in.HandleTripAssigned(context.Background())

	msg := assigned(t, messages.Trip{ID: "TR1", Status: models.TripStatusActive})
	require.NoError(t, h(nil, msg))
	require.Equal(t, 1, repo.calls())

	repo.err = errors.New("disk full")
	require.ErrorContains(t, h(nil, msg), "disk full")
	require.EqualValues(t, 1, in.Stats().TotalErrors)
}

func TestIngester_Run_PollsAndStopsOnCancel(t *testing.T) {
	repo := &fakeRepo{}
	in := New(repo, fakefeed.New(), nil).WithSettings(5*time.Millisecond, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	require.Eventually(t, func() bool { return repo.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestIngester_Run_WithoutSourceWaits(t *testing.T) {
	in := New(&fakeRepo{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, in.Run(ctx), context.Canceled)
}

func TestIngester_Trigger(t *testing.T) {
	repo := &fakeRepo{}
	in := New(repo, fakefeed.New(), nil).WithSettings(time.Hour, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = in.Run(ctx) }()

	require.Eventually(t, func() bool { return repo.calls() == 1 }, time.Second, 5*time.Millisecond)
	in.Trigger()
	in.Trigger()
	require.Eventually(t, func() bool { return repo.calls() >= 2 }, time.Second, 5*time.Millisecond)
	require.NotNil(t, in.Stats().LastTriggerAt)
}
