package feedsync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls atomic.Int32
	n     int
	err   error
}

func (f *fakeSource) SyncFromFeed(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestSyncer_SyncOnce_Stats(t *testing.T) {
	src := &fakeSource{n: 3}
	s := New(src, time.Hour)

	require.NoError(t, s.SyncOnce(context.Background()))
	require.NoError(t, s.SyncOnce(context.Background()))

	st := s.Stats()
	require.EqualValues(t, 2, st.TotalSyncs)
	require.EqualValues(t, 6, st.TotalTrips)
	require.Zero(t, st.TotalErrors)
	require.NotNil(t, st.LastSyncAt)
	require.Nil(t, st.LastTriggerAt)
	require.Empty(t, st.LastError)

	src.err = errors.New("feed down")
	require.Error(t, s.SyncOnce(context.Background()))
	st = s.Stats()
	require.EqualValues(t, 1, st.TotalErrors)
	require.Equal(t, "feed down", st.LastError)
	require.EqualValues(t, 6, st.TotalTrips)
}

func TestSyncer_Run_InitialSyncAndStop(t *testing.T) {
	src := &fakeSource{}
	s := New(src, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestSyncer_Trigger(t *testing.T) {
	src := &fakeSource{}
	s := New(src, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Trigger()
	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.NotNil(t, s.Stats().LastTriggerAt)
}

func TestSyncer_TriggerNonBlocking(t *testing.T) {
	s := New(&fakeSource{}, 0)
	require.Equal(t, DefaultInterval, s.interval)

	// без Run канал никто не читает — Trigger всё равно не блокируется
	for i := 0; i < 5; i++ {
		s.Trigger()
	}
	require.Len(t, s.triggerCh, 1)
}

func TestSyncer_Ticker(t *testing.T) {
	src := &fakeSource{}
	s := New(src, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}
