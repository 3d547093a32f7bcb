package feedsync

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultInterval = 30 * time.Second

// Source is satisfied by *trips.Service.
type Source interface {
	SyncFromFeed(ctx context.Context) (int, error)
}

type Syncer struct {
	src      Source
	interval time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastSyncUnixNano    atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalSyncs          atomic.Int64
	totalTrips          atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(src Source, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Syncer{
		src:               src,
		interval:          interval,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

// Trigger forces an immediate sync (best-effort, non-blocking). Triggers arriving while one is queued collapse.
func (s *Syncer) Trigger() {
	s.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastSyncAt    *time.Time `json:"lastSyncAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	TotalSyncs    int64      `json:"totalSyncs"`
	TotalTrips    int64      `json:"totalTrips"`
	TotalErrors   int64      `json:"totalErrors"`
	LastError     string     `json:"lastError,omitempty"`
}

func (s *Syncer) Stats() Stats {
	st := Stats{
		StartedAt:   time.Unix(0, s.startedAtUnixNano).UTC(),
		TotalSyncs:  s.totalSyncs.Load(),
		TotalTrips:  s.totalTrips.Load(),
		TotalErrors: s.totalErrors.Load(),
	}
	if n := s.lastSyncUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastSyncAt = &t
	}
	if n := s.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	s.lastErrorMu.Lock()
	st.LastError = s.lastError
	s.lastErrorMu.Unlock()
	return st
}

// Run syncs once right away, then on every tick or trigger until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	_ = s.SyncOnce(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_ = s.SyncOnce(ctx)
		case <-s.triggerCh:
			_ = s.SyncOnce(ctx)
		}
	}
}

func (s *Syncer) SyncOnce(ctx context.Context) error {
	s.lastSyncUnixNano.Store(time.Now().UTC().UnixNano())
	s.totalSyncs.Add(1)

	n, err := s.src.SyncFromFeed(ctx)
	if err != nil {
		s.totalErrors.Add(1)
		s.lastErrorMu.Lock()
		s.lastError = err.Error()
		s.lastErrorMu.Unlock()
		slog.Error("feed sync", "error", err.Error())
		return err
	}
	s.totalTrips.Add(int64(n))
	slog.Debug("feed synced", "trips", n)
	return nil
}
