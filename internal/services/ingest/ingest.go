package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/DriverPortal/internal/broker/messages"
	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/services/trips"
)

// Repository is where ingested trips land. *pgtrip.Storage satisfies it.
type Repository interface {
	UpsertTrips(ctx context.Context, trips []models.Trip) error
}

// Source is the upstream trip feed polled on every cycle.
type Source interface {
	FetchTrips(ctx context.Context) ([]models.Trip, error)
}

type RateLimiter interface {
	AllowPerMinute(ctx context.Context, scope, subject string, limit int64) (bool, int64, error)
}

// Refresher reloads credentials shared with the portal process before a poll.
type Refresher interface {
	Restore(ctx context.Context) error
}

const rateLimitScope = "feed-poll"

// Ingester writes trips into the repository from two inputs: trip.assigned
// messages and periodic polls of the upstream feed.
type Ingester struct {
	repo Repository
	src  Source
	rl   RateLimiter
	auth Refresher

	pollInterval       time.Duration
	rateLimitPerMinute int64
	upsertAttempts     int
	retryDelay         time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastPollUnixNano    atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalPolls          atomic.Int64
	totalConsumed       atomic.Int64
	totalSkipped        atomic.Int64
	totalUpserted       atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

// New returns an ingester. A nil src disables polling, a nil rl disables the poll rate limit.
func New(repo Repository, src Source, rl RateLimiter) *Ingester {
	return &Ingester{
		repo:               repo,
		src:                src,
		rl:                 rl,
		pollInterval:       time.Minute,
		rateLimitPerMinute: 6,
		upsertAttempts:     5,
		retryDelay:         200 * time.Millisecond,
		triggerCh:          make(chan struct{}, 1),
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func (in *Ingester) WithSettings(pollInterval time.Duration, rlPerMin int64) *Ingester {
	if pollInterval > 0 {
		in.pollInterval = pollInterval
	}
	if rlPerMin > 0 {
		in.rateLimitPerMinute = rlPerMin
	}
	return in
}

func (in *Ingester) WithRefresher(r Refresher) *Ingester {
	in.auth = r
	return in
}

func (in *Ingester) withRetry(attempts int, delay time.Duration) *Ingester {
	in.upsertAttempts = attempts
	in.retryDelay = delay
	return in
}

// Trigger forces an immediate poll (best-effort, non-blocking).
func (in *Ingester) Trigger() {
	in.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case in.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastPollAt    *time.Time `json:"lastPollAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	Polling       bool       `json:"polling"`
	TotalPolls    int64      `json:"totalPolls"`
	TotalConsumed int64      `json:"totalConsumed"`
	TotalSkipped  int64      `json:"totalSkipped"`
	TotalUpserted int64      `json:"totalUpserted"`
	TotalErrors   int64      `json:"totalErrors"`
	LastError     string     `json:"lastError,omitempty"`
}

func (in *Ingester) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, in.startedAtUnixNano).UTC(),
		Polling:       in.src != nil,
		TotalPolls:    in.totalPolls.Load(),
		TotalConsumed: in.totalConsumed.Load(),
		TotalSkipped:  in.totalSkipped.Load(),
		TotalUpserted: in.totalUpserted.Load(),
		TotalErrors:   in.totalErrors.Load(),
	}
	if n := in.lastPollUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastPollAt = &t
	}
	if n := in.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	in.lastErrorMu.Lock()
	st.LastError = in.lastError
	in.lastErrorMu.Unlock()
	return st
}

// Run polls the source until ctx is done. Without a source it only waits.
func (in *Ingester) Run(ctx context.Context) error {
	if in.src == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	in.pollLogged(ctx)

	t := time.NewTicker(in.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			in.pollLogged(ctx)
		case <-in.triggerCh:
			in.pollLogged(ctx)
		}
	}
}

func (in *Ingester) pollLogged(ctx context.Context) {
	n, err := in.PollOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("feed poll", "error", err.Error())
		}
		return
	}
	slog.Info("feed polled", "trips", n)
}

// PollOnce fetches the feed and upserts it. It returns the number of trips written.
func (in *Ingester) PollOnce(ctx context.Context) (int, error) {
	if in.src == nil {
		return 0, errors.New("no feed source")
	}
	in.lastPollUnixNano.Store(time.Now().UTC().UnixNano())
	in.totalPolls.Add(1)

	if in.rl != nil && in.rateLimitPerMinute > 0 {
		allowed, n, err := in.rl.AllowPerMinute(ctx, rateLimitScope, "portal", in.rateLimitPerMinute)
		if err != nil {
			return 0, in.fail(errors.Wrap(err, "rate limiter"))
		}
		if !allowed {
			// источник уже опрошен достаточно в этой минуте
			slog.Warn("feed poll rate limited", "count", n)
			return 0, nil
		}
	}

	if in.auth != nil {
		if err := in.auth.Restore(ctx); err != nil {
			slog.Warn("restore session before poll", "error", err.Error())
		}
	}

	ts, err := in.src.FetchTrips(ctx)
	if err != nil {
		return 0, in.fail(errors.Wrap(err, "fetch trips"))
	}
	if err := trips.Validate(ts); err != nil {
		return 0, in.fail(err)
	}
	if err := in.upsert(ctx, ts); err != nil {
		return 0, in.fail(err)
	}
	return len(ts), nil
}

// HandleTripAssigned is a kafka.Consumer handler. Messages that can never be
// stored are counted and skipped; storage errors are returned after retries.
func (in *Ingester) HandleTripAssigned(ctx context.Context) func(key, value []byte) error {
	return func(key, value []byte) error {
		in.totalConsumed.Add(1)

		var m messages.TripAssigned
		if err := json.Unmarshal(value, &m); err != nil {
			in.totalSkipped.Add(1)
			slog.Warn("skip malformed trip.assigned", "key", string(key), "error", err.Error())
			return nil
		}
		t := []models.Trip{m.Trip.ToModel()}
		if err := trips.Validate(t); err != nil {
			in.totalSkipped.Add(1)
			slog.Warn("skip invalid trip.assigned", "trip_id", m.Trip.ID, "error", err.Error())
			return nil
		}
		if err := in.upsert(ctx, t); err != nil {
			return in.fail(err)
		}
		return nil
	}
}

func (in *Ingester) upsert(ctx context.Context, ts []models.Trip) error {
	var err error
	for i := 0; i < in.upsertAttempts; i++ {
		if err = in.repo.UpsertTrips(ctx, ts); err == nil {
			in.totalUpserted.Add(int64(len(ts)))
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		// postgres может подниматься дольше воркера
		time.Sleep(time.Duration(i+1) * in.retryDelay)
	}
	return errors.Wrap(err, "upsert trips")
}

func (in *Ingester) fail(err error) error {
	in.totalErrors.Add(1)
	in.lastErrorMu.Lock()
	in.lastError = err.Error()
	in.lastErrorMu.Unlock()
	return err
}
