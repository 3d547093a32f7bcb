package pgtrip

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS trips (
  seq BIGSERIAL UNIQUE,
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL DEFAULT '',
  destination TEXT NOT NULL DEFAULT '',
  scheduled_date TEXT NOT NULL DEFAULT '',
  start_time TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  dest_lat DOUBLE PRECISION NULL,
  dest_lng DOUBLE PRECISION NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS pickups (
  trip_id TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
  id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  pickup_point TEXT NOT NULL DEFAULT '',
  pickup_order INT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  code TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (trip_id, id),
  UNIQUE (trip_id, pickup_order)
)`,
		`
CREATE TABLE IF NOT EXISTS pickup_events (
  id BIGSERIAL PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  trip_id TEXT NOT NULL,
  pickup_id TEXT NOT NULL,
  pickup_order INT NOT NULL,
  status TEXT NOT NULL,
  resolved_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_pickup_events_trip_resolved_at ON pickup_events(trip_id, resolved_at DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
