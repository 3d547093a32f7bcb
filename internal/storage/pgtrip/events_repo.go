package pgtrip

import (
	"context"

	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 500
)

// RecordPickupEvent appends a resolution to the audit log and mirrors the terminal status
// onto the stored pickup. Replaying the same event id is a no-op.
func (s *Storage) RecordPickupEvent(ctx context.Context, e models.PickupEvent) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO pickup_events (event_id, trip_id, pickup_id, pickup_order, status, resolved_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6, now())
ON CONFLICT (event_id) DO NOTHING
`, e.EventID, e.TripID, e.PickupID, e.PickupOrder, e.Status, e.ResolvedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "insert pickup event")
	}

	_, err = tx.Exec(ctx, `
UPDATE pickups SET status = $3
WHERE trip_id = $1 AND id = $2 AND status = 'pending'
`, e.TripID, e.PickupID, e.Status)
	if err != nil {
		return errors.Wrap(err, "update pickup status")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func (s *Storage) ListPickupEvents(ctx context.Context, tripID string, limit, offset int) ([]models.PickupEvent, error) {
	if limit <= 0 {
		limit = defaultEventsLimit
	}
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT id, event_id, trip_id, pickup_id, pickup_order, status, resolved_at, created_at
FROM pickup_events
WHERE trip_id = $1
ORDER BY resolved_at DESC, id DESC
LIMIT $2 OFFSET $3
`, tripID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select pickup events")
	}
	defer rows.Close()

	out := []models.PickupEvent{}
	for rows.Next() {
		var e models.PickupEvent
		if err := rows.Scan(
			&e.ID, &e.EventID, &e.TripID, &e.PickupID, &e.PickupOrder, &e.Status, &e.ResolvedAt, &e.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan pickup event")
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
