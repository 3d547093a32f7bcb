package pgtrip

import (
	"context"
	"time"

	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// UpsertTrips writes the trips with their full pickup lists. Pickups that were already
// resolved in the database keep their status and are never dropped; a feed record that
// gives a kept pickup's order to another pickup fails the whole batch.
func (s *Storage) UpsertTrips(ctx context.Context, trips []models.Trip) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, t := range trips {
		var lat, lng *float64
		if t.Coordinates != nil {
			lat, lng = &t.Coordinates.Lat, &t.Coordinates.Lng
		}
		_, err := tx.Exec(ctx, `
INSERT INTO trips (
  id, source, destination, scheduled_date, start_time, status, dest_lat, dest_lng, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
ON CONFLICT (id) DO UPDATE SET
  source = EXCLUDED.source,
  destination = EXCLUDED.destination,
  scheduled_date = EXCLUDED.scheduled_date,
  start_time = EXCLUDED.start_time,
  status = EXCLUDED.status,
  dest_lat = EXCLUDED.dest_lat,
  dest_lng = EXCLUDED.dest_lng,
  updated_at = EXCLUDED.updated_at
`, t.ID, t.Source, t.Destination, t.ScheduledDate, t.StartTime, t.Status, lat, lng, now)
		if err != nil {
			return errors.Wrap(err, "upsert trip")
		}

		ids := make([]string, 0, len(t.Pickups))
		for _, p := range t.Pickups {
			ids = append(ids, p.ID)
		}
		// резолвленные пикапы не удаляем, даже если фид о них забыл
		if _, err := tx.Exec(ctx, `
DELETE FROM pickups WHERE trip_id = $1 AND status = 'pending' AND NOT (id = ANY($2))
`, t.ID, ids); err != nil {
			return errors.Wrap(err, "delete stale pickups")
		}
		// порядок мог переставиться: сначала освобождаем pickup_order, иначе UNIQUE споткнётся
		if _, err := tx.Exec(ctx, `UPDATE pickups SET pickup_order = -pickup_order WHERE trip_id = $1`, t.ID); err != nil {
			return errors.Wrap(err, "reset pickup order")
		}

		for _, p := range t.Pickups {
			status := p.Status
			if status == "" {
				status = models.PickupStatusPending
			}
			_, err := tx.Exec(ctx, `
INSERT INTO pickups (trip_id, id, name, phone, pickup_point, pickup_order, status, code)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (trip_id, id) DO UPDATE SET
  name = EXCLUDED.name,
  phone = EXCLUDED.phone,
  pickup_point = EXCLUDED.pickup_point,
  pickup_order = EXCLUDED.pickup_order,
  code = EXCLUDED.code,
  status = CASE WHEN pickups.status = 'pending' THEN EXCLUDED.status ELSE pickups.status END
`, t.ID, p.ID, p.Name, p.Phone, p.PickupPoint, p.PickupOrder, status, p.Code)
			if err != nil {
				return errors.Wrap(err, "upsert pickup")
			}
		}
		// оставшиеся с отрицательным порядком: сохранённые резолвленные, которых нет в фиде
		if _, err := tx.Exec(ctx, `
UPDATE pickups SET pickup_order = -pickup_order WHERE trip_id = $1 AND pickup_order < 0
`, t.ID); err != nil {
			return errors.Wrap(err, "restore kept pickup order")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// FetchTrips returns every stored trip in insertion order with pickups sorted by pickup_order.
func (s *Storage) FetchTrips(ctx context.Context) ([]models.Trip, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, source, destination, scheduled_date, start_time, status, dest_lat, dest_lng
FROM trips
ORDER BY seq ASC
`)
	if err != nil {
		return nil, errors.Wrap(err, "select trips")
	}
	defer rows.Close()

	var out []models.Trip
	idx := map[string]int{}
	for rows.Next() {
		var t models.Trip
		var lat, lng *float64
		if err := rows.Scan(
			&t.ID, &t.Source, &t.Destination, &t.ScheduledDate, &t.StartTime, &t.Status, &lat, &lng,
		); err != nil {
			return nil, errors.Wrap(err, "scan trip")
		}
		if lat != nil && lng != nil {
			t.Coordinates = &models.Coordinates{Lat: *lat, Lng: *lng}
		}
		t.Pickups = []models.Pickup{}
		idx[t.ID] = len(out)
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	if len(out) == 0 {
		return []models.Trip{}, nil
	}

	prow, err := s.db.Query(ctx, `
SELECT trip_id, id, name, phone, pickup_point, pickup_order, status, code
FROM pickups
ORDER BY trip_id, pickup_order ASC
`)
	if err != nil {
		return nil, errors.Wrap(err, "select pickups")
	}
	defer prow.Close()

	for prow.Next() {
		var tripID string
		var p models.Pickup
		if err := prow.Scan(
			&tripID, &p.ID, &p.Name, &p.Phone, &p.PickupPoint, &p.PickupOrder, &p.Status, &p.Code,
		); err != nil {
			return nil, errors.Wrap(err, "scan pickup")
		}
		i, ok := idx[tripID]
		if !ok {
			continue
		}
		out[i].Pickups = append(out[i].Pickups, p)
	}
	if prow.Err() != nil {
		return nil, errors.Wrap(prow.Err(), "rows")
	}
	return out, nil
}
