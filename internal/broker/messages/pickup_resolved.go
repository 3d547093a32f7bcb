package messages

import "time"

type PickupResolved struct {
	EventID     string    `json:"event_id"`
	TripID      string    `json:"trip_id"`
	PickupID    string    `json:"pickup_id"`
	PickupOrder int       `json:"pickup_order"`
	Status      string    `json:"status"`
	ResolvedAt  time.Time `json:"resolved_at"`
	DriverID    string    `json:"driver_id,omitempty"`
}
