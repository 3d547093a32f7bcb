package trips_api

import (
	"time"

	"github.com/BearBump/DriverPortal/internal/models"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Pickup never carries the code.
type Pickup struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	PickupPoint string `json:"pickupPoint"`
	PickupOrder int    `json:"pickupOrder"`
	Status      string `json:"status"`
}

type CompletionStats struct {
	Picked  int `json:"picked"`
	NoShow  int `json:"noShow"`
	Pending int `json:"pending"`
	Total   int `json:"total"`
}

type Trip struct {
	ID            string          `json:"id"`
	Source        string          `json:"source"`
	Destination   string          `json:"destination"`
	ScheduledDate string          `json:"date"`
	StartTime     string          `json:"startTime"`
	Status        string          `json:"status"`
	Coordinates   *Coordinates    `json:"coordinates,omitempty"`
	Pickups       []Pickup        `json:"pickups"`
	Stats         CompletionStats `json:"stats"`
}

type PickupEvent struct {
	ID          uint64    `json:"id"`
	EventID     string    `json:"eventId"`
	PickupID    string    `json:"pickupId"`
	PickupOrder int       `json:"pickupOrder"`
	Status      string    `json:"status"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

type ListTripsRequest struct {
	Status string `json:"status,omitempty"`
}

type ListTripsResponse struct {
	Trips []Trip `json:"trips"`
}

type TripRequest struct {
	TripID string `json:"tripId"`
}

type TripResponse struct {
	Trip Trip `json:"trip"`
}

type CurrentPickupResponse struct {
	Found  bool    `json:"found"`
	Pickup *Pickup `json:"pickup,omitempty"`
}

type CompletionStatsResponse struct {
	Stats CompletionStats `json:"stats"`
}

type MarkPickedRequest struct {
	TripID   string `json:"tripId"`
	PickupID string `json:"pickupId"`
	Code     string `json:"code"`
}

type MarkNoShowRequest struct {
	TripID   string `json:"tripId"`
	PickupID string `json:"pickupId"`
}

type PickupResponse struct {
	Pickup Pickup `json:"pickup"`
}

type ListPickupEventsRequest struct {
	TripID string `json:"tripId"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type ListPickupEventsResponse struct {
	Events []PickupEvent `json:"events"`
}

type Empty struct{}

func ToTrip(t models.Trip) Trip {
	out := Trip{
		ID:            t.ID,
		Source:        t.Source,
		Destination:   t.Destination,
		ScheduledDate: t.ScheduledDate,
		StartTime:     t.StartTime,
		Status:        t.Status,
		Pickups:       make([]Pickup, 0, len(t.Pickups)),
		Stats:         ToStats(t.CompletionStats()),
	}
	if t.Coordinates != nil {
		out.Coordinates = &Coordinates{Lat: t.Coordinates.Lat, Lng: t.Coordinates.Lng}
	}
	for _, p := range t.Pickups {
		out.Pickups = append(out.Pickups, ToPickup(p))
	}
	return out
}

func ToPickup(p models.Pickup) Pickup {
	return Pickup{
		ID:          p.ID,
		Name:        p.Name,
		Phone:       p.Phone,
		PickupPoint: p.PickupPoint,
		PickupOrder: p.PickupOrder,
		Status:      p.Status,
	}
}

func ToStats(s models.CompletionStats) CompletionStats {
	return CompletionStats{Picked: s.Picked, NoShow: s.NoShow, Pending: s.Pending, Total: s.Total}
}
