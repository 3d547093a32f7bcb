package fakefeed

import (
	"context"

	"github.com/BearBump/DriverPortal/internal/models"
)

// Feed — детерминированный источник поездок для демо и локального запуска без портала.
type Feed struct {
	trips []models.Trip
}

// New returns a feed seeded with the demo trips. Pass trips to override.
func New(trips ...models.Trip) *Feed {
	if len(trips) == 0 {
		trips = DemoTrips()
	}
	return &Feed{trips: trips}
}

func (f *Feed) FetchTrips(ctx context.Context) ([]models.Trip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.Trip, 0, len(f.trips))
	for _, t := range f.trips {
		c := t
		c.Pickups = append([]models.Pickup(nil), t.Pickups...)
		if t.Coordinates != nil {
			coords := *t.Coordinates
			c.Coordinates = &coords
		}
		out = append(out, c)
	}
	return out, nil
}

func DemoTrips() []models.Trip {
	return []models.Trip{
		{
			ID:            "TR001",
			Source:        "Office Complex A",
			Destination:   "City Center Mall",
			ScheduledDate: "2025-01-27",
			StartTime:     "08:30 AM",
			Status:        models.TripStatusActive,
			Coordinates:   &models.Coordinates{Lat: 19.076, Lng: 72.8777},
			Pickups: []models.Pickup{
				pickup("E001", "John Doe", "+91 9876543210", "Metro Station A", 1, models.PickupStatusPicked, ""),
				pickup("E002", "Jane Smith", "+91 9876543211", "Bus Stop B", 2, models.PickupStatusPicked, ""),
				pickup("E003", "Mike Johnson", "+91 9876543212", "Mall C", 3, models.PickupStatusPending, "1234"),
				pickup("E004", "Sarah Wilson", "+91 9876543213", "Park D", 4, models.PickupStatusPending, "5678"),
				pickup("E005", "Tom Brown", "+91 9876543214", "School E", 5, models.PickupStatusPending, "9012"),
				pickup("E006", "Lisa Davis", "+91 9876543215", "Hospital F", 6, models.PickupStatusPending, "3456"),
				pickup("E007", "David Miller", "+91 9876543216", "Library G", 7, models.PickupStatusPending, "7890"),
				pickup("E008", "Emma Wilson", "+91 9876543217", "Station H", 8, models.PickupStatusPending, "2468"),
			},
		},
		{
			ID:            "TR002",
			Source:        "Tech Park",
			Destination:   "Downtown Plaza",
			ScheduledDate: "2025-01-27",
			StartTime:     "02:00 PM",
			Status:        models.TripStatusUpcoming,
			Coordinates:   &models.Coordinates{Lat: 19.0825, Lng: 72.8754},
			Pickups: []models.Pickup{
				pickup("E009", "Alice Green", "+91 9876543218", "Coffee Shop F", 1, models.PickupStatusPending, "3456"),
				pickup("E010", "Bob White", "+91 9876543219", "Library G", 2, models.PickupStatusPending, "7890"),
				pickup("E011", "Carol Black", "+91 9876543220", "Market H", 3, models.PickupStatusPending, "1357"),
			},
		},
	}
}

func pickup(id, name, phone, point string, order int, status, code string) models.Pickup {
	return models.Pickup{
		ID:          id,
		Name:        name,
		Phone:       phone,
		PickupPoint: point,
		PickupOrder: order,
		Status:      status,
		Code:        code,
	}
}
