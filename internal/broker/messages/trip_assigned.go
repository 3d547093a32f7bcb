package messages

import "github.com/BearBump/DriverPortal/internal/models"

// TripAssigned приходит от диспетчерской системы: полный снимок поездки вместе с кодами.
type TripAssigned struct {
	Trip Trip `json:"trip"`
}

type Trip struct {
	ID            string       `json:"id"`
	Source        string       `json:"source"`
	Destination   string       `json:"destination"`
	ScheduledDate string       `json:"date"`
	StartTime     string       `json:"startTime"`
	Status        string       `json:"status"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	Employees     []Employee   `json:"employees"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Employee struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	PickupPoint string `json:"pickupPoint"`
	PickupOrder int    `json:"pickupOrder"`
	Status      string `json:"status,omitempty"`
	OTP         string `json:"otp,omitempty"`
}

func (t Trip) ToModel() models.Trip {
	out := models.Trip{
		ID:            t.ID,
		Source:        t.Source,
		Destination:   t.Destination,
		ScheduledDate: t.ScheduledDate,
		StartTime:     t.StartTime,
		Status:        t.Status,
		Pickups:       make([]models.Pickup, 0, len(t.Employees)),
	}
	if t.Coordinates != nil {
		out.Coordinates = &models.Coordinates{Lat: t.Coordinates.Lat, Lng: t.Coordinates.Lng}
	}
	for _, e := range t.Employees {
		out.Pickups = append(out.Pickups, models.Pickup{
			ID:          e.ID,
			Name:        e.Name,
			Phone:       e.Phone,
			PickupPoint: e.PickupPoint,
			PickupOrder: e.PickupOrder,
			Status:      e.Status,
			Code:        e.OTP,
		})
	}
	return out
}

func TripsToModels(ts []Trip) []models.Trip {
	out := make([]models.Trip, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ToModel())
	}
	return out
}
