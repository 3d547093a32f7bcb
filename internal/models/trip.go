package models

import "time"

// Статусы поездки выставляет диспетчерская система, из пикапов они не выводятся.
const (
	TripStatusUpcoming  = "upcoming"
	TripStatusActive    = "active"
	TripStatusCompleted = "completed"
)

const (
	PickupStatusPending = "pending"
	PickupStatusPicked  = "picked"
	PickupStatusNoShow  = "no_show"
)

func IsTripStatus(s string) bool {
	switch s {
	case TripStatusUpcoming, TripStatusActive, TripStatusCompleted:
		return true
	}
	return false
}

func IsPickupStatus(s string) bool {
	switch s {
	case PickupStatusPending, PickupStatusPicked, PickupStatusNoShow:
		return true
	}
	return false
}

type Coordinates struct {
	Lat float64
	Lng float64
}

type Trip struct {
	ID            string
	Source        string
	Destination   string
	ScheduledDate string
	StartTime     string
	Status        string
	Coordinates   *Coordinates
	Pickups       []Pickup
}

type Pickup struct {
	ID          string
	Name        string
	Phone       string
	PickupPoint string
	PickupOrder int
	Status      string
	Code        string
}

type CompletionStats struct {
	Picked  int
	NoShow  int
	Pending int
	Total   int
}

// PickupEvent is one resolved pickup as recorded in the audit log.
type PickupEvent struct {
	ID          uint64
	EventID     string
	TripID      string
	PickupID    string
	PickupOrder int
	Status      string
	ResolvedAt  time.Time
	CreatedAt   time.Time
}

// CompletionStats counts the trip's pickups by status. Picked+NoShow+Pending always equals Total.
func (t Trip) CompletionStats() CompletionStats {
	st := CompletionStats{Total: len(t.Pickups)}
	for _, p := range t.Pickups {
		switch p.Status {
		case PickupStatusPicked:
			st.Picked++
		case PickupStatusNoShow:
			st.NoShow++
		default:
			st.Pending++
		}
	}
	return st
}
