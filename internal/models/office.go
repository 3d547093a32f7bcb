package models

type Office struct {
	ID           string
	Name         string
	Address      string
	Phone        string
	WorkingHours string
	Coordinates  Coordinates
}
