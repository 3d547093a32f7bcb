package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	tripsapi "github.com/BearBump/DriverPortal/internal/api/trips_api"
	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/navigation"
	"github.com/BearBump/DriverPortal/internal/services/offices"
)

type officeDTO struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Address        string               `json:"address"`
	Phone          string               `json:"phone,omitempty"`
	WorkingHours   string               `json:"workingHours,omitempty"`
	Coordinates    tripsapi.Coordinates `json:"coordinates"`
	MapURL         string               `json:"mapUrl"`
	Current        bool                 `json:"current"`
	DistanceMeters *float64             `json:"distanceMeters,omitempty"`
}

type switchOfficeRequest struct {
	OfficeID string `json:"officeId"`
}

func toOfficeDTO(o models.Office, current bool, dist *float64) officeDTO {
	return officeDTO{
		ID:             o.ID,
		Name:           o.Name,
		Address:        o.Address,
		Phone:          o.Phone,
		WorkingHours:   o.WorkingHours,
		Coordinates:    tripsapi.Coordinates{Lat: o.Coordinates.Lat, Lng: o.Coordinates.Lng},
		MapURL:         navigation.SearchURL(o.Coordinates),
		Current:        current,
		DistanceMeters: dist,
	}
}

func (h *handler) listOffices(w http.ResponseWriter, r *http.Request) {
	if h.Offices == nil {
		writeMessage(w, http.StatusServiceUnavailable, "offices not wired")
		return
	}
	from, err := positionFromQuery(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	list := h.Offices.List(from)
	out := make([]officeDTO, 0, len(list))
	for _, l := range list {
		out = append(out, toOfficeDTO(l.Office, l.Current, l.DistanceMeters))
	}
	writeJSON(w, http.StatusOK, map[string]any{"offices": out})
}

func (h *handler) currentOffice(w http.ResponseWriter, r *http.Request) {
	if h.Offices == nil {
		writeMessage(w, http.StatusServiceUnavailable, "offices not wired")
		return
	}
	o, ok := h.Offices.Current()
	if !ok {
		writeError(w, r, offices.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOfficeDTO(o, true, nil))
}

func (h *handler) switchOffice(w http.ResponseWriter, r *http.Request) {
	if h.Offices == nil {
		writeMessage(w, http.StatusServiceUnavailable, "offices not wired")
		return
	}
	var req switchOfficeRequest
	if err := decodeBody(r, &req); err != nil || req.OfficeID == "" {
		writeMessage(w, http.StatusBadRequest, "officeId is required")
		return
	}
	o, err := h.Offices.Switch(req.OfficeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfficeDTO(o, true, nil))
}

// positionFromQuery reads an optional driver position from ?lat=&lng=.
func positionFromQuery(r *http.Request) (*models.Coordinates, error) {
	q := r.URL.Query()
	latS, lngS := q.Get("lat"), q.Get("lng")
	if latS == "" && lngS == "" {
		return nil, nil
	}
	lat, err1 := strconv.ParseFloat(latS, 64)
	lng, err2 := strconv.ParseFloat(lngS, 64)
	c := models.Coordinates{Lat: lat, Lng: lng}
	if err1 != nil || err2 != nil || !navigation.Valid(c) {
		return nil, fmt.Errorf("invalid position lat=%q lng=%q", latS, lngS)
	}
	return &c, nil
}
