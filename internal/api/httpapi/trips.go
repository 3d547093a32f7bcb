package httpapi

import (
	"net/http"
	"strconv"

	tripsapi "github.com/BearBump/DriverPortal/internal/api/trips_api"
	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/navigation"
	"github.com/go-chi/chi/v5"
)

type navigationResponse struct {
	TripID         string               `json:"tripId"`
	Destination    tripsapi.Coordinates `json:"destination"`
	Links          navigationLinks      `json:"links"`
	DistanceMeters *float64             `json:"distanceMeters,omitempty"`
}

type navigationLinks struct {
	GoogleIOS     string `json:"googleIos"`
	GoogleAndroid string `json:"googleAndroid"`
	GoogleWeb     string `json:"googleWeb"`
	Apple         string `json:"apple"`
}

type pickRequest struct {
	Code string `json:"code"`
}

func (h *handler) listTrips(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !models.IsTripStatus(status) {
		writeMessage(w, http.StatusBadRequest, "unknown trip status "+strconv.Quote(status))
		return
	}
	ts := h.Trips.ListTrips(status)
	out := make([]tripsapi.Trip, 0, len(ts))
	for _, t := range ts {
		out = append(out, tripsapi.ToTrip(t))
	}
	writeJSON(w, http.StatusOK, tripsapi.ListTripsResponse{Trips: out})
}

func (h *handler) getTrip(w http.ResponseWriter, r *http.Request) {
	t, err := h.Trips.Trip(chi.URLParam(r, "tripID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripsapi.TripResponse{Trip: tripsapi.ToTrip(t)})
}

func (h *handler) currentPickup(w http.ResponseWriter, r *http.Request) {
	p, ok, err := h.Trips.CurrentPickup(chi.URLParam(r, "tripID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, tripsapi.CurrentPickupResponse{})
		return
	}
	dto := tripsapi.ToPickup(p)
	writeJSON(w, http.StatusOK, tripsapi.CurrentPickupResponse{Found: true, Pickup: &dto})
}

func (h *handler) completionStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Trips.CompletionStats(chi.URLParam(r, "tripID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripsapi.CompletionStatsResponse{Stats: tripsapi.ToStats(st)})
}

func (h *handler) navigation(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	dest, ok, err := h.Trips.Destination(tripID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "trip has no destination coordinates")
		return
	}

	links := navigation.LinksFor(dest)
	resp := navigationResponse{
		TripID:      tripID,
		Destination: tripsapi.Coordinates{Lat: dest.Lat, Lng: dest.Lng},
		Links:       navigationLinks(links),
	}

	from, err := positionFromQuery(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if from != nil {
		d := navigation.DistanceMeters(*from, dest)
		resp.DistanceMeters = &d
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) pickupEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	evs, err := h.Trips.ListPickupEvents(r.Context(), chi.URLParam(r, "tripID"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]tripsapi.PickupEvent, 0, len(evs))
	for _, e := range evs {
		out = append(out, tripsapi.PickupEvent{
			ID:          e.ID,
			EventID:     e.EventID,
			PickupID:    e.PickupID,
			PickupOrder: e.PickupOrder,
			Status:      e.Status,
			ResolvedAt:  e.ResolvedAt,
		})
	}
	writeJSON(w, http.StatusOK, tripsapi.ListPickupEventsResponse{Events: out})
}

func (h *handler) markPicked(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	p, err := h.Trips.MarkPicked(r.Context(), chi.URLParam(r, "tripID"), chi.URLParam(r, "pickupID"), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripsapi.PickupResponse{Pickup: tripsapi.ToPickup(p)})
}

func (h *handler) markNoShow(w http.ResponseWriter, r *http.Request) {
	p, err := h.Trips.MarkNoShow(r.Context(), chi.URLParam(r, "tripID"), chi.URLParam(r, "pickupID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripsapi.PickupResponse{Pickup: tripsapi.ToPickup(p)})
}
