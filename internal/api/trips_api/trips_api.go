package trips_api

import (
	"context"
	"errors"

	"github.com/BearBump/DriverPortal/internal/services/session"
	"github.com/BearBump/DriverPortal/internal/services/trips"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Authenticator gates pickup mutations. *session.Store satisfies it.
type Authenticator interface {
	IsAuthenticated() bool
}

type TripsAPI struct {
	svc  *trips.Service
	auth Authenticator
}

// New returns the gRPC handler set. A nil auth leaves mutations open (local tooling, tests).
func New(svc *trips.Service, auth Authenticator) *TripsAPI {
	return &TripsAPI{svc: svc, auth: auth}
}

func (a *TripsAPI) ListTrips(ctx context.Context, req *ListTripsRequest) (*ListTripsResponse, error) {
	ts := a.svc.ListTrips(req.Status)
	out := make([]Trip, 0, len(ts))
	for _, t := range ts {
		out = append(out, ToTrip(t))
	}
	return &ListTripsResponse{Trips: out}, nil
}

func (a *TripsAPI) GetTrip(ctx context.Context, req *TripRequest) (*TripResponse, error) {
	t, err := a.svc.Trip(req.TripID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TripResponse{Trip: ToTrip(t)}, nil
}

func (a *TripsAPI) CurrentPickup(ctx context.Context, req *TripRequest) (*CurrentPickupResponse, error) {
	p, ok, err := a.svc.CurrentPickup(req.TripID)
	if err != nil {
		return nil, toStatus(err)
	}
	if !ok {
		return &CurrentPickupResponse{}, nil
	}
	dto := ToPickup(p)
	return &CurrentPickupResponse{Found: true, Pickup: &dto}, nil
}

func (a *TripsAPI) CompletionStats(ctx context.Context, req *TripRequest) (*CompletionStatsResponse, error) {
	st, err := a.svc.CompletionStats(req.TripID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CompletionStatsResponse{Stats: ToStats(st)}, nil
}

func (a *TripsAPI) MarkPicked(ctx context.Context, req *MarkPickedRequest) (*PickupResponse, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	p, err := a.svc.MarkPicked(ctx, req.TripID, req.PickupID, req.Code)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PickupResponse{Pickup: ToPickup(p)}, nil
}

func (a *TripsAPI) MarkNoShow(ctx context.Context, req *MarkNoShowRequest) (*PickupResponse, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	p, err := a.svc.MarkNoShow(ctx, req.TripID, req.PickupID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PickupResponse{Pickup: ToPickup(p)}, nil
}

func (a *TripsAPI) ListPickupEvents(ctx context.Context, req *ListPickupEventsRequest) (*ListPickupEventsResponse, error) {
	if req.TripID == "" {
		return nil, status.Error(codes.InvalidArgument, "tripId is required")
	}
	evs, err := a.svc.ListPickupEvents(ctx, req.TripID, req.Limit, req.Offset)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]PickupEvent, 0, len(evs))
	for _, e := range evs {
		out = append(out, PickupEvent{
			ID:          e.ID,
			EventID:     e.EventID,
			PickupID:    e.PickupID,
			PickupOrder: e.PickupOrder,
			Status:      e.Status,
			ResolvedAt:  e.ResolvedAt,
		})
	}
	return &ListPickupEventsResponse{Events: out}, nil
}

func (a *TripsAPI) requireSession() error {
	if a.auth == nil || a.auth.IsAuthenticated() {
		return nil
	}
	return toStatus(session.ErrUnauthenticated)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, trips.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, trips.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, trips.ErrInvalidCode):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, session.ErrRejected):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, session.ErrInvalidCredentials):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
