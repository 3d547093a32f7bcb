package trips_api

import (
	"context"
	"net"
	"testing"

	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/services/trips"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type authFlag bool

func (a authFlag) IsAuthenticated() bool { return bool(a) }

func seededService(t *testing.T) *trips.Service {
	t.Helper()
	st := trips.NewStore(nil)
	require.NoError(t, st.Sync([]models.Trip{
		{
			ID: "TR001", Source: "Office Complex A", Destination: "City Center Mall",
			Status:      models.TripStatusActive,
			Coordinates: &models.Coordinates{Lat: 19.076, Lng: 72.8777},
			Pickups: []models.Pickup{
				{ID: "E1", Name: "Mike", PickupOrder: 1, Status: models.PickupStatusPending, Code: "1234"},
				{ID: "E2", Name: "Sarah", PickupOrder: 2, Status: models.PickupStatusPending, Code: "5678"},
				{ID: "E3", Name: "Tom", PickupOrder: 3, Status: models.PickupStatusPending, Code: "9012"},
			},
		},
		{ID: "TR002", Status: models.TripStatusUpcoming},
	}))
	return trips.NewService(st, nil)
}

func startServer(t *testing.T, api *TripsAPI) *Client {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	RegisterTripsServiceServer(srv, api)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := Dial(lis.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "not a status error: %v", err)
	require.Equal(t, want, st.Code())
}

func TestTripsAPI_T1OverGRPC(t *testing.T) {
	ctx := context.Background()
	c := startServer(t, New(seededService(t), nil))

	list, err := c.ListTrips(ctx, &ListTripsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Trips, 2)
	require.Equal(t, "TR001", list.Trips[0].ID)
	require.Equal(t, 3, list.Trips[0].Stats.Pending)

	active, err := c.ListTrips(ctx, &ListTripsRequest{Status: models.TripStatusUpcoming})
	require.NoError(t, err)
	require.Len(t, active.Trips, 1)
	require.Equal(t, "TR002", active.Trips[0].ID)

	cur, err := c.CurrentPickup(ctx, &TripRequest{TripID: "TR001"})
	require.NoError(t, err)
	require.True(t, cur.Found)
	require.Equal(t, "E1", cur.Pickup.ID)

	_, err = c.MarkPicked(ctx, &MarkPickedRequest{TripID: "TR001", PickupID: "E1", Code: "0000"})
	requireCode(t, err, codes.InvalidArgument)

	p, err := c.MarkPicked(ctx, &MarkPickedRequest{TripID: "TR001", PickupID: "E1", Code: "1234"})
	require.NoError(t, err)
	require.Equal(t, models.PickupStatusPicked, p.Pickup.Status)

	_, err = c.MarkNoShow(ctx, &MarkNoShowRequest{TripID: "TR001", PickupID: "E2"})
	require.NoError(t, err)

	cur, err = c.CurrentPickup(ctx, &TripRequest{TripID: "TR001"})
	require.NoError(t, err)
	require.Equal(t, "E3", cur.Pickup.ID)

	stats, err := c.CompletionStats(ctx, &TripRequest{TripID: "TR001"})
	require.NoError(t, err)
	require.Equal(t, CompletionStats{Picked: 1, NoShow: 1, Pending: 1, Total: 3}, stats.Stats)

	_, err = c.MarkNoShow(ctx, &MarkNoShowRequest{TripID: "TR001", PickupID: "E1"})
	requireCode(t, err, codes.FailedPrecondition)

	_, err = c.GetTrip(ctx, &TripRequest{TripID: "TR404"})
	requireCode(t, err, codes.NotFound)

	tr, err := c.GetTrip(ctx, &TripRequest{TripID: "TR001"})
	require.NoError(t, err)
	require.NotNil(t, tr.Trip.Coordinates)

	empty, err := c.CurrentPickup(ctx, &TripRequest{TripID: "TR002"})
	require.NoError(t, err)
	require.False(t, empty.Found)
	require.Nil(t, empty.Pickup)
}

func TestTripsAPI_MutationsNeedSession(t *testing.T) {
	ctx := context.Background()
	c := startServer(t, New(seededService(t), authFlag(false)))

	_, err := c.MarkPicked(ctx, &MarkPickedRequest{TripID: "TR001", PickupID: "E1", Code: "1234"})
	requireCode(t, err, codes.Unauthenticated)
	_, err = c.MarkNoShow(ctx, &MarkNoShowRequest{TripID: "TR001", PickupID: "E1"})
	requireCode(t, err, codes.Unauthenticated)

	// чтение без сессии разрешено
	_, err = c.ListTrips(ctx, &ListTripsRequest{})
	require.NoError(t, err)
}

func TestTripsAPI_ListPickupEvents(t *testing.T) {
	api := New(seededService(t), nil)

	_, err := api.ListPickupEvents(context.Background(), &ListPickupEventsRequest{})
	requireCode(t, err, codes.InvalidArgument)

	res, err := api.ListPickupEvents(context.Background(), &ListPickupEventsRequest{TripID: "TR001"})
	require.NoError(t, err)
	require.Empty(t, res.Events)
}

func TestToPickup_HidesCode(t *testing.T) {
	p := ToPickup(models.Pickup{ID: "E1", Code: "1234"})
	require.Equal(t, "E1", p.ID)
	b, err := jsonCodec{}.Marshal(p)
	require.NoError(t, err)
	require.NotContains(t, string(b), "1234")
}
