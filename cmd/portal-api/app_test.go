package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	tripsapi "github.com/BearBump/DriverPortal/internal/api/trips_api"
	"github.com/BearBump/DriverPortal/internal/broker/messages"
	"github.com/BearBump/DriverPortal/internal/integrations/fakefeed"
	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/services/feedsync"
	"github.com/BearBump/DriverPortal/internal/services/offices"
	"github.com/BearBump/DriverPortal/internal/services/trips"
	"github.com/stretchr/testify/require"
)

type fakeConsumer struct {
	msgs [][]byte
}

func (c fakeConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for _, m := range c.msgs {
		if err := handler(nil, m); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func writeSwagger(t *testing.T) string {
	t.Helper()
	sw := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))
	return sw
}

func TestRunPortalAPI_EndToEnd(t *testing.T) {
	assigned, err := json.Marshal(messages.TripAssigned{Trip: messages.Trip{
		ID: "TR009", Source: "Depot", Destination: "Park", Status: models.TripStatusUpcoming,
		Employees: []messages.Employee{{ID: "E90", Name: "Nina", PickupOrder: 1, OTP: "4242"}},
	}})
	require.NoError(t, err)

	svc := trips.NewService(trips.NewStore(nil), fakefeed.New())
	syncer := feedsync.New(svc, time.Hour)
	svc.SetResyncer(syncer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type addrs struct{ grpc, http string }
	addrCh := make(chan addrs, 1)

	opts := portalAPIOpts{
		grpcAddr:    "127.0.0.1:0",
		httpAddr:    "127.0.0.1:0",
		swaggerPath: writeSwagger(t),
		topic:       "trip.assigned",
		onListen:    func(g, h string) { addrCh <- addrs{g, h} },
	}
	deps := portalDeps{
		svc:      svc,
		syncer:   syncer,
		offices:  offices.New(nil, ""),
		consumer: fakeConsumer{msgs: [][]byte{[]byte("{broken"), assigned}},
	}

	errCh := make(chan error, 1)
	go func() { errCh <- runPortalAPI(ctx, opts, deps) }()
	a := <-addrCh

	resp, err := http.Get("http://" + a.http + "/swagger.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "\"swagger\"")

	c, err := tripsapi.Dial(a.grpc)
	require.NoError(t, err)
	defer c.Close()

	// фид (TR001, TR002) и кафка (TR009) должны сойтись в одном сторе
	require.Eventually(t, func() bool {
		res, err := c.ListTrips(ctx, &tripsapi.ListTripsRequest{})
		return err == nil && len(res.Trips) == 3
	}, 3*time.Second, 20*time.Millisecond)

	p, err := c.MarkPicked(ctx, &tripsapi.MarkPickedRequest{TripID: "TR001", PickupID: "E003", Code: "1234"})
	require.NoError(t, err)
	require.Equal(t, models.PickupStatusPicked, p.Pickup.Status)

	cur, err := c.CurrentPickup(ctx, &tripsapi.TripRequest{TripID: "TR009"})
	require.NoError(t, err)
	require.Equal(t, "E90", cur.Pickup.ID)

	resp, err = http.Get("http://" + a.http + "/v1/sync/stats")
	require.NoError(t, err)
	var st feedsync.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	require.GreaterOrEqual(t, st.TotalSyncs, int64(1))

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting servers to stop")
	}
}

func TestRunPortalAPI_SwaggerRequired(t *testing.T) {
	svc := trips.NewService(trips.NewStore(nil), nil)
	err := runPortalAPI(context.Background(), portalAPIOpts{}, portalDeps{svc: svc})
	require.ErrorContains(t, err, "swaggerPath")

	err = runPortalAPI(context.Background(), portalAPIOpts{swaggerPath: "/nope/swagger.json"}, portalDeps{svc: svc})
	require.ErrorContains(t, err, "swagger file not found")
}

func TestTripAssignedHandler(t *testing.T) {
	svc := trips.NewService(trips.NewStore(nil), nil)
	h := tripAssignedHandler(context.Background(), svc)

	require.NoError(t, h(nil, []byte("not json")))
	// невалидная поездка пропускается, а не стопорит партицию
	require.NoError(t, h(nil, []byte(`{"trip":{"id":"T1","status":"flying"}}`)))
	require.Empty(t, svc.ListTrips(""))

	require.NoError(t, h([]byte("T2"), []byte(`{"trip":{"id":"T2","status":"active","employees":[{"id":"E1","pickupOrder":1,"otp":"1"}]}}`)))
	require.Len(t, svc.ListTrips(""), 1)
}

func TestOfficesFromConfig(t *testing.T) {
	require.Empty(t, officesFromConfig(nil))
}

func TestReadiness(t *testing.T) {
	ok := readiness(nil)
	require.NoError(t, ok(context.Background()))

	failing := readiness([]func(context.Context) error{
		func(context.Context) error { return nil },
		func(context.Context) error { return context.DeadlineExceeded },
	})
	require.ErrorIs(t, failing(context.Background()), context.DeadlineExceeded)
}
