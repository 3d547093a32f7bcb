package trips_api

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client talks to TripsService over gRPC with the JSON codec.
type Client struct {
	cc *grpc.ClientConn
}

func Dial(addr string) (*Client, error) {
	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "grpc dial")
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(ctx, fullMethod(method), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListTrips(ctx context.Context, req *ListTripsRequest) (*ListTripsResponse, error) {
	return invoke[ListTripsResponse](ctx, c, "ListTrips", req)
}

func (c *Client) GetTrip(ctx context.Context, req *TripRequest) (*TripResponse, error) {
	return invoke[TripResponse](ctx, c, "GetTrip", req)
}

func (c *Client) CurrentPickup(ctx context.Context, req *TripRequest) (*CurrentPickupResponse, error) {
	return invoke[CurrentPickupResponse](ctx, c, "CurrentPickup", req)
}

func (c *Client) CompletionStats(ctx context.Context, req *TripRequest) (*CompletionStatsResponse, error) {
	return invoke[CompletionStatsResponse](ctx, c, "CompletionStats", req)
}

func (c *Client) MarkPicked(ctx context.Context, req *MarkPickedRequest) (*PickupResponse, error) {
	return invoke[PickupResponse](ctx, c, "MarkPicked", req)
}

func (c *Client) MarkNoShow(ctx context.Context, req *MarkNoShowRequest) (*PickupResponse, error) {
	return invoke[PickupResponse](ctx, c, "MarkNoShow", req)
}

func (c *Client) ListPickupEvents(ctx context.Context, req *ListPickupEventsRequest) (*ListPickupEventsResponse, error) {
	return invoke[ListPickupEventsResponse](ctx, c, "ListPickupEvents", req)
}
