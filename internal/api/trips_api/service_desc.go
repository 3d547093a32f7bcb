package trips_api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "driverportal.trips.v1.TripsService"

type TripsServiceServer interface {
	ListTrips(ctx context.Context, req *ListTripsRequest) (*ListTripsResponse, error)
	GetTrip(ctx context.Context, req *TripRequest) (*TripResponse, error)
	CurrentPickup(ctx context.Context, req *TripRequest) (*CurrentPickupResponse, error)
	CompletionStats(ctx context.Context, req *TripRequest) (*CompletionStatsResponse, error)
	MarkPicked(ctx context.Context, req *MarkPickedRequest) (*PickupResponse, error)
	MarkNoShow(ctx context.Context, req *MarkNoShowRequest) (*PickupResponse, error)
	ListPickupEvents(ctx context.Context, req *ListPickupEventsRequest) (*ListPickupEventsResponse, error)
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// unary builds a MethodDesc the way protoc-gen-go-grpc would, minus the generated code.
func unary[Req, Resp any](name string, call func(TripsServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TripsServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TripsServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var TripsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TripsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListTrips", TripsServiceServer.ListTrips),
		unary("GetTrip", TripsServiceServer.GetTrip),
		unary("CurrentPickup", TripsServiceServer.CurrentPickup),
		unary("CompletionStats", TripsServiceServer.CompletionStats),
		unary("MarkPicked", TripsServiceServer.MarkPicked),
		unary("MarkNoShow", TripsServiceServer.MarkNoShow),
		unary("ListPickupEvents", TripsServiceServer.ListPickupEvents),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "trips_api.json",
}

func RegisterTripsServiceServer(s grpc.ServiceRegistrar, srv TripsServiceServer) {
	s.RegisterService(&TripsServiceDesc, srv)
}
