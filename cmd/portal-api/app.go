package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/DriverPortal/internal/api/httpapi"
	tripsapi "github.com/BearBump/DriverPortal/internal/api/trips_api"
	"github.com/BearBump/DriverPortal/internal/broker/kafka"
	"github.com/BearBump/DriverPortal/internal/broker/messages"
	"github.com/BearBump/DriverPortal/internal/services/feedsync"
	"github.com/BearBump/DriverPortal/internal/services/offices"
	"github.com/BearBump/DriverPortal/internal/services/trips"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

type portalAPIOpts struct {
	grpcAddr    string
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string

	loginLimitPerMinute int64

	onListen func(grpcAddr, httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type sessionStore interface {
	httpapi.SessionManager
	tripsapi.Authenticator
}

type portalDeps struct {
	svc      *trips.Service
	syncer   *feedsync.Syncer
	session  sessionStore
	limiter  httpapi.LoginLimiter
	offices  *offices.Directory
	consumer kafkaConsumer
	ready    func(ctx context.Context) error
}

func runPortalAPI(ctx context.Context, opts portalAPIOpts, d portalDeps) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	grpcLis, err := net.Listen("tcp", opts.grpcAddr)
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}
	if opts.onListen != nil {
		opts.onListen(grpcLis.Addr().String(), httpLis.Addr().String())
	}

	var auth tripsapi.Authenticator
	if d.session != nil {
		auth = d.session
	}
	api := tripsapi.New(d.svc, auth)

	deps := httpapi.Deps{
		Trips:               d.svc,
		Session:             d.session,
		Limiter:             d.limiter,
		Offices:             d.offices,
		LoginLimitPerMinute: opts.loginLimitPerMinute,
		Ready:               d.ready,
		SwaggerPath:         opts.swaggerPath,
	}
	if d.syncer != nil {
		deps.Syncer = d.syncer
	}
	router := httpapi.NewRouter(deps)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return runGRPCServer(ctx, grpcLis, api) })
	g.Go(func() error { return runHTTPServer(ctx, httpLis, router) })

	if d.syncer != nil {
		g.Go(func() error {
			slog.Info("feed syncer started")
			if err := d.syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if d.consumer != nil {
		g.Go(func() error {
			slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
			err := d.consumer.Consume(ctx, tripAssignedHandler(ctx, d.svc))
			if err != nil && ctx.Err() == nil {
				// без консьюмера портал всё ещё работает от фида
				slog.Error("kafka consumer stopped", "error", err.Error())
			}
			return nil
		})
	}

	return g.Wait()
}

// tripAssignedHandler skips messages that can never be applied so they do not block the partition.
func tripAssignedHandler(ctx context.Context, svc *trips.Service) func(key, value []byte) error {
	return kafka.TripAssignedHandler(func(m messages.TripAssigned) error {
		err := svc.ApplyTripAssigned(ctx, m)
		if errors.Is(err, trips.ErrInvalidTrip) {
			slog.Warn("skip invalid trip.assigned", "trip_id", m.Trip.ID, "error", err.Error())
			return nil
		}
		return err
	})
}

func runGRPCServer(ctx context.Context, lis net.Listener, api *tripsapi.TripsAPI) error {
	s := grpc.NewServer()
	tripsapi.RegisterTripsServiceServer(s, api)

	go func() {
		<-ctx.Done()
		stopped := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			s.Stop()
		}
		_ = lis.Close()
	}()

	slog.Info("gRPC server listening", "addr", lis.Addr().String())
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return ctx.Err()
}

func runHTTPServer(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
