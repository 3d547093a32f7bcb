package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BearBump/DriverPortal/config"
	"github.com/BearBump/DriverPortal/internal/services/ingest"
)

type workerHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	ingester *ingest.Ingester
	ready    func(ctx context.Context) error
	cfg      *config.Config
}

func newWorkerRouter(opts workerHTTPOpts) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.ready(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		if opts.ingester == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ingester not wired"})
			return
		}
		writeJSON(w, http.StatusOK, opts.ingester.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		if opts.cfg == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "config not wired"})
			return
		}
		// без секретов: только то, что влияет на приём фида
		writeJSON(w, http.StatusOK, map[string]any{
			"tripAssignedTopic":      opts.cfg.Kafka.TripAssignedTopicName,
			"consumerGroup":          opts.cfg.Worker.KafkaConsumerGroup,
			"pollPortal":             opts.cfg.Worker.PollPortal,
			"pollIntervalSeconds":    opts.cfg.Worker.PollIntervalSeconds,
			"pollRateLimitPerMinute": opts.cfg.Worker.PollRateLimitPerMinute,
			"apiBaseUrl":             opts.cfg.Portal.APIBaseURL,
		})
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if opts.ingester == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ingester not wired"})
			return
		}
		opts.ingester.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]bool{"triggered": true})
	})

	return r
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newWorkerRouter(opts), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("worker HTTP listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
