package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/services/feedsync"
	"github.com/BearBump/DriverPortal/internal/services/offices"
	"github.com/BearBump/DriverPortal/internal/services/trips"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

const DefaultLoginLimitPerMinute = 5

type SessionManager interface {
	Login(ctx context.Context, c models.Credentials) (models.Session, error)
	Logout(ctx context.Context) error
	Current() (models.Session, bool)
	IsAuthenticated() bool
}

type LoginLimiter interface {
	AllowPerMinute(ctx context.Context, scope, subject string, limit int64) (bool, int64, error)
}

type SyncController interface {
	Stats() feedsync.Stats
	Trigger()
}

// Deps is everything the router can serve. Nil members switch their routes off
// (they answer 503), except Trips which is required.
type Deps struct {
	Trips   *trips.Service
	Session SessionManager
	Limiter LoginLimiter
	Offices *offices.Directory
	Syncer  SyncController

	LoginLimitPerMinute int64
	// Ready is polled by /readyz. Nil means always ready.
	Ready       func(ctx context.Context) error
	SwaggerPath string
}

type handler struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	if d.LoginLimitPerMinute <= 0 {
		d.LoginLimitPerMinute = DefaultLoginLimitPerMinute
	}
	h := &handler{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", h.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Post("/login", h.login)
			r.Delete("/", h.logout)
		})

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", h.listTrips)
			r.Route("/{tripID}", func(r chi.Router) {
				r.Get("/", h.getTrip)
				r.Get("/current", h.currentPickup)
				r.Get("/stats", h.completionStats)
				r.Get("/navigation", h.navigation)
				r.Get("/events", h.pickupEvents)

				r.Group(func(r chi.Router) {
					r.Use(h.requireSession)
					r.Post("/pickups/{pickupID}/pick", h.markPicked)
					r.Post("/pickups/{pickupID}/no-show", h.markNoShow)
				})
			})
		})

		r.Route("/offices", func(r chi.Router) {
			r.Get("/", h.listOffices)
			r.Get("/current", h.currentOffice)
			r.Put("/current", h.switchOffice)
		})

		r.Get("/sync/stats", h.syncStats)
		r.Post("/sync/trigger", h.syncTrigger)
	})

	if d.SwaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, d.SwaggerPath)
		})
		swaggerURL := "/swagger.json"
		if fi, err := os.Stat(d.SwaggerPath); err == nil {
			swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		}
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	return r
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handler) syncStats(w http.ResponseWriter, r *http.Request) {
	if h.Syncer == nil {
		writeMessage(w, http.StatusServiceUnavailable, "syncer not wired")
		return
	}
	writeJSON(w, http.StatusOK, h.Syncer.Stats())
}

func (h *handler) syncTrigger(w http.ResponseWriter, r *http.Request) {
	if h.Syncer == nil {
		writeMessage(w, http.StatusServiceUnavailable, "syncer not wired")
		return
	}
	h.Syncer.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]bool{"triggered": true})
}
