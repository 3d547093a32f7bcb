package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/services/session"
)

type loginRequest struct {
	TenantID string `json:"tenantId"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type driverDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Code   string `json:"code,omitempty"`
	Gender string `json:"gender,omitempty"`
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	TenantID      string     `json:"tenantId,omitempty"`
	Driver        *driverDTO `json:"driver,omitempty"`
	LoggedInAt    *time.Time `json:"loggedInAt,omitempty"`
}

func toSessionResponse(s models.Session, authenticated bool) sessionResponse {
	d := driverDTO(s.Driver)
	at := s.LoggedInAt
	return sessionResponse{
		Authenticated: authenticated,
		TenantID:      s.TenantID,
		Driver:        &d,
		LoggedInAt:    &at,
	}
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		writeMessage(w, http.StatusServiceUnavailable, "session not wired")
		return
	}
	s, ok := h.Session.Current()
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s, h.Session.IsAuthenticated()))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		writeMessage(w, http.StatusServiceUnavailable, "session not wired")
		return
	}
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if h.Limiter != nil && req.Username != "" {
		allowed, n, err := h.Limiter.AllowPerMinute(r.Context(), "login", strings.ToLower(req.Username), h.LoginLimitPerMinute)
		if err != nil {
			// лимитер недоступен — не блокируем вход
			slog.Warn("login rate limiter", "error", err.Error())
		} else if !allowed {
			slog.Warn("login rate limit exceeded", "username", req.Username, "count", n)
			w.Header().Set("Retry-After", "60")
			writeMessage(w, http.StatusTooManyRequests, "too many login attempts, try again in a minute")
			return
		}
	}

	s, err := h.Session.Login(r.Context(), models.Credentials{
		TenantID: req.TenantID,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("driver logged in", "driver_id", s.Driver.ID, "tenant_id", s.TenantID)
	writeJSON(w, http.StatusOK, toSessionResponse(s, true))
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		writeMessage(w, http.StatusServiceUnavailable, "session not wired")
		return
	}
	if err := h.Session.Logout(r.Context()); err != nil {
		// локально сессия уже сброшена
		slog.Warn("logout", "error", err.Error())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Session != nil && !h.Session.IsAuthenticated() {
			writeError(w, r, session.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
