package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BearBump/DriverPortal/internal/services/offices"
	"github.com/BearBump/DriverPortal/internal/services/session"
	"github.com/BearBump/DriverPortal/internal/services/trips"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, trips.ErrNotFound), errors.Is(err, offices.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, trips.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, trips.ErrInvalidCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, session.ErrRejected):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorBody{Error: err.Error()}

	var ve *session.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	if code == http.StatusInternalServerError {
		slog.Error("http request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}
	writeJSON(w, code, body)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
