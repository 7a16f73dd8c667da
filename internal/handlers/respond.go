package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/diewo77/garage-invoices/httpx"
	"github.com/diewo77/garage-invoices/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var errInvalidID = errors.New("invalid id")

// respondError maps service errors to status codes. Unclassified errors are
// logged and answered with a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, http.StatusBadRequest, verr.Error(), verr.Violations)
	case errors.Is(err, services.ErrValidation):
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, httpx.ErrBadRequestBody):
		httpx.JSONError(w, http.StatusBadRequest, httpx.ErrBadRequestBody.Error(), nil)
	case errors.Is(err, errInvalidID):
		httpx.JSONError(w, http.StatusBadRequest, errInvalidID.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not found", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.JSONError(w, http.StatusUnauthorized, services.ErrInvalidCredentials.Error(), nil)
	case errors.Is(err, services.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, err.Error(), nil)
	default:
		log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
		httpx.JSONError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

// idParam parses a positive integer path parameter.
func idParam(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// textParam returns a path parameter decoded once. chi matches against
// r.URL.RawPath when it is set, so only then is the value still escaped.
func textParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw
	}
	if s, err := url.PathUnescape(raw); err == nil {
		return s
	}
	return raw
}

type idResponse struct {
	ID uint `json:"id"`
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
