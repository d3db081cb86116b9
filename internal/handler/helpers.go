package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// Error bodies are plain text and fixed; clients match on them.
const (
	bodyNotFound     = "Entity not found"
	bodyInternal     = "Internal server error"
	bodyUnauthorized = "Unauthorized"
	bodyBadRequest   = "Bad request"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func writeNotFound(w http.ResponseWriter, metrics *observability.Metrics) {
	metrics.IncrAPIError("not_found")
	writeText(w, http.StatusNotFound, bodyNotFound)
}

func writeBadRequest(w http.ResponseWriter, metrics *observability.Metrics) {
	metrics.IncrAPIError("bad_request")
	writeText(w, http.StatusBadRequest, bodyBadRequest)
}

// pathID parses an integer path parameter. A malformed id cannot name an
// existing resource, so callers answer 404.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, metrics *observability.Metrics, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var unauthorized *domain.ErrUnauthorized
	var badRequest *domain.ErrBadRequest

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeNotFound(w, metrics)
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized access", zap.String("error", err.Error()))
		metrics.IncrAPIError("unauthorized")
		writeText(w, http.StatusUnauthorized, bodyUnauthorized)
	case errors.As(err, &badRequest):
		logger.Debug("bad request", zap.String("error", err.Error()))
		writeBadRequest(w, metrics)
	default:
		logger.Error("internal error", zap.Error(err))
		metrics.IncrAPIError("internal")
		writeText(w, http.StatusInternalServerError, bodyInternal)
	}
}
