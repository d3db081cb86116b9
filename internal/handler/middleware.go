package handler

import (
	"net/http"
	"runtime/debug"

	"github.com/boddenberg/bank-accounts-go/internal/infra/observability"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// recoverer turns a handler panic into the plaintext 500 every other
// internal failure produces.
func recoverer(metrics *observability.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("handler panicked",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				metrics.IncrAPIError("internal")
				if r.Header.Get("Connection") != "Upgrade" {
					writeText(w, http.StatusInternalServerError, bodyInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
