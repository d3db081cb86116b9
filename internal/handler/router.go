package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/infra/observability"
	"github.com/boddenberg/bank-accounts-go/internal/port"
	"github.com/boddenberg/bank-accounts-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

const pingTimeout = 2 * time.Second

// NewRouter creates the HTTP router with all routes and middleware.
// pinger may be nil when the repository cannot report reachability.
func NewRouter(svc *service.AccountService, pinger port.Pinger, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(recoverer(metrics, logger))
	r.Use(middleware.Heartbeat("/ping"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusNotFound, bodyNotFound)
	})

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(pinger, metrics))
	r.Get("/readyz", readyzHandler(pinger, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Accounts API ---
	r.Route("/api/customers/{customerId}/accounts", func(r chi.Router) {
		r.Post("/", createAccountHandler(svc, metrics, logger))
		r.Get("/", findAccountsHandler(svc, metrics, logger))
		r.Get("/{accountId}", getAccountHandler(svc, metrics, logger))
		r.Delete("/{accountId}", deleteAccountHandler(svc, metrics, logger))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(pinger port.Pinger, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "accounts-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			start := time.Now()
			err := pinger.Ping(ctx)
			cancel()
			status := "healthy"
			if err != nil {
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{
				Name: "repository", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		stats := metrics.Snapshot()

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
		}
		if overallStatus == "healthy" && stats.PoolCapacity > 0 && stats.PoolInFlight >= stats.PoolCapacity {
			overallStatus = "degraded"
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:     overallStatus,
			Services:   services,
			Repository: stats,
		})
	}
}

func readyzHandler(pinger port.Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
