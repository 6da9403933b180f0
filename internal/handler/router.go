package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/infra/observability"
	"github.com/reforco-edu/billing-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router needs.
type Services struct {
	Finance    *service.FinanceService
	Contracts  *service.ContractService
	Cycles     *service.CycleService
	Attendance *service.AttendanceService
	Auth       *service.AuthService
}

// NewRouter creates the HTTP router with all routes and middleware.
// Reads are public; everything that mutates billing state requires a staff
// token.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Finance, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Autenticação
		r.Post("/auth/login", authLoginHandler(svcs.Auth, logger))

		// Registro financeiro & parcelas (leitura)
		r.Get("/students/{studentId}/financial-record", getFinancialRecordHandler(svcs.Finance, logger))
		r.Get("/students/{studentId}/installments", listInstallmentsHandler(svcs.Finance, logger))
		r.Get("/students/{studentId}/installments/history", listHistoryHandler(svcs.Finance, logger))

		// Boletos (visão sintética, leitura)
		r.Get("/students/{studentId}/boletos", listBoletosHandler(svcs.Finance, logger))

		// Contratos
		r.Get("/students/{studentId}/contract", getContractHandler(svcs.Contracts, logger))
		r.Get("/contracts", listContractsHandler(svcs.Contracts, logger))

		// Ciclos
		r.Get("/cycles", listCyclesHandler(svcs.Cycles, logger))
		r.Get("/students/{studentId}/cycle", getCycleHandler(svcs.Cycles, logger))

		// Métricas de negócio
		r.Get("/metrics/billing", billingMetricsHandler(metrics))

		// Mutations (protected)
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))
			r.Post("/installments/{installmentId}/pay", payInstallmentHandler(svcs.Finance, logger))
			r.Post("/students/{studentId}/boletos/pay", payBoletoHandler(svcs.Finance, logger))
			r.Post("/students/{studentId}/renewal", renewalHandler(svcs.Finance, logger))
			r.Post("/attendance/present", attendancePresentHandler(svcs.Attendance, logger))
		})
	})

	return r
}

// ============================================================
// Health & metrics
// ============================================================

func healthzHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		services := []domain.ServiceHealth{
			{Name: "billing-api", Status: "healthy", LatencyMs: 0},
		}

		// Probe the store with a cheap lookup; a not-found answer still
		// proves the store is reachable.
		start := time.Now()
		_, err := finance.GetFinancialRecord(ctx, "health-check")
		latency := time.Since(start).Milliseconds()
		status := "healthy"
		var notFound *domain.ErrNotFound
		if err != nil && !errors.As(err, &notFound) {
			status = "degraded"
		}
		services = append(services, domain.ServiceHealth{
			Name: "supabase", Status: status, LatencyMs: latency,
		})

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func billingMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetBillingSnapshot())
	}
}
