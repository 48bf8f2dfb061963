package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-reports/internal/observability"
	"github.com/odyssey-erp/odyssey-reports/internal/rbac"
	"github.com/odyssey-erp/odyssey-reports/internal/shared"
	trialbalancehttp "github.com/odyssey-erp/odyssey-reports/internal/trialbalance/http"
	"github.com/odyssey-erp/odyssey-reports/jobs"
	"github.com/odyssey-erp/odyssey-reports/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	RBACMiddleware rbac.Middleware

	AccountsHandler     *accounts.Handler
	TrialBalanceHandler *trialbalancehttp.Handler
	ReportHandler       *report.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AccountsHandler != nil {
		r.Route("/accounting", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny(shared.PermReportsView, shared.PermReportsAdmin))
			params.AccountsHandler.MountRoutes(r)
		})
	}
	if params.TrialBalanceHandler != nil {
		params.TrialBalanceHandler.MountRoutes(r)
	}
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny(shared.PermReportsExport, shared.PermReportsAdmin))
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
