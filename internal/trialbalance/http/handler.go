// Package trialbalancehttp serves the trial balance report, its exports and
// the generic table export endpoint.
package trialbalancehttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/export"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-reports/internal/rbac"
	"github.com/odyssey-erp/odyssey-reports/internal/shared"
	"github.com/odyssey-erp/odyssey-reports/internal/trialbalance"
	"github.com/odyssey-erp/odyssey-reports/jobs"
)

const (
	defaultExportLimit = 10
	rateWindow         = time.Minute

	// HeaderExportFallback is set on PDF downloads served as HTML.
	HeaderExportFallback = "X-Export-Fallback"
	// HeaderUser carries the caller forwarded by the auth gateway.
	HeaderUser = "X-Forwarded-User"
)

// Loader loads and invalidates trial balance snapshots; *trialbalance.Service
// satisfies it.
type Loader interface {
	Load(ctx context.Context, f trialbalance.Filter) (*trialbalance.Snapshot, error)
	Invalidate(ctx context.Context) error
}

// Enqueuer submits asynchronous exports; *jobs.Client satisfies it.
type Enqueuer interface {
	EnqueueTrialBalanceExport(ctx context.Context, payload jobs.TrialBalanceExportPayload) (*asynq.TaskInfo, error)
}

// Params wires the handler. Jobs is optional.
type Params struct {
	Loader   Loader
	Exporter trialbalance.Exporter
	Jobs     Enqueuer
	RBAC     rbac.Middleware
	Logger   *slog.Logger
	// ExportLimit caps export requests per caller per minute.
	ExportLimit int
	Clock       func() time.Time
}

// Handler wires trial balance endpoints.
type Handler struct {
	loader    Loader
	exporter  trialbalance.Exporter
	jobs      Enqueuer
	rbac      rbac.Middleware
	logger    *slog.Logger
	now       func() time.Time
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the handler.
func NewHandler(p Params) (*Handler, error) {
	if p.Loader == nil || p.Exporter == nil {
		return nil, errors.New("trialbalance handler: loader and exporter required")
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.ExportLimit <= 0 {
		p.ExportLimit = defaultExportLimit
	}
	limiter := httprate.Limit(p.ExportLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit reached")
		}),
	)
	return &Handler{
		loader:    p.Loader,
		exporter:  p.Exporter,
		jobs:      p.Jobs,
		rbac:      p.RBAC,
		logger:    p.Logger,
		now:       p.Clock,
		rateLimit: limiter,
	}, nil
}

func rateLimitKey(r *http.Request) (string, error) {
	if user := strings.TrimSpace(r.Header.Get(HeaderUser)); user != "" {
		return "user:" + user, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

// MountRoutes registers the report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportsView, shared.PermReportsAdmin))
		r.Get("/reports/trial-balance", h.handleTrialBalance)
		r.Get("/reports/statements", h.handleStatements)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportsExport, shared.PermReportsAdmin))
		r.Use(h.rateLimit)
		r.Get("/reports/trial-balance/export", h.handleExport)
		r.Post("/reports/export", h.handleTableExport)
		r.Post("/reports/trial-balance/export-jobs", h.handleEnqueue)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReportsAdmin))
		r.Post("/reports/trial-balance/cache/invalidate", h.handleInvalidate)
	})
}

type trialBalanceResponse struct {
	reports.TrialBalanceViewModel
	Filter   trialbalance.Filter `json:"filter"`
	LoadedAt time.Time           `json:"loaded_at"`
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	expansion, err := trialbalance.ParseExpansion(r.URL.Query().Get("expand"), snap.Forest)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lang := locale.ParseLanguage(r.URL.Query().Get("lang"))
	httpx.JSON(w, http.StatusOK, trialBalanceResponse{
		TrialBalanceViewModel: snap.ViewModel(expansion, lang),
		Filter:                snap.Filter,
		LoadedAt:              snap.LoadedAt,
	})
}

func (h *Handler) handleStatements(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, snap.Statements(locale.ParseLanguage(r.URL.Query().Get("lang"))))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}
	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	expansion, err := trialbalance.ParseExpansion(q.Get("expand"), snap.Forest)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lang := locale.ParseLanguage(q.Get("lang"))
	table := snap.Table(expansion, trialbalance.TableOptions{
		Language:   lang,
		OwnAmounts: q.Get("amounts") == "own",
	})
	art, err := h.exporter.Export(r.Context(), table, export.Options{
		Format:      format,
		Title:       trialbalance.ExportTitle(q.Get("title"), lang),
		Subtitle:    snap.CompanyName,
		Language:    lang,
		Orientation: export.Landscape,
		Excel:       export.ExcelOptions{AutoFilter: true, FreezeHeader: true},
	})
	if err != nil {
		h.respondExportError(w, err)
		return
	}
	h.writeArtifact(w, art)
}

// tableExportRequest is the body of POST /reports/export.
type tableExportRequest struct {
	Table   export.TableData `json:"table"`
	Options export.Options   `json:"options"`
}

func (h *Handler) handleTableExport(w http.ResponseWriter, r *http.Request) {
	var req tableExportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	art, err := h.exporter.Export(r.Context(), req.Table, req.Options)
	if err != nil {
		h.respondExportError(w, err)
		return
	}
	h.writeArtifact(w, art)
}

// exportJobRequest is the body of POST /reports/trial-balance/export-jobs.
type exportJobRequest struct {
	OrgID      string `json:"org_id"`
	ProjectID  string `json:"project_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	PostedOnly bool   `json:"posted_only"`
	ActiveOnly bool   `json:"active_only"`
	Expand     string `json:"expand"`
	Format     string `json:"format"`
	Language   string `json:"language"`
	Title      string `json:"title"`
}

type exportJobResponse struct {
	JobID     string `json:"job_id"`
	Queue     string `json:"queue"`
	StatusURL string `json:"status_url"`
}

func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpx.RespondError(w, fmt.Errorf("asynchronous exports are disabled: %w", httpx.ErrUnavailable))
		return
	}
	var req exportJobRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter, err := trialbalance.ParseFilter(req.OrgID, req.ProjectID, req.From, req.To, req.PostedOnly, req.ActiveOnly, h.now())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if strings.TrimSpace(filter.OrgID) == "" {
		httpx.RespondError(w, fmt.Errorf("%w: org_id is required", trialbalance.ErrInvalidFilter))
		return
	}
	if filter.To.Before(filter.From) {
		httpx.RespondError(w, fmt.Errorf("%w: from is after to", trialbalance.ErrInvalidFilter))
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}
	info, err := h.jobs.EnqueueTrialBalanceExport(r.Context(), jobs.TrialBalanceExportPayload{
		OrgID:       filter.OrgID,
		ProjectID:   filter.ProjectID,
		From:        filter.From.Format(trialbalance.DateLayout),
		To:          filter.To.Format(trialbalance.DateLayout),
		PostedOnly:  filter.PostedOnly,
		ActiveOnly:  filter.ActiveOnly,
		Expand:      req.Expand,
		Format:      string(format),
		Language:    req.Language,
		Title:       req.Title,
		RequestedBy: r.Header.Get(HeaderUser),
	})
	if err != nil {
		h.logger.Error("enqueue trial balance export", slog.String("org_id", filter.OrgID), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUpstream, err))
		return
	}
	h.logger.Info("trial balance export queued", slog.String("job_id", info.ID), slog.String("org_id", filter.OrgID))
	httpx.JSON(w, http.StatusAccepted, exportJobResponse{
		JobID:     info.ID,
		Queue:     info.Queue,
		StatusURL: "/jobs/exports/" + info.ID,
	})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.loader.Invalidate(r.Context()); err != nil {
		h.logger.Error("invalidate report cache", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// load parses the filter from the query string and loads the snapshot. It
// writes the error response itself and reports whether the caller may go on.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*trialbalance.Snapshot, bool) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return nil, false
	}
	snap, err := h.loader.Load(r.Context(), filter)
	if err != nil {
		if !trialbalance.IsInvalid(err) {
			h.logger.Error("load trial balance", slog.String("org_id", filter.OrgID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return nil, false
	}
	return snap, true
}

func (h *Handler) parseFilter(r *http.Request) (trialbalance.Filter, error) {
	q := r.URL.Query()
	posted, err := parseBool(q.Get("posted_only"))
	if err != nil {
		return trialbalance.Filter{}, fmt.Errorf("%w: posted_only: %v", trialbalance.ErrInvalidFilter, err)
	}
	active, err := parseBool(q.Get("active_only"))
	if err != nil {
		return trialbalance.Filter{}, fmt.Errorf("%w: active_only: %v", trialbalance.ErrInvalidFilter, err)
	}
	return trialbalance.ParseFilter(q.Get("org_id"), q.Get("project_id"), q.Get("from"), q.Get("to"), posted, active, h.now())
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func (h *Handler) respondExportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, export.ErrInvalidOptions), errors.Is(err, export.ErrInvalidTable), errors.Is(err, export.ErrUnknownFormat):
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
	default:
		h.logger.Error("export report", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) writeArtifact(w http.ResponseWriter, art *export.Artifact) {
	if art.Fallback {
		w.Header().Set(HeaderExportFallback, "true")
	}
	w.Header().Set("X-Export-ID", art.ID)
	if err := httpx.Attachment(w, art.Filename, art.ContentType, art.Data); err != nil {
		h.logger.Warn("write export", slog.String("filename", art.Filename), slog.Any("error", err))
	}
}
