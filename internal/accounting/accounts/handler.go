package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-reports/internal/platform/httpx"
)

// Lister returns an organization's accounts; *Service satisfies it.
type Lister interface {
	List(ctx context.Context, orgID string, activeOnly bool) ([]Account, error)
}

type Handler struct {
	service Lister
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service Lister) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the chart of accounts endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.List)
}

type listResponse struct {
	OrgID    string    `json:"org_id"`
	Count    int       `json:"count"`
	Accounts []Account `json:"accounts"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orgID := strings.TrimSpace(q.Get("org_id"))
	if orgID == "" {
		httpx.RespondError(w, fmt.Errorf("%w: org_id is required", httpx.ErrValidation))
		return
	}
	activeOnly := false
	if raw := q.Get("active_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: active_only: %v", httpx.ErrValidation, err))
			return
		}
		activeOnly = v
	}
	rows, err := h.service.List(r.Context(), orgID, activeOnly)
	if err != nil {
		h.logger.Error("list accounts", slog.String("org_id", orgID), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUpstream, err))
		return
	}
	if rows == nil {
		rows = []Account{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{OrgID: orgID, Count: len(rows), Accounts: rows})
}
