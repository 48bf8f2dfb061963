package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-reports/internal/platform/httpx"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Checker Checker
	Logger  *slog.Logger
}

// ForwardedGrants copies the gateway's X-Permissions header into the request
// context.
func ForwardedGrants(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderPermissions)
		if strings.TrimSpace(raw) == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := ContextWithGrants(r.Context(), ParseGrants(raw))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAny ensures the current actor has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			for _, p := range normalized {
				if m.allowed(r, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(w, r, normalized)
		})
	}
}

// RequireAll ensures the current actor has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range normalized {
				if !m.allowed(r, p) {
					m.deny(w, r, normalized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) allowed(r *http.Request, perm string) bool {
	if m.Checker == nil {
		return false
	}
	return m.Checker.HasPermission(r.Context(), perm)
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, required []string) {
	if m.Logger != nil {
		m.Logger.Warn("rbac denied", slog.String("path", r.URL.Path), slog.Any("required", required))
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, seen := unique[p]; seen {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
