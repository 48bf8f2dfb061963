package rbac

import (
	"context"
	"strings"
)

// HeaderPermissions carries the grants resolved by the upstream auth gateway.
const HeaderPermissions = "X-Permissions"

// Wildcard grants every permission.
const Wildcard = "*"

// Checker answers permission questions for the actor bound to ctx.
type Checker interface {
	HasPermission(ctx context.Context, perm string) bool
}

// Grants is a normalized permission set.
type Grants map[string]struct{}

// ParseGrants reads a comma or space separated permission list.
func ParseGrants(raw string) Grants {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	grants := make(Grants, len(fields))
	for _, p := range normalizePermissions(fields) {
		grants[p] = struct{}{}
	}
	return grants
}

// Has reports whether perm is granted directly, by a "module.*" grant, or by
// the wildcard.
func (g Grants) Has(perm string) bool {
	if len(g) == 0 {
		return false
	}
	perm = strings.ToLower(strings.TrimSpace(perm))
	if _, ok := g[Wildcard]; ok {
		return true
	}
	if _, ok := g[perm]; ok {
		return true
	}
	if i := strings.IndexByte(perm, '.'); i > 0 {
		_, ok := g[perm[:i]+".*"]
		return ok
	}
	return false
}

type grantsContextKey struct{}

// ContextWithGrants stores the grants in context.
func ContextWithGrants(ctx context.Context, g Grants) context.Context {
	return context.WithValue(ctx, grantsContextKey{}, g)
}

// GrantsFromContext extracts the grants from context.
func GrantsFromContext(ctx context.Context) Grants {
	g, _ := ctx.Value(grantsContextKey{}).(Grants)
	return g
}

// ContextChecker checks the grants forwarded with the request.
type ContextChecker struct{}

// HasPermission implements Checker.
func (ContextChecker) HasPermission(ctx context.Context, perm string) bool {
	return GrantsFromContext(ctx).Has(perm)
}

// StaticChecker grants a fixed set regardless of the request. Used by the
// worker and the CLI, which act on behalf of operators.
type StaticChecker Grants

// HasPermission implements Checker.
func (s StaticChecker) HasPermission(_ context.Context, perm string) bool {
	return Grants(s).Has(perm)
}
