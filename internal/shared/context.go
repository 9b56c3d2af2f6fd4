package shared

import "context"

// Scope identifies the tenant and branch a request operates on. Callers
// resolve it before invoking any service; it is never read from globals.
type Scope struct {
	TenantID int64
	BranchID int64
}

// Valid reports whether both identifiers are set.
func (s Scope) Valid() bool {
	return s.TenantID > 0 && s.BranchID > 0
}

type scopeContextKey struct{}

// ContextWithScope stores the scope in context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the scope from context.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}
