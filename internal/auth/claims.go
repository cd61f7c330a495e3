package auth

import "context"

// Claims are the verified identity of an API caller.
type Claims struct {
	Subject string   `json:"sub"`
	Roles   []string `json:"roles"`
	Scopes  []string `json:"scopes"`
}

// Roles.
const (
	RoleViewer = "viewer"
	RolePilot  = "pilot"
)

// Scopes.
const (
	ScopeRead      = "read"
	ScopeCommand   = "command"
	ScopeTelemetry = "telemetry"
)

// AnonymousSubject identifies callers when authentication is disabled.
const AnonymousSubject = "anonymous"

// Anonymous returns the claims granted to every caller when no verifier is
// configured.
func Anonymous() *Claims {
	return &Claims{
		Subject: AnonymousSubject,
		Roles:   []string{RolePilot},
		Scopes:  []string{ScopeRead, ScopeCommand, ScopeTelemetry},
	}
}

// HasScopes reports whether c holds every scope in required.
func (c *Claims) HasScopes(required ...string) bool {
	if c == nil {
		return false
	}
	for _, want := range required {
		if !contains(c.Scopes, want) {
			return false
		}
	}
	return true
}

// HasAnyRole reports whether c holds at least one role in roles. No roles
// means no requirement.
func (c *Claims) HasAnyRole(roles ...string) bool {
	if c == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if contains(c.Roles, role) {
			return true
		}
	}
	return false
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

type contextKey struct{}

// WithClaims returns a context carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ClaimsFromContext returns the claims stored by the middleware, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(contextKey{}).(*Claims)
	return c
}

// Subject returns the caller's subject, or "unknown" when ctx has no claims.
func Subject(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Subject
	}
	return "unknown"
}
