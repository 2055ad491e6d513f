package auth

import "context"

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity attaches a verified identity to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity attached by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// HasRole reports whether the identity in ctx holds one of roles.
func HasRole(ctx context.Context, roles ...Role) bool {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}
