package app

import "context"

type principalKey struct{}

// WithPrincipal marks ctx as acting for an authenticated user. Procedures
// called with a principal only touch that user's rows.
func WithPrincipal(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, principalKey{}, userID)
}

// PrincipalFromContext returns the authenticated user id, if any.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalKey{}).(string)
	return id, ok && id != ""
}

// authorize rejects access to ownerID's data when ctx carries another principal.
// Without a principal the caller-supplied ids are trusted.
func authorize(ctx context.Context, ownerID string) error {
	id, ok := PrincipalFromContext(ctx)
	if !ok || id == ownerID {
		return nil
	}
	return ErrForbidden
}
