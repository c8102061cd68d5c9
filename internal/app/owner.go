package app

import (
	"context"
	"strings"
)

// ownerContextKey stores context keys for dashboard owner values.
type ownerContextKey struct{}

// WithOwner attaches the requesting user's id to context.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, strings.TrimSpace(ownerID))
}

// OwnerFromContext returns the requesting user's id when present.
func OwnerFromContext(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerContextKey{}).(string)
	if !ok || ownerID == "" {
		return "", false
	}
	return ownerID, true
}

// resolveOwner picks the explicit owner, then the context owner, then the configured default.
func (s *Service) resolveOwner(ctx context.Context, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if ownerID, ok := OwnerFromContext(ctx); ok {
		return ownerID
	}
	return s.defaultOwner
}
