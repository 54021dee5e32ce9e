package domain

import "context"

// contextKey is a private type so catalog context values cannot collide with
// keys set by other packages.
type contextKey string

const businessIDKey contextKey = "businessId"

// WithBusinessID returns a context carrying the business id.
func WithBusinessID(ctx context.Context, businessID string) context.Context {
	return context.WithValue(ctx, businessIDKey, businessID)
}

// GetBusinessIDFromContext returns the business id stored in the context, or
// an empty string when none was set.
func GetBusinessIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(businessIDKey).(string); ok {
		return v
	}
	return ""
}
