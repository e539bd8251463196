package authz

import (
	"context"
	"net/http"
)

type contextKey string

const callerIDKey contextKey = "caller_id"

// WithCaller stores the authenticated caller's ID on the context.
func WithCaller(ctx context.Context, callerID string) context.Context {
	if callerID == "" {
		return ctx
	}
	return context.WithValue(ctx, callerIDKey, callerID)
}

// CallerFromRequest returns the caller identity the JWT middleware attached.
func CallerFromRequest(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(callerIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
