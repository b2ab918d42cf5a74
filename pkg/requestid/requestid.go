// Package requestid propagates a per-request correlation id through the
// context so handlers and error payloads can reference it.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the inbound header a caller may use to supply its own id.
const Header = "x-request-id"

type contextKey struct{}

// Generate returns a fresh correlation id.
func Generate() string {
	return uuid.NewString()
}

// ToContext stores the id on the context.
func ToContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the id, or "" when none was set.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// FromContextPtr returns the id as a pointer, for optional JSON fields.
func FromContextPtr(ctx context.Context) *string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return &id
	}
	return nil
}

// FromRequest reads the id off the request context.
func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}
