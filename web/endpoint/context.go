package endpoint

import (
	"context"
	"maps"
	"net/http"
)

type contextKey string

const contextKeyAttributes contextKey = "attributes"

func getAttributes(ctx context.Context) map[string]any {
	if v := ctx.Value(contextKeyAttributes); v != nil {
		return v.(map[string]any) //nolint:errcheck,forcetypeassert // Acceptable risk; only set with constant key.
	}
	return nil
}

// WithAttributes returns a copy of ctx carrying attrs as request attributes,
// merged over any attributes already present in ctx.
func WithAttributes(ctx context.Context, attrs map[string]any) context.Context {
	merged := make(map[string]any, len(attrs))
	maps.Copy(merged, getAttributes(ctx))
	maps.Copy(merged, attrs)
	return context.WithValue(ctx, contextKeyAttributes, merged)
}

// WithAttribute returns a shallow copy of r with the attribute key set to
// value. Attributes have the highest precedence when resolving Input values.
func WithAttribute(r *http.Request, key string, value any) *http.Request {
	return r.WithContext(WithAttributes(r.Context(), map[string]any{key: value}))
}

// Attributes returns a copy of the attributes set on r.
func Attributes(r *http.Request) map[string]any {
	return maps.Clone(getAttributes(r.Context()))
}
