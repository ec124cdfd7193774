package protocol

import (
	"context"
	"maps"
	"strings"
)

type requestMetaKey struct{}

// RequestMeta holds transport-level metadata for a request, such as HTTP
// headers. Keys are stored lower-cased.
type RequestMeta map[string]string

// ContextWithRequestMeta returns a new context carrying meta.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	normalized := make(RequestMeta, len(meta))
	for k, v := range meta {
		normalized[strings.ToLower(k)] = v
	}
	return context.WithValue(ctx, requestMetaKey{}, normalized)
}

// RequestMetaFromContext returns the request metadata from the context, or nil.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// GetRequestMeta returns a metadata value. Lookup is case-insensitive.
func GetRequestMeta(ctx context.Context, key string) string {
	return RequestMetaFromContext(ctx)[strings.ToLower(key)]
}

// SetRequestMeta returns a context whose metadata has key set to value.
// The metadata already in ctx is copied, never mutated.
func SetRequestMeta(ctx context.Context, key, value string) context.Context {
	meta := maps.Clone(RequestMetaFromContext(ctx))
	if meta == nil {
		meta = make(RequestMeta, 1)
	}
	meta[strings.ToLower(key)] = value
	return context.WithValue(ctx, requestMetaKey{}, meta)
}
