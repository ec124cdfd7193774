package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

type requestIDKey struct{}

// RequestIDHeader is the request metadata key a transport may use to pass
// a caller-chosen request ID.
const RequestIDHeader = "x-request-id"

// RequestID returns middleware that injects a request ID into the context.
// An ID already in the context or in the request metadata is kept;
// otherwise a random UUID is generated.
func RequestID() Middleware {
	return RequestIDWithGenerator(uuid.NewString)
}

// RequestIDWithGenerator returns middleware that uses a custom ID generator.
func RequestIDWithGenerator(generator func() string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if RequestIDFromContext(ctx) != "" {
				return next(ctx, req)
			}
			id := protocol.GetRequestMeta(ctx, RequestIDHeader)
			if id == "" {
				id = generator()
			}
			return next(ContextWithRequestID(ctx, id), req)
		}
	}
}

// RequestIDFromContext returns the request ID from the context, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithRequestID returns a new context with the request ID set.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}
