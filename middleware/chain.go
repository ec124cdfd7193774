package middleware

import (
	"context"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

// HandlerFunc handles one JSON-RPC request.
type HandlerFunc func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// Middleware wraps a handler with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middleware so that Chain(m1, m2)(h) runs m1, then m2,
// then h.
func Chain(middlewares ...Middleware) Middleware {
	return func(final HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
