package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

// Timeout returns middleware that gives each request a deadline. Handlers
// that honor the context end early; the dispatcher itself never times out.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}
