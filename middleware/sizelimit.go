package middleware

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

// Common size limit presets.
const (
	KB = 1024
	MB = 1024 * 1024
)

// SizeLimit returns middleware that rejects requests whose params exceed
// maxBytes. Rejections are logged when logger is non-nil.
func SizeLimit(maxBytes int64, logger Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if size := int64(len(req.Params)); size > maxBytes {
				if logger != nil {
					logger.Warn("request size limit exceeded",
						F("method", req.Method),
						F("size", size),
						F("max", maxBytes),
					)
				}
				return nil, protocol.NewInvalidRequest(fmt.Sprintf("request size %d exceeds limit of %d bytes", size, maxBytes))
			}
			return next(ctx, req)
		}
	}
}
