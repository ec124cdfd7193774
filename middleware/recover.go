package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

// PanicHandler converts a recovered panic into a response.
type PanicHandler func(ctx context.Context, req *protocol.Request, panicVal any) (*protocol.Response, error)

// RecoverOption configures Recover.
type RecoverOption func(*recoverConfig)

type recoverConfig struct {
	logger  Logger
	handler PanicHandler
}

// WithRecoverLogger logs recovered panics with their stack.
func WithRecoverLogger(l Logger) RecoverOption {
	return func(c *recoverConfig) {
		c.logger = l
	}
}

// WithPanicHandler replaces the default conversion to an internal error.
func WithPanicHandler(h PanicHandler) RecoverOption {
	return func(c *recoverConfig) {
		c.handler = h
	}
}

// Recover returns middleware that turns panics into internal errors.
func Recover(opts ...RecoverOption) Middleware {
	cfg := &recoverConfig{handler: defaultPanicHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (resp *protocol.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					if cfg.logger != nil {
						cfg.logger.Error("panic recovered",
							F("method", req.Method),
							F("panic", fmt.Sprint(r)),
							F("stack", string(debug.Stack())),
						)
					}
					resp, err = cfg.handler(ctx, req, r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func defaultPanicHandler(_ context.Context, _ *protocol.Request, panicVal any) (*protocol.Response, error) {
	return nil, protocol.NewInternalError(fmt.Sprintf("panic: %v", panicVal))
}
