package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

// RateLimitKeyFunc derives the bucket a request is counted against.
type RateLimitKeyFunc func(ctx context.Context, req *protocol.Request) string

// Key functions for RateLimit.
var (
	// GlobalKey shares one bucket across all requests.
	GlobalKey RateLimitKeyFunc = func(context.Context, *protocol.Request) string { return "global" }

	// MethodKey keeps one bucket per JSON-RPC method.
	MethodKey RateLimitKeyFunc = func(_ context.Context, req *protocol.Request) string { return req.Method }

	// CapabilityKey keeps one bucket per tool, prompt or resource, so a
	// busy tool cannot starve the others.
	CapabilityKey RateLimitKeyFunc = func(_ context.Context, req *protocol.Request) string {
		if c := Capability(req); c != "" {
			return req.Method + ":" + c
		}
		return req.Method
	}

	// IdentityKey keeps one bucket per authenticated identity. Requests
	// without an identity share the "anonymous" bucket.
	IdentityKey RateLimitKeyFunc = func(ctx context.Context, _ *protocol.Request) string {
		if id := IdentityFromContext(ctx); id != nil {
			return "identity:" + id.ID
		}
		return "anonymous"
	}
)

// RateLimitOption configures the rate limiter.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	keyFunc RateLimitKeyFunc
	logger  Logger
}

// WithRateLimitKey sets how requests are bucketed. The default is GlobalKey.
func WithRateLimitKey(fn RateLimitKeyFunc) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.keyFunc = fn
	}
}

// WithRateLimitLogger sets the logger for rate limit events.
func WithRateLimitLogger(l Logger) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.logger = l
	}
}

// RateLimit returns token bucket middleware allowing rate requests per
// second per bucket, with bursts up to burst.
func RateLimit(rate, burst int, opts ...RateLimitOption) Middleware {
	cfg := &rateLimitConfig{keyFunc: GlobalKey}
	for _, opt := range opts {
		opt(cfg)
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Rate:     rate,
		Burst:    burst,
		Interval: time.Second,
	})

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			key := cfg.keyFunc(ctx, req)
			if !limiter.Allow(ctx, key) {
				if cfg.logger != nil {
					cfg.logger.Warn("rate limit exceeded",
						F("method", req.Method),
						F("key", key),
					)
				}
				return nil, protocol.NewRateLimited("rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
