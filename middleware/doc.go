// Package middleware wraps JSON-RPC request handling with cross-cutting
// behavior: panic recovery, request IDs, logging, deadlines, rate limits,
// size limits, authentication and OpenTelemetry.
//
//	handler := middleware.Chain(
//	    middleware.Recover(middleware.WithRecoverLogger(logger)),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	    middleware.RateLimit(50, 10, middleware.WithRateLimitKey(middleware.CapabilityKey)),
//	)(base)
//
// Logger is the logging interface used throughout the module; NewSlogLogger
// adapts log/slog to it.
//
// # Authentication
//
// Transports copy headers into the request metadata (see
// protocol.ContextWithRequestMeta). Auth reads credentials from there:
//
//	verifier, _ := middleware.NewHMACVerifier(secret, middleware.JWTConfig{Issuer: "toolbox"})
//	auth := middleware.Auth(middleware.BearerTokenAuthenticator(verifier.Verify))
package middleware
