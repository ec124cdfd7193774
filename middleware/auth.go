package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

// ErrNoCredentials is returned by authenticators when the request carries
// no credentials they understand.
var ErrNoCredentials = errors.New("no credentials")

// Identity represents an authenticated caller.
type Identity struct {
	// ID is a unique identifier (user ID, API key ID, token subject).
	ID string
	// Name is a human-readable name for the identity.
	Name string
	// Metadata contains additional identity information such as claims.
	Metadata map[string]any
}

type identityContextKey struct{}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

// ContextWithIdentity returns a new context with the identity attached.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// Authenticator resolves the identity behind a request. It returns
// ErrNoCredentials, or (nil, nil), when the request has no usable
// credentials.
type Authenticator func(ctx context.Context, req *protocol.Request) (*Identity, error)

// TokenVerifier checks a bearer token or API key and returns its identity.
type TokenVerifier func(ctx context.Context, token string) (*Identity, error)

// AuthOption configures the authentication middleware.
type AuthOption func(*authConfig)

type authConfig struct {
	logger      Logger
	skipMethods map[string]bool
}

// WithAuthLogger sets the logger for auth events.
func WithAuthLogger(l Logger) AuthOption {
	return func(c *authConfig) {
		c.logger = l
	}
}

// WithAuthSkipMethods adds methods that don't require authentication.
// "initialize" and "ping" are always skipped.
func WithAuthSkipMethods(methods ...string) AuthOption {
	return func(c *authConfig) {
		for _, m := range methods {
			c.skipMethods[m] = true
		}
	}
}

// Auth returns middleware that rejects unauthenticated requests with
// CodeUnauthorized and stores the identity of the others in the context.
func Auth(authenticator Authenticator, opts ...AuthOption) Middleware {
	cfg := &authConfig{
		logger: NopLogger{},
		skipMethods: map[string]bool{
			protocol.MethodInitialize:  true,
			protocol.MethodInitialized: true,
			protocol.MethodPing:        true,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if cfg.skipMethods[req.Method] {
				return next(ctx, req)
			}

			identity, err := authenticator(ctx, req)
			if err == nil && identity == nil {
				err = ErrNoCredentials
			}
			if err != nil {
				cfg.logger.Warn("authentication failed",
					F("method", req.Method),
					F("error", err.Error()),
				)
				return nil, protocol.NewUnauthorized("authentication required")
			}

			cfg.logger.Debug("authenticated",
				F("method", req.Method),
				F("identity", identity.ID),
			)
			return next(ContextWithIdentity(ctx, identity), req)
		}
	}
}

// APIKeyAuthenticator reads an API key from the named request metadata
// header.
func APIKeyAuthenticator(header string, verify TokenVerifier) Authenticator {
	return func(ctx context.Context, req *protocol.Request) (*Identity, error) {
		key := protocol.GetRequestMeta(ctx, header)
		if key == "" {
			return nil, ErrNoCredentials
		}
		return verify(ctx, key)
	}
}

// BearerTokenAuthenticator reads "Authorization: Bearer <token>" from the
// request metadata.
func BearerTokenAuthenticator(verify TokenVerifier) Authenticator {
	return func(ctx context.Context, req *protocol.Request) (*Identity, error) {
		scheme, token, ok := strings.Cut(protocol.GetRequestMeta(ctx, "authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return nil, ErrNoCredentials
		}
		return verify(ctx, strings.TrimSpace(token))
	}
}

// StaticTokens verifies tokens or API keys against a fixed table.
func StaticTokens(tokens map[string]*Identity) TokenVerifier {
	return func(_ context.Context, token string) (*Identity, error) {
		if id, ok := tokens[token]; ok {
			return id, nil
		}
		return nil, errors.New("unknown token")
	}
}

// ChainAuthenticators tries each authenticator in turn. Authenticators that
// find no credentials are skipped; any other error stops the chain.
func ChainAuthenticators(authenticators ...Authenticator) Authenticator {
	return func(ctx context.Context, req *protocol.Request) (*Identity, error) {
		for _, auth := range authenticators {
			identity, err := auth(ctx, req)
			if errors.Is(err, ErrNoCredentials) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if identity != nil {
				return identity, nil
			}
		}
		return nil, ErrNoCredentials
	}
}
