package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig controls bearer JWT validation.
type JWTConfig struct {
	// Issuer, when set, must match the iss claim.
	Issuer string
	// AllowedAlgs lists accepted signing algorithms.
	AllowedAlgs []string
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
}

// JWTVerifier validates signed JWTs and maps their claims to an Identity.
type JWTVerifier struct {
	parser  *jwt.Parser
	keyfunc jwt.Keyfunc
}

// NewHMACVerifier validates HS256/HS384/HS512 tokens signed with secret.
func NewHMACVerifier(secret []byte, cfg JWTConfig) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt: secret is required")
	}
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{"HS256", "HS384", "HS512"}
	}
	return newJWTVerifier(cfg, func(*jwt.Token) (any, error) {
		return secret, nil
	}), nil
}

// NewJWKSVerifier validates tokens against keys published at jwksURL.
// The key set is refreshed in the background until ctx is done.
func NewJWKSVerifier(ctx context.Context, jwksURL string, cfg JWTConfig) (*JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("jwt: jwks url is required")
	}
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{"RS256"}
	}
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("jwt: jwks init failed: %w", err)
	}
	return newJWTVerifier(cfg, kf.Keyfunc), nil
}

func newJWTVerifier(cfg JWTConfig, kf jwt.Keyfunc) *JWTVerifier {
	if cfg.Leeway == 0 {
		cfg.Leeway = 60 * time.Second
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTVerifier{parser: jwt.NewParser(opts...), keyfunc: kf}
}

// Verify implements TokenVerifier. The sub claim becomes Identity.ID and
// the name claim, when present, Identity.Name.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	parsed, err := v.parser.Parse(token, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("jwt: token verification failed: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("jwt: invalid claims type")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("jwt: missing sub claim")
	}
	name, _ := claims["name"].(string)
	return &Identity{ID: sub, Name: name, Metadata: map[string]any(claims)}, nil
}
