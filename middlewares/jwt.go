package middlewares

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/expanse/internal"
)

type jwtClaimsKey struct{}

// JWTConfig configures the JWT middleware.
type JWTConfig struct {
	Extractor     internal.Extractor
	SigningMethod jwt.SigningMethod
	Issuer        string
	Audience      []string
	Leeway        time.Duration

	key          any
	extractorSet bool
}

// JWTOption configures JWTConfig.
type JWTOption func(*JWTConfig)

// WithJWTExtractor sets a custom token extractor chain.
func WithJWTExtractor(ext internal.Extractor) JWTOption {
	return func(cfg *JWTConfig) {
		cfg.Extractor = ext
		cfg.extractorSet = true
	}
}

// WithJWTIssuer requires the iss claim to match.
func WithJWTIssuer(issuer string) JWTOption {
	return func(cfg *JWTConfig) {
		cfg.Issuer = issuer
	}
}

// WithJWTAudience requires the aud claim to contain one of the given values.
func WithJWTAudience(aud ...string) JWTOption {
	return func(cfg *JWTConfig) {
		cfg.Audience = aud
	}
}

// WithJWTLeeway tolerates clock skew when checking exp and nbf.
func WithJWTLeeway(d time.Duration) JWTOption {
	return func(cfg *JWTConfig) {
		cfg.Leeway = d
	}
}

// HS256 verifies tokens signed with a shared secret.
func HS256(secret []byte) JWTOption {
	return func(cfg *JWTConfig) {
		cfg.SigningMethod = jwt.SigningMethodHS256
		cfg.key = secret
	}
}

// RS256 verifies tokens signed with an RSA key.
func RS256(pub *rsa.PublicKey) JWTOption {
	return func(cfg *JWTConfig) {
		cfg.SigningMethod = jwt.SigningMethodRS256
		cfg.key = pub
	}
}

// RS256PEM parses a PEM encoded RSA public key.
func RS256PEM(pemKey []byte) (JWTOption, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return RS256(pub), nil
}

// JWT returns middleware that extracts a token, verifies it and stores the
// parsed claims in the context. T is the claims type; *T must implement
// jwt.Claims, which jwt.RegisteredClaims and jwt.MapClaims do, and so does
// any struct embedding jwt.RegisteredClaims.
//
// Missing tokens and verification failures render 401.
//
//	api := middlewares.JWT[UserClaims](middlewares.HS256(secret))
func JWT[T any, PT interface {
	*T
	jwt.Claims
}](opts ...JWTOption) internal.Middleware {
	cfg := &JWTConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.SigningMethod == nil || cfg.key == nil {
		panic("middlewares: JWT needs HS256 or RS256")
	}

	// Default extractor: Bearer token from Authorization header
	if !cfg.extractorSet {
		cfg.Extractor = internal.NewExtractor(
			internal.FromBearerToken(),
		)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{cfg.SigningMethod.Alg()}),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(cfg.Leeway))
	}
	parser := jwt.NewParser(parserOpts...)

	keyFunc := func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != cfg.SigningMethod.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.key, nil
	}

	return internal.Labeled("jwt", internal.MiddlewareFunc(func(c internal.Context, next internal.Next) (*internal.Response, error) {
		raw, ok := cfg.Extractor.Extract(c)
		if !ok || raw == "" {
			return nil, unauthorized(ErrMissingToken)
		}

		claims := PT(new(T))
		token, err := parser.ParseWithClaims(raw, claims, keyFunc)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, unauthorized(ErrExpiredToken)
		case err != nil || !token.Valid:
			c.LogDebug("jwt rejected", "error", err)
			return nil, unauthorized(ErrInvalidToken)
		}

		if len(cfg.Audience) > 0 {
			aud, _ := claims.GetAudience()
			if !slices.ContainsFunc(cfg.Audience, func(a string) bool { return slices.Contains(aud, a) }) {
				return nil, unauthorized(ErrInvalidToken)
			}
		}

		c.Set(jwtClaimsKey{}, (*T)(claims))

		return next(c)
	}))
}

func unauthorized(err error) *internal.HTTPError {
	return internal.ErrUnauthorized(err.Error(),
		internal.WithError(err),
		internal.WithHeader("WWW-Authenticate", `Bearer`),
	)
}

// GetJWTClaims extracts parsed JWT claims from the context.
// Returns nil if the JWT middleware is not applied or the type doesn't match.
func GetJWTClaims[T any](c internal.Context) *T {
	v, ok := c.Get(jwtClaimsKey{}).(*T)
	if !ok {
		return nil
	}
	return v
}
