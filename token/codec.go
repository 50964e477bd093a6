// Package token signs and verifies the compact session tokens issued by the
// engine. Access and refresh tokens are independently keyed HS256 JWTs
// carrying the subject identity claim set.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrSignatureInvalid is returned when a token signature does not verify
	// under the configured secret.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired is returned when a token is past its expiry claim.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is returned when a token cannot be decoded at all.
	ErrMalformed = errors.New("token malformed")
)

// Claims is the identity payload embedded in every signed token. It exists
// only inside a token and is never persisted.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the signing secrets and lifetimes for both token kinds.
// Access and refresh secrets must differ so one class of token can never
// stand in for the other.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Codec signs and verifies tokens. Instances are immutable after creation
// and safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("both access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Codec{config: cfg}, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.config.RefreshTTL }

// SignAccess issues a short-lived access token for the given identity.
func (c *Codec) SignAccess(subject, email, role string) (string, error) {
	return c.sign(subject, email, role, c.config.AccessSecret, c.config.AccessTTL)
}

// SignRefresh issues a long-lived refresh token for the given identity.
func (c *Codec) SignRefresh(subject, email, role string) (string, error) {
	return c.sign(subject, email, role, c.config.RefreshSecret, c.config.RefreshTTL)
}

func (c *Codec) sign(subject, email, role string, secret []byte, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("empty subject")
	}

	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti makes every issued token unique even when two are
			// signed for the same identity within the same second;
			// rotation relies on the new token never colliding with the
			// presented one.
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    c.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess checks signature and expiry of an access token and returns
// its claims.
func (c *Codec) VerifyAccess(token string) (*Claims, error) {
	return c.verify(token, c.config.AccessSecret)
}

// VerifyRefresh checks signature and expiry of a refresh token and returns
// its claims.
func (c *Codec) VerifyRefresh(token string) (*Claims, error) {
	return c.verify(token, c.config.RefreshSecret)
}

func (c *Codec) verify(token string, secret []byte) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

// DecodeUnverified reads the claims of token without checking the
// signature. The result is untrusted: it is only a hint for looking up
// server-side state (the stored refresh fingerprint is the trust
// boundary) and must never be used for authorization on its own.
func (c *Codec) DecodeUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
