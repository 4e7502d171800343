// Package token signs and verifies the compact bearer credentials handed to clients.
// It only encodes, decodes and time-checks; binding a token to a live session is the caller's job.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fastygo/overlay/domain"
)

const (
	Audience = "wibruhtor"
	Issuer   = "api.wibruhtor.ru"

	AccessTTL  = time.Hour
	RefreshTTL = 365 * 24 * time.Hour

	// leeway tolerates a session fence running ahead of the clock. It must stay
	// above domain.MaxFenceLead.
	leeway = 5 * time.Second
)

var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrMalformed         = errors.New("malformed token")
	ErrExpired           = errors.New("expired token")
	ErrValidationFailure = errors.New("fail validate token")
	ErrEmptySecret       = errors.New("token secret is empty")
)

// Codec mints and validates HS256 tokens with fixed audience and issuer.
type Codec struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// Option customizes a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for validation.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec creates a codec signing with secret.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	c := &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithAudience(Audience),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// MintAccess issues an access token valid for one hour from refTime.
func (c *Codec) MintAccess(sessionID, userID, username string, refTime time.Time) (string, domain.Claims, error) {
	return c.mint(sessionID, userID, username, domain.TokenTypeAccess, AccessTTL, refTime)
}

// MintRefresh issues a refresh token valid for 365 days from refTime.
func (c *Codec) MintRefresh(sessionID, userID, username string, refTime time.Time) (string, domain.Claims, error) {
	return c.mint(sessionID, userID, username, domain.TokenTypeRefresh, RefreshTTL, refTime)
}

func (c *Codec) mint(sessionID, userID, username string, typ domain.TokenType, ttl time.Duration, refTime time.Time) (string, domain.Claims, error) {
	ts := refTime.Unix()
	claims := domain.Claims{
		ID:        sessionID,
		Type:      typ,
		Audience:  Audience,
		Issuer:    Issuer,
		IssuedAt:  ts,
		ExpiresAt: ts + int64(ttl/time.Second),
		NotBefore: ts,
		Subject:   userID,
		Username:  username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wireClaims{claims}).SignedString(c.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("sign %s: %w", typ, err)
	}
	return signed, claims, nil
}

// Validate verifies signature, audience, issuer, expiry and not-before, returning the payload.
func (c *Codec) Validate(serialized string) (domain.Claims, error) {
	var wc wireClaims
	_, err := c.parser.ParseWithClaims(serialized, &wc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return domain.Claims{}, c.classify(serialized, err)
	}
	if wc.ID == "" || wc.Subject == "" {
		return domain.Claims{}, ErrMalformed
	}
	return wc.Claims, nil
}

func (c *Codec) classify(serialized string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		if c.badSignatureEncoding(serialized) {
			return ErrInvalidSignature
		}
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrValidationFailure, err)
	}
}

// badSignatureEncoding reports a readable header and payload followed by a
// signature segment that is not canonical base64url.
func (c *Codec) badSignatureEncoding(serialized string) bool {
	if _, _, err := c.parser.ParseUnverified(serialized, &wireClaims{}); err != nil {
		return false
	}
	_, err := c.parser.DecodeSegment(serialized[strings.LastIndexByte(serialized, '.')+1:])
	return err != nil
}
