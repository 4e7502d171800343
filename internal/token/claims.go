package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fastygo/overlay/domain"
)

// wireClaims adapts domain.Claims to jwt.Claims while keeping the payload flat
// (aud as a plain string, typ as access_token / refresh_token).
type wireClaims struct {
	domain.Claims
}

var _ jwt.Claims = wireClaims{}

func (w wireClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return numericDate(w.ExpiresAt), nil
}

func (w wireClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return numericDate(w.IssuedAt), nil
}

func (w wireClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return numericDate(w.NotBefore), nil
}

func (w wireClaims) GetIssuer() (string, error) {
	return w.Issuer, nil
}

func (w wireClaims) GetSubject() (string, error) {
	return w.Subject, nil
}

func (w wireClaims) GetAudience() (jwt.ClaimStrings, error) {
	if w.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{w.Audience}, nil
}

func numericDate(ts int64) *jwt.NumericDate {
	if ts == 0 {
		return nil
	}
	return jwt.NewNumericDate(time.Unix(ts, 0))
}
