package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeInvalid:      http.StatusBadRequest,
		ErrCodeInvalidToken: http.StatusForbidden,
		ErrCodeExpiredToken: http.StatusForbidden,
		ErrCodeNotFound:     http.StatusNotFound,
		ErrCodeConflict:     http.StatusConflict,
		ErrCodeUnauthorized: http.StatusUnauthorized,
		ErrCodeUpstream:     http.StatusBadGateway,
		ErrCodeInternal:     http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, code.Status(), code)
	}
}

func TestIsDomainErrorThroughWrapping(t *testing.T) {
	err := fmt.Errorf("load session: %w", ErrSessionNotFound)

	assert.True(t, IsDomainError(err, ErrCodeNotFound))
	assert.False(t, IsDomainError(err, ErrCodeConflict))
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.False(t, errors.Is(err, ErrUserNotFound))
}

func TestPublicMessageHidesCauses(t *testing.T) {
	upstream := Upstream("fail get app access token", errors.New("dial tcp: refused"))
	assert.Equal(t, "upstream request failed", upstream.PublicMessage())
	assert.Contains(t, upstream.Error(), "dial tcp")

	internal := Internal("fail query", errors.New("pq: relation missing"))
	assert.Equal(t, "unexpected error", internal.PublicMessage())

	assert.Equal(t, "invalid token", InvalidToken().PublicMessage())
	assert.Equal(t, "session not found", ErrSessionNotFound.PublicMessage())
}

func TestAsErrorClassifiesUnknownAsInternal(t *testing.T) {
	assert.Nil(t, AsError(nil))

	err := AsError(errors.New("boom"))
	assert.Equal(t, ErrCodeInternal, err.Code)

	same := AsError(fmt.Errorf("wrap: %w", ExpiredToken()))
	assert.Equal(t, ErrCodeExpiredToken, same.Code)
}
