package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenTypeWireValues(t *testing.T) {
	out, err := json.Marshal(Claims{ID: "s1", Type: TokenTypeRefresh})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"typ":"refresh_token"`)

	var c Claims
	require.NoError(t, json.Unmarshal([]byte(`{"typ":"access_token"}`), &c))
	assert.Equal(t, TokenTypeAccess, c.Type)
}

func TestTokenTypeRejectsUnknown(t *testing.T) {
	var c Claims
	assert.Error(t, json.Unmarshal([]byte(`{"typ":"id_token"}`), &c))

	_, err := json.Marshal(Claims{})
	assert.Error(t, err, "zero token type must not be serialized")
}

func TestSessionFence(t *testing.T) {
	var nilSession *Session
	assert.Zero(t, nilSession.Fence())
	assert.False(t, nilSession.OwnedBy("42"))

	s := &Session{UserID: "42"}
	assert.True(t, s.OwnedBy("42"))
	assert.False(t, s.OwnedBy(""))
}
