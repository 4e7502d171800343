package domain

import "fmt"

// TokenType distinguishes access from refresh tokens.
type TokenType int

const (
	TokenTypeAccess TokenType = iota + 1
	TokenTypeRefresh
)

const (
	tokenTypeAccessText  = "access_token"
	tokenTypeRefreshText = "refresh_token"
)

func (t TokenType) String() string {
	switch t {
	case TokenTypeAccess:
		return tokenTypeAccessText
	case TokenTypeRefresh:
		return tokenTypeRefreshText
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// MarshalText encodes the wire value of the token type.
func (t TokenType) MarshalText() ([]byte, error) {
	switch t {
	case TokenTypeAccess, TokenTypeRefresh:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("unknown token type %d", int(t))
	}
}

// UnmarshalText rejects anything outside the closed set.
func (t *TokenType) UnmarshalText(text []byte) error {
	switch string(text) {
	case tokenTypeAccessText:
		*t = TokenTypeAccess
	case tokenTypeRefreshText:
		*t = TokenTypeRefresh
	default:
		return fmt.Errorf("unknown token type %q", string(text))
	}
	return nil
}

// Claims is the decoded payload of a bearer token. Times are unix seconds.
type Claims struct {
	ID        string    `json:"jti"`
	Type      TokenType `json:"typ"`
	Audience  string    `json:"aud"`
	Issuer    string    `json:"iss"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp"`
	NotBefore int64     `json:"nbf"`
	Subject   string    `json:"sub"`
	Username  string    `json:"username"`
}

// TokenPair is what exchange and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
