package domain

import "time"

// MaxFenceLead bounds how far a refresh may push RefreshedAt ahead of the clock.
// Token validation tolerates a larger skew, so a fresh pair is never born not-yet-valid.
const MaxFenceLead = 3 * time.Second

// Session is the persisted record every token pair is bound to.
// RefreshedAt acts as the rotation fence: tokens minted before the last refresh carry an older nbf.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	UserAgent    string    `json:"userAgent"`
	IP           string    `json:"ip"`
	AuthorizedAt time.Time `json:"authorizedAt"`
	RefreshedAt  time.Time `json:"refreshedAt"`
}

// Fence is the value a token's nbf claim must equal for the token to be accepted.
func (s *Session) Fence() int64 {
	if s == nil {
		return 0
	}
	return s.RefreshedAt.Unix()
}

// OwnedBy reports whether the session belongs to userID.
func (s *Session) OwnedBy(userID string) bool {
	return s != nil && userID != "" && s.UserID == userID
}
