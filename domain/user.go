package domain

import "time"

// User is the local account keyed by the streaming platform's user id.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExternalToken stores the platform refresh token obtained during code exchange.
type ExternalToken struct {
	UserID       string    `json:"userId"`
	RefreshToken string    `json:"-"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
