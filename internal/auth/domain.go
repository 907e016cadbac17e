package auth

import "time"

// User represents an API user account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token is the API key a user presents as "Authorization: Token <key>".
// A nil ExpiresAt never expires.
type Token struct {
	Key       string     `json:"key"`
	UserID    int64      `json:"user_id"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// UserActive mirrors users.is_active of the owner at lookup time.
	UserActive bool `json:"user_active"`
}

// Expired reports whether the token is no longer valid at now.
func (t Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
