package models

import "time"

// Session identifies one authenticated browser. It lives only in the server
// side session store.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// TokenExpiresAt caps ExpiresAt when the session is extended.
	TokenExpiresAt time.Time `json:"token_expires_at"`
}

// Authenticated reports whether the session still carries a usable token.
// A session without a token is never authenticated.
func (s *Session) Authenticated(now time.Time) bool {
	return s != nil && s.Token != "" && now.Before(s.ExpiresAt)
}

// Claims are the identity fields decoded from a verified token.
type Claims struct {
	Subject   string
	IsAdmin   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}
