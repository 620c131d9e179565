package models

import "time"

// Session represents an authenticated browser session. Sessions live in Redis
// with a TTL matching ExpiresAt; the cookie carries only the token.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Token        string    `json:"token"`
	Role         string    `json:"role"`
	Language     string    `json:"language,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// IsExpired checks whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.LastActivity = time.Now()
}

// SessionStore defines session persistence.
type SessionStore interface {
	Create(session *Session) error
	FindByToken(token string) (*Session, error)
	Refresh(session *Session) error
	Revoke(token string) error
	RevokeUser(userID string) error
}
