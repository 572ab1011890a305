package domain

import "time"

// Session represents an authenticated dashboard session
type Session struct {
	ID          string
	AccessToken string
	Login       string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
