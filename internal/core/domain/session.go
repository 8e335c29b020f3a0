package domain

import "time"

// Session binds a user to a currently valid refresh token together with the
// device metadata captured at login and refreshed on rotation.
type Session struct {
	ID           string
	UserID       string
	RefreshToken string
	UserAgent    *string
	IPAddress    *string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// IsActive reports whether the session is still valid at the supplied moment.
// A session past its expiry is logically dead even before the sweeper removes it.
func (s Session) IsActive(at time.Time) bool {
	return s.ExpiresAt.After(at)
}

// SessionInfo is the metadata projection returned to callers listing their
// active sessions. It never carries the raw refresh token.
type SessionInfo struct {
	ID        string
	UserID    string
	UserAgent *string
	IPAddress *string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Info projects the session to its externally visible view.
func (s Session) Info() SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		UserID:    s.UserID,
		UserAgent: s.UserAgent,
		IPAddress: s.IPAddress,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

// SessionMetadata carries optional device attributes supplied at issuance or
// rotation. A nil field means "not supplied, preserve the stored value"; a
// non-nil field overwrites, so an explicit empty string clears the column.
type SessionMetadata struct {
	UserAgent *string
	IPAddress *string
}

// TokenPair is the result of a successful issuance: a short-lived signed
// access token and the long-lived opaque refresh token backing it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}
