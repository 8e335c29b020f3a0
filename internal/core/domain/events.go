package domain

import "time"

// SessionIssuedEvent is published when a login creates a new session.
type SessionIssuedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	UserAgent *string
	IPAddress *string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionRotatedEvent is published when a refresh token is exchanged.
type SessionRotatedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	RotatedAt time.Time
	ExpiresAt time.Time
}

// SessionRevokedEvent is published when a session is revoked explicitly.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	RevokedAt time.Time
	RevokedBy string
	Reason    string
}

// SessionsSweptEvent is published after a sweep removes expired sessions.
type SessionsSweptEvent struct {
	EventID string
	SweptAt time.Time
	Removed int
}
