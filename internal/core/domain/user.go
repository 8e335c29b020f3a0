package domain

import "time"

// User is the minimal account record the authentication core needs. The rest
// of the lead-system profile lives with the CRM service.
type User struct {
	ID           string
	Email        string
	Role         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}
