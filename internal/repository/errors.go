package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrExpired indicates the record exists but its expiry has passed.
	ErrExpired = errors.New("repository: expired")
)
