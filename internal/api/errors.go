package api

import "errors"

// Sentinel errors for API operations.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidEvent    = errors.New("invalid event payload")
)
