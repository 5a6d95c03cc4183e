package models

import "time"

// OutstandingToken is a refresh token that has been issued, keyed by its jti.
type OutstandingToken struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair is returned at login.
type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}
