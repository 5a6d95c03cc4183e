package models

import "time"

// Identity is the acting user resolved from an access token.
type Identity struct {
	UserID   string
	Username string
	Role     Role

	// SessionID is the jti of the refresh token the access token was minted from.
	SessionID string
	ExpiresAt time.Time
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanDelete reports whether the identity may delete content owned by ownerID:
// admins may delete anything, everyone else only their own content.
func (i Identity) CanDelete(ownerID string) bool {
	return i.IsAdmin() || (i.UserID != "" && i.UserID == ownerID)
}
