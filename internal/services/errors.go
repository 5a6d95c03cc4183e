package services

import (
	"errors"
	"strings"

	"github.com/isdelr/quill-be/internal/apperr"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Common service errors
var (
	// ErrUserNotFound indicates that no user matches the lookup
	ErrUserNotFound = apperr.New(apperr.ErrNotFound, "User not found")

	// ErrInvalidCredentials indicates a password mismatch
	ErrInvalidCredentials = apperr.New(apperr.ErrAuthentication, "Invalid credentials")

	// ErrPostNotFound indicates that the post does not exist
	ErrPostNotFound = apperr.New(apperr.ErrNotFound, "Post not found")

	// ErrDeleteForbidden indicates the actor is neither admin nor creator
	ErrDeleteForbidden = apperr.New(apperr.ErrAuthorization, "You cannot delete this post")

	// ErrTokenNotFound indicates that the refresh token was never issued or is already revoked
	ErrTokenNotFound = apperr.New(apperr.ErrNotFound, "Refresh token not found or already revoked")

	// ErrAlreadyBlacklisted is returned by the token store when a refresh token is revoked twice
	ErrAlreadyBlacklisted = errors.New("token already blacklisted")
)

// uniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint
// failure on the given "table.column".
func uniqueViolation(err error, column string) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code != sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return false
	}
	// e.g. "constraint failed: UNIQUE constraint failed: users.email (2067)"
	return column == "" || strings.Contains(sqliteErr.Error(), column)
}
