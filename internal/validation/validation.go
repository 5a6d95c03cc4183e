package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// UsernamePattern allows letters, digits and @ . + - _
var UsernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

const (
	// MaxUsernameLen is the maximum username length in characters.
	MaxUsernameLen = 150
	// MaxEmailLen is the maximum email length in bytes.
	MaxEmailLen = 254
	// MaxPasswordLen is bcrypt's input limit in bytes.
	MaxPasswordLen = 72
	// MaxTitleLen is the maximum post title length in characters.
	MaxTitleLen = 200
	// MaxContentLen bounds post and comment bodies in bytes.
	MaxContentLen = 64 * 1024
)

// ValidateUsername checks the username format.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}
	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers and @/./+/-/_ characters")
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare address (no display name).
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

// ValidatePassword checks the password is present and fits bcrypt.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLen)
	}
	return nil
}

// ValidateTitle checks a post title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLen)
	}
	return nil
}

// ValidateContent checks a post or comment body.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content cannot be empty")
	}
	if len(content) > MaxContentLen {
		return fmt.Errorf("content must not exceed %d bytes", MaxContentLen)
	}
	return nil
}
