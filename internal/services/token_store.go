package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/quill-be/internal/models"
)

// TokenStore persists issued refresh tokens and their revocation records.
type TokenStore struct {
	db *sql.DB
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// SaveOutstanding records an issued refresh token.
func (s *TokenStore) SaveOutstanding(ctx context.Context, token models.OutstandingToken) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO outstanding_tokens (jti, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		token.JTI, token.UserID, token.ExpiresAt.Unix(), token.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save outstanding token: %w", err)
	}
	return nil
}

// GetOutstanding retrieves an issued refresh token by its jti.
func (s *TokenStore) GetOutstanding(ctx context.Context, jti string) (models.OutstandingToken, error) {
	var token models.OutstandingToken
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT jti, user_id, expires_at, created_at FROM outstanding_tokens WHERE jti = ?", jti).
		Scan(&token.JTI, &token.UserID, &expiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.OutstandingToken{}, fmt.Errorf("refresh token %s: %w", jti, ErrTokenNotFound)
		}
		return models.OutstandingToken{}, fmt.Errorf("failed to get outstanding token: %w", err)
	}
	token.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return token, nil
}

// IsBlacklisted reports whether a revocation record exists for jti.
func (s *TokenStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM blacklisted_tokens WHERE jti = ?", jti).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return true, nil
}

// Blacklist adds a revocation record for jti. It returns ErrAlreadyBlacklisted
// when the token was revoked before; the insert itself is the atomic check.
func (s *TokenStore) Blacklist(ctx context.Context, jti string, revokedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO blacklisted_tokens (jti, revoked_at) VALUES (?, ?)", jti, revokedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyBlacklisted
	}
	return nil
}

// PurgeExpired deletes refresh tokens that expired at or before now. Their
// revocation records go with them through the foreign key cascade.
func (s *TokenStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM outstanding_tokens WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}
