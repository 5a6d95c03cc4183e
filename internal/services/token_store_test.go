package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/quill-be/internal/apperr"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOutstanding(userID string, expiresAt time.Time) models.OutstandingToken {
	return models.OutstandingToken{
		JTI:       uuid.New().String(),
		UserID:    userID,
		ExpiresAt: expiresAt.Truncate(time.Second),
		CreatedAt: time.Now().UTC(),
	}
}

func TestTokenStore_SaveAndGetOutstanding(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s := NewTokenStore(db)
	user := createTestIdentity(t, db, "a", models.RoleUser)

	token := newOutstanding(user.UserID, time.Now().Add(time.Hour))
	require.NoError(t, s.SaveOutstanding(ctx, token))

	got, err := s.GetOutstanding(ctx, token.JTI)
	require.NoError(t, err)
	assert.Equal(t, token.JTI, got.JTI)
	assert.Equal(t, user.UserID, got.UserID)
	assert.True(t, token.ExpiresAt.Equal(got.ExpiresAt))

	_, err = s.GetOutstanding(ctx, "unknown")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTokenStore_SaveOutstanding_UnknownUser(t *testing.T) {
	s := NewTokenStore(setupTestDB(t))
	err := s.SaveOutstanding(context.Background(), newOutstanding("nobody", time.Now().Add(time.Hour)))
	assert.Error(t, err)
}

func TestTokenStore_Blacklist(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s := NewTokenStore(db)
	user := createTestIdentity(t, db, "a", models.RoleUser)

	token := newOutstanding(user.UserID, time.Now().Add(time.Hour))
	require.NoError(t, s.SaveOutstanding(ctx, token))

	revoked, err := s.IsBlacklisted(ctx, token.JTI)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Blacklist(ctx, token.JTI, time.Now()))

	revoked, err = s.IsBlacklisted(ctx, token.JTI)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.ErrorIs(t, s.Blacklist(ctx, token.JTI, time.Now()), ErrAlreadyBlacklisted)
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM blacklisted_tokens"))
}

func TestTokenStore_Blacklist_UnknownToken(t *testing.T) {
	s := NewTokenStore(setupTestDB(t))
	assert.Error(t, s.Blacklist(context.Background(), "never-issued", time.Now()))
}

func TestTokenStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s := NewTokenStore(db)
	user := createTestIdentity(t, db, "a", models.RoleUser)
	now := time.Now()

	expired := newOutstanding(user.UserID, now.Add(-time.Hour))
	expiredRevoked := newOutstanding(user.UserID, now.Add(-time.Minute))
	live := newOutstanding(user.UserID, now.Add(time.Hour))
	for _, tok := range []models.OutstandingToken{expired, expiredRevoked, live} {
		require.NoError(t, s.SaveOutstanding(ctx, tok))
	}
	require.NoError(t, s.Blacklist(ctx, expiredRevoked.JTI, now))
	require.NoError(t, s.Blacklist(ctx, live.JTI, now))

	removed, err := s.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = s.GetOutstanding(ctx, expired.JTI)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = s.GetOutstanding(ctx, live.JTI)
	assert.NoError(t, err)

	// Revocation records of purged tokens go with them.
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM blacklisted_tokens"))

	removed, err = s.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
