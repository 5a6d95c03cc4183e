package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/isdelr/quill-be/internal/apperr"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/isdelr/quill-be/internal/services"
	"github.com/rs/zerolog/log"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Token validation failures. All of them are authentication errors.
var (
	ErrTokenInvalid = apperr.New(apperr.ErrAuthentication, "Token is invalid")
	ErrTokenExpired = apperr.New(apperr.ErrAuthentication, "Token is expired")
	ErrTokenRevoked = apperr.New(apperr.ErrAuthentication, "Token has been revoked")

	// ErrRevokeForbidden is returned when revoking another user's refresh token.
	ErrRevokeForbidden = apperr.New(apperr.ErrAuthorization, "You cannot revoke this token")
)

// Claims defines the JWT claims structure shared by access and refresh tokens.
// Subject is the user ID and ID the token's jti.
type Claims struct {
	TokenType string      `json:"token_type"`
	Username  string      `json:"username,omitempty"`
	Role      models.Role `json:"role,omitempty"`
	RefreshID string      `json:"rid,omitempty"` // jti of the originating refresh token, access tokens only
	jwt.RegisteredClaims
}

// TokenStore persists issued refresh tokens and revocation records.
type TokenStore interface {
	SaveOutstanding(ctx context.Context, token models.OutstandingToken) error
	GetOutstanding(ctx context.Context, jti string) (models.OutstandingToken, error)
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	Blacklist(ctx context.Context, jti string, revokedAt time.Time) error
}

// UserLookup resolves the current state of a user when minting access tokens.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// SessionNotifier is told when a refresh token is revoked so that long lived
// connections opened with its access tokens can be closed.
type SessionNotifier interface {
	DisconnectSession(sessionID string)
}

// TokenServiceProvider defines the interface for the token service.
type TokenServiceProvider interface {
	Issue(ctx context.Context, user models.User) (models.TokenPair, error)
	Refresh(ctx context.Context, refresh string) (string, error)
	Revoke(ctx context.Context, refresh string, actor models.Identity) error
	Validate(ctx context.Context, access string) (models.Identity, error)
}

// TokenConfig configures signing and lifetimes.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService issues, refreshes, revokes and validates session tokens.
type TokenService struct {
	cfg    TokenConfig
	store  TokenStore
	users  UserLookup
	events   services.EventServiceProvider
	sessions SessionNotifier
	now      func() time.Time
}

// NewTokenService creates a new TokenService. events may be nil.
func NewTokenService(cfg TokenConfig, store TokenStore, users UserLookup, events services.EventServiceProvider) *TokenService {
	return &TokenService{
		cfg:    cfg,
		store:  store,
		users:  users,
		events: events,
		now:    time.Now,
	}
}

// WithSessionNotifier registers n to be told about revoked sessions.
func (s *TokenService) WithSessionNotifier(n SessionNotifier) *TokenService {
	s.sessions = n
	return s
}

// WithClock replaces the time source; used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue mints a refresh token bound to user and an access token derived from it.
func (s *TokenService) Issue(ctx context.Context, user models.User) (models.TokenPair, error) {
	now := s.now()
	outstanding := models.OutstandingToken{
		JTI:       uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.RefreshTTL).Truncate(time.Second),
		CreatedAt: now,
	}

	refresh, err := s.sign(Claims{
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        outstanding.JTI,
			Subject:   user.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(outstanding.ExpiresAt),
		},
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := s.store.SaveOutstanding(ctx, outstanding); err != nil {
		return models.TokenPair{}, err
	}

	access, err := s.mintAccess(user, outstanding, now)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{Refresh: refresh, Access: access}, nil
}

// Refresh exchanges a live refresh token for a new access token.
func (s *TokenService) Refresh(ctx context.Context, refresh string) (string, error) {
	claims, err := s.parse(refresh, tokenTypeRefresh)
	if err != nil {
		return "", err
	}

	outstanding, err := s.store.GetOutstanding(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", ErrTokenInvalid
		}
		return "", err
	}
	if outstanding.UserID != claims.Subject {
		return "", ErrTokenInvalid
	}

	revoked, err := s.store.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrTokenRevoked
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", ErrTokenInvalid
		}
		return "", err
	}

	return s.mintAccess(user, outstanding, s.now())
}

// Revoke blacklists a refresh token. Malformed or expired tokens are
// validation errors; unknown or already revoked tokens are not found.
// Only the owner or an admin may revoke a token.
func (s *TokenService) Revoke(ctx context.Context, refresh string, actor models.Identity) error {
	claims, err := s.parse(refresh, tokenTypeRefresh)
	if err != nil {
		return apperr.NewValidation("refresh", "token is invalid or expired")
	}

	outstanding, err := s.store.GetOutstanding(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !actor.CanDelete(outstanding.UserID) {
		return fmt.Errorf("user %s revoking token of user %s: %w", actor.UserID, outstanding.UserID, ErrRevokeForbidden)
	}

	if err := s.store.Blacklist(ctx, claims.ID, s.now()); err != nil {
		if errors.Is(err, services.ErrAlreadyBlacklisted) {
			return fmt.Errorf("refresh token %s: %w", claims.ID, services.ErrTokenNotFound)
		}
		return err
	}
	if s.sessions != nil {
		s.sessions.DisconnectSession(claims.ID)
	}

	services.RecordEvent(ctx, s.events, services.EventUserLogout, "info",
		fmt.Sprintf("User '%s' logged out.", actor.Username), actor.UserID)
	return nil
}

// Validate resolves the identity behind an access token. The token must be
// well formed, unexpired, and its originating refresh token not revoked.
func (s *TokenService) Validate(ctx context.Context, access string) (models.Identity, error) {
	claims, err := s.parse(access, tokenTypeAccess)
	if err != nil {
		return models.Identity{}, err
	}
	if claims.RefreshID == "" || !claims.Role.Valid() {
		return models.Identity{}, ErrTokenInvalid
	}

	revoked, err := s.store.IsBlacklisted(ctx, claims.RefreshID)
	if err != nil {
		return models.Identity{}, err
	}
	if revoked {
		return models.Identity{}, ErrTokenRevoked
	}

	return models.Identity{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Role:      claims.Role,
		SessionID: claims.RefreshID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// mintAccess creates an access token for user derived from the given refresh
// token. It never outlives the refresh token.
func (s *TokenService) mintAccess(user models.User, refresh models.OutstandingToken, now time.Time) (string, error) {
	expiresAt := now.Add(s.cfg.AccessTTL)
	if expiresAt.After(refresh.ExpiresAt) {
		expiresAt = refresh.ExpiresAt
	}

	return s.sign(Claims{
		TokenType: tokenTypeAccess,
		Username:  user.Username,
		Role:      user.Role,
		RefreshID: refresh.JTI,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
}

func (s *TokenService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parse verifies signature, issuer, expiry and token type.
func (s *TokenService) parse(tokenStr, tokenType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		log.Debug().Err(err).Str("token_type", tokenType).Msg("Rejected token")
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.TokenType != tokenType || claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
