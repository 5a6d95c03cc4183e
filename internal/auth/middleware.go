package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/isdelr/quill-be/internal/api/respond"
	"github.com/isdelr/quill-be/internal/apperr"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/rs/zerolog/log"
)

// TokenCookieName is the cookie carrying the access token for browser clients.
const TokenCookieName = "token"

var (
	errMissingToken   = apperr.New(apperr.ErrAuthentication, "Missing auth token")
	errRoleNotAllowed = apperr.New(apperr.ErrAuthorization, "You do not have permission to perform this action")
)

type contextKey string

// IdentityKey is the context key for the acting identity.
const IdentityKey = contextKey("identity")

// Validator resolves an access token to an identity.
type Validator interface {
	Validate(ctx context.Context, access string) (models.Identity, error)
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// IdentityFromContext returns the identity stored by JWTMiddleware.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(models.Identity)
	return id, ok && id.UserID != ""
}

// tokenFromRequest reads the bearer token from the Authorization header,
// falling back to the token cookie.
func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, found := strings.Cut(authHeader, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// JWTMiddleware creates a middleware for protecting routes. Requests without
// a valid access token are rejected before reaching the handler.
func JWTMiddleware(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := tokenFromRequest(r)
			if tokenStr == "" {
				respond.Error(w, r, errMissingToken)
				return
			}

			identity, err := v.Validate(r.Context(), tokenStr)
			if err != nil {
				respond.Error(w, r, err)
				return
			}

			log.Ctx(r.Context()).Debug().Str("user_id", identity.UserID).Str("username", identity.Username).Msg("Authenticated user")
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole rejects authenticated requests whose identity lacks one of roles.
// It must run after JWTMiddleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				respond.Error(w, r, errMissingToken)
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respond.Error(w, r, errRoleNotAllowed)
		})
	}
}
