package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/quill-be/internal/api/respond"
	"github.com/isdelr/quill-be/internal/apperr"
	"github.com/isdelr/quill-be/internal/auth"
	"github.com/isdelr/quill-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles HTTP requests for registration and sessions.
type AuthHandler struct {
	users        services.UserServiceProvider
	tokens       auth.TokenServiceProvider
	accessTTL    time.Duration
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie sets the Secure flag
// on the token cookie and should be true in production.
func NewAuthHandler(users services.UserServiceProvider, tokens auth.TokenServiceProvider, accessTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, accessTTL: accessTTL, secureCookie: secureCookie}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshPayload carries a refresh token for the refresh and logout endpoints.
type RefreshPayload struct {
	Refresh string `json:"refresh"`
}

// AccessResponse is returned by the refresh endpoint.
type AccessResponse struct {
	Access string `json:"access"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	respond.Message(w, http.StatusCreated, "User registered successfully")
}

// Login handles user authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	verr := &apperr.ValidationError{}
	if payload.Email == "" {
		verr.Add("email", "email cannot be empty")
	}
	if payload.Password == "" {
		verr.Add("password", "password cannot be empty")
	}
	if err := verr.OrNil(); err != nil {
		respond.Error(w, r, err)
		return
	}

	user, err := h.users.AuthenticateUser(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		respond.Error(w, r, err)
		return
	}

	pair, err := h.tokens.Issue(r.Context(), user)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    pair.Access,
		Expires:  time.Now().Add(h.accessTTL),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	respond.JSON(w, http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload RefreshPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}
	if payload.Refresh == "" {
		respond.Error(w, r, apperr.NewValidation("refresh", "refresh token is required"))
		return
	}

	access, err := h.tokens.Refresh(r.Context(), payload.Refresh)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, AccessResponse{Access: access})
}

// Logout revokes the supplied refresh token and clears the token cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var payload RefreshPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}
	if payload.Refresh == "" {
		respond.Error(w, r, apperr.NewValidation("refresh", "refresh token is required"))
		return
	}

	if err := h.tokens.Revoke(r.Context(), payload.Refresh, identity); err != nil {
		respond.Error(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	respond.Message(w, http.StatusOK, "Logout successful")
}

// GetMe returns the profile of the authenticated user.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}
