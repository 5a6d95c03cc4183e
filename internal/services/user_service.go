package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/quill-be/internal/apperr"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/isdelr/quill-be/internal/validation"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, username, email, password string) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
	EnsureAdmin(ctx context.Context, username, email, password string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db       *sql.DB
	events   EventServiceProvider
	hashCost int
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, events EventServiceProvider) *UserService {
	return &UserService{db: db, events: events, hashCost: bcrypt.DefaultCost}
}

const userColumns = "id, username, email, password_hash, role, created_at"

func scanUser(scanner interface{ Scan(...interface{}) error }) (models.User, error) {
	var user models.User
	err := scanner.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	return user, err
}

// GetUserByID retrieves a single user by their ID, without the password hash.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with ID %s: %w", id, ErrUserNotFound)
		}
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	email = validation.NormalizeEmail(email)
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with email %s: %w", email, ErrUserNotFound)
		}
		return models.User{}, err
	}
	return user, nil
}

// CreateUser validates the input and registers a user with the default role.
func (s *UserService) CreateUser(ctx context.Context, username, email, password string) (models.User, error) {
	user, err := s.insertUser(ctx, username, email, password, models.RoleUser)
	if err != nil {
		return models.User{}, err
	}

	RecordEvent(ctx, s.events, EventUserRegister, "info", fmt.Sprintf("User '%s' registered.", user.Username), user.ID)
	return user, nil
}

// EnsureAdmin makes sure an admin account with the given email exists,
// creating it when missing. An existing account keeps its role.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) (models.User, error) {
	existing, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			log.Warn().Str("email", existing.Email).Str("role", string(existing.Role)).
				Msg("Bootstrap admin email belongs to a non-admin account; leaving it unchanged")
		}
		existing.PasswordHash = ""
		return existing, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, err
	}

	user, err := s.insertUser(ctx, username, email, password, models.RoleAdmin)
	if err != nil {
		return models.User{}, err
	}
	log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("Bootstrap admin created")
	return user, nil
}

func (s *UserService) insertUser(ctx context.Context, username, email, password string, role models.Role) (models.User, error) {
	email = validation.NormalizeEmail(email)

	verr := &apperr.ValidationError{}
	if err := validation.ValidateEmail(email); err != nil {
		verr.Add("email", err.Error())
	}
	if err := validation.ValidateUsername(username); err != nil {
		verr.Add("username", err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		verr.Add("password", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		return models.User{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users(id, username, email, password_hash, role, created_at) VALUES(?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		switch {
		case uniqueViolation(err, "users.email"):
			return models.User{}, apperr.NewValidation("email", "user with this email already exists")
		case uniqueViolation(err, "users.username"):
			return models.User{}, apperr.NewValidation("username", "a user with that username already exists")
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// AuthenticateUser verifies a user's credentials. An unknown email is a
// not-found error, a wrong password an authentication error.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return models.User{}, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return models.User{}, fmt.Errorf("invalid password for %s: %w", user.Email, ErrInvalidCredentials)
	}

	RecordEvent(ctx, s.events, EventUserLogin, "info", fmt.Sprintf("User '%s' logged in.", user.Username), user.ID)

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}
