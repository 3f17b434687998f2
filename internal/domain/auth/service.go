// Package auth holds the account business logic: registration, login and
// guest sessions, each ending in a signed JWT.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domainaudit "github.com/matiasleandrokruk/shopwise/internal/domain/audit"
	pkgauth "github.com/matiasleandrokruk/shopwise/pkg/auth"
	"github.com/matiasleandrokruk/shopwise/pkg/uuid"
)

// ErrInvalidCredentials is returned by Login when email or password is incorrect.
// Using a single error for both cases avoids leaking whether an email exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailAlreadyExists is returned by Register when the email is already taken.
var ErrEmailAlreadyExists = errors.New("email already registered")

// ErrInvalidInput is returned by Register when a required field is missing.
var ErrInvalidInput = errors.New("email, password and display name are required")

// minPasswordLen is the shortest password Register accepts.
const minPasswordLen = 8

// guestDisplayName is the display name of every guest account.
const guestDisplayName = "Guest"

// RegisterInput holds the data needed to create a user account.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned after successful Register, Login or CreateGuest.
// Token is a signed JWT containing the UserID and Role claims.
//
//nolint:revive // stable domain API name
type AuthResult struct {
	Token  string
	UserID string
	Role   pkgauth.Role
}

// AuthService defines the authentication business operations.
//
//nolint:revive // stable public interface name
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	CreateGuest(ctx context.Context) (*AuthResult, error)
}

// authService is the concrete implementation backed by SQLite.
type authService struct {
	db          *sql.DB
	auditLogger auditLogger
}

type auditLogger interface {
	LogWithDetails(
		ctx context.Context,
		actorID string,
		actorType domainaudit.ActorType,
		action string,
		entityType *string,
		entityID *string,
		details *domainaudit.EventDetails,
		outcome domainaudit.Outcome,
	) error
}

// NewAuthService creates a new AuthService backed by the provided DB.
func NewAuthService(db *sql.DB) AuthService {
	return &authService{db: db}
}

// NewAuthServiceWithAudit creates a new AuthService with audit logging.
func NewAuthServiceWithAudit(db *sql.DB, logger auditLogger) AuthService {
	return &authService{db: db, auditLogger: logger}
}

// Register creates a user account and returns a JWT with role user.
// Password is hashed with bcrypt before storage; plaintext is never stored.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	displayName := strings.TrimSpace(input.DisplayName)
	if email == "" || displayName == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}
	if len(input.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID := uuid.NewV7().String()
	if err := s.insertUser(ctx, insertParams{
		userID:       userID,
		email:        sql.NullString{String: email, Valid: true},
		passwordHash: sql.NullString{String: hash, Valid: true},
		displayName:  displayName,
		role:         pkgauth.RoleUser,
	}); err != nil {
		return nil, err
	}

	return s.issue(ctx, userID, pkgauth.RoleUser, "register")
}

// CreateGuest creates an account without credentials and returns a JWT with
// role guest. Guests can search and keep wishlists for the token's lifetime.
func (s *authService) CreateGuest(ctx context.Context) (*AuthResult, error) {
	userID := uuid.NewV7().String()
	if err := s.insertUser(ctx, insertParams{
		userID:      userID,
		displayName: guestDisplayName,
		role:        pkgauth.RoleGuest,
	}); err != nil {
		return nil, err
	}
	return s.issue(ctx, userID, pkgauth.RoleGuest, "guest_session")
}

// insertParams bundles the columns of a new user_account row.
type insertParams struct {
	userID       string
	email        sql.NullString
	passwordHash sql.NullString
	displayName  string
	role         pkgauth.Role
}

func (s *authService) insertUser(ctx context.Context, p insertParams) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_account (id, email, password_hash, display_name, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'active', ?, ?)
	`, p.userID, p.email, p.passwordHash, p.displayName, string(p.role), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Login verifies credentials and returns a JWT carrying the stored role.
// Always returns ErrInvalidCredentials for any failure (email not found OR
// wrong password) to avoid revealing whether the email exists.
func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	var userID, role string
	var passwordHash sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, role, password_hash
		FROM user_account
		WHERE email = ? AND status = 'active'
		LIMIT 1
	`, strings.ToLower(strings.TrimSpace(input.Email))).Scan(&userID, &role, &passwordHash)

	if err != nil {
		// Whether the user doesn't exist or there's a DB error, return generic message
		s.logAuthFailure(ctx, "unknown", "login", "user_not_found_or_query_error")
		return nil, ErrInvalidCredentials
	}

	if !passwordHash.Valid || passwordHash.String == "" {
		s.logAuthFailure(ctx, userID, "login", "missing_password_hash")
		return nil, ErrInvalidCredentials
	}

	// Constant-time comparison via bcrypt
	if !pkgauth.VerifyPassword(passwordHash.String, input.Password) {
		s.logAuthFailure(ctx, userID, "login", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, userID, pkgauth.Role(role), "login")
}

// issue signs a JWT for userID and records the outcome of action.
func (s *authService) issue(ctx context.Context, userID string, role pkgauth.Role, action string) (*AuthResult, error) {
	token, err := pkgauth.GenerateJWT(userID, role)
	if err != nil {
		s.logAuthFailure(ctx, userID, action, "jwt_generation_failed")
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	s.logAuthSuccess(ctx, userID, action)

	return &AuthResult{Token: token, UserID: userID, Role: role}, nil
}

// isUniqueViolation checks if an SQLite error is a UNIQUE constraint violation.
// SQLite surfaces this as an error message containing "UNIQUE constraint failed".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *authService) logAuthSuccess(ctx context.Context, userID, action string) {
	if s.auditLogger == nil {
		return
	}
	_ = s.auditLogger.LogWithDetails(
		ctx,
		userID,
		domainaudit.ActorTypeUser,
		action,
		nil,
		nil,
		nil,
		domainaudit.OutcomeSuccess,
	)
}

func (s *authService) logAuthFailure(ctx context.Context, userID, action, reason string) {
	if s.auditLogger == nil {
		return
	}
	_ = s.auditLogger.LogWithDetails(
		ctx,
		userID,
		domainaudit.ActorTypeUser,
		action,
		nil,
		nil,
		&domainaudit.EventDetails{Metadata: map[string]any{"reason": reason}},
		domainaudit.OutcomeError,
	)
}
