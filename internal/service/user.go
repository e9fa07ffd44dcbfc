// Package service contains the business logic layer.
//
// This file implements registration and login for technician and admin
// accounts.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"

	"github.com/fieldsight/menara/internal/auth"
	"github.com/fieldsight/menara/internal/domain"
	"github.com/fieldsight/menara/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	BcryptCost = 12

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	// MaxPasswordLength prevents DoS via bcrypt on very long passwords.
	// bcrypt has a 72-byte limit anyway, but we cap earlier for clarity.
	MaxPasswordLength = 72
)

// RegisterParams holds the fields for a new account.
type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Role     domain.UserRole
}

// LoginResult carries the authenticated user and their bearer token.
type LoginResult struct {
	User  *domain.User
	Token string
}

// UpdateProfileParams holds the profile fields a user may change. Nil
// pointers leave the current value untouched.
type UpdateProfileParams struct {
	Name  *string
	Phone *string
}

// UserService defines account operations.
type UserService interface {
	// Register creates a new account.
	// Returns domain.EINVALID for validation errors and domain.ECONFLICT if
	// the email is already taken.
	Register(ctx context.Context, params RegisterParams) (*domain.User, error)

	// Login authenticates by email and password and issues a bearer token.
	// Returns domain.EUNAUTHORIZED on bad credentials.
	Login(ctx context.Context, email, password string) (*LoginResult, error)

	// GetByID retrieves a user by ID.
	// Returns domain.ENOTFOUND if the user does not exist.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// UpdateProfile changes the user's own name and/or phone number.
	// Returns domain.EINVALID when no field is provided or a provided
	// field is invalid.
	UpdateProfile(ctx context.Context, id int64, params UpdateProfileParams) (*domain.User, error)
}

type userService struct {
	queries *repository.Queries
	tokens  *auth.TokenIssuer
	logger  *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(queries *repository.Queries, tokens *auth.TokenIssuer, logger *slog.Logger) UserService {
	return &userService{
		queries: queries,
		tokens:  tokens,
		logger:  logger,
	}
}

// Register creates a new account.
func (s *userService) Register(ctx context.Context, params RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domain.Invalid(op, "name is required")
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.Invalid(op, "invalid email address")
	}
	if len(params.Password) < MinPasswordLength {
		return nil, domain.Invalid(op, "password must be at least 8 characters")
	}
	if len(params.Password) > MaxPasswordLength {
		return nil, domain.Invalid(op, "password must be 72 characters or less")
	}
	role := params.Role
	if role == "" {
		role = domain.RoleTechnician
	}
	if !role.IsValid() {
		return nil, domain.Invalid(op, "unknown role")
	}

	if _, err := s.queries.GetUserByEmail(ctx, email); err == nil {
		return nil, domain.Conflict(op, "an account with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to check email")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to hash password")
	}

	row, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		Name:         displayName(name),
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         string(role),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create user")
	}

	user := rowToUser(row)
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login authenticates by email and password.
func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))
	row, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a bcrypt comparison so missing accounts are not
			// distinguishable by response time.
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "invalid email or password")
		}
		return nil, domain.Internal(err, op, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "invalid email or password")
	}

	user := rowToUser(row)
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to issue token")
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &LoginResult{User: user, Token: token}, nil
}

// GetByID retrieves a user by ID.
func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const op = "UserService.GetByID"

	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", strconv.FormatInt(id, 10))
		}
		return nil, domain.Internal(err, op, "failed to fetch user")
	}
	return rowToUser(row), nil
}

// UpdateProfile changes the user's own name and/or phone number.
func (s *userService) UpdateProfile(ctx context.Context, id int64, params UpdateProfileParams) (*domain.User, error) {
	const op = "UserService.UpdateProfile"

	if params.Name == nil && params.Phone == nil {
		return nil, domain.Invalid(op, "provide a name or a phone number to update")
	}
	if params.Name != nil && strings.TrimSpace(*params.Name) == "" {
		return nil, domain.Invalid(op, "name must not be empty")
	}
	if params.Phone != nil && !validPhone(strings.TrimSpace(*params.Phone)) {
		return nil, domain.Invalid(op, "phone number may only contain digits, spaces, + and -")
	}

	current, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", strconv.FormatInt(id, 10))
		}
		return nil, domain.Internal(err, op, "failed to fetch user")
	}

	name := current.Name
	if params.Name != nil {
		name = displayName(strings.TrimSpace(*params.Name))
	}
	phone := current.Phone
	if params.Phone != nil {
		phone = strings.TrimSpace(*params.Phone)
	}

	row, err := s.queries.UpdateUserProfile(ctx, repository.UpdateUserProfileParams{
		ID:    id,
		Name:  name,
		Phone: phone,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to update profile")
	}

	s.logger.Info("profile updated", "user_id", id)
	return rowToUser(row), nil
}

// validPhone accepts international-format numbers; an empty string clears
// the stored number.
func validPhone(phone string) bool {
	if len(phone) > 20 {
		return false
	}
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
		case r == '+' || r == '-' || r == ' ':
		default:
			return false
		}
	}
	return true
}

func rowToUser(row repository.User) *domain.User {
	return &domain.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         domain.UserRole(row.Role),
		Phone:        row.Phone,
		CreatedAt:    row.CreatedAt,
	}
}

var titleCaser = cases.Title(language.Und)

// displayName normalizes a name for display, title-casing fully lower- or
// upper-cased input while leaving mixed-case names alone.
func displayName(name string) string {
	if name == strings.ToLower(name) || name == strings.ToUpper(name) {
		return titleCaser.String(strings.ToLower(name))
	}
	return name
}
