package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ayush/movie-recommender/internal/logging"
	"github.com/ayush/movie-recommender/internal/metrics"
	"github.com/ayush/movie-recommender/internal/models"
	"github.com/ayush/movie-recommender/internal/store"
)

var (
	ErrInvalidUsername   = errors.New("username must be 3-20 characters (alphanumeric and underscore only)")
	ErrInvalidEmail      = errors.New("invalid email format")
	ErrPasswordTooShort  = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrUserNotFound      = errors.New("username not found")
	ErrIncorrectPassword = errors.New("incorrect password")
)

// RegistrationMessage is returned on a successful Register. Registration
// does not log the user in.
const RegistrationMessage = "Registration successful! Please login."

// ValidationError is a malformed username, email or password. It is
// returned before any storage access.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// UserStore defines the interface for user persistence.
type UserStore interface {
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	InsertUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// Service implements registration, login and profile lookup.
type Service struct {
	users  UserStore
	hasher Hasher
}

func NewService(users UserStore, hasher Hasher) *Service {
	return &Service{users: users, hasher: hasher}
}

type registration struct {
	Username string `validate:"username"`
	Email    string `validate:"email_strict"`
	Password string `validate:"min=6"`
}

var fieldErrors = map[string]error{
	"Username": ErrInvalidUsername,
	"Email":    ErrInvalidEmail,
	"Password": ErrPasswordTooShort,
}

// validateRegistration reports the first failing field in declaration
// order: username, then email, then password.
func validateRegistration(username, email, password string) error {
	err := requestValidator().Struct(registration{Username: username, Email: email, Password: password})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		return &ValidationError{Field: field, Err: fieldErrors[field]}
	}
	return err
}

// Register validates the input, rejects existing usernames or emails, and
// stores the hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	msg, err := s.register(ctx, username, email, password)
	metrics.AuthAttempts.WithLabelValues("register", outcome(err)).Inc()
	return msg, err
}

func (s *Service) register(ctx context.Context, username, email, password string) (string, error) {
	if err := validateRegistration(username, email, password); err != nil {
		return "", err
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return "", fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return "", store.ErrDuplicate
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("%w: hash password: %v", store.ErrStorage, err)
	}
	if _, err := s.users.InsertUser(ctx, username, email, hashed); err != nil {
		return "", err
	}

	logging.Info().Str("username", username).Msg("user registered")
	return RegistrationMessage, nil
}

// Login checks the password and returns the user's id.
func (s *Service) Login(ctx context.Context, username, password string) (int64, error) {
	id, err := s.login(ctx, username, password)
	metrics.AuthAttempts.WithLabelValues("login", outcome(err)).Inc()
	return id, err
}

func (s *Service) login(ctx context.Context, username, password string) (int64, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return 0, ErrUserNotFound
	}
	if !s.hasher.Verify(password, u.Password) {
		return 0, ErrIncorrectPassword
	}

	if m, ok := s.hasher.(MultiHasher); ok && m.NeedsRehash(u.Password) {
		s.upgrade(ctx, u.ID, password)
	}
	return u.ID, nil
}

// upgrade rewrites a legacy credential with the primary scheme. Failure is
// logged; the login itself already succeeded.
func (s *Service) upgrade(ctx context.Context, id int64, password string) {
	hashed, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, id, hashed)
	}
	if err != nil {
		logging.Warn().Err(err).Int64("user_id", id).Msg("password hash upgrade failed")
		return
	}
	logging.Info().Int64("user_id", id).Str("scheme", s.hasher.Name()).Msg("password hash upgraded")
}

// Profile returns the public fields of a user, or nil if absent.
func (s *Service) Profile(ctx context.Context, id int64) (*models.Profile, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, nil
	}
	return &models.Profile{Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}, nil
}

func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, store.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrIncorrectPassword):
		return "incorrect_password"
	default:
		return "error"
	}
}
