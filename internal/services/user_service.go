package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/marketplace-be/internal/database"
	"github.com/isdelr/marketplace-be/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Signup(ctx context.Context, name, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (token string, userID string, err error)
}

// PasswordHasher hashes and checks user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer issues identity tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// fixedFallbackHash is a well-formed bcrypt hash (cost 10) used when the
// configured hasher cannot produce one.
const fixedFallbackHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type signupInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserService provides signup and login.
type UserService struct {
	db     *sql.DB
	hasher PasswordHasher
	tokens TokenIssuer
	events EventServiceProvider
	now    func() time.Time

	// dummyHash is compared against when the email is unknown so both
	// login failure paths cost one bcrypt comparison.
	dummyOnce sync.Once
	dummyHash string
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(db *sql.DB, hasher PasswordHasher, tokens TokenIssuer, events EventServiceProvider) *UserService {
	return &UserService{
		db:     db,
		hasher: hasher,
		tokens: tokens,
		events: events,
		now:    time.Now,
	}
}

// Signup registers a new user. The email must not already be registered.
func (s *UserService) Signup(ctx context.Context, name, email, password string) (models.User, error) {
	in := signupInput{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: blankToEmpty(password),
	}
	if err := validateStruct(in); err != nil {
		return models.User{}, err
	}

	// Fast path; the UNIQUE constraint on users.email is the real guarantee.
	exists, err := s.emailExists(ctx, in.Email)
	if err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, ErrDuplicateEmail
	}

	hashedPassword, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return models.User{}, &ValidationError{Field: "password", Reason: "is too long"}
		}
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashedPassword,
		CreatedAt:    s.now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users(id, name, email, password_hash, created_at) VALUES(?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	recordEvent(ctx, s.events, EventUserSignup, fmt.Sprintf("User '%s' signed up", user.Name), user.ID)

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// Login verifies credentials and issues a token. Missing fields, unknown
// emails and wrong passwords all yield ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (string, string, error) {
	in := loginInput{Email: strings.TrimSpace(email), Password: blankToEmpty(password)}
	if err := validateStruct(in); err != nil {
		return "", "", ErrInvalidCredentials
	}

	var userID, passwordHash string
	err := s.db.QueryRowContext(ctx, "SELECT id, password_hash FROM users WHERE email = ?", in.Email).
		Scan(&userID, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.hasher.Verify(in.Password, s.fallbackHash())
			return "", "", ErrInvalidCredentials
		}
		return "", "", fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(in.Password, passwordHash) {
		return "", "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, userID, nil
}

func (s *UserService) emailExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE email = ?", email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return true, nil
}

func (s *UserService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("marketplace-unknown-user")
		if err != nil {
			log.Warn().Err(err).Msg("Failed to hash login fallback, using fixed hash")
			hash = fixedFallbackHash
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// blankToEmpty lets the required check reject whitespace-only passwords
// without trimming the ones that are kept.
func blankToEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
