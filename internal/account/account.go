// Package account registers users and verifies their credentials.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/TheSinghX/AiImageCraft/internal/database"
	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
	// MaxPasswordBytes is the most bcrypt will hash.
	MaxPasswordBytes = 72
)

// ErrInvalidCredentials is returned when the email is unknown or the password does not match.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationErrors holds every problem found with a registration request.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return strings.Join(v, "; ")
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Service is the credential store.
type Service struct {
	db   database.DB
	cost int
}

// New creates a credential store using bcrypt's default cost.
func New(db database.DB) *Service {
	return &Service{db: db, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// Register validates the request and creates the user.
// All violations are reported together as ValidationErrors.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*database.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	var errs ValidationErrors
	if utf8.RuneCountInString(username) < MinUsernameLength {
		errs = append(errs, "Username must be at least 3 characters long")
	}
	if !strings.Contains(email, "@") {
		errs = append(errs, "Please enter a valid email address")
	}
	if len(req.Password) < MinPasswordLength {
		errs = append(errs, "Password must be at least 6 characters long")
	}
	if len(req.Password) > MaxPasswordBytes {
		errs = append(errs, "Password must be at most 72 bytes long")
	}
	if req.Password != req.ConfirmPassword {
		errs = append(errs, "Passwords do not match")
	}

	if username != "" {
		taken, err := s.db.UsernameExists(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			errs = append(errs, "Username already in use")
		}
	}
	if email != "" {
		taken, err := s.db.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			errs = append(errs, "Email already registered")
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("Registered new user", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate returns the user for a matching email and password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*database.User, error) {
	user, err := s.db.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Debug("Password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id uint) (*database.User, error) {
	return s.db.GetUserByID(ctx, id)
}
