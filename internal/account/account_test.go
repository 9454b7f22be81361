package account

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/TheSinghX/AiImageCraft/internal/database/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type AccountTestSuite struct {
	suite.Suite
	db      *mock.MockDB
	service *Service
	ctx     context.Context
}

func (s *AccountTestSuite) SetupTest() {
	s.db = mock.NewMockDB()
	s.service = New(s.db).WithCost(bcrypt.MinCost)
	s.ctx = context.Background()
}

func (s *AccountTestSuite) register(username, email, password string) error {
	_, err := s.service.Register(s.ctx, RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	return err
}

func (s *AccountTestSuite) validationErrors(err error) ValidationErrors {
	var verrs ValidationErrors
	s.Require().True(errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	return verrs
}

func (s *AccountTestSuite) TestRegister_Success() {
	user, err := s.service.Register(s.ctx, RegisterRequest{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	s.Require().NoError(err)
	s.NotZero(user.ID)
	s.Equal("alice", user.Username)
	s.NotEqual("secret123", user.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
}

func (s *AccountTestSuite) TestRegister_ShortUsernameOnly() {
	err := s.register("ab", "ab@example.com", "password")
	s.Equal(ValidationErrors{"Username must be at least 3 characters long"}, s.validationErrors(err))
}

func (s *AccountTestSuite) TestRegister_CollectsAllErrors() {
	_, err := s.service.Register(s.ctx, RegisterRequest{
		Username:        "x",
		Email:           "not-an-email",
		Password:        "123",
		ConfirmPassword: "456",
	})
	s.Equal(ValidationErrors{
		"Username must be at least 3 characters long",
		"Please enter a valid email address",
		"Password must be at least 6 characters long",
		"Passwords do not match",
	}, s.validationErrors(err))
}

func (s *AccountTestSuite) TestRegister_PasswordTooLong() {
	long := strings.Repeat("a", MaxPasswordBytes+8)
	user, err := s.service.Register(s.ctx, RegisterRequest{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        long,
		ConfirmPassword: long,
	})
	s.Nil(user)
	s.Equal(ValidationErrors{"Password must be at most 72 bytes long"}, s.validationErrors(err))

	// multi-byte runes count by bytes
	exact := strings.Repeat("é", MaxPasswordBytes/2)
	user, err = s.service.Register(s.ctx, RegisterRequest{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        exact,
		ConfirmPassword: exact,
	})
	s.Require().NoError(err)
	s.NotNil(user)
}

func (s *AccountTestSuite) TestRegister_DuplicateEmail() {
	s.Require().NoError(s.register("alice", "alice@example.com", "password"))

	err := s.register("alice2", "alice@example.com", "password")
	s.Equal(ValidationErrors{"Email already registered"}, s.validationErrors(err))
}

func (s *AccountTestSuite) TestRegister_DuplicateUsername() {
	s.Require().NoError(s.register("alice", "alice@example.com", "password"))

	err := s.register("alice", "other@example.com", "password")
	s.Equal(ValidationErrors{"Username already in use"}, s.validationErrors(err))
}

func (s *AccountTestSuite) TestRegister_DatabaseError() {
	s.db.ExistsError = errors.New("connection lost")

	err := s.register("alice", "alice@example.com", "password")
	s.Error(err)
	var verrs ValidationErrors
	s.False(errors.As(err, &verrs))
}

func (s *AccountTestSuite) TestAuthenticate() {
	s.Require().NoError(s.register("alice", "alice@example.com", "password"))

	user, err := s.service.Authenticate(s.ctx, "alice@example.com", "password")
	s.Require().NoError(err)
	s.Equal("alice", user.Username)

	_, err = s.service.Authenticate(s.ctx, "alice@example.com", "wrong-password")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.service.Authenticate(s.ctx, "nobody@example.com", "password")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func TestAccountTestSuite(t *testing.T) {
	suite.Run(t, new(AccountTestSuite))
}

func TestValidationErrors_Error(t *testing.T) {
	err := ValidationErrors{"first", "second"}
	require.Error(t, err)
	assert.Equal(t, "first; second", err.Error())
}
