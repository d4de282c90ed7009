package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookscout/bookscout/internal/auth"
	"github.com/bookscout/bookscout/internal/metrics"
	"github.com/bookscout/bookscout/internal/model"
	"github.com/bookscout/bookscout/internal/repository"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// UserService handles registration and login.
type UserService struct {
	users   UserStore
	scheme  auth.CredentialScheme
	metrics metrics.Recorder
	now     func() time.Time
}

// NewUserService creates a new UserService. A nil scheme means plaintext.
func NewUserService(users UserStore, scheme auth.CredentialScheme, recorder metrics.Recorder) *UserService {
	if scheme == nil {
		scheme = auth.PlaintextScheme{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		users:   users,
		scheme:  scheme,
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a new user.
func (s *UserService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	secret, err := s.scheme.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to derive credential: %w", err)
	}

	user := &model.User{
		Username:         username,
		CredentialSecret: secret,
		CreatedAt:        s.now(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.IncUserRegistered()
	return user, nil
}

// Authenticate checks credentials and records the login time.
// Nothing is written when the credentials do not match.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	username, err := normalizeUsername(username)
	if err != nil || password == "" {
		s.metrics.IncLogin("failure")
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLogin("failure")
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := s.scheme.Verify(password, user.CredentialSecret)
	if err != nil || !ok {
		s.metrics.IncLogin("failure")
		return nil, ErrUnauthorized
	}

	at := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, at); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &at

	s.metrics.IncLogin("success")
	return user, nil
}

// FindByID returns the user with the given id.
func (s *UserService) FindByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, ErrUserIDRequired
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindByUsername returns the user with the given username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns every user in creation order.
func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
