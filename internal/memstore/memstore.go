// Package memstore is an in-process implementation of the user and search
// history stores. It backs STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bookscout/bookscout/internal/model"
	"github.com/bookscout/bookscout/internal/repository"
)

// Store keeps users and searches in memory. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	users      map[string]*model.User // ID -> User
	byUsername map[string]string      // username -> ID
	userOrder  []string               // IDs in creation order

	searches     []*model.SearchRecord // insertion order
	lastSearched time.Time

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:      make(map[string]*model.User),
		byUsername: make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// CreateUser stores a new user. Only one caller can win a given username.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[user.Username]; taken {
		return repository.ErrUsernameTaken
	}

	if user.ID == "" {
		user.ID = ulid.Make().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	user.LastLoginAt = nil

	stored := *user
	s.users[stored.ID] = &stored
	s.byUsername[stored.Username] = stored.ID
	s.userOrder = append(s.userOrder, stored.ID)
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return copyUser(user), nil
}

// GetUserByUsername retrieves a user by exact username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return copyUser(s.users[id]), nil
}

// TouchLastLogin sets the user's last login time.
func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LastLoginAt = &at
	return nil
}

// ListUsers returns every user in creation order.
func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*model.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, copyUser(s.users[id]))
	}
	return users, nil
}

// CreateSearch stores a search record, assigning its ID and a SearchedAt
// strictly later than any previous record.
func (s *Store) CreateSearch(ctx context.Context, rec *model.SearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}

	at := s.now()
	if !at.After(s.lastSearched) {
		at = s.lastSearched.Add(time.Microsecond)
	}
	s.lastSearched = at
	rec.SearchedAt = at

	s.searches = append(s.searches, copySearch(rec))
	return nil
}

// ListSearchesByUser returns a user's searches, most recent first.
func (s *Store) ListSearchesByUser(ctx context.Context, userID string) ([]*model.SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*model.SearchRecord, 0)
	for i := len(s.searches) - 1; i >= 0; i-- {
		rec := s.searches[i]
		if rec.UserID != nil && *rec.UserID == userID {
			records = append(records, copySearch(rec))
		}
	}
	return records, nil
}

// ListSearches returns every search in insertion order.
func (s *Store) ListSearches(ctx context.Context) ([]*model.SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*model.SearchRecord, 0, len(s.searches))
	for _, rec := range s.searches {
		records = append(records, copySearch(rec))
	}
	return records, nil
}

func copyUser(u *model.User) *model.User {
	c := *u
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		c.LastLoginAt = &at
	}
	return &c
}

func copySearch(r *model.SearchRecord) *model.SearchRecord {
	c := *r
	if r.UserID != nil {
		id := *r.UserID
		c.UserID = &id
	}
	c.Book = r.Book.Clone()
	return &c
}
