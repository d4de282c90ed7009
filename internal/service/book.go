package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookscout/bookscout/internal/bookprovider"
	"github.com/bookscout/bookscout/internal/metrics"
	"github.com/bookscout/bookscout/internal/model"
	"github.com/bookscout/bookscout/internal/repository"
)

// BookProvider looks up raw volume metadata by title.
type BookProvider interface {
	Fetch(ctx context.Context, title string) (*model.VolumeInfo, error)
}

// SearchStore persists search history.
type SearchStore interface {
	CreateSearch(ctx context.Context, rec *model.SearchRecord) error
	ListSearchesByUser(ctx context.Context, userID string) ([]*model.SearchRecord, error)
	ListSearches(ctx context.Context) ([]*model.SearchRecord, error)
}

// SearchNotifier is told about every search after it has been stored.
// Implementations must not block.
type SearchNotifier interface {
	SearchRecorded(rec *model.SearchRecord)
}

// TrendingReader returns the most searched titles.
type TrendingReader interface {
	TopTrending(ctx context.Context, limit int) ([]model.TrendingTitle, error)
}

// Trending limits.
const (
	DefaultTrendingLimit = 10
	MaxTrendingLimit     = 50
)

// BookService handles lookups and search history.
type BookService struct {
	provider BookProvider
	users    UserStore
	searches SearchStore
	notifier SearchNotifier
	trending TrendingReader
	metrics  metrics.Recorder
}

// BookServiceOption configures optional collaborators.
type BookServiceOption func(*BookService)

// WithNotifier sets the post-record notifier.
func WithNotifier(n SearchNotifier) BookServiceOption {
	return func(s *BookService) { s.notifier = n }
}

// WithTrending sets the trending titles source.
func WithTrending(r TrendingReader) BookServiceOption {
	return func(s *BookService) { s.trending = r }
}

// NewBookService creates a new BookService.
func NewBookService(provider BookProvider, users UserStore, searches SearchStore, recorder metrics.Recorder, opts ...BookServiceOption) *BookService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	s := &BookService{
		provider: provider,
		users:    users,
		searches: searches,
		metrics:  recorder,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LookupBook fetches and normalizes the first match for title.
func (s *BookService) LookupBook(ctx context.Context, title string) (*model.Book, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	info, err := s.provider.Fetch(ctx, title)
	s.metrics.ObserveProviderDuration(time.Since(start))
	if err != nil {
		if errors.Is(err, bookprovider.ErrNotFound) {
			s.metrics.IncBookLookup("not_found")
			return nil, fmt.Errorf("%w: %w", ErrBookNotFound, err)
		}
		return nil, fmt.Errorf("failed to fetch book: %w", err)
	}

	s.metrics.IncBookLookup("found")
	book := model.NormalizeVolume(info)
	return &book, nil
}

// SearchAndSave looks up title and records the result for userID.
// An empty userID records an anonymous search. The lookup and the write are
// not atomic: if the write fails the looked-up book is discarded.
func (s *BookService) SearchAndSave(ctx context.Context, title, userID string) (*model.Book, error) {
	if _, err := normalizeTitle(title); err != nil {
		return nil, err
	}

	var owner *string
	if userID != "" {
		if _, err := s.users.GetUserByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		owner = &userID
	}

	book, err := s.LookupBook(ctx, title)
	if err != nil {
		return nil, err
	}

	rec := &model.SearchRecord{
		UserID:     owner,
		QueryTitle: title,
		Book:       book.Clone(),
	}
	if err := s.searches.CreateSearch(ctx, rec); err != nil {
		s.metrics.IncSearchRecordFailed()
		return nil, fmt.Errorf("failed to record search: %w", err)
	}
	s.metrics.IncSearchRecorded()

	if s.notifier != nil {
		s.notifier.SearchRecorded(rec)
	}

	return book, nil
}

// History returns the user's searches, most recent first.
func (s *BookService) History(ctx context.Context, userID string) ([]*model.SearchRecord, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	records, err := s.searches.ListSearchesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// ListSearches returns every recorded search in insertion order.
func (s *BookService) ListSearches(ctx context.Context) ([]*model.SearchRecord, error) {
	records, err := s.searches.ListSearches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	return records, nil
}

// Trending returns the most searched titles. The limit is clamped to
// [1, MaxTrendingLimit]; zero means DefaultTrendingLimit.
func (s *BookService) Trending(ctx context.Context, limit int) ([]model.TrendingTitle, error) {
	switch {
	case limit <= 0:
		limit = DefaultTrendingLimit
	case limit > MaxTrendingLimit:
		limit = MaxTrendingLimit
	}

	if s.trending == nil {
		return []model.TrendingTitle{}, nil
	}

	titles, err := s.trending.TopTrending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read trending titles: %w", err)
	}
	return titles, nil
}
