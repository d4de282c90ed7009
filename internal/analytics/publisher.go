// Package analytics publishes search events to a Redis stream and folds them
// into the trending-titles leaderboard.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookscout/bookscout/internal/metrics"
	"github.com/bookscout/bookscout/internal/model"
)

const (
	// StreamKey is the Redis stream for search events.
	StreamKey = "stream:search_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:search_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PayloadVersion is written to the "v" field of every entry.
	PayloadVersion = "1"

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// SearchEventPayload is the compact event format for the Redis stream.
type SearchEventPayload struct {
	SearchID   string `json:"sid"`           // search record id
	UserID     string `json:"uid,omitempty"` // empty for anonymous searches
	QueryTitle string `json:"q"`             // title as typed
	BookTitle  string `json:"bt"`            // normalized book title
	SearchedAt int64  `json:"t"`             // Unix milliseconds
}

// PayloadFromRecord builds the stream payload for a stored search. The query
// is trimmed the way the search service checks it, and the provider's book
// title is cut to the title limit.
func PayloadFromRecord(rec *model.SearchRecord) SearchEventPayload {
	p := SearchEventPayload{
		SearchID:   rec.ID,
		QueryTitle: strings.TrimSpace(rec.QueryTitle),
		BookTitle:  truncateRunes(rec.Book.Title, maxTitleRunes),
		SearchedAt: rec.SearchedAt.UnixMilli(),
	}
	if rec.UserID != nil {
		p.UserID = *rec.UserID
	}
	return p
}

// Publisher enqueues search events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
	wg      sync.WaitGroup
}

// NewPublisher creates a new search event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "analytics.publisher"),
		metrics: recorder,
	}
}

// Publish adds a search event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event SearchEventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
			"v":       PayloadVersion,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(event SearchEventPayload) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish search event",
				"search_id", event.SearchID,
				"error", err,
			)
			p.metrics.IncSearchEventPublished("dropped")
			return
		}

		p.logger.Debug("search event published",
			"search_id", event.SearchID,
			"stream_id", streamID,
		)
		p.metrics.IncSearchEventPublished("success")
	}()
}

// SearchRecorded publishes rec in the background.
func (p *Publisher) SearchRecorded(rec *model.SearchRecord) {
	if rec == nil {
		return
	}
	p.PublishAsync(PayloadFromRecord(rec))
}

// Shutdown waits for in-flight publishes or until ctx is done.
func (p *Publisher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn("search event publisher shutdown timed out")
		return ctx.Err()
	}
}
