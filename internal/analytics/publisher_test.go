package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookscout/bookscout/internal/metrics"
	"github.com/bookscout/bookscout/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPayloadFromRecord(t *testing.T) {
	t.Parallel()

	userID := "user-1"
	searchedAt := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	rec := &model.SearchRecord{
		ID:         "search-1",
		UserID:     &userID,
		QueryTitle: "the hobbit",
		Book:       model.Book{Title: "The Hobbit"},
		SearchedAt: searchedAt,
	}

	p := PayloadFromRecord(rec)
	if p.SearchID != "search-1" || p.UserID != "user-1" {
		t.Errorf("ids = %q/%q", p.SearchID, p.UserID)
	}
	if p.QueryTitle != "the hobbit" || p.BookTitle != "The Hobbit" {
		t.Errorf("titles = %q/%q", p.QueryTitle, p.BookTitle)
	}
	if p.SearchedAt != searchedAt.UnixMilli() {
		t.Errorf("SearchedAt = %d, want %d", p.SearchedAt, searchedAt.UnixMilli())
	}
}

func TestPayloadFromRecord_AnonymousOmitsUID(t *testing.T) {
	t.Parallel()

	rec := &model.SearchRecord{ID: "s", QueryTitle: "q", SearchedAt: time.Now()}
	data, err := json.Marshal(PayloadFromRecord(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"uid"`) {
		t.Errorf("anonymous payload should omit uid: %s", data)
	}
}

func TestPublisher_ShutdownWithoutInFlight(t *testing.T) {
	t.Parallel()

	p := NewPublisher(nil, discardLogger(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestPublisher_SearchRecordedNil(t *testing.T) {
	t.Parallel()

	p := NewPublisher(nil, discardLogger(), nil)
	p.SearchRecorded(nil)
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestDecodeMessage(t *testing.T) {
	t.Parallel()

	good, _ := json.Marshal(SearchEventPayload{SearchID: "s", QueryTitle: "dune", SearchedAt: 1})

	tests := []struct {
		name   string
		values map[string]interface{}
		reason string
	}{
		{"valid", map[string]interface{}{"payload": string(good), "v": PayloadVersion}, ""},
		{"valid without version", map[string]interface{}{"payload": string(good)}, ""},
		{"missing payload", map[string]interface{}{"v": PayloadVersion}, "invalid_format"},
		{"future version", map[string]interface{}{"payload": string(good), "v": "2"}, "unsupported_version"},
		{"bad json", map[string]interface{}{"payload": "{", "v": PayloadVersion}, "unmarshal_error"},
		{"invalid", map[string]interface{}{"payload": `{"sid":"s"}`, "v": PayloadVersion}, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			event, reason, err := decodeMessage(redis.XMessage{ID: "1-0", Values: tt.values})
			if reason != tt.reason {
				t.Fatalf("reason = %q, want %q (err %v)", reason, tt.reason, err)
			}
			if tt.reason == "" && event.QueryTitle != "dune" {
				t.Errorf("QueryTitle = %q, want dune", event.QueryTitle)
			}
		})
	}
}

type fakeCounter struct {
	failFor map[string]int
	counts  map[string]int
}

func (f *fakeCounter) IncrementTrending(ctx context.Context, title string) error {
	if f.failFor[title] > 0 {
		f.failFor[title]--
		return errors.New("redis down")
	}
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[title]++
	return nil
}

func TestWorker_ProcessBatchRetriesOnlyFailed(t *testing.T) {
	t.Parallel()

	counter := &fakeCounter{failFor: map[string]int{"flaky": 1}}
	recorder := metrics.NewInMemory()
	w := NewWorker(nil, counter, discardLogger(), "test", recorder)
	w.retryBackoff = time.Millisecond

	events := []SearchEventPayload{
		{SearchID: "1", QueryTitle: "dune", SearchedAt: 1},
		{SearchID: "2", QueryTitle: "flaky", SearchedAt: 1},
	}
	if err := w.processBatchWithRetry(context.Background(), events); err != nil {
		t.Fatalf("processBatchWithRetry() error = %v", err)
	}

	if counter.counts["dune"] != 1 || counter.counts["flaky"] != 1 {
		t.Errorf("counts = %v, want each title once", counter.counts)
	}
	if got := recorder.Snapshot().SearchEventsProcessed; got != 2 {
		t.Errorf("processed = %d, want 2", got)
	}
}

func TestWorker_ProcessBatchGivesUp(t *testing.T) {
	t.Parallel()

	counter := &fakeCounter{failFor: map[string]int{"down": 10}}
	recorder := metrics.NewInMemory()
	w := NewWorker(nil, counter, discardLogger(), "test", recorder)
	w.retryBackoff = time.Millisecond

	err := w.processBatchWithRetry(context.Background(), []SearchEventPayload{{SearchID: "1", QueryTitle: "down", SearchedAt: 1}})
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if got := recorder.Snapshot().SearchEventsFailed; got != 1 {
		t.Errorf("failed = %d, want 1", got)
	}
}

func TestWorker_ShutdownBeforeRun(t *testing.T) {
	t.Parallel()

	w := NewWorker(nil, &fakeCounter{}, discardLogger(), "test", nil)
	if err := w.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestIsConsumerGroupExistsError(t *testing.T) {
	t.Parallel()

	if !isConsumerGroupExistsError(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Error("BUSYGROUP should be recognised")
	}
	if isConsumerGroupExistsError(errors.New("ERR no such key")) {
		t.Error("other errors should not match")
	}
	if isConsumerGroupExistsError(nil) {
		t.Error("nil should not match")
	}
}
