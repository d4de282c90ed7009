package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bookscout/bookscout/internal/auth"
	"github.com/bookscout/bookscout/internal/bookprovider"
	"github.com/bookscout/bookscout/internal/handler/dto"
	"github.com/bookscout/bookscout/internal/memstore"
	"github.com/bookscout/bookscout/internal/metrics"
	"github.com/bookscout/bookscout/internal/model"
	"github.com/bookscout/bookscout/internal/service"
)

type stubProvider struct {
	mu      sync.Mutex
	volumes map[string]*model.VolumeInfo
	calls   int
}

func (p *stubProvider) Fetch(ctx context.Context, title string) (*model.VolumeInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	v, ok := p.volumes[title]
	if !ok {
		return nil, bookprovider.ErrNotFound
	}
	return v, nil
}

type failingSearchStore struct {
	*memstore.Store
}

func (failingSearchStore) CreateSearch(ctx context.Context, rec *model.SearchRecord) error {
	return errors.New("connection reset")
}

type fakeTrending struct {
	gotLimit int
}

func (f *fakeTrending) TopTrending(ctx context.Context, limit int) ([]model.TrendingTitle, error) {
	f.gotLimit = limit
	return []model.TrendingTitle{{Title: "dune", Count: 3}}, nil
}

type testAPI struct {
	store    *memstore.Store
	provider *stubProvider
	recorder *metrics.InMemoryRecorder
	accounts *AccountHandler
	books    *BookHandler
	audit    *AuditHandler
}

func newTestAPI(t *testing.T, opts ...service.BookServiceOption) *testAPI {
	t.Helper()
	return newTestAPIWithSearches(t, nil, opts...)
}

func newTestAPIWithSearches(t *testing.T, searches service.SearchStore, opts ...service.BookServiceOption) *testAPI {
	t.Helper()

	title := "Dune"
	desc := "A desert planet."
	thumb := "http://books.example/dune.jpg"
	provider := &stubProvider{volumes: map[string]*model.VolumeInfo{
		"Dune": {
			Title:       &title,
			Authors:     []string{"Frank Herbert"},
			Description: &desc,
			ImageLinks:  &model.ImageLinks{Thumbnail: &thumb},
		},
	}}

	store := memstore.New()
	if searches == nil {
		searches = store
	}
	recorder := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := service.NewUserService(store, auth.PlaintextScheme{}, recorder)
	books := service.NewBookService(provider, store, searches, recorder, opts...)

	return &testAPI{
		store:    store,
		provider: provider,
		recorder: recorder,
		accounts: NewAccountHandler(users, logger),
		books:    NewBookHandler(books, logger),
		audit:    NewAuditHandler(users, books, logger),
	}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func (a *testAPI) register(t *testing.T, username, password string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	a.accounts.Register(rec, jsonRequest(t, http.MethodPost, "/register", dto.CredentialsRequest{Username: username, Password: password}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp dto.RegisterResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	return resp.UserID
}

func TestRegister(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.accounts.Register(rec, jsonRequest(t, http.MethodPost, "/register", dto.CredentialsRequest{Username: "ada", Password: "pw"}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	var resp dto.RegisterResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UserID == "" || resp.Message == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "ada", "pw")

	rec := httptest.NewRecorder()
	api.accounts.Register(rec, jsonRequest(t, http.MethodPost, "/register", dto.CredentialsRequest{Username: "ada", Password: "other"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if code := decodeError(t, rec).Code; code != "USERNAME_TAKEN" {
		t.Errorf("code = %s, want USERNAME_TAKEN", code)
	}

	users, _ := api.store.ListUsers(context.Background())
	if len(users) != 1 {
		t.Errorf("expected exactly one user, got %d", len(users))
	}
}

func TestRegister_QueryParamFallback(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.accounts.Register(rec, httptest.NewRequest(http.MethodPost, "/register?username=grace&password=pw", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := api.store.GetUserByUsername(context.Background(), "grace"); err != nil {
		t.Errorf("user not stored: %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.accounts.Register(rec, jsonRequest(t, http.MethodPost, "/register", dto.CredentialsRequest{Username: "ada"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if code := decodeError(t, rec).Code; code != "VALIDATION_ERROR" {
		t.Errorf("code = %s, want VALIDATION_ERROR", code)
	}
}

func TestRegister_MalformedJSON(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader("{not json"))
	api.accounts.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if code := decodeError(t, rec).Code; code != "INVALID_JSON" {
		t.Errorf("code = %s, want INVALID_JSON", code)
	}
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	userID := api.register(t, "ada", "pw")

	rec := httptest.NewRecorder()
	api.accounts.Login(rec, jsonRequest(t, http.MethodPost, "/login", dto.CredentialsRequest{Username: "ada", Password: "pw"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp dto.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UserID != userID || resp.Username != "ada" {
		t.Errorf("unexpected response: %+v", resp)
	}

	user, _ := api.store.GetUserByID(context.Background(), userID)
	if user.LastLoginAt == nil {
		t.Error("expected last login to be recorded")
	}
}

func TestLogin_Unauthorized(t *testing.T) {
	api := newTestAPI(t)
	userID := api.register(t, "ada", "pw")

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"wrong password", jsonRequest(t, http.MethodPost, "/login", dto.CredentialsRequest{Username: "ada", Password: "nope"})},
		{"unknown user", jsonRequest(t, http.MethodPost, "/login", dto.CredentialsRequest{Username: "bob", Password: "pw"})},
		{"empty fields", httptest.NewRequest(http.MethodPost, "/login", nil)},
		{"case differs", jsonRequest(t, http.MethodPost, "/login", dto.CredentialsRequest{Username: "ada", Password: "PW"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			api.accounts.Login(rec, tt.req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d", rec.Code)
			}
			if code := decodeError(t, rec).Code; code != "UNAUTHORIZED" {
				t.Errorf("code = %s, want UNAUTHORIZED", code)
			}
		})
	}

	user, _ := api.store.GetUserByID(context.Background(), userID)
	if user.LastLoginAt != nil {
		t.Error("failed logins must not touch last login")
	}
}

func TestLookup(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.books.Lookup(rec, httptest.NewRequest(http.MethodGet, "/books?title=Dune", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var book dto.BookResponse
	if err := json.NewDecoder(rec.Body).Decode(&book); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if book.Title != "Dune" || book.Image != "https://books.example/dune.jpg" {
		t.Errorf("unexpected book: %+v", book)
	}
	if book.DescriptionShort != book.DescriptionLong {
		t.Errorf("short description should equal long for short text")
	}

	searches, _ := api.store.ListSearches(context.Background())
	if len(searches) != 0 {
		t.Errorf("lookup must not record, got %d searches", len(searches))
	}
}

func TestLookup_Errors(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		target     string
		wantStatus int
		wantCode   string
	}{
		{"/books", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"/books?title=Unknown", http.StatusNotFound, "BOOK_NOT_FOUND"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		api.books.Lookup(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.target, rec.Code, tt.wantStatus)
			continue
		}
		if code := decodeError(t, rec).Code; code != tt.wantCode {
			t.Errorf("%s: code = %s, want %s", tt.target, code, tt.wantCode)
		}
	}
}

func TestSearchThenHistory(t *testing.T) {
	api := newTestAPI(t)
	userID := api.register(t, "ada", "pw")

	rec := httptest.NewRecorder()
	api.books.Search(rec, jsonRequest(t, http.MethodPost, "/search", dto.SearchRequest{Title: "Dune", UserID: userID}))
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d, body %s", rec.Code, rec.Body.String())
	}

	for _, target := range []string{"/history?userId=" + userID, "/history?user_id=" + userID} {
		rec = httptest.NewRecorder()
		api.books.History(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("history status = %d", rec.Code)
		}

		var entries []dto.HistoryEntry
		if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
			t.Fatalf("decode history: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Title != "Dune" || entries[0].Book.Title != "Dune" {
			t.Errorf("unexpected entry: %+v", entries[0])
		}
		if entries[0].UserID == nil || *entries[0].UserID != userID {
			t.Errorf("entry user_id = %v, want %s", entries[0].UserID, userID)
		}
		if entries[0].ID == "" || entries[0].SearchedAt.IsZero() {
			t.Errorf("entry should carry id and searched_at: %+v", entries[0])
		}
	}
}

func TestSearch_QueryParams(t *testing.T) {
	api := newTestAPI(t)
	userID := api.register(t, "ada", "pw")

	rec := httptest.NewRecorder()
	api.books.Search(rec, httptest.NewRequest(http.MethodPost, "/search?title=Dune&userId="+userID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d, body %s", rec.Code, rec.Body.String())
	}

	history, _ := api.store.ListSearchesByUser(context.Background(), userID)
	if len(history) != 1 {
		t.Errorf("expected 1 stored search, got %d", len(history))
	}
}

func TestSearch_UnknownUser(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.books.Search(rec, jsonRequest(t, http.MethodPost, "/search", dto.SearchRequest{Title: "Dune", UserID: "missing"}))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if code := decodeError(t, rec).Code; code != "USER_NOT_FOUND" {
		t.Errorf("code = %s, want USER_NOT_FOUND", code)
	}
	if api.provider.calls != 0 {
		t.Errorf("provider should not be called, got %d calls", api.provider.calls)
	}
	searches, _ := api.store.ListSearches(context.Background())
	if len(searches) != 0 {
		t.Errorf("no search should be stored, got %d", len(searches))
	}
}

func TestSearch_Anonymous(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.books.Search(rec, jsonRequest(t, http.MethodPost, "/search", dto.SearchRequest{Title: "Dune"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	api.audit.Searches(rec, httptest.NewRequest(http.MethodGet, "/data/searches", nil))
	if !strings.Contains(rec.Body.String(), `"user_id":null`) {
		t.Errorf("anonymous search should have null user_id: %s", rec.Body.String())
	}
}

func TestSearch_StoreFailure(t *testing.T) {
	api := newTestAPIWithSearches(t, failingSearchStore{memstore.New()})

	rec := httptest.NewRecorder()
	api.books.Search(rec, jsonRequest(t, http.MethodPost, "/search", dto.SearchRequest{Title: "Dune"}))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "Frank Herbert") {
		t.Errorf("book must not be returned on store failure: %s", body)
	}
	if code := decodeError(t, rec).Code; code != "STORE_FAILURE" {
		t.Errorf("code = %s, want STORE_FAILURE", code)
	}
	if got := api.recorder.Snapshot().SearchRecordFailures; got != 1 {
		t.Errorf("record failures = %d, want 1", got)
	}
}

func TestSearch_MissingTitle(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.books.Search(rec, httptest.NewRequest(http.MethodPost, "/search", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHistory_MissingUserID(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.books.History(rec, httptest.NewRequest(http.MethodGet, "/history", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHistory_EmptyIsArray(t *testing.T) {
	api := newTestAPI(t)
	userID := api.register(t, "ada", "pw")

	rec := httptest.NewRecorder()
	api.books.History(rec, httptest.NewRequest(http.MethodGet, "/history?userId="+userID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestTrending(t *testing.T) {
	trending := &fakeTrending{}
	api := newTestAPI(t, service.WithTrending(trending))

	rec := httptest.NewRecorder()
	api.books.Trending(rec, httptest.NewRequest(http.MethodGet, "/searches/trending?limit=500", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if trending.gotLimit != service.MaxTrendingLimit {
		t.Errorf("limit = %d, want %d", trending.gotLimit, service.MaxTrendingLimit)
	}
	var entries []dto.TrendingEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "dune" || entries[0].Count != 3 {
		t.Errorf("unexpected entries: %+v", entries)
	}

	rec = httptest.NewRecorder()
	api.books.Trending(rec, httptest.NewRequest(http.MethodGet, "/searches/trending?limit=abc", nil))
	if trending.gotLimit != service.DefaultTrendingLimit {
		t.Errorf("limit = %d, want default %d", trending.gotLimit, service.DefaultTrendingLimit)
	}
}

func TestTrending_WithoutRedis(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.books.Trending(rec, httptest.NewRequest(http.MethodGet, "/searches/trending", nil))

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestAuditUsers_NoCredentials(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "ada", "very-secret-pw")

	rec := httptest.NewRecorder()
	api.audit.Users(rec, httptest.NewRequest(http.MethodGet, "/data/users", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "very-secret-pw") || strings.Contains(body, "credential") {
		t.Errorf("credentials leaked: %s", body)
	}
	if !strings.Contains(body, `"username":"ada"`) {
		t.Errorf("expected user in listing: %s", body)
	}
}

func TestAuditSearches_InsertionOrder(t *testing.T) {
	api := newTestAPI(t)
	userID := api.register(t, "ada", "pw")

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		api.books.Search(rec, jsonRequest(t, http.MethodPost, "/search", dto.SearchRequest{Title: "Dune", UserID: userID}))
		if rec.Code != http.StatusOK {
			t.Fatalf("search status = %d", rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	api.audit.Searches(rec, httptest.NewRequest(http.MethodGet, "/data/searches", nil))

	var entries []dto.HistoryEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if !entries[i].SearchedAt.After(entries[i-1].SearchedAt) {
			t.Errorf("entries not in insertion order at %d", i)
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "ada", "pw")

	rec := httptest.NewRecorder()
	NewMetricsHandler(api.recorder).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "bookscout_users_registered_total 1\n") {
		t.Errorf("unexpected metrics output: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 without recorder, got %d", rec.Code)
	}
}

func TestDecodeOptionalJSON_TooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"username":"`+strings.Repeat("a", 64)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	var dst dto.CredentialsRequest
	err := decodeOptionalJSON(req, &dst)
	if err == nil {
		t.Fatal("expected error")
	}

	writeDecodeError(rec, err)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}
