package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bookscout/bookscout/internal/handler/dto"
)

func TestHandler_Hello(t *testing.T) {
	rec := httptest.NewRecorder()
	New("1.2.3").Hello(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "Hello from Bookscout!" || body["version"] != "1.2.3" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHandler_Fallbacks(t *testing.T) {
	h := New("test")

	tests := []struct {
		name     string
		serve    http.HandlerFunc
		wantCode int
		wantErr  string
	}{
		{"not found", h.NotFound, http.StatusNotFound, "NOT_FOUND"},
		{"method not allowed", h.MethodNotAllowed, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.serve(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantErr || body.Error == "" {
				t.Errorf("unexpected error body %+v", body)
			}
		})
	}
}

func TestDecodeOptionalJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantTitle string
	}{
		{"empty body", "", false, ""},
		{"valid", `{"title":"Dune","user_id":"u1"}`, false, "Dune"},
		{"unknown fields ignored", `{"title":"Dune","extra":1}`, false, "Dune"},
		{"malformed", `{"title":`, true, ""},
		{"wrong type", `{"title":42}`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(tt.body))
			var dst dto.SearchRequest

			err := decodeOptionalJSON(req, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && dst.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", dst.Title, tt.wantTitle)
			}
		})
	}
}

func TestWriteDecodeError_BodyTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"`+strings.Repeat("a", 64)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	var dst dto.CredentialsRequest
	err := decodeOptionalJSON(req, &dst)
	if err == nil {
		t.Fatal("expected an error for an oversized body")
	}

	writeDecodeError(rec, err)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestWriteDecodeError_Malformed(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDecodeError(rec, errMalformedBody)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_JSON") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("firstNonEmpty = %q, want b", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty = %q, want empty", got)
	}
}
