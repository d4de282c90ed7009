// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/bookscout/bookscout/internal/model"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CredentialsRequest is the body of POST /login and POST /register.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// RegisterResponse is returned by a successful registration.
type RegisterResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// SearchRequest is the body of POST /search. Both fields may instead come
// from the query string.
type SearchRequest struct {
	Title  string `json:"title"`
	UserID string `json:"user_id"`
}

// BookResponse is the normalized book returned by lookups and searches.
type BookResponse struct {
	Title            string   `json:"title"`
	Authors          []string `json:"authors"`
	Image            string   `json:"image"`
	DescriptionShort string   `json:"description_short"`
	DescriptionLong  string   `json:"description_long"`
}

// HistoryEntry is one stored search.
type HistoryEntry struct {
	ID         string       `json:"id"`
	UserID     *string      `json:"user_id"`
	Title      string       `json:"title"`
	Book       BookResponse `json:"book"`
	SearchedAt time.Time    `json:"searched_at"`
}

// TrendingEntry is one leaderboard row.
type TrendingEntry struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// UserResponse is a user as exposed by the audit listing. It never carries
// the credential secret.
type UserResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToBookResponse converts a model.Book. Authors is never null.
func ToBookResponse(b model.Book) BookResponse {
	authors := b.Authors
	if authors == nil {
		authors = []string{}
	}
	return BookResponse{
		Title:            b.Title,
		Authors:          authors,
		Image:            b.ImageURL,
		DescriptionShort: b.DescriptionShort,
		DescriptionLong:  b.DescriptionLong,
	}
}

// ToHistoryEntries converts stored searches, keeping their order.
func ToHistoryEntries(records []*model.SearchRecord) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, HistoryEntry{
			ID:         rec.ID,
			UserID:     rec.UserID,
			Title:      rec.QueryTitle,
			Book:       ToBookResponse(rec.Book),
			SearchedAt: rec.SearchedAt,
		})
	}
	return entries
}

// ToTrendingEntries converts leaderboard rows.
func ToTrendingEntries(titles []model.TrendingTitle) []TrendingEntry {
	entries := make([]TrendingEntry, 0, len(titles))
	for _, t := range titles {
		entries = append(entries, TrendingEntry{Title: t.Title, Count: t.Count})
	}
	return entries
}

// ToUserResponses converts users, dropping credentials.
func ToUserResponses(users []*model.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserResponse{
			ID:          u.ID,
			Username:    u.Username,
			LastLoginAt: u.LastLoginAt,
			CreatedAt:   u.CreatedAt,
		})
	}
	return out
}
