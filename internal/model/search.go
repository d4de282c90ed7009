package model

import "time"

// SearchRecord is a persisted search and the book it resolved to.
type SearchRecord struct {
	ID         string    `json:"id"`                // ULID (time-sortable)
	UserID     *string   `json:"user_id,omitempty"` // nil for anonymous searches
	QueryTitle string    `json:"title"`             // as submitted
	Book       Book      `json:"book"`
	SearchedAt time.Time `json:"searched_at"` // set by the store
}

// IsAnonymous reports whether the search was made without a user.
func (r *SearchRecord) IsAnonymous() bool {
	return r.UserID == nil
}

// TrendingTitle is a query title with the number of times it was searched.
type TrendingTitle struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}
