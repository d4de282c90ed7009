package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/bookscout/bookscout/internal/model"
)

const searchColumns = `id, user_id, title, book_title, book_authors, book_image, book_desc_short, book_desc_long, searched_at`

// CreateSearch persists a search record. The ID is assigned here and
// SearchedAt is stamped by the database clock.
func (r *Repository) CreateSearch(ctx context.Context, rec *model.SearchRecord) error {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}

	query := `
		INSERT INTO searches (id, user_id, title, book_title, book_authors, book_image, book_desc_short, book_desc_long)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING searched_at
	`

	err := r.pool.QueryRow(ctx, query,
		rec.ID,
		rec.UserID,
		rec.QueryTitle,
		rec.Book.Title,
		pq.Array(rec.Book.Authors),
		rec.Book.ImageURL,
		rec.Book.DescriptionShort,
		rec.Book.DescriptionLong,
	).Scan(&rec.SearchedAt)

	if err != nil {
		return fmt.Errorf("failed to create search: %w", err)
	}

	return nil
}

// ListSearchesByUser returns a user's searches, most recent first.
func (r *Repository) ListSearchesByUser(ctx context.Context, userID string) ([]*model.SearchRecord, error) {
	query := `SELECT ` + searchColumns + ` FROM searches
		WHERE user_id = $1
		ORDER BY searched_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches by user: %w", err)
	}
	return collectSearches(rows)
}

// ListSearches returns every search in insertion order.
func (r *Repository) ListSearches(ctx context.Context) ([]*model.SearchRecord, error) {
	query := `SELECT ` + searchColumns + ` FROM searches ORDER BY searched_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	return collectSearches(rows)
}

func collectSearches(rows pgx.Rows) ([]*model.SearchRecord, error) {
	defer rows.Close()

	records := make([]*model.SearchRecord, 0)
	for rows.Next() {
		rec, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate searches: %w", err)
	}
	return records, nil
}

func scanSearch(row pgx.Row) (*model.SearchRecord, error) {
	var rec model.SearchRecord
	var authors []string
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.QueryTitle,
		&rec.Book.Title,
		&authors,
		&rec.Book.ImageURL,
		&rec.Book.DescriptionShort,
		&rec.Book.DescriptionLong,
		&rec.SearchedAt,
	); err != nil {
		return nil, err
	}
	if authors == nil {
		authors = []string{}
	}
	rec.Book.Authors = authors
	return &rec, nil
}
