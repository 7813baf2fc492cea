package watchlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrDuplicate means the title is already on the user's watchlist.
	ErrDuplicate = errors.New("watchlist: item already in watchlist")
	// ErrNotFound means no item matches within the caller's scope.
	ErrNotFound = errors.New("watchlist: item not found")
)

// Item is one entry on a user's watchlist.
type Item struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	MovieID   string    `json:"movie_id"`
	MediaType string    `json:"media_type"`
	Title     string    `json:"title"`
	PosterURL *string   `json:"poster_url"`
	AddedAt   time.Time `json:"added_at"`
}

const itemColumns = `id, user_id, movie_id, media_type, title, poster_url, added_at`

// Store persists watchlist entries in Postgres.
type Store struct {
	pg *pgxpool.Pool
}

func NewStore(pg *pgxpool.Pool) *Store {
	return &Store{pg: pg}
}

// Add inserts an entry; the (user_id, movie_id) pair is unique.
func (s *Store) Add(ctx context.Context, userID, movieID, mediaType, title string, posterURL *string) (*Item, error) {
	row := s.pg.QueryRow(ctx,
		`INSERT INTO watchlist_items (user_id, movie_id, media_type, title, poster_url)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, movie_id) DO NOTHING
		 RETURNING `+itemColumns,
		userID, movieID, mediaType, title, posterURL)
	var it Item
	err := row.Scan(&it.ID, &it.UserID, &it.MovieID, &it.MediaType, &it.Title, &it.PosterURL, &it.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ListByUser returns the user's watchlist, most recently added first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Item, error) {
	rows, err := s.pg.Query(ctx, `SELECT `+itemColumns+` FROM watchlist_items WHERE user_id=$1 ORDER BY added_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.UserID, &it.MovieID, &it.MediaType, &it.Title, &it.PosterURL, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

// Remove deletes the user's entry for a title; ErrNotFound if absent.
func (s *Store) Remove(ctx context.Context, userID, movieID string) error {
	tag, err := s.pg.Exec(ctx, `DELETE FROM watchlist_items WHERE user_id=$1 AND movie_id=$2`, userID, movieID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Contains reports whether the title is on the user's watchlist.
func (s *Store) Contains(ctx context.Context, userID, movieID string) (bool, error) {
	var exists bool
	err := s.pg.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM watchlist_items WHERE user_id=$1 AND movie_id=$2)`,
		userID, movieID).Scan(&exists)
	return exists, err
}
