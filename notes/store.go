package notes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound means no note matches the id within the caller's scope.
var ErrNotFound = errors.New("notes: note not found")

// Note is a personal annotation a user attaches to a media title.
type Note struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"` // external identity key of the author
	MovieID   string     `json:"movie_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

const noteColumns = `id, user_id, movie_id, content, created_at, updated_at`

// Store persists notes in Postgres. Every read and mutation is scoped to the
// owning user except the admin listings.
type Store struct {
	pg *pgxpool.Pool
}

func NewStore(pg *pgxpool.Pool) *Store {
	return &Store{pg: pg}
}

// Create inserts a note for the user and returns it as stored.
func (s *Store) Create(ctx context.Context, userID, movieID, content string) (*Note, error) {
	row := s.pg.QueryRow(ctx,
		`INSERT INTO notes (user_id, movie_id, content) VALUES ($1, $2, $3) RETURNING `+noteColumns,
		userID, movieID, content)
	return scanNote(row)
}

// ListByUser returns the user's notes, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Note, error) {
	rows, err := s.pg.Query(ctx, `SELECT `+noteColumns+` FROM notes WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectNotes(rows)
}

// Get returns one of the user's notes by id.
func (s *Store) Get(ctx context.Context, userID string, id uuid.UUID) (*Note, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+noteColumns+` FROM notes WHERE id=$1 AND user_id=$2`, id, userID)
	return scanNote(row)
}

// Update rewrites the content of the user's note and returns the new row.
func (s *Store) Update(ctx context.Context, userID string, id uuid.UUID, content string) (*Note, error) {
	row := s.pg.QueryRow(ctx,
		`UPDATE notes SET content=$3, updated_at=NOW() WHERE id=$1 AND user_id=$2 RETURNING `+noteColumns,
		id, userID, content)
	return scanNote(row)
}

// Delete removes the user's note; ErrNotFound if nothing matched.
func (s *Store) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := s.pg.Exec(ctx, `DELETE FROM notes WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every note; admin-only.
func (s *Store) ListAll(ctx context.Context) ([]*Note, error) {
	rows, err := s.pg.Query(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectNotes(rows)
}

// DistinctAuthors returns the external identity keys of every user that has
// written at least one note.
func (s *Store) DistinctAuthors(ctx context.Context) ([]string, error) {
	rows, err := s.pg.Query(ctx, `SELECT DISTINCT user_id FROM notes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.UserID, &n.MovieID, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func collectNotes(rows pgx.Rows) ([]*Note, error) {
	defer rows.Close()
	var out []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.MovieID, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}
