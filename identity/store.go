package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, keycloak_id, username, email, first_name, last_name, roles, is_active, avatar_url, created_at, updated_at`

// Store provides user lookups and mutations against Postgres.
type Store struct {
	pg *pgxpool.Pool
}

func NewStore(pg *pgxpool.Pool) *Store {
	return &Store{pg: pg}
}

// GetByKeycloakID returns the user owning the external identity key.
func (s *Store) GetByKeycloakID(ctx context.Context, keycloakID string) (*User, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE keycloak_id=$1`, keycloakID)
	return scanUser(row)
}

// GetByID returns the user with the given surrogate id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return scanUser(row)
}

// FindByUsernameOrEmail returns a user matching either field; used for the
// pre-registration duplicate check.
func (s *Store) FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1 OR email=$2 LIMIT 1`, username, email)
	return scanUser(row)
}

// Insert creates a user record and returns it as stored.
func (s *Store) Insert(ctx context.Context, u *User) (*User, error) {
	row := s.pg.QueryRow(ctx,
		`INSERT INTO users (keycloak_id, username, email, first_name, last_name, roles, is_active, avatar_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+userColumns,
		u.KeycloakID, u.Username, u.Email, u.FirstName, u.LastName, roleNames(u.Roles), u.Active, u.AvatarURL)
	return scanUser(row)
}

// Provision lazily creates a user for a first-seen identity with the default
// role, or returns the existing record. The upsert is keyed on the unique
// keycloak_id, so concurrent first requests for the same subject converge to
// a single record.
func (s *Store) Provision(ctx context.Context, keycloakID, username string, email *string) (*User, error) {
	row := s.pg.QueryRow(ctx,
		`INSERT INTO users (keycloak_id, username, email, roles, is_active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 ON CONFLICT (keycloak_id) DO UPDATE SET keycloak_id = EXCLUDED.keycloak_id
		 RETURNING `+userColumns,
		keycloakID, username, email, roleNames([]Role{RoleUser}))
	return scanUser(row)
}

// UpdateProfileByKeycloakID applies a partial profile update keyed on the
// external identity.
func (s *Store) UpdateProfileByKeycloakID(ctx context.Context, keycloakID string, upd ProfileUpdate) (*User, error) {
	if upd.IsEmpty() {
		return s.GetByKeycloakID(ctx, keycloakID)
	}
	row := s.pg.QueryRow(ctx,
		`UPDATE users SET
		   email      = COALESCE($2, email),
		   first_name = COALESCE($3, first_name),
		   last_name  = COALESCE($4, last_name),
		   avatar_url = COALESCE($5, avatar_url),
		   updated_at = NOW()
		 WHERE keycloak_id=$1
		 RETURNING `+userColumns,
		keycloakID, upd.Email, upd.FirstName, upd.LastName, upd.AvatarURL)
	return scanUser(row)
}

// SetRoles replaces the role set, keyed by surrogate id so concurrent admin
// actions cannot clobber unrelated fields.
func (s *Store) SetRoles(ctx context.Context, id uuid.UUID, roles []Role) error {
	tag, err := s.pg.Exec(ctx, `UPDATE users SET roles=$2, updated_at=NOW() WHERE id=$1`, id, roleNames(roles))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetActive flips the active flag, keyed by surrogate id.
func (s *Store) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pg.Exec(ctx, `UPDATE users SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns all users, newest first.
func (s *Store) List(ctx context.Context) ([]*User, error) {
	rows, err := s.pg.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	u, err := scanUserRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func scanUserRow(row pgx.Row) (*User, error) {
	var u User
	var roles []string
	err := row.Scan(&u.ID, &u.KeycloakID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&roles, &u.Active, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Roles = make([]Role, 0, len(roles))
	for _, r := range roles {
		if !ValidRole(r) {
			return nil, fmt.Errorf("identity: unknown role %q on user %s", r, u.ID)
		}
		u.Roles = append(u.Roles, Role(r))
	}
	return &u, nil
}

func roleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
