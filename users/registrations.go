package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Registration states. A registration advances strictly forward; there is no
// rollback. Failures leave the row in its last reached state so the sweep
// job (and operators) can find remote-created-but-not-locally-persisted
// identities.
const (
	StateRemoteCreated = "remote_created"
	StateRoleAssigned  = "role_assigned"
	StateComplete      = "complete"
)

// Registration is one tracked registration attempt.
type Registration struct {
	ID         uuid.UUID
	KeycloakID string
	Username   string
	Email      string
	State      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RegistrationStore persists registration progress in Postgres.
type RegistrationStore struct {
	pg *pgxpool.Pool
}

func NewRegistrationStore(pg *pgxpool.Pool) *RegistrationStore {
	return &RegistrationStore{pg: pg}
}

// Record inserts a row for a freshly created remote identity.
func (s *RegistrationStore) Record(ctx context.Context, keycloakID, username, email string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pg.QueryRow(ctx,
		`INSERT INTO registrations (keycloak_id, username, email, state) VALUES ($1, $2, $3, $4) RETURNING id`,
		keycloakID, username, email, StateRemoteCreated).Scan(&id)
	return id, err
}

// Advance moves a registration to the given state.
func (s *RegistrationStore) Advance(ctx context.Context, id uuid.UUID, state string) error {
	_, err := s.pg.Exec(ctx,
		`UPDATE registrations SET state=$2, updated_at=NOW() WHERE id=$1`, id, state)
	return err
}

// ListStuck returns incomplete registrations untouched for longer than age.
func (s *RegistrationStore) ListStuck(ctx context.Context, age time.Duration) ([]*Registration, error) {
	rows, err := s.pg.Query(ctx,
		`SELECT id, keycloak_id, username, email, state, created_at, updated_at
		 FROM registrations
		 WHERE state <> $1 AND updated_at < NOW() - $2::interval
		 ORDER BY updated_at ASC`,
		StateComplete, age.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Registration
	for rows.Next() {
		var r Registration
		if err := rows.Scan(&r.ID, &r.KeycloakID, &r.Username, &r.Email, &r.State, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
