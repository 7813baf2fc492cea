package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/keycloak"
)

// ErrConflict means the username or email is already taken locally.
var ErrConflict = errors.New("users: username or email already taken")

// IdentityBridge is the slice of the Keycloak admin client the service
// depends on.
type IdentityBridge interface {
	CreateUser(ctx context.Context, u keycloak.NewUser) (string, error)
	UpdateUser(ctx context.Context, id string, upd keycloak.UserUpdate) error
	AssignRealmRole(ctx context.Context, id, role string) error
	RemoveRealmRole(ctx context.Context, id, role string) error
	GetRealmRoles(ctx context.Context, id string) ([]string, error)
}

// Directory is the slice of the local user store the service depends on.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
	GetByKeycloakID(ctx context.Context, keycloakID string) (*identity.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*identity.User, error)
	Insert(ctx context.Context, u *identity.User) (*identity.User, error)
	UpdateProfileByKeycloakID(ctx context.Context, keycloakID string, upd identity.ProfileUpdate) (*identity.User, error)
	SetRoles(ctx context.Context, id uuid.UUID, roles []identity.Role) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context) ([]*identity.User, error)
}

// Recorder tracks registration progress for the repair sweep.
type Recorder interface {
	Record(ctx context.Context, keycloakID, username, email string) (uuid.UUID, error)
	Advance(ctx context.Context, id uuid.UUID, state string) error
	ListStuck(ctx context.Context, age time.Duration) ([]*Registration, error)
}

// Service implements registration, profile, and role administration,
// mirroring every mutation between Keycloak and the local directory.
type Service struct {
	dir    Directory
	bridge IdentityBridge
	regs   Recorder
	log    logrus.FieldLogger
}

func NewService(dir Directory, bridge IdentityBridge, regs Recorder, log logrus.FieldLogger) *Service {
	return &Service{dir: dir, bridge: bridge, regs: regs, log: log}
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register drives the registration state machine:
//
//	local-record-absent -> remote-created -> role-assigned -> complete
//
// Each transition is persisted and logged. A failure mid-way leaves the row
// in its last state; no rollback is attempted, the sweep job repairs or
// reports stragglers.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*identity.User, error) {
	// Local duplicate check runs before any Keycloak call.
	if _, err := s.dir.FindByUsernameOrEmail(ctx, in.Username, in.Email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, identity.ErrUserNotFound) {
		return nil, fmt.Errorf("users: duplicate check: %w", err)
	}

	keycloakID, err := s.bridge.CreateUser(ctx, keycloak.NewUser{
		Username:  in.Username,
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	if err != nil {
		return nil, err
	}
	regID, err := s.regs.Record(ctx, keycloakID, in.Username, in.Email)
	if err != nil {
		s.log.WithError(err).WithField("keycloak_id", keycloakID).
			Error("remote identity created but registration row not recorded")
		return nil, err
	}
	s.transition(regID, StateRemoteCreated)

	if err := s.bridge.AssignRealmRole(ctx, keycloakID, string(identity.RoleUser)); err != nil {
		return nil, err
	}
	if err := s.regs.Advance(ctx, regID, StateRoleAssigned); err != nil {
		return nil, err
	}
	s.transition(regID, StateRoleAssigned)

	u, err := s.insertLocal(ctx, keycloakID, in)
	if err != nil {
		return nil, err
	}
	if err := s.regs.Advance(ctx, regID, StateComplete); err != nil {
		return nil, err
	}
	s.transition(regID, StateComplete)
	return u, nil
}

func (s *Service) insertLocal(ctx context.Context, keycloakID string, in RegisterInput) (*identity.User, error) {
	u := &identity.User{
		KeycloakID: keycloakID,
		Username:   in.Username,
		Email:      strptr(in.Email),
		FirstName:  strptr(in.FirstName),
		LastName:   strptr(in.LastName),
		Roles:      []identity.Role{identity.RoleUser},
		Active:     true,
	}
	return s.dir.Insert(ctx, u)
}

// UpdateProfile mirrors identity-provider-owned fields to Keycloak first,
// then updates the local record.
func (s *Service) UpdateProfile(ctx context.Context, keycloakID string, upd identity.ProfileUpdate) (*identity.User, error) {
	remote := keycloak.UserUpdate{Email: upd.Email, FirstName: upd.FirstName, LastName: upd.LastName}
	if remote.Email != nil || remote.FirstName != nil || remote.LastName != nil {
		if err := s.bridge.UpdateUser(ctx, keycloakID, remote); err != nil {
			return nil, err
		}
	}
	return s.dir.UpdateProfileByKeycloakID(ctx, keycloakID, upd)
}

// SetRole promotes to admin or demotes back to plain user, remote first,
// then mirrored locally via a conditional update.
func (s *Service) SetRole(ctx context.Context, id uuid.UUID, role identity.Role) (*identity.User, error) {
	u, err := s.dir.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch role {
	case identity.RoleAdmin:
		if u.HasRole(identity.RoleAdmin) {
			return u, nil
		}
		if err := s.bridge.AssignRealmRole(ctx, u.KeycloakID, string(identity.RoleAdmin)); err != nil {
			return nil, err
		}
		u.Roles = append(u.Roles, identity.RoleAdmin)
	case identity.RoleUser:
		if !u.HasRole(identity.RoleAdmin) {
			return u, nil
		}
		if err := s.bridge.RemoveRealmRole(ctx, u.KeycloakID, string(identity.RoleAdmin)); err != nil {
			return nil, err
		}
		u.Roles = withoutRole(u.Roles, identity.RoleAdmin)
	default:
		return nil, fmt.Errorf("users: unknown role %q", role)
	}
	if err := s.dir.SetRoles(ctx, id, u.Roles); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "roles": u.Roles}).Info("role set updated")
	return u, nil
}

// Deactivate marks the account inactive; records are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return s.setActive(ctx, id, false)
}

// Activate re-enables a deactivated account.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id uuid.UUID, active bool) (*identity.User, error) {
	u, err := s.dir.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.dir.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	u.Active = active
	return u, nil
}

// Get returns a user by surrogate id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return s.dir.GetByID(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]*identity.User, error) {
	return s.dir.List(ctx)
}

// RepairStuck re-drives registrations that stalled after the remote identity
// was created. It is idempotent: role assignment is re-attempted and the
// local insert is skipped when a record already exists.
func (s *Service) RepairStuck(ctx context.Context, age time.Duration) error {
	stuck, err := s.regs.ListStuck(ctx, age)
	if err != nil {
		return err
	}
	for _, reg := range stuck {
		log := s.log.WithFields(logrus.Fields{"registration": reg.ID, "state": reg.State, "username": reg.Username})
		log.Warn("found stalled registration")

		if reg.State == StateRemoteCreated {
			if err := s.bridge.AssignRealmRole(ctx, reg.KeycloakID, string(identity.RoleUser)); err != nil {
				log.WithError(err).Error("repair: role assignment failed")
				continue
			}
			if err := s.regs.Advance(ctx, reg.ID, StateRoleAssigned); err != nil {
				return err
			}
		}

		if _, err := s.dir.GetByKeycloakID(ctx, reg.KeycloakID); errors.Is(err, identity.ErrUserNotFound) {
			_, err = s.insertLocal(ctx, reg.KeycloakID, RegisterInput{Username: reg.Username, Email: reg.Email})
			if err != nil {
				log.WithError(err).Error("repair: local insert failed")
				continue
			}
		} else if err != nil {
			return err
		}
		if err := s.regs.Advance(ctx, reg.ID, StateComplete); err != nil {
			return err
		}
		log.Info("stalled registration repaired")
	}
	return nil
}

func (s *Service) transition(regID uuid.UUID, state string) {
	s.log.WithFields(logrus.Fields{"registration": regID, "state": state}).Info("registration state")
}

func strptr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func withoutRole(roles []identity.Role, drop identity.Role) []identity.Role {
	out := roles[:0]
	for _, r := range roles {
		if r != drop {
			out = append(out, r)
		}
	}
	return out
}
