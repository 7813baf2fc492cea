package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/keycloak"
)

type fakeBridge struct {
	created     []keycloak.NewUser
	createErr   error
	assignErr   error
	roles       map[string][]string // keycloak id -> realm roles
	updateCalls int
}

func newFakeBridge() *fakeBridge { return &fakeBridge{roles: map[string][]string{}} }

func (b *fakeBridge) CreateUser(_ context.Context, u keycloak.NewUser) (string, error) {
	if b.createErr != nil {
		return "", b.createErr
	}
	b.created = append(b.created, u)
	return "kc-" + u.Username, nil
}

func (b *fakeBridge) UpdateUser(_ context.Context, _ string, _ keycloak.UserUpdate) error {
	b.updateCalls++
	return nil
}

func (b *fakeBridge) AssignRealmRole(_ context.Context, id, role string) error {
	if b.assignErr != nil {
		return b.assignErr
	}
	b.roles[id] = append(b.roles[id], role)
	return nil
}

func (b *fakeBridge) RemoveRealmRole(_ context.Context, id, role string) error {
	kept := b.roles[id][:0]
	for _, r := range b.roles[id] {
		if r != role {
			kept = append(kept, r)
		}
	}
	b.roles[id] = kept
	return nil
}

func (b *fakeBridge) GetRealmRoles(_ context.Context, id string) ([]string, error) {
	return b.roles[id], nil
}

type fakeDir struct {
	users map[uuid.UUID]*identity.User
}

func newFakeDir() *fakeDir { return &fakeDir{users: map[uuid.UUID]*identity.User{}} }

func (d *fakeDir) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *fakeDir) GetByKeycloakID(_ context.Context, keycloakID string) (*identity.User, error) {
	for _, u := range d.users {
		if u.KeycloakID == keycloakID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (d *fakeDir) FindByUsernameOrEmail(_ context.Context, username, email string) (*identity.User, error) {
	for _, u := range d.users {
		if u.Username == username || (u.Email != nil && email != "" && *u.Email == email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (d *fakeDir) Insert(_ context.Context, u *identity.User) (*identity.User, error) {
	cp := *u
	cp.ID = uuid.New()
	d.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (d *fakeDir) UpdateProfileByKeycloakID(_ context.Context, keycloakID string, upd identity.ProfileUpdate) (*identity.User, error) {
	for _, u := range d.users {
		if u.KeycloakID == keycloakID {
			if upd.Email != nil {
				u.Email = upd.Email
			}
			if upd.FirstName != nil {
				u.FirstName = upd.FirstName
			}
			if upd.LastName != nil {
				u.LastName = upd.LastName
			}
			if upd.AvatarURL != nil {
				u.AvatarURL = upd.AvatarURL
			}
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (d *fakeDir) SetRoles(_ context.Context, id uuid.UUID, roles []identity.Role) error {
	u, ok := d.users[id]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.Roles = append([]identity.Role(nil), roles...)
	return nil
}

func (d *fakeDir) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := d.users[id]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.Active = active
	return nil
}

func (d *fakeDir) List(_ context.Context) ([]*identity.User, error) {
	out := make([]*identity.User, 0, len(d.users))
	for _, u := range d.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

type fakeRegs struct {
	rows map[uuid.UUID]*Registration
}

func newFakeRegs() *fakeRegs { return &fakeRegs{rows: map[uuid.UUID]*Registration{}} }

func (r *fakeRegs) Record(_ context.Context, keycloakID, username, email string) (uuid.UUID, error) {
	id := uuid.New()
	r.rows[id] = &Registration{ID: id, KeycloakID: keycloakID, Username: username, Email: email, State: StateRemoteCreated}
	return id, nil
}

func (r *fakeRegs) Advance(_ context.Context, id uuid.UUID, state string) error {
	row, ok := r.rows[id]
	if !ok {
		return errors.New("no such registration")
	}
	row.State = state
	return nil
}

func (r *fakeRegs) ListStuck(_ context.Context, _ time.Duration) ([]*Registration, error) {
	var out []*Registration
	for _, row := range r.rows {
		if row.State != StateComplete {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func testService() (*Service, *fakeDir, *fakeBridge, *fakeRegs) {
	dir := newFakeDir()
	bridge := newFakeBridge()
	regs := newFakeRegs()
	return NewService(dir, bridge, regs, logrus.New()), dir, bridge, regs
}

func TestRegisterHappyPath(t *testing.T) {
	svc, dir, bridge, regs := testService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.KeycloakID != "kc-alice" {
		t.Errorf("keycloak id = %q", u.KeycloakID)
	}
	if !u.HasRole(identity.RoleUser) {
		t.Errorf("roles = %v", u.Roles)
	}
	if got := bridge.roles["kc-alice"]; len(got) != 1 || got[0] != "user" {
		t.Errorf("remote roles = %v", got)
	}
	if _, err := dir.GetByKeycloakID(ctx, "kc-alice"); err != nil {
		t.Errorf("local record missing: %v", err)
	}
	for _, row := range regs.rows {
		if row.State != StateComplete {
			t.Errorf("registration left in state %q", row.State)
		}
	}
}

func TestRegisterLocalConflictSkipsRemote(t *testing.T) {
	svc, dir, bridge, _ := testService()
	ctx := context.Background()
	if _, err := dir.Insert(ctx, &identity.User{Username: "alice", KeycloakID: "kc-existing", Active: true}); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "pw"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if len(bridge.created) != 0 {
		t.Errorf("remote create attempted despite local conflict")
	}
}

func TestRegisterRemoteConflictPassesThrough(t *testing.T) {
	svc, _, bridge, _ := testService()
	bridge.createErr = keycloak.ErrConflict

	_, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "a@example.com", Password: "pw"})
	if !errors.Is(err, keycloak.ErrConflict) {
		t.Fatalf("err = %v, want keycloak.ErrConflict", err)
	}
}

func TestRegisterStallsAfterRoleFailure(t *testing.T) {
	svc, dir, bridge, regs := testService()
	bridge.assignErr = errors.New("keycloak hiccup")

	_, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "a@example.com", Password: "pw"})
	if err == nil {
		t.Fatal("expected error")
	}
	// No rollback: the row stays at remote_created and no local record exists.
	var states []string
	for _, row := range regs.rows {
		states = append(states, row.State)
	}
	if len(states) != 1 || states[0] != StateRemoteCreated {
		t.Fatalf("registration states = %v, want [remote_created]", states)
	}
	if _, err := dir.GetByKeycloakID(context.Background(), "kc-alice"); !errors.Is(err, identity.ErrUserNotFound) {
		t.Errorf("local record should not exist, got err %v", err)
	}
}

func TestRepairStuckFinishesRegistration(t *testing.T) {
	svc, dir, bridge, regs := testService()
	ctx := context.Background()

	bridge.assignErr = errors.New("keycloak hiccup")
	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "pw"}); err == nil {
		t.Fatal("expected stall")
	}

	bridge.assignErr = nil
	if err := svc.RepairStuck(ctx, 0); err != nil {
		t.Fatalf("RepairStuck: %v", err)
	}

	u, err := dir.GetByKeycloakID(ctx, "kc-alice")
	if err != nil {
		t.Fatalf("local record missing after repair: %v", err)
	}
	if !u.HasRole(identity.RoleUser) {
		t.Errorf("roles = %v", u.Roles)
	}
	for _, row := range regs.rows {
		if row.State != StateComplete {
			t.Errorf("registration left in state %q", row.State)
		}
	}

	// A second sweep is a no-op.
	if err := svc.RepairStuck(ctx, 0); err != nil {
		t.Fatalf("RepairStuck (second): %v", err)
	}
	if got := len(bridge.roles["kc-alice"]); got != 1 {
		t.Errorf("role assigned %d times", got)
	}
}

func TestSetRoleRoundTrip(t *testing.T) {
	svc, _, bridge, _ := testService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	promoted, err := svc.SetRole(ctx, u.ID, identity.RoleAdmin)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if !promoted.HasRole(identity.RoleAdmin) || !promoted.HasRole(identity.RoleUser) {
		t.Errorf("roles after promote = %v", promoted.Roles)
	}

	demoted, err := svc.SetRole(ctx, u.ID, identity.RoleUser)
	if err != nil {
		t.Fatalf("demote: %v", err)
	}
	if demoted.HasRole(identity.RoleAdmin) {
		t.Errorf("roles after demote = %v", demoted.Roles)
	}
	if len(demoted.Roles) != 1 || demoted.Roles[0] != identity.RoleUser {
		t.Errorf("demote should leave exactly the user role, got %v", demoted.Roles)
	}
	if got := bridge.roles["kc-alice"]; len(got) != 1 || got[0] != "user" {
		t.Errorf("remote roles = %v", got)
	}
}

func TestSetRolePromoteIsIdempotent(t *testing.T) {
	svc, _, bridge, _ := testService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetRole(ctx, u.ID, identity.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetRole(ctx, u.ID, identity.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	var adminAssignments int
	for _, r := range bridge.roles["kc-alice"] {
		if r == "admin" {
			adminAssignments++
		}
	}
	if adminAssignments != 1 {
		t.Errorf("admin role assigned %d times", adminAssignments)
	}
}

func TestSetRoleUnknownRole(t *testing.T) {
	svc, _, _, _ := testService()
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetRole(ctx, u.ID, identity.Role("superuser")); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestDeactivateActivate(t *testing.T) {
	svc, dir, _, _ := testService()
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Deactivate(ctx, u.ID)
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if got.Active {
		t.Error("user still active")
	}
	stored, _ := dir.GetByID(ctx, u.ID)
	if stored.Active {
		t.Error("stored record still active")
	}

	got, err = svc.Activate(ctx, u.ID)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !got.Active {
		t.Error("user not reactivated")
	}
}

func TestUpdateProfileMirrorsRemoteFirst(t *testing.T) {
	svc, _, bridge, _ := testService()
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	email := "new@example.com"
	updated, err := svc.UpdateProfile(ctx, u.KeycloakID, identity.ProfileUpdate{Email: &email})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Email == nil || *updated.Email != email {
		t.Errorf("email = %v", updated.Email)
	}
	if bridge.updateCalls != 1 {
		t.Errorf("remote update calls = %d", bridge.updateCalls)
	}

	// Avatar-only updates are local; Keycloak owns no avatar field.
	avatar := "/media/avatars/abc.png"
	if _, err := svc.UpdateProfile(ctx, u.KeycloakID, identity.ProfileUpdate{AvatarURL: &avatar}); err != nil {
		t.Fatalf("UpdateProfile (avatar): %v", err)
	}
	if bridge.updateCalls != 1 {
		t.Errorf("avatar update hit the identity provider, calls = %d", bridge.updateCalls)
	}
}
