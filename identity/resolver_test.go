package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/streamtrack/streamtrack/keycloak"
)

// memStore is an in-memory UserStore with an injectable failure.
type memStore struct {
	mu         sync.Mutex
	byKC       map[string]*User
	provisions int
	fail       error
}

func newMemStore() *memStore {
	return &memStore{byKC: map[string]*User{}}
}

func (s *memStore) GetByKeycloakID(_ context.Context, keycloakID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	u, ok := s.byKC[keycloakID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) Provision(_ context.Context, keycloakID, username string, email *string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	if u, ok := s.byKC[keycloakID]; ok {
		cp := *u
		return &cp, nil
	}
	s.provisions++
	u := &User{
		ID:         uuid.New(),
		KeycloakID: keycloakID,
		Username:   username,
		Email:      email,
		Roles:      []Role{RoleUser},
		Active:     true,
	}
	s.byKC[keycloakID] = u
	cp := *u
	return &cp, nil
}

func claimsFor(sub, username string) *keycloak.ClaimSet {
	return &keycloak.ClaimSet{Subject: sub, PreferredUsername: username}
}

func TestResolveProvisionsOnFirstSight(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, logrus.New())
	ctx := context.Background()

	u, err := r.Resolve(ctx, claimsFor("kc-1", "alice"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("username = %q", u.Username)
	}
	if !u.HasRole(RoleUser) {
		t.Errorf("roles = %v, want default user role", u.Roles)
	}

	// Second resolution returns the same record, no second provision.
	again, err := r.Resolve(ctx, claimsFor("kc-1", "alice"))
	if err != nil {
		t.Fatalf("Resolve (second): %v", err)
	}
	if again.ID != u.ID {
		t.Errorf("id changed between resolutions: %s vs %s", again.ID, u.ID)
	}
	if store.provisions != 1 {
		t.Errorf("provisions = %d, want 1", store.provisions)
	}
}

func TestResolveConcurrentFirstSight(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, logrus.New())

	const n = 16
	ids := make([]uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := r.Resolve(context.Background(), claimsFor("kc-racy", "bob"))
			if err != nil {
				t.Errorf("Resolve: %v", err)
				return
			}
			ids[i] = u.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("divergent surrogate ids: %s vs %s", ids[i], ids[0])
		}
	}
}

func TestResolveSyntheticUsernameFallback(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, logrus.New())

	u, err := r.Resolve(context.Background(), claimsFor("0123456789abcdef", ""))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if u.Username != "user_01234567" {
		t.Errorf("username = %q", u.Username)
	}
}

func TestResolveDeactivated(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	if _, err := store.Provision(ctx, "kc-1", "alice", nil); err != nil {
		t.Fatal(err)
	}
	store.byKC["kc-1"].Active = false

	r := NewResolver(store, logrus.New())
	if _, err := r.Resolve(ctx, claimsFor("kc-1", "alice")); !errors.Is(err, ErrDeactivated) {
		t.Fatalf("err = %v, want ErrDeactivated", err)
	}
}

func TestResolveStoreOutageFailsClosed(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("connection refused")

	r := NewResolver(store, logrus.New())
	_, err := r.Resolve(context.Background(), claimsFor("kc-1", "alice"))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestResolveStoreOutageFailOpen(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("connection refused")

	r := NewResolver(store, logrus.New(), WithFailOpen())
	cs := claimsFor("kc-1", "alice")
	cs.Roles = []string{"admin", "unknown-role"}

	u, err := r.Resolve(context.Background(), cs)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if u.ID != uuid.Nil {
		t.Errorf("fail-open identity carries surrogate id %s", u.ID)
	}
	if !u.HasRole(RoleAdmin) {
		t.Errorf("roles = %v, want token admin role", u.Roles)
	}
	if len(u.Roles) != 1 {
		t.Errorf("unknown roles should be dropped, got %v", u.Roles)
	}
}
