package authgin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/keycloak"
	"github.com/streamtrack/streamtrack/testkit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubStore struct {
	mu    sync.Mutex
	users map[string]*identity.User
	gets  int
	fail  error
}

func newStubStore() *stubStore { return &stubStore{users: map[string]*identity.User{}} }

func (s *stubStore) GetByKeycloakID(_ context.Context, keycloakID string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.fail != nil {
		return nil, s.fail
	}
	u, ok := s.users[keycloakID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubStore) Provision(_ context.Context, keycloakID, username string, email *string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	u := &identity.User{ID: uuid.New(), KeycloakID: keycloakID, Username: username, Email: email, Roles: []identity.Role{identity.RoleUser}, Active: true}
	s.users[keycloakID] = u
	cp := *u
	return &cp, nil
}

type stubAuditor struct {
	mu     sync.Mutex
	events int
}

func (a *stubAuditor) LogAuth(_ context.Context, _, _, _, _ string) {
	a.mu.Lock()
	a.events++
	a.mu.Unlock()
}

type authFixture struct {
	realm   *testkit.Realm
	store   *stubStore
	auditor *stubAuditor
	router  *gin.Engine
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	realm := testkit.NewRealm("streamtrack", "streamtrack-frontend")
	t.Cleanup(realm.Close)

	keys := keycloak.NewKeyProvider(realm.JWKSURL(), nil, logrus.New())
	verifier := keycloak.NewVerifier(keys, realm.Issuer(), realm.ClientID(), realm.ClientID())

	store := newStubStore()
	resolver := identity.NewResolver(store, logrus.New())
	auditor := &stubAuditor{}

	r := gin.New()
	protected := r.Group("", AuthRequired(verifier, resolver, auditor))
	protected.GET("/me", func(c *gin.Context) {
		u, _ := UserFrom(c)
		c.JSON(http.StatusOK, u)
	})
	admin := protected.Group("/admin", RequireRole(identity.RoleAdmin))
	admin.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})

	return &authFixture{realm: realm, store: store, auditor: auditor, router: r}
}

func (f *authFixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errCategory(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	return body.Error
}

func TestAuthRequiredHappyPath(t *testing.T) {
	f := newAuthFixture(t)
	token := f.realm.Token("kc-1", testkit.WithUsername("alice"))

	w := f.get("/me", token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var u identity.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}
	if u.Username != "alice" || u.KeycloakID != "kc-1" {
		t.Errorf("resolved user = %+v", u)
	}
	if f.auditor.events != 1 {
		t.Errorf("audit events = %d", f.auditor.events)
	}
}

func TestAuthRequiredNoToken(t *testing.T) {
	f := newAuthFixture(t)
	w := f.get("/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if errCategory(t, w) != "unauthenticated" {
		t.Errorf("category = %q", errCategory(t, w))
	}
}

func TestAuthRequiredClaimFailureSkipsStore(t *testing.T) {
	f := newAuthFixture(t)
	token := f.realm.Token("kc-1", testkit.WithClaim("aud", "another-client"))

	w := f.get("/me", token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if f.store.gets != 0 {
		t.Errorf("store consulted %d times for a rejected token", f.store.gets)
	}
	if f.auditor.events != 0 {
		t.Errorf("audit events = %d for a rejected token", f.auditor.events)
	}
}

func TestAuthRequiredDeactivated(t *testing.T) {
	f := newAuthFixture(t)
	if _, err := f.store.Provision(context.Background(), "kc-1", "alice", nil); err != nil {
		t.Fatal(err)
	}
	f.store.users["kc-1"].Active = false

	w := f.get("/me", f.realm.Token("kc-1"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthRequiredStoreOutage(t *testing.T) {
	f := newAuthFixture(t)
	f.store.fail = context.DeadlineExceeded

	w := f.get("/me", f.realm.Token("kc-1"))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
	if errCategory(t, w) != "unavailable" {
		t.Errorf("category = %q", errCategory(t, w))
	}
}

func TestRequireRoleForbidsPlainUser(t *testing.T) {
	f := newAuthFixture(t)
	// Lazy provisioning grants only the user role.
	w := f.get("/admin/ping", f.realm.Token("kc-1"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
	if errCategory(t, w) != "forbidden" {
		t.Errorf("category = %q", errCategory(t, w))
	}
}

func TestRequireRoleChecksStoreNotToken(t *testing.T) {
	f := newAuthFixture(t)
	if _, err := f.store.Provision(context.Background(), "kc-1", "alice", nil); err != nil {
		t.Fatal(err)
	}

	// Token claims admin, but the local record says plain user. The guard
	// trusts the store.
	w := f.get("/admin/ping", f.realm.Token("kc-1", testkit.WithRoles("user", "admin")))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want forbidden", w.Code)
	}

	f.store.users["kc-1"].Roles = []identity.Role{identity.RoleUser, identity.RoleAdmin}
	w = f.get("/admin/ping", f.realm.Token("kc-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d after local promotion, body %s", w.Code, w.Body)
	}
}
