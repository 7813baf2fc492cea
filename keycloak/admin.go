package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// AdminClient is the privileged bridge to Keycloak's admin REST API. It is
// constructed once at process start and passed to the components that need
// it; there is no lazily-initialized global.
//
// Every operation obtains a fresh short-lived admin token via the password
// grant against the master realm. The token is never persisted or reused
// across logical operations.
type AdminClient struct {
	baseURL string
	realm   string
	oauth   *oauth2.Config
	user    string
	pass    string
	client  *http.Client
	log     logrus.FieldLogger
}

// NewUser carries the fields for remote user creation.
type NewUser struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserUpdate carries partial fields for a remote update. Nil fields are
// omitted from the request.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// NewAdminClient builds an admin bridge for the given Keycloak server and
// realm, authenticating as the admin-cli client.
func NewAdminClient(baseURL, realm, adminUser, adminPass string, client *http.Client, log logrus.FieldLogger) *AdminClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	base := strings.TrimRight(baseURL, "/")
	return &AdminClient{
		baseURL: base,
		realm:   realm,
		oauth: &oauth2.Config{
			ClientID: "admin-cli",
			Endpoint: oauth2.Endpoint{
				TokenURL: base + "/realms/master/protocol/openid-connect/token",
			},
		},
		user:   adminUser,
		pass:   adminPass,
		client: client,
		log:    log,
	}
}

// adminToken performs the password-grant exchange for a fresh admin token.
func (c *AdminClient) adminToken(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	tok, err := c.oauth.PasswordCredentialsToken(ctx, c.user, c.pass)
	if err != nil {
		return "", fmt.Errorf("%w: admin token exchange: %v", ErrUnavailable, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty admin access token", ErrUnavailable)
	}
	return tok.AccessToken, nil
}

// CreateUser creates a user in the realm and returns its Keycloak id.
// A 409 from Keycloak is surfaced as ErrConflict.
func (c *AdminClient) CreateUser(ctx context.Context, u NewUser) (string, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return "", err
	}
	body := map[string]interface{}{
		"username":      u.Username,
		"email":         u.Email,
		"enabled":       true,
		"emailVerified": true,
		"credentials": []map[string]interface{}{{
			"type":      "password",
			"value":     u.Password,
			"temporary": false,
		}},
	}
	if u.FirstName != "" {
		body["firstName"] = u.FirstName
	}
	if u.LastName != "" {
		body["lastName"] = u.LastName
	}
	resp, err := c.do(ctx, http.MethodPost, c.realmPath("/users"), token, body, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusConflict:
		return "", ErrConflict
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("%w: create user: status %s", ErrUnavailable, resp.Status)
	}
	// Keycloak returns the new id as the trailing segment of the Location
	// header; older versions omit it, so fall back to a username lookup.
	if loc := resp.Header.Get("Location"); loc != "" {
		parts := strings.Split(strings.TrimRight(loc, "/"), "/")
		if id := parts[len(parts)-1]; id != "" {
			return id, nil
		}
	}
	return c.GetUserIDByUsername(ctx, u.Username)
}

// GetUserIDByUsername looks up a realm user id by exact username.
func (c *AdminClient) GetUserIDByUsername(ctx context.Context, username string) (string, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return "", err
	}
	q := url.Values{"username": {username}, "exact": {"true"}}
	resp, err := c.do(ctx, http.MethodGet, c.realmPath("/users"), token, nil, q)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: user lookup: status %s", ErrUnavailable, resp.Status)
	}
	var users []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return "", fmt.Errorf("%w: user lookup: %v", ErrUnavailable, err)
	}
	if len(users) == 0 {
		return "", ErrNotFound
	}
	return users[0].ID, nil
}

// UpdateUser applies a partial update to a realm user. A nil-only update is
// a no-op.
func (c *AdminClient) UpdateUser(ctx context.Context, id string, upd UserUpdate) error {
	body := map[string]interface{}{}
	if upd.Email != nil {
		body["email"] = *upd.Email
	}
	if upd.FirstName != nil {
		body["firstName"] = *upd.FirstName
	}
	if upd.LastName != nil {
		body["lastName"] = *upd.LastName
	}
	if len(body) == 0 {
		return nil
	}
	token, err := c.adminToken(ctx)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, c.realmPath("/users/"+id), token, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: update user: status %s", ErrUnavailable, resp.Status)
	}
	return nil
}

// AssignRealmRole maps a realm role onto a user.
func (c *AdminClient) AssignRealmRole(ctx context.Context, id, role string) error {
	return c.mapRealmRole(ctx, http.MethodPost, id, role)
}

// RemoveRealmRole removes a realm role mapping from a user.
func (c *AdminClient) RemoveRealmRole(ctx context.Context, id, role string) error {
	return c.mapRealmRole(ctx, http.MethodDelete, id, role)
}

func (c *AdminClient) mapRealmRole(ctx context.Context, method, id, role string) error {
	token, err := c.adminToken(ctx)
	if err != nil {
		return err
	}
	// Role mappings are posted as the full role descriptor, so resolve it
	// first.
	resp, err := c.do(ctx, http.MethodGet, c.realmPath("/roles/"+role), token, nil, nil)
	if err != nil {
		return err
	}
	descriptor := map[string]interface{}{}
	func() {
		defer resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			err = json.NewDecoder(resp.Body).Decode(&descriptor)
		} else {
			err = fmt.Errorf("%w: role lookup: status %s", ErrUnavailable, resp.Status)
		}
	}()
	if err != nil {
		return err
	}
	resp, err = c.do(ctx, method, c.realmPath("/users/"+id+"/role-mappings/realm"), token, []interface{}{descriptor}, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: role mapping: status %s", ErrUnavailable, resp.Status)
	}
	return nil
}

// GetRealmRoles returns the names of the realm roles mapped to a user.
func (c *AdminClient) GetRealmRoles(ctx context.Context, id string) ([]string, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, c.realmPath("/users/"+id+"/role-mappings/realm"), token, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: role mappings: status %s", ErrUnavailable, resp.Status)
	}
	var mapped []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&mapped); err != nil {
		return nil, fmt.Errorf("%w: role mappings: %v", ErrUnavailable, err)
	}
	names := make([]string, 0, len(mapped))
	for _, m := range mapped {
		names = append(names, m.Name)
	}
	return names, nil
}

func (c *AdminClient) realmPath(suffix string) string {
	return c.baseURL + "/admin/realms/" + c.realm + suffix
}

func (c *AdminClient) do(ctx context.Context, method, rawurl, token string, body interface{}, query url.Values) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	if len(query) > 0 {
		rawurl += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, rawurl, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}
