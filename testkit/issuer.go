// Package testkit provides a fake Keycloak realm for tests. It runs an HTTP
// server that serves JWKS at the realm certs path and mints tokens shaped the
// way Keycloak shapes them, so verifier and middleware tests run without a
// real identity provider.
//
// Example usage:
//
//	realm := testkit.NewRealm("streamtrack", "streamtrack-api")
//	defer realm.Close()
//
//	token := realm.Token("user-123", testkit.WithRoles("user"))
package testkit

import (
	"net/http"
	"net/http/httptest"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Realm is a mock Keycloak realm. Tokens it signs validate against the JWKS
// it serves.
type Realm struct {
	server   *httptest.Server
	signer   *RSASigner
	name     string
	clientID string
}

// NewRealm creates a realm with a fresh RSA key pair. Call Close when done.
func NewRealm(name, clientID string) *Realm {
	signer, err := NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}

	rl := &Realm{signer: signer, name: name, clientID: clientID}

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/"+name+"/protocol/openid-connect/certs", rl.handleJWKS)
	rl.server = httptest.NewServer(mux)
	return rl
}

// Issuer returns the issuer URL for this realm, as Keycloak would emit it.
func (rl *Realm) Issuer() string {
	return rl.server.URL + "/realms/" + rl.name
}

// JWKSURL returns the certs endpoint URL.
func (rl *Realm) JWKSURL() string {
	return rl.server.URL + "/realms/" + rl.name + "/protocol/openid-connect/certs"
}

// ClientID returns the audience tokens are minted for.
func (rl *Realm) ClientID() string { return rl.clientID }

// Signer exposes the realm's key for tests that need to mint tokens with a
// foreign key or serve the JWKS themselves.
func (rl *Realm) Signer() *RSASigner { return rl.signer }

// RotateKey swaps in a new key pair. Previously minted tokens stop
// validating against the JWKS from this point on.
func (rl *Realm) RotateKey() {
	signer, err := NewRSASigner(2048, "test-key-2")
	if err != nil {
		panic("failed to rotate RSA signer: " + err.Error())
	}
	rl.signer = signer
}

// Close shuts down the test server.
func (rl *Realm) Close() {
	if rl.server != nil {
		rl.server.Close()
	}
}

func (rl *Realm) handleJWKS(w http.ResponseWriter, r *http.Request) {
	jwk := RSAPublicToJWK(rl.signer.PublicKey(), rl.signer.KID())
	ServeJWKS(w, r, JWKS{Keys: []JWK{jwk}})
}

// TokenOption mutates the claim map before signing.
type TokenOption func(jwt.MapClaims)

// WithRoles sets realm_access.roles.
func WithRoles(roles ...string) TokenOption {
	return func(c jwt.MapClaims) {
		c["realm_access"] = map[string]any{"roles": roles}
	}
}

// WithClaim sets or removes (v == nil) an arbitrary claim.
func WithClaim(name string, v any) TokenOption {
	return func(c jwt.MapClaims) {
		if v == nil {
			delete(c, name)
			return
		}
		c[name] = v
	}
}

// WithExpiry overrides exp.
func WithExpiry(t time.Time) TokenOption {
	return func(c jwt.MapClaims) { c["exp"] = t.Unix() }
}

// WithUsername sets preferred_username.
func WithUsername(u string) TokenOption {
	return func(c jwt.MapClaims) { c["preferred_username"] = u }
}

// Token mints a signed token for subject with Keycloak-shaped defaults:
// iss, aud, azp, exp, iat, preferred_username and an empty realm_access.
func (rl *Realm) Token(subject string, opts ...TokenOption) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":                subject,
		"iss":                rl.Issuer(),
		"aud":                rl.clientID,
		"azp":                rl.clientID,
		"exp":                now.Add(time.Hour).Unix(),
		"iat":                now.Unix(),
		"preferred_username": "user-" + subject,
		"realm_access":       map[string]any{"roles": []string{}},
	}
	for _, opt := range opts {
		opt(claims)
	}
	token, err := rl.signer.Sign(claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

// ExpiredToken mints a token whose exp is already in the past.
func (rl *Realm) ExpiredToken(subject string, opts ...TokenOption) string {
	opts = append([]TokenOption{WithExpiry(time.Now().Add(-time.Hour))}, opts...)
	return rl.Token(subject, opts...)
}
