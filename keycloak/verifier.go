package keycloak

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Verifier validates bearer tokens issued by the realm and produces a typed
// ClaimSet. Claim checks are itemized and ordered so rejections stay
// diagnosable: wrong realm, wrong app, expired, and malformed subject all
// fail with distinct reasons.
type Verifier struct {
	keys     *KeyProvider
	issuer   string
	audience string
	clientID string
	now      func() time.Time
}

// NewVerifier builds a verifier bound to the expected issuer, audience, and
// client id.
func NewVerifier(keys *KeyProvider, issuer, audience, clientID string) *Verifier {
	return &Verifier{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		clientID: clientID,
		now:      time.Now,
	}
}

// VerifyHeader strips the Bearer prefix from an Authorization header value
// and verifies the remaining token.
func (v *Verifier) VerifyHeader(ctx context.Context, header string) (*ClaimSet, error) {
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return v.Verify(ctx, token)
}

// Verify validates the raw token string.
func (v *Verifier) Verify(ctx context.Context, token string) (*ClaimSet, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformedToken
	}

	set, err := v.keys.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerifierUnavailable, err)
	}

	parsed, err := v.parseAgainst(ctx, token, set)
	if err != nil {
		// The cached set may predate a key rotation. Refresh once and retry
		// before rejecting; a fresh-key token must not fail on stale cache.
		fresh, rerr := v.keys.Refresh(ctx)
		if rerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
		parsed, err = v.parseAgainst(ctx, token, fresh)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
	}

	// Ordered claim checks, short-circuiting on the first failure.
	if parsed.Issuer() != v.issuer {
		return nil, &ClaimError{Reason: ReasonIssuerMismatch}
	}
	aud := parsed.Audience()
	if !containsString(aud, v.audience) {
		return nil, &ClaimError{Reason: ReasonAudienceMismatch}
	}
	azp := stringClaim(parsed, "azp")
	if azp != v.clientID {
		return nil, &ClaimError{Reason: ReasonAZPMismatch}
	}
	exp := parsed.Expiration()
	if exp.IsZero() {
		return nil, &ClaimError{Reason: ReasonMissingExpiry}
	}
	if !exp.After(v.now()) {
		return nil, &ClaimError{Reason: ReasonTokenExpired}
	}
	sub := parsed.Subject()
	if strings.TrimSpace(sub) == "" {
		return nil, &ClaimError{Reason: ReasonMissingSubject}
	}

	return &ClaimSet{
		Subject:           sub,
		Issuer:            parsed.Issuer(),
		Audience:          aud,
		AuthorizedParty:   azp,
		ExpiresAt:         exp,
		Roles:             realmRoles(parsed),
		PreferredUsername: stringClaim(parsed, "preferred_username"),
		Email:             stringClaim(parsed, "email"),
	}, nil
}

// parseAgainst verifies the signature only; claim validation is done by the
// caller so each failure carries its own reason.
func (v *Verifier) parseAgainst(ctx context.Context, token string, set jwk.Set) (jwt.Token, error) {
	return jwt.ParseString(
		token,
		jwt.WithContext(ctx),
		jwt.WithKeySet(set, jws.WithRequireKid(false)),
		jwt.WithValidate(false),
	)
}

func realmRoles(tok jwt.Token) []string {
	raw, ok := tok.Get("realm_access")
	if !ok {
		return nil
	}
	access, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	rawRoles, ok := access["roles"].([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(rawRoles))
	for _, r := range rawRoles {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

func stringClaim(tok jwt.Token, name string) string {
	raw, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
