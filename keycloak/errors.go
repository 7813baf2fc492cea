package keycloak

import "errors"

var (
	// ErrMissingToken is returned when no bearer token accompanies a request.
	ErrMissingToken = errors.New("keycloak: missing bearer token")
	// ErrMalformedToken is returned when the token is not a parseable JWT.
	ErrMalformedToken = errors.New("keycloak: malformed token")
	// ErrSignatureInvalid is returned when no published key verifies the token.
	ErrSignatureInvalid = errors.New("keycloak: token signature invalid")
	// ErrVerifierUnavailable is returned when verification could not be
	// attempted at all, e.g. because key material could not be obtained.
	ErrVerifierUnavailable = errors.New("keycloak: verifier unavailable")

	// ErrJWKSUnavailable means the JWKS endpoint could not be reached or
	// returned a non-success status.
	ErrJWKSUnavailable = errors.New("keycloak: jwks endpoint unavailable")
	// ErrJWKSMalformed means the JWKS response parsed but did not contain a
	// usable, non-empty key list. Kept distinct from ErrJWKSUnavailable so
	// operators can tell "Keycloak is down" from "we are misconfigured".
	ErrJWKSMalformed = errors.New("keycloak: jwks response malformed")

	// ErrUnavailable covers admin API connectivity failures.
	ErrUnavailable = errors.New("keycloak: unavailable")
	// ErrConflict is reported when Keycloak answers 409 on user creation.
	ErrConflict = errors.New("keycloak: user already exists")
	// ErrNotFound is reported when an admin lookup matches nothing.
	ErrNotFound = errors.New("keycloak: not found")
)

// ClaimError reports which claim check rejected a token. Checks run in a
// fixed order and short-circuit, so the reason identifies the first failure.
type ClaimError struct {
	Reason string
}

func (e *ClaimError) Error() string { return "keycloak: invalid claim: " + e.Reason }

// Claim rejection reasons, one per check.
const (
	ReasonIssuerMismatch   = "issuer mismatch"
	ReasonAudienceMismatch = "audience mismatch"
	ReasonAZPMismatch      = "authorized party mismatch"
	ReasonMissingExpiry    = "missing expiry"
	ReasonTokenExpired     = "token expired"
	ReasonMissingSubject   = "missing subject"
)
