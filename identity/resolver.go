package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/streamtrack/streamtrack/keycloak"
)

// UserStore is the slice of the store the resolver depends on.
type UserStore interface {
	GetByKeycloakID(ctx context.Context, keycloakID string) (*User, error)
	Provision(ctx context.Context, keycloakID, username string, email *string) (*User, error)
}

// Resolver maps a verified claim set to a local user record, provisioning
// one lazily on first sight and rejecting deactivated accounts.
//
// When the store is unreachable the resolver fails closed by default: the
// deactivation check cannot run, so the request is rejected. WithFailOpen
// restores the older behavior of letting the request through with a
// claims-derived identity; that trade favors availability over revocation.
type Resolver struct {
	store    UserStore
	log      logrus.FieldLogger
	failOpen bool
}

// ResolverOpt configures a Resolver.
type ResolverOpt func(*Resolver)

// WithFailOpen tolerates a store outage during resolution instead of
// rejecting the request.
func WithFailOpen() ResolverOpt {
	return func(r *Resolver) { r.failOpen = true }
}

// NewResolver builds a resolver over the given store.
func NewResolver(store UserStore, log logrus.FieldLogger, opts ...ResolverOpt) *Resolver {
	r := &Resolver{store: store, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the local user for a verified claim set.
func (r *Resolver) Resolve(ctx context.Context, claims *keycloak.ClaimSet) (*User, error) {
	u, err := r.store.GetByKeycloakID(ctx, claims.Subject)
	switch {
	case err == nil:
		if !u.Active {
			return nil, ErrDeactivated
		}
		return u, nil
	case errors.Is(err, ErrUserNotFound):
		return r.provision(ctx, claims)
	default:
		if r.failOpen {
			r.log.WithError(err).WithField("subject", claims.Subject).
				Warn("user store unavailable; resolving from claims without deactivation check")
			return fromClaims(claims), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func (r *Resolver) provision(ctx context.Context, claims *keycloak.ClaimSet) (*User, error) {
	username := syntheticUsername(claims)
	var email *string
	if claims.Email != "" {
		e := claims.Email
		email = &e
	}
	u, err := r.store.Provision(ctx, claims.Subject, username, email)
	if err != nil {
		if r.failOpen {
			r.log.WithError(err).WithField("subject", claims.Subject).
				Warn("user store unavailable during provisioning; resolving from claims")
			return fromClaims(claims), nil
		}
		return nil, fmt.Errorf("%w: provisioning failed: %v", ErrStoreUnavailable, err)
	}
	if !u.Active {
		return nil, ErrDeactivated
	}
	r.log.WithFields(logrus.Fields{"subject": claims.Subject, "user_id": u.ID}).
		Info("lazily provisioned local user")
	return u, nil
}

// syntheticUsername prefers the token's preferred_username and falls back to
// a name derived from the external identity key.
func syntheticUsername(claims *keycloak.ClaimSet) string {
	if v := strings.TrimSpace(claims.PreferredUsername); v != "" {
		return v
	}
	sub := claims.Subject
	if len(sub) > 8 {
		sub = sub[:8]
	}
	return "user_" + sub
}

// fromClaims builds an unsynchronized identity used only on the fail-open
// path. The surrogate id is zero; role data comes from the token.
func fromClaims(claims *keycloak.ClaimSet) *User {
	roles := make([]Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		if ValidRole(r) {
			roles = append(roles, Role(r))
		}
	}
	var email *string
	if claims.Email != "" {
		e := claims.Email
		email = &e
	}
	return &User{
		KeycloakID: claims.Subject,
		Username:   syntheticUsername(claims),
		Email:      email,
		Roles:      roles,
		Active:     true,
	}
}
