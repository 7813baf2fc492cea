package keycloak

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
)

// KeyProvider fetches and caches Keycloak's realm signing keys.
//
// The cached set is replaced wholesale behind an atomic pointer so concurrent
// verifications never observe a partially updated set. Staleness is handled by
// the Verifier: a signature failure against a cached set triggers one forced
// refresh before the request is rejected.
type KeyProvider struct {
	url    string
	client *http.Client
	log    logrus.FieldLogger

	cached atomic.Pointer[keyCache]
}

type keyCache struct {
	set       jwk.Set
	fetchedAt time.Time
}

// NewKeyProvider builds a provider for the given JWKS endpoint.
func NewKeyProvider(jwksURL string, client *http.Client, log logrus.FieldLogger) *KeyProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeyProvider{url: jwksURL, client: client, log: log}
}

// Keys returns the current key set, fetching it on first use.
func (p *KeyProvider) Keys(ctx context.Context) (jwk.Set, error) {
	if c := p.cached.Load(); c != nil {
		return c.set, nil
	}
	return p.Refresh(ctx)
}

// Refresh fetches the key set and atomically replaces the cache on success.
// A failed fetch leaves any previously cached set in place.
func (p *KeyProvider) Refresh(ctx context.Context) (jwk.Set, error) {
	set, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	p.cached.Store(&keyCache{set: set, fetchedAt: time.Now()})
	p.log.WithField("keys", set.Len()).Debug("jwks refreshed")
	return set, nil
}

// FetchedAt reports when the cached set was last replaced.
func (p *KeyProvider) FetchedAt() (time.Time, bool) {
	c := p.cached.Load()
	if c == nil {
		return time.Time{}, false
	}
	return c.fetchedAt, true
}

func (p *KeyProvider) fetch(ctx context.Context) (jwk.Set, error) {
	if p.url == "" {
		return nil, fmt.Errorf("%w: jwks url not configured", ErrJWKSMalformed)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSUnavailable, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %s", ErrJWKSUnavailable, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSUnavailable, err)
	}
	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSMalformed, err)
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: empty key list", ErrJWKSMalformed)
	}
	// Pin the verification algorithm to the realm's configured RS256. The
	// token header is never consulted for algorithm selection, which closes
	// off algorithm-confusion downgrades.
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrJWKSMalformed, err)
		}
	}
	return set, nil
}
