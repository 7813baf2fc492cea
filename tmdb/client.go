package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrUpstream wraps non-success responses from the metadata API.
var ErrUpstream = fmt.Errorf("tmdb: upstream error")

// Client forwards metadata queries to the movie database, injecting the API
// key server-side so it never reaches browsers. The client is stateless
// apart from an optional short-TTL Redis response cache.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	rdb     *redis.Client
	ttl     time.Duration
	log     logrus.FieldLogger
}

// NewClient builds a proxy client. rdb may be nil to disable caching.
func NewClient(baseURL, apiKey string, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Client {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		rdb:     rdb,
		ttl:     ttl,
		log:     log,
	}
}

// Get fetches a TMDB path with the given query parameters and returns the
// raw body and status. Successful responses are cached; the cache key never
// contains the API key.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	if params == nil {
		params = url.Values{}
	}
	cacheKey := "tmdb:" + path + "?" + params.Encode()

	if c.rdb != nil {
		if cached, err := c.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			return cached, http.StatusOK, nil
		}
	}

	params.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode == http.StatusOK && c.rdb != nil {
		if err := c.rdb.Set(ctx, cacheKey, body, c.ttl).Err(); err != nil {
			c.log.WithError(err).Debug("tmdb cache write failed")
		}
	}
	return body, resp.StatusCode, nil
}
