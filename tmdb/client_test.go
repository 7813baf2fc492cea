package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestGetInjectsAPIKey(t *testing.T) {
	var sawKey atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawKey.Store(r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [{"id": 1}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", nil, time.Minute, logrus.New())
	body, status, err := c.Get(context.Background(), "/search/multi", url.Values{"query": {"dune"}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if sawKey.Load() != "secret-key" {
		t.Errorf("api_key = %v", sawKey.Load())
	}
	if len(body) == 0 {
		t.Error("empty body")
	}
}

func TestGetPassesThroughUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status_message": "not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", nil, time.Minute, logrus.New())
	_, status, err := c.Get(context.Background(), "/movie/0", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if status != http.StatusNotFound {
		t.Errorf("status = %d", status)
	}
}

func TestGetUnreachableUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(srv.URL, "k", nil, time.Minute, logrus.New())
	_, _, err := c.Get(context.Background(), "/movie/1", nil)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}
