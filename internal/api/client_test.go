package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"checkline/internal/api"
)

func newTestClient(url string) *api.Client {
	c := api.New(url, nil)
	c.RetryDelay = 5 * time.Millisecond
	return c
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"message":"hello","nonce":"n-1"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.AuthMessage(context.Background(), "0xabc", "0xkey")
	if err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if resp.Message != "hello" || resp.Nonce != "n-1" {
		t.Fatalf("unexpected challenge: %+v", resp)
	}
}

func TestRetryExhaustedSurfacesStatusAndBody(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.AuthMessage(context.Background(), "0xabc", "0xkey")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Body, "upstream down") {
		t.Fatalf("expected body fragment, got %q", apiErr.Body)
	}
}

func TestErrorBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.Retries = 1
	_, err := c.AuthMessage(context.Background(), "0xabc", "0xkey")
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if len(apiErr.Body) > 200 {
		t.Fatalf("expected body capped at 200 chars, got %d", len(apiErr.Body))
	}
}

func TestEmptySuccessBodyIsNullResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.Points(context.Background(), "tok", "u-1")
	if err != nil {
		t.Fatalf("empty body should not error: %v", err)
	}
	if resp.TotalPoints != 0 {
		t.Fatalf("expected untouched zero value, got %d", resp.TotalPoints)
	}
}

func TestUnparseableBodyFailsAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.Retries = 1
	_, err := c.AuthMessage(context.Background(), "0xabc", "0xkey")
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError for non-JSON body, got %v", err)
	}
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"totalPoints":5}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.Origin = "https://app.example.org"
	c.Referer = "https://app.example.org/"
	if _, err := c.Points(context.Background(), "tok-1", "u-1"); err != nil {
		t.Fatal(err)
	}
	if got.Get("Authorization") != "Bearer tok-1" {
		t.Fatalf("missing bearer header: %q", got.Get("Authorization"))
	}
	if got.Get("Content-Type") != "application/json" || got.Get("Accept") != "application/json" {
		t.Fatalf("missing json headers: %v", got)
	}
	if got.Get("Origin") != "https://app.example.org" {
		t.Fatalf("missing origin: %q", got.Get("Origin"))
	}
	if got.Get("X-Request-Id") == "" {
		t.Fatal("missing request id")
	}
}

func TestConcurrentFirstRequestsShareClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalPoints":1}`))
	}))
	defer srv.Close()

	// The loop worker and the interactive surface issue requests through
	// one shared client; the very first calls may land simultaneously.
	c := newTestClient(srv.URL)
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Points(context.Background(), "tok", "u-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent request: %v", err)
		}
	}
}

func TestUserAgentDrawnFromPool(t *testing.T) {
	agents := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents[r.Header.Get("User-Agent")] = true
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	for i := 0; i < 20; i++ {
		if _, err := c.AuthMessage(context.Background(), "0xabc", "0xkey"); err != nil {
			t.Fatal(err)
		}
	}
	for ua := range agents {
		if ua == "" || !strings.HasPrefix(ua, "Mozilla/5.0") {
			t.Fatalf("unexpected user agent %q", ua)
		}
	}
}
