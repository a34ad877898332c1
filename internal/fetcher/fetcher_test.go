package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/nao1215/knowledgemesh/internal/urlnorm"
)

// testLogger returns a debug-level logger writing to buf so tests can
// count attempt records.
func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// normalizeServerURL normalizes an httptest server URL for Fetch.
func normalizeServerURL(t *testing.T, raw string) string {
	t.Helper()
	normalized, err := urlnorm.Normalize(raw)
	if err != nil {
		t.Fatalf("failed to normalize server URL %q: %v", raw, err)
	}
	return normalized
}

// TestFetcherFetch tests the happy path and guards.
func TestFetcherFetch(t *testing.T) {
	t.Parallel()

	t.Run("fetches text title and links", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `<html><head><title>Go</title></head><body>
				<p>The Go Programming Language</p>
				<a href="/doc">Docs</a>
				<a href="https://pkg.go.dev/std">Std</a>
			</body></html>`)
		}))
		defer server.Close()

		f := New(WithLogger(testLogger(&bytes.Buffer{})))
		result, err := f.Fetch(context.Background(), normalizeServerURL(t, server.URL))
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}

		if result.Title != "Go" {
			t.Errorf("Title = %q", result.Title)
		}
		if !strings.Contains(result.Text, "The Go Programming Language") {
			t.Errorf("Text = %q", result.Text)
		}
		if len(result.Links) != 2 {
			t.Errorf("Links = %v", result.Links)
		}
		if result.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d", result.StatusCode)
		}
		if result.Attempts != 1 {
			t.Errorf("Attempts = %d", result.Attempts)
		}
	})

	t.Run("truncates oversized body without error", func(t *testing.T) {
		t.Parallel()

		const maxBytes = 64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, strings.Repeat("a", maxBytes*4))
		}))
		defer server.Close()

		f := New(WithMaxBytes(maxBytes), WithLogger(testLogger(&bytes.Buffer{})))
		result, err := f.Fetch(context.Background(), normalizeServerURL(t, server.URL))
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}

		if int64(len(result.Text)) > maxBytes {
			t.Errorf("text length %d exceeds cap %d", len(result.Text), maxBytes)
		}
		if !result.Truncated {
			t.Error("Truncated flag not set")
		}
	})

	t.Run("truncation never splits a multi-byte rune", func(t *testing.T) {
		t.Parallel()

		// 63 ASCII bytes followed by a two-byte rune: a 64-byte cap
		// lands between the rune's bytes.
		const maxBytes = 64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, strings.Repeat("a", maxBytes-1)+"étude")
		}))
		defer server.Close()

		f := New(WithMaxBytes(maxBytes), WithLogger(testLogger(&bytes.Buffer{})))
		result, err := f.Fetch(context.Background(), normalizeServerURL(t, server.URL))
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}

		if !result.Truncated {
			t.Error("Truncated flag not set")
		}
		if !utf8.ValidString(result.Text) {
			t.Errorf("text is not valid UTF-8: %q", result.Text)
		}
		if result.Text != strings.Repeat("a", maxBytes-1) {
			t.Errorf("Text = %q", result.Text)
		}
	})

	t.Run("retries transient 503 and logs each attempt", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>recovered</body></html>`)
		}))
		defer server.Close()

		var logBuf bytes.Buffer
		f := New(
			WithMaxRetries(2),
			WithBackoff(time.Millisecond),
			WithLogger(testLogger(&logBuf)),
		)

		result, err := f.Fetch(context.Background(), normalizeServerURL(t, server.URL))
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if result.Attempts != 2 {
			t.Errorf("Attempts = %d, want 2", result.Attempts)
		}
		if got := strings.Count(logBuf.String(), "fetch attempt"); got != 2 {
			t.Errorf("logged attempts = %d, want 2\n%s", got, logBuf.String())
		}
	})

	t.Run("exhausted retries surface server unavailable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		f := New(WithMaxRetries(1), WithBackoff(time.Millisecond), WithLogger(testLogger(&bytes.Buffer{})))
		_, err := f.Fetch(context.Background(), normalizeServerURL(t, server.URL))
		if !IsKind(err, KindServerUnavailable) {
			t.Errorf("error = %v, want KindServerUnavailable", err)
		}
	})

	t.Run("404 fails fast without retry", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.NotFound(w, nil)
		}))
		defer server.Close()

		f := New(WithMaxRetries(3), WithBackoff(time.Millisecond), WithLogger(testLogger(&bytes.Buffer{})))
		_, err := f.Fetch(context.Background(), normalizeServerURL(t, server.URL))
		if !IsKind(err, KindNotFound) {
			t.Errorf("error = %v, want KindNotFound", err)
		}
		if calls.Load() != 1 {
			t.Errorf("server called %d times, want 1", calls.Load())
		}
	})

	t.Run("rejects unsupported content type", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			fmt.Fprint(w, "not really a png")
		}))
		defer server.Close()

		f := New(WithLogger(testLogger(&bytes.Buffer{})))
		_, err := f.Fetch(context.Background(), normalizeServerURL(t, server.URL))
		if !IsKind(err, KindUnsupportedContentType) {
			t.Errorf("error = %v, want KindUnsupportedContentType", err)
		}
	})

	t.Run("rejects declared length above hard ceiling", func(t *testing.T) {
		t.Parallel()

		const maxBytes = 10
		body := strings.Repeat("b", maxBytes*hardLimitFactor+1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, body)
		}))
		defer server.Close()

		f := New(WithMaxBytes(maxBytes), WithLogger(testLogger(&bytes.Buffer{})))
		_, err := f.Fetch(context.Background(), normalizeServerURL(t, server.URL))
		if !IsKind(err, KindTooLarge) {
			t.Errorf("error = %v, want KindTooLarge", err)
		}
	})

	t.Run("times out slow server", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html></html>")
		}))
		defer server.Close()

		f := New(
			WithTimeout(20*time.Millisecond),
			WithMaxRetries(1),
			WithBackoff(time.Millisecond),
			WithLogger(testLogger(&bytes.Buffer{})),
		)
		_, err := f.Fetch(context.Background(), normalizeServerURL(t, server.URL))
		if !IsKind(err, KindTimeout) {
			t.Errorf("error = %v, want KindTimeout", err)
		}
	})
}

// TestFetcherSameDomainOnly tests the outbound link filter.
func TestFetcherSameDomainOnly(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<a href="/local">A</a>
			<a href="https://elsewhere.example.net/page">B</a>
		</body></html>`)
	}))
	t.Cleanup(server.Close)

	sourceURL := normalizeServerURL(t, server.URL)

	t.Run("filter keeps only same-host links", func(t *testing.T) {
		t.Parallel()

		f := New(WithSameDomainOnly(true), WithLogger(testLogger(&bytes.Buffer{})))
		result, err := f.Fetch(context.Background(), sourceURL)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}

		if len(result.Links) != 1 {
			t.Fatalf("Links = %v, want one same-host link", result.Links)
		}
		if urlnorm.MustHost(result.Links[0]) != urlnorm.MustHost(sourceURL) {
			t.Errorf("kept link %q is not same-host", result.Links[0])
		}
	})

	t.Run("filter disabled keeps all links", func(t *testing.T) {
		t.Parallel()

		f := New(WithLogger(testLogger(&bytes.Buffer{})))
		result, err := f.Fetch(context.Background(), sourceURL)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(result.Links) != 2 {
			t.Errorf("Links = %v, want 2", result.Links)
		}
	})
}

// TestFetcherRequestDecoration tests user agent, cookie, and headers.
func TestFetcherRequestDecoration(t *testing.T) {
	t.Parallel()

	var gotUA, gotCookie, gotExtra string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
		gotExtra = r.Header.Get("X-Custom")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	f := New(
		WithUserAgent("mesh-test/1.0"),
		WithCookie("session=abc"),
		WithHeaders(map[string]string{"X-Custom": "yes"}),
		WithLogger(testLogger(&bytes.Buffer{})),
	)
	if _, err := f.Fetch(context.Background(), normalizeServerURL(t, server.URL)); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotUA != "mesh-test/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotCookie != "session=abc" {
		t.Errorf("Cookie = %q", gotCookie)
	}
	if gotExtra != "yes" {
		t.Errorf("X-Custom = %q", gotExtra)
	}
}
