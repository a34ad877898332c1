package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestSecureHandler tests attribute redaction.
func TestSecureHandler(t *testing.T) {
	t.Parallel()

	newLogger := func(buf *bytes.Buffer) *slog.Logger {
		handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
		return slog.New(NewSecureHandler(handler))
	}

	t.Run("redacts sensitive keys", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := newLogger(&buf)

		logger.Info("fetching", "cookie", "session=abc123", "url", "https://example.com")

		out := buf.String()
		if strings.Contains(out, "session=abc123") {
			t.Errorf("cookie value leaked: %s", out)
		}
		if !strings.Contains(out, MaskValue) {
			t.Errorf("mask value missing: %s", out)
		}
		if !strings.Contains(out, "https://example.com") {
			t.Errorf("non-sensitive value dropped: %s", out)
		}
	})

	t.Run("redacts bearer token values regardless of key", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := newLogger(&buf)

		logger.Info("request", "header_value", "Bearer abc.def.ghi")

		if strings.Contains(buf.String(), "Bearer abc.def.ghi") {
			t.Errorf("bearer token leaked: %s", buf.String())
		}
	})

	t.Run("redacts inside groups", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := newLogger(&buf)

		logger.Info("request", slog.Group("headers",
			slog.String("Authorization", "Basic dXNlcjpwYXNz"),
			slog.String("Accept", "text/html"),
		))

		out := buf.String()
		if strings.Contains(out, "dXNlcjpwYXNz") {
			t.Errorf("authorization leaked: %s", out)
		}
		if !strings.Contains(out, "text/html") {
			t.Errorf("benign header dropped: %s", out)
		}
	})

	t.Run("keeps ordinary attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := newLogger(&buf)

		logger.Info("graph", "node_key", "https://example.com", "degree", 3)

		out := buf.String()
		if strings.Contains(out, MaskValue) {
			t.Errorf("false positive redaction: %s", out)
		}
	})
}

// TestNewSecureLogger tests level selection.
func TestNewSecureLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	quiet := NewSecureLogger(&buf, false)
	quiet.Debug("hidden")
	quiet.Info("also hidden")
	if buf.Len() != 0 {
		t.Errorf("non-verbose logger emitted below-warn output: %s", buf.String())
	}

	verbose := NewSecureLogger(&buf, true)
	verbose.Debug("visible")
	if buf.Len() == 0 {
		t.Error("verbose logger dropped debug output")
	}
}

// TestNewSecureJSONLogger tests JSON output with redaction intact.
func TestNewSecureJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureJSONLogger(&buf, true)

	logger.Info("fetching", "cookie", "session=abc123", "url", "https://example.com")

	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected JSON record, got: %s", out)
	}
	if strings.Contains(out, "session=abc123") {
		t.Errorf("cookie value leaked: %s", out)
	}
	if !strings.Contains(out, "https://example.com") {
		t.Errorf("non-sensitive value dropped: %s", out)
	}
}
