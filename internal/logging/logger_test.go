package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/telhawk-systems/stixbridge/internal/middleware"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		format string
	}{
		{
			name:   "json format with info level",
			level:  slog.LevelInfo,
			format: "json",
		},
		{
			name:   "text format with debug level",
			level:  slog.LevelDebug,
			format: "text",
		},
		{
			name:   "default format (json) with error level",
			level:  slog.LevelError,
			format: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.format)
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
			if logger.Logger == nil {
				t.Fatal("expected non-nil underlying logger")
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "test-req-123")
	logger.WithContext(ctx).Info("test message")

	output := buf.String()
	if !strings.Contains(output, "request_id") || !strings.Contains(output, "test-req-123") {
		t.Errorf("expected request_id field in log output, got: %s", output)
	}

	buf.Reset()
	logger.WithContext(context.Background()).Info("no request")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id without middleware context: %s", buf.String())
	}
}

func TestInfoContext(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "info-test-123")
	logger.InfoContext(ctx, "event converted", EventUUID("5e8a2b3c"), Objects(7))

	output := buf.String()
	for _, want := range []string{"event converted", "info-test-123", "event_uuid", `"objects":7`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	logger.With(Component("translator")).Info("translated")

	output := buf.String()
	if !strings.Contains(output, `"component":"translator"`) {
		t.Errorf("expected component field, got: %s", output)
	}
}
