package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"unknown", LevelInfo}, // default fallback
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_WEBHOOK_URL", "http://example.com/webhook")
	t.Setenv("APP_NAME", "test-app")
	t.Setenv("ENV", "staging")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, cfg.Level)
	assert.Contains(t, cfg.WebhookURL, "example.com")
	assert.Equal(t, "test-app", cfg.AppName)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestLoadConfig_FlagWinsOverEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	old := *logLevelFlag
	*logLevelFlag = "debug"
	defer func() { *logLevelFlag = old }()

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, cfg.Level)
}

func TestHybridLogger_LevelFilterAndWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewHybridLogger(Config{Level: LevelInfo, Output: &buf})

	log.Debug("hidden")
	log.With("run_id", "r1").Info("visible", "count", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "visible", rec["msg"])
	assert.Equal(t, "r1", rec["run_id"])
	assert.EqualValues(t, 2, rec["count"])
}

func TestHybridLogger_FlushWebhook(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	log := NewHybridLogger(Config{
		Level:       LevelInfo,
		Output:      io.Discard,
		WebhookURL:  srv.URL,
		AppName:     "app",
		Environment: "test",
	})
	log.With("run_id", "r1").Error("boom", "error", errors.New("disk full"))
	require.NoError(t, log.FlushWebhook())

	assert.Equal(t, "app", got.App)
	require.Len(t, got.Logs, 1)
	assert.Equal(t, "boom", got.Logs[0].Message)
	assert.Equal(t, "disk full", got.Logs[0].Attrs["error"])
	assert.Equal(t, "r1", got.Logs[0].Attrs["run_id"])

	// Buffer is drained; a second flush sends nothing.
	got = webhookPayload{}
	require.NoError(t, log.FlushWebhook())
	assert.Empty(t, got.Logs)
}

func TestHybridLogger_FlushWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	log := NewHybridLogger(Config{Output: io.Discard, WebhookURL: srv.URL})
	log.Info("hello")
	assert.Error(t, log.FlushWebhook())
}

func TestHybridLogger_NoWebhookNoop(t *testing.T) {
	log := NewHybridLogger(Config{Output: io.Discard})
	log.Info("hello")
	assert.NoError(t, log.FlushWebhook())
}
