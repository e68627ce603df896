package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

// Logger is the interface for application-wide logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	// With returns a logger that adds args to every record.
	With(args ...interface{}) Logger
	FlushWebhook() error
}

// webhookSink buffers records until FlushWebhook. It is shared by a logger and
// all loggers derived from it with With.
type webhookSink struct {
	mu     sync.Mutex
	buffer []slog.Record
	url    string
	client *http.Client
}

// hybridLogger outputs to stdout in real-time and buffers logs for webhook.
type hybridLogger struct {
	stdoutHandler slog.Handler
	sink          *webhookSink
	minLevel      Level
	appName       string
	env           string
	attrs         []interface{}
}

// NewHybridLogger creates a new hybrid logger.
func NewHybridLogger(cfg Config) Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &hybridLogger{
		stdoutHandler: slog.NewJSONHandler(output, &slog.HandlerOptions{Level: slogLevel(cfg.Level)}),
		sink:          &webhookSink{url: cfg.WebhookURL, client: client},
		minLevel:      cfg.Level,
		appName:       cfg.AppName,
		env:           cfg.Environment,
	}
}

// webhookEntry is the JSON shape of one buffered record.
type webhookEntry struct {
	Time    string                 `json:"time"`
	Level   string                 `json:"level"`
	Message string                 `json:"msg"`
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
}

type webhookPayload struct {
	App  string         `json:"app"`
	Env  string         `json:"env"`
	Logs []webhookEntry `json:"logs"`
}

// sendToWebhook posts the buffered records as a single JSON document.
func sendToWebhook(client *http.Client, webhookURL, appName, env string, logs []slog.Record) error {
	payload := webhookPayload{App: appName, Env: env, Logs: make([]webhookEntry, 0, len(logs))}
	for _, rec := range logs {
		entry := webhookEntry{
			Time:    rec.Time.Format(time.RFC3339),
			Level:   rec.Level.String(),
			Message: rec.Message,
		}
		rec.Attrs(func(a slog.Attr) bool {
			if entry.Attrs == nil {
				entry.Attrs = make(map[string]interface{})
			}
			entry.Attrs[a.Key] = attrValue(a.Value)
			return true
		})
		payload.Logs = append(payload.Logs, entry)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// attrValue converts a slog value into something encoding/json renders sensibly.
func attrValue(v slog.Value) interface{} {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := make(map[string]interface{})
		for _, a := range v.Group() {
			group[a.Key] = attrValue(a.Value)
		}
		return group
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return v.Any()
	}
}

// slogLevel converts our Level to slog.Level
func slogLevel(lvl Level) slog.Level {
	switch lvl {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (h *hybridLogger) log(level slog.Level, msg string, args ...interface{}) {
	if levelFromSlog(level) < h.minLevel {
		return
	}
	rec := slog.NewRecord(time.Now(), level, msg, 0)
	rec.Add(h.attrs...)
	rec.Add(args...)
	_ = h.stdoutHandler.Handle(context.Background(), rec)
	if h.sink.url != "" {
		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		h.sink.buffer = append(h.sink.buffer, rec)
	}
}

func (h *hybridLogger) Debug(msg string, args ...interface{}) { h.log(slog.LevelDebug, msg, args...) }
func (h *hybridLogger) Info(msg string, args ...interface{})  { h.log(slog.LevelInfo, msg, args...) }
func (h *hybridLogger) Warn(msg string, args ...interface{})  { h.log(slog.LevelWarn, msg, args...) }
func (h *hybridLogger) Error(msg string, args ...interface{}) { h.log(slog.LevelError, msg, args...) }

func (h *hybridLogger) With(args ...interface{}) Logger {
	child := *h
	child.attrs = append(append([]interface{}{}, h.attrs...), args...)
	return &child
}

func (h *hybridLogger) FlushWebhook() error {
	h.sink.mu.Lock()
	if h.sink.url == "" || len(h.sink.buffer) == 0 {
		h.sink.mu.Unlock()
		return nil
	}
	logs := make([]slog.Record, len(h.sink.buffer))
	copy(logs, h.sink.buffer)
	h.sink.buffer = h.sink.buffer[:0]
	h.sink.mu.Unlock()
	return sendToWebhook(h.sink.client, h.sink.url, h.appName, h.env, logs)
}

// levelFromSlog converts slog.Level to our Level type
func levelFromSlog(lvl slog.Level) Level {
	switch lvl {
	case slog.LevelDebug:
		return LevelDebug
	case slog.LevelWarn:
		return LevelWarn
	case slog.LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}
