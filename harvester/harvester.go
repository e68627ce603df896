// Package harvester reconciles discovered file URLs against the record store
// and downloads the files that are new, changed or missing locally.
package harvester

import (
	"context"
	"fmt"
	"time"

	rs "github.com/isseis/go-site-file-harvester/record_store"
	"github.com/isseis/go-site-file-harvester/site_api"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Logger defines the interface for logging operations within the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SessionInterface defines the remote operations the engine needs.
// This interface allows the session to be mocked for testing.
type SessionInterface interface {
	// Probe reports the change-identity of a file without transferring it.
	Probe(ctx context.Context, url string) (*site_api.ProbeResponse, error)
	// Download starts streaming a file.
	Download(ctx context.Context, url string) (*site_api.DownloadResponse, error)
}

// RecordStore is the part of record_store.RecordStore used by the engine.
type RecordStore interface {
	Get(identity string) (rs.FileRecord, bool, error)
	Upsert(rec rs.FileRecord) error
}

// MetricsRecorder receives one observation per processed file.
type MetricsRecorder interface {
	ObserveFile(classification string, outcome string)
}

// Per-file outcomes passed to MetricsRecorder.
const (
	OutcomeDownloaded = "downloaded"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
	OutcomePlanned    = "planned"
)

// Engine classifies discovered URLs and carries out the resulting actions.
type Engine struct {
	session     SessionInterface
	store       RecordStore
	fs          FileSystemOperations
	downloadDir string // Directory where downloaded files will be saved
	logger      Logger
	metrics     MetricsRecorder

	// dryRun classifies and probes without downloading or writing the store.
	dryRun bool

	// force re-downloads every file that already has a record.
	force bool

	// maxFileSize refuses downloads whose probed size is larger. Zero disables the guard.
	maxFileSize int64

	now func() time.Time
}

// EngineOption defines a function type to set options for Engine.
type EngineOption func(*Engine)

// WithDryRun sets the dryRun option for Engine.
func WithDryRun(dryRun bool) EngineOption {
	return func(e *Engine) {
		e.dryRun = dryRun
	}
}

// WithForce sets the force option for Engine.
// When true, known files are downloaded again even if their identity is unchanged.
func WithForce(force bool) EngineOption {
	return func(e *Engine) {
		e.force = force
	}
}

// WithLogger sets the logger for Engine.
// If not set, a fallback logger printing to stdout is used.
func WithLogger(log Logger) EngineOption {
	return func(e *Engine) {
		e.logger = log
	}
}

// WithClock replaces the time source used for record timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMaxFileSize refuses downloads the probe reports as larger than n bytes.
func WithMaxFileSize(n int64) EngineOption {
	return func(e *Engine) {
		e.maxFileSize = n
	}
}

// WithMetrics sets a recorder notified once per processed file.
func WithMetrics(m MetricsRecorder) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine constructs an Engine with injected dependencies for session, record store, file system and download directory.
func NewEngine(session SessionInterface, store RecordStore, fs FileSystemOperations, downloadDir string, opts ...EngineOption) *Engine {
	e := &Engine{
		session:     session,
		store:       store,
		fs:          fs,
		downloadDir: downloadDir,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsDryRun returns true if the engine is in dry-run mode.
func (e *Engine) IsDryRun() bool {
	return e.dryRun
}

// getLogger returns the logger, falling back to a default logger if none is set.
func (e *Engine) getLogger() Logger {
	if e.logger != nil {
		return e.logger
	}
	return &fallbackLogger{}
}

// fieldLogger is implemented by loggers that can attach fields to every record.
type fieldLogger interface {
	With(args ...any) Logger
}

// fileLogger returns a logger whose records all name the file t.
func (e *Engine) fileLogger(t target) Logger {
	base := e.getLogger()
	if fl, ok := base.(fieldLogger); ok {
		return fl.With("url", t.url)
	}
	return &boundLogger{base: base, args: []any{"url", t.url}}
}

// boundLogger prepends fixed args to every call of a logger without With support.
type boundLogger struct {
	base Logger
	args []any
}

func (b *boundLogger) with(args []any) []any {
	return append(append(make([]any, 0, len(b.args)+len(args)), b.args...), args...)
}

func (b *boundLogger) Debug(msg string, args ...any) { b.base.Debug(msg, b.with(args)...) }
func (b *boundLogger) Info(msg string, args ...any)  { b.base.Info(msg, b.with(args)...) }
func (b *boundLogger) Warn(msg string, args ...any)  { b.base.Warn(msg, b.with(args)...) }
func (b *boundLogger) Error(msg string, args ...any) { b.base.Error(msg, b.with(args)...) }

func (e *Engine) observe(c Classification, outcome string) {
	if e.metrics != nil {
		e.metrics.ObserveFile(string(c), outcome)
	}
}

// fallbackLogger prints plain lines to stdout.
type fallbackLogger struct{}

func (f *fallbackLogger) Debug(msg string, args ...any) {
	fmt.Printf("[DEBUG] %s\n", formatLogMessage(msg, args...))
}

func (f *fallbackLogger) Info(msg string, args ...any) {
	fmt.Printf("[INFO] %s\n", formatLogMessage(msg, args...))
}

func (f *fallbackLogger) Warn(msg string, args ...any) {
	fmt.Printf("[WARN] %s\n", formatLogMessage(msg, args...))
}

func (f *fallbackLogger) Error(msg string, args ...any) {
	fmt.Printf("[ERROR] %s\n", formatLogMessage(msg, args...))
}

// formatLogMessage appends key=value pairs to msg. A trailing key without a value is ignored.
func formatLogMessage(msg string, args ...any) string {
	result := msg
	for i := 0; i+1 < len(args); i += 2 {
		result += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	return result
}
