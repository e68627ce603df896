// Package record_store keeps the durable per-file bookkeeping that survives across runs.
package record_store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// RecordStore is a SQLite-backed table of FileRecord keyed by identity.
// It is meant for a single process; each Upsert is its own transaction.
type RecordStore struct {
	db       *gorm.DB
	path     string
	readOnly bool
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	readOnly bool
	logLevel gormlogger.LogLevel
}

// WithReadOnly opens the store without ever writing to it. A store file that
// does not exist yet is replaced by an empty in-memory store.
func WithReadOnly() Option {
	return func(c *openConfig) {
		c.readOnly = true
	}
}

// WithSQLLogLevel sets GORM's own logging verbosity. Default is silent.
func WithSQLLogLevel(level gormlogger.LogLevel) Option {
	return func(c *openConfig) {
		c.logLevel = level
	}
}

// Open opens (or creates) the record store at path and ensures its schema.
func Open(path string, opts ...Option) (*RecordStore, error) {
	if path == "" {
		return nil, &StoreError{Op: "open", Err: errors.New("path cannot be empty")}
	}
	cfg := &openConfig{logLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(cfg)
	}

	dsn, migrate, err := buildDSN(path, cfg.readOnly)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(cfg.logLevel),
	})
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	// SQLite allows a single writer; one connection also keeps an in-memory store alive.
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	s := &RecordStore{db: db, path: path, readOnly: cfg.readOnly}
	if migrate {
		if err := db.AutoMigrate(&FileRecord{}); err != nil {
			sqlDB.Close()
			return nil, &StoreError{Op: "migrate", Err: err}
		}
	} else if !db.Migrator().HasTable(&FileRecord{}) {
		sqlDB.Close()
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("%s has no %q table", path, FileRecord{}.TableName())}
	}
	return s, nil
}

// buildDSN returns the SQLite DSN for path and whether the schema must be migrated.
func buildDSN(path string, readOnly bool) (string, bool, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return "", false, err
	}
	if readOnly {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return "file::memory:", true, nil
		} else if err != nil {
			return "", false, err
		}
		return fileURI(path) + "?mode=ro&_busy_timeout=5000", false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, err
	}
	return fileURI(path) + "?_busy_timeout=5000&_synchronous=FULL", true, nil
}

// fileURI turns path into an SQLite "file:" URI. Characters such as '?', '#' and '%'
// are percent-encoded so they stay part of the file name.
func fileURI(path string) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return "file:" + (&url.URL{Path: slashed}).EscapedPath()
}

// Path returns the file the store was opened from.
func (s *RecordStore) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *RecordStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &StoreError{Op: "close", Err: err}
	}
	if err := sqlDB.Close(); err != nil {
		return &StoreError{Op: "close", Err: err}
	}
	return nil
}

// Get looks up a record by identity. The boolean is false when no record exists.
func (s *RecordStore) Get(identity string) (FileRecord, bool, error) {
	var rec FileRecord
	err := s.db.Where("identity = ?", identity).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FileRecord{}, false, nil
	}
	if err != nil {
		return FileRecord{}, false, &StoreError{Op: "get", Err: err}
	}
	return rec, true, nil
}

// Upsert creates the record or replaces every column of the existing row with the same identity.
// The write happens in its own transaction, so a crash never leaves a partially updated row.
func (s *RecordStore) Upsert(rec FileRecord) error {
	if s.readOnly {
		return &StoreError{Op: "upsert", Err: errors.New("store is opened read-only")}
	}
	if rec.Identity == "" {
		return fmt.Errorf("%w: empty identity", ErrInvalidRecord)
	}
	if !rec.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, rec.Status)
	}
	rec.LastCheckedAt = rec.LastCheckedAt.UTC()
	if rec.LastDownloadedAt != nil {
		t := rec.LastDownloadedAt.UTC()
		rec.LastDownloadedAt = &t
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity"}},
			UpdateAll: true,
		}).Create(&rec).Error
	})
	if err != nil {
		return &StoreError{Op: "upsert", Err: err}
	}
	return nil
}

// ListAll returns every record, most recently checked first.
func (s *RecordStore) ListAll() ([]FileRecord, error) {
	var recs []FileRecord
	if err := s.recentFirst().Find(&recs).Error; err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return recs, nil
}

// ListRecent returns at most limit records in ListAll order. limit must be positive.
func (s *RecordStore) ListRecent(limit int) ([]FileRecord, error) {
	if limit <= 0 {
		return nil, &StoreError{Op: "list", Err: fmt.Errorf("limit must be positive, got %d", limit)}
	}
	var recs []FileRecord
	if err := s.recentFirst().Limit(limit).Find(&recs).Error; err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return recs, nil
}

func (s *RecordStore) recentFirst() *gorm.DB {
	return s.db.Order("last_checked_at DESC").Order("identity ASC")
}

// CountByStatus returns the number of records per status. Statuses without records are absent.
func (s *RecordStore) CountByStatus() (map[Status]int, error) {
	var rows []struct {
		Status Status
		Count  int
	}
	err := s.db.Model(&FileRecord{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, &StoreError{Op: "count", Err: err}
	}
	counts := make(map[Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
