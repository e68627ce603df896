package status_report

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rs "github.com/isseis/go-site-file-harvester/record_store"
)

type mockStore struct {
	records []rs.FileRecord
	counts  map[rs.Status]int
	err     error
	limits  []int
}

func (m *mockStore) ListRecent(limit int) ([]rs.FileRecord, error) {
	m.limits = append(m.limits, limit)
	if len(m.records) > limit {
		return m.records[:limit], m.err
	}
	return m.records, m.err
}

func (m *mockStore) CountByStatus() (map[rs.Status]int, error) { return m.counts, m.err }

func TestReport(t *testing.T) {
	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	downloaded := checked.Add(-time.Hour)
	store := &mockStore{
		records: []rs.FileRecord{
			{Identity: "https://example.com/a.pdf", Status: rs.StatusDownloaded, LastCheckedAt: checked, LastDownloadedAt: &downloaded},
			{Identity: "https://example.com/b.zip", Status: rs.StatusFailed, LastCheckedAt: checked.Add(-time.Minute)},
		},
		counts: map[rs.Status]int{rs.StatusDownloaded: 1, rs.StatusFailed: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, store, DefaultLimit))
	out := buf.String()

	assert.Contains(t, out, "Total tracked:  2")
	assert.Contains(t, out, "DOWNLOADED:     1")
	assert.Contains(t, out, "SKIPPED:        0")
	assert.Contains(t, out, "Last 2 records (most recent checks):")
	assert.Contains(t, out, "2026-03-01T11:00:00Z")
	assert.Contains(t, out, "https://example.com/b.zip")

	// Most recent first, as returned by the store.
	assert.Less(t, strings.Index(out, "a.pdf"), strings.Index(out, "b.zip"))
	// A record never downloaded shows a placeholder.
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "b.zip") {
			assert.Contains(t, line, " - ")
		}
	}
}

func TestReportLimit(t *testing.T) {
	store := &mockStore{counts: map[rs.Status]int{rs.StatusDownloaded: 30}}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		store.records = append(store.records, rs.FileRecord{
			Identity:      fmt.Sprintf("https://example.com/f%02d.pdf", i),
			Status:        rs.StatusDownloaded,
			LastCheckedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, store, DefaultLimit))
	assert.Contains(t, buf.String(), fmt.Sprintf("Last %d records", DefaultLimit))
	assert.Contains(t, buf.String(), "f19.pdf")
	assert.NotContains(t, buf.String(), "f20.pdf")

	buf.Reset()
	require.NoError(t, Report(&buf, store, 5))
	assert.Contains(t, buf.String(), "Last 5 records")
	assert.NotContains(t, buf.String(), "f05.pdf")
	assert.Equal(t, []int{DefaultLimit, 5}, store.limits, "the limit is passed to the store")
}

func TestReportRejectsNonPositiveLimit(t *testing.T) {
	for _, limit := range []int{0, -1} {
		store := &mockStore{counts: map[rs.Status]int{}}
		var buf bytes.Buffer
		assert.Error(t, Report(&buf, store, limit))
		assert.Empty(t, buf.String())
		assert.Empty(t, store.limits)
	}
}

func TestReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, &mockStore{counts: map[rs.Status]int{}}, 10))
	assert.Contains(t, buf.String(), "Total tracked:  0")
	assert.Contains(t, buf.String(), "No files recorded yet.")
}

func TestReportStoreError(t *testing.T) {
	storeErr := &rs.StoreError{Op: "count", Err: errors.New("disk I/O error")}
	err := Report(&bytes.Buffer{}, &mockStore{err: storeErr}, 10)
	assert.ErrorIs(t, err, storeErr)
}

func TestReportFromRecordStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sqlite")
	store, err := rs.Open(path)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, store.Upsert(rs.FileRecord{Identity: "https://example.com/a.pdf", LocalPath: "/tmp/a.pdf", Status: rs.StatusDownloaded, LastCheckedAt: now, LastDownloadedAt: &now}))
	require.NoError(t, store.Upsert(rs.FileRecord{Identity: "https://example.com/c.pdf", LocalPath: "/tmp/c.pdf", Status: rs.StatusSkipped, LastCheckedAt: now}))
	require.NoError(t, store.Close())

	ro, err := rs.Open(path, rs.WithReadOnly())
	require.NoError(t, err)
	defer ro.Close()

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, ro, DefaultLimit))
	assert.Contains(t, buf.String(), "Total tracked:  2")
	assert.Contains(t, buf.String(), "SKIPPED:        1")
	assert.Contains(t, buf.String(), "https://example.com/c.pdf")
}
