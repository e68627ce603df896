package harvester

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-site-file-harvester/logger"
)

// decodeLines parses JSON log output into one map per record.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var recs []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		recs = append(recs, rec)
	}
	return recs
}

func TestLoggerAdapterWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerAdapter(logger.NewHybridLogger(logger.Config{Level: logger.LevelDebug, Output: &buf}), "run_id", "r1")

	log.Info("run level")
	log.(fieldLogger).With("url", urlA).Warn("file level", "bytes", 3)

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "r1", recs[0]["run_id"])
	assert.NotContains(t, recs[0], "url")
	assert.Equal(t, "r1", recs[1]["run_id"])
	assert.Equal(t, urlA, recs[1]["url"])
	assert.EqualValues(t, 3, recs[1]["bytes"])
}

func TestFileRecordsNameTheirURL(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	log := NewLoggerAdapter(logger.NewHybridLogger(logger.Config{Level: logger.LevelDebug, Output: &buf}))

	env.run(newMockSite(env.files), WithLogger(log))

	perFile := map[string]bool{"Classified file": true, "Downloading file": true, "File downloaded successfully": true}
	seen := map[string]int{}
	for _, rec := range decodeLines(t, &buf) {
		msg, _ := rec["msg"].(string)
		if !perFile[msg] {
			continue
		}
		url, _ := rec["url"].(string)
		assert.Contains(t, []string{urlA, urlB}, url, msg)
		seen[msg]++
	}
	for msg := range perFile {
		assert.Equal(t, 2, seen[msg], msg)
	}
}

// recordingLogger keeps every call's args; it has no With method.
type recordingLogger struct {
	mu    sync.Mutex
	calls [][]any
}

func (r *recordingLogger) record(args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args)
}

func (r *recordingLogger) Debug(_ string, args ...any) { r.record(args) }
func (r *recordingLogger) Info(_ string, args ...any)  { r.record(args) }
func (r *recordingLogger) Warn(_ string, args ...any)  { r.record(args) }
func (r *recordingLogger) Error(_ string, args ...any) { r.record(args) }

func TestFileLoggerWithoutWith(t *testing.T) {
	rec := &recordingLogger{}
	engine := NewEngine(nil, nil, nil, "", WithLogger(rec))

	engine.fileLogger(target{url: urlA}).Info("msg", "bytes", 3)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, []any{"url", urlA, "bytes", 3}, rec.calls[0])
}
