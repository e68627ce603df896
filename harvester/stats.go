package harvester

import "fmt"

// RunStats holds the per-run counts reported in the final summary.
type RunStats struct {
	// Classifications
	New          int
	Changed      int
	Forced       int
	Retried      int
	MissingLocal int
	Unchanged    int

	// Outcomes
	Downloaded int // Files written to disk
	Skipped    int // Files left alone: unchanged, or refused by the size guard
	Failed     int // Invalid URLs, probe failures and transfer failures
	Planned    int // Downloads a dry run would have made
}

// String returns a string representation of the run statistics
func (s RunStats) String() string {
	return fmt.Sprintf("new=%d, changed=%d, forced=%d, retried=%d, missing_local=%d, unchanged=%d, downloaded=%d, skipped=%d, failed=%d, planned=%d",
		s.New, s.Changed, s.Forced, s.Retried, s.MissingLocal, s.Unchanged,
		s.Downloaded, s.Skipped, s.Failed, s.Planned)
}

// countClassification increments the counter for c. PROBE_FAILED is counted as an outcome only.
func (s *RunStats) countClassification(c Classification) {
	switch c {
	case ClassNew:
		s.New++
	case ClassChanged:
		s.Changed++
	case ClassForced:
		s.Forced++
	case ClassRetry:
		s.Retried++
	case ClassMissingLocal:
		s.MissingLocal++
	case ClassUnchanged:
		s.Unchanged++
	}
}

// LogArgs returns the counters as key-value pairs for structured logging.
func (s RunStats) LogArgs() []any {
	return []any{
		"new", s.New,
		"changed", s.Changed,
		"forced", s.Forced,
		"retried", s.Retried,
		"missing_local", s.MissingLocal,
		"unchanged", s.Unchanged,
		"downloaded", s.Downloaded,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"planned", s.Planned,
	}
}
