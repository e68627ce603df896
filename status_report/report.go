// Package status_report renders a read-only summary of the record store.
package status_report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	rs "github.com/isseis/go-site-file-harvester/record_store"
)

// DefaultLimit is the number of recent records shown by default.
const DefaultLimit = 20

// Store is the read side of record_store.RecordStore.
type Store interface {
	ListRecent(limit int) ([]rs.FileRecord, error)
	CountByStatus() (map[rs.Status]int, error)
}

// Report writes the total, the count per status and the limit most recently
// checked records to w. limit must be positive.
func Report(w io.Writer, store Store, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("status limit must be positive, got %d", limit)
	}
	counts, err := store.CountByStatus()
	if err != nil {
		return err
	}
	records, err := store.ListRecent(limit)
	if err != nil {
		return err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "--- RECORD STORE STATUS ---")
	fmt.Fprintf(tw, "Total tracked:\t%d\n", total)
	for _, status := range rs.AllStatuses {
		fmt.Fprintf(tw, "%s:\t%d\n", status, counts[status])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "\nNo files recorded yet.")
		return err
	}

	fmt.Fprintf(w, "\nLast %d records (most recent checks):\n", len(records))
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tLAST CHECKED\tLAST DOWNLOADED\tURL")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.Status, formatTime(&rec.LastCheckedAt), formatTime(rec.LastDownloadedAt), rec.Identity)
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
