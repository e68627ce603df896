package record_store

import "time"

// Status is the outcome of the last transfer decision for a file.
type Status string

const (
	// StatusPending marks a record created for a new URL whose first transfer has not finished.
	StatusPending Status = "PENDING"
	// StatusDownloaded marks a file whose last transfer succeeded.
	StatusDownloaded Status = "DOWNLOADED"
	// StatusFailed marks a file whose last probe or transfer failed.
	StatusFailed Status = "FAILED"
	// StatusSkipped marks a file that was deliberately not transferred.
	StatusSkipped Status = "SKIPPED"
)

// AllStatuses lists every status in reporting order.
var AllStatuses = []Status{StatusDownloaded, StatusFailed, StatusSkipped, StatusPending}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDownloaded, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// ChangeIdentity is the tuple used to detect whether a remote file differs from its last-seen state.
// Every field is optional; a nil field was not reported by the server.
type ChangeIdentity struct {
	ETag          *string
	LastModified  *string
	ContentLength *int64
}

// IsZero reports whether no field of the identity is known.
func (c ChangeIdentity) IsZero() bool {
	return c.ETag == nil && c.LastModified == nil && c.ContentLength == nil
}

// FileRecord is one row per distinct remote file ever observed.
type FileRecord struct {
	Identity         string     `gorm:"column:identity;primaryKey"`
	ETag             *string    `gorm:"column:etag"`
	LastModified     *string    `gorm:"column:last_modified"`
	ContentLength    *int64     `gorm:"column:content_length"`
	LocalPath        string     `gorm:"column:local_path;not null"`
	Status           Status     `gorm:"column:status;not null;size:16;index"`
	LastCheckedAt    time.Time  `gorm:"column:last_checked_at;not null;index"`
	LastDownloadedAt *time.Time `gorm:"column:last_downloaded_at"`
}

// TableName specifies the table holding FileRecord rows.
func (FileRecord) TableName() string {
	return "files"
}

// ChangeIdentity returns the record's last-known change-identity.
func (r FileRecord) ChangeIdentity() ChangeIdentity {
	return ChangeIdentity{
		ETag:          r.ETag,
		LastModified:  r.LastModified,
		ContentLength: r.ContentLength,
	}
}

// SetChangeIdentity replaces all three change-identity fields at once.
func (r *FileRecord) SetChangeIdentity(c ChangeIdentity) {
	r.ETag = c.ETag
	r.LastModified = c.LastModified
	r.ContentLength = c.ContentLength
}
