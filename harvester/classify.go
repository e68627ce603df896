package harvester

import rs "github.com/isseis/go-site-file-harvester/record_store"

// Classification is the reconciliation verdict for one discovered URL.
type Classification string

const (
	ClassNew          Classification = "NEW"
	ClassForced       Classification = "FORCED"
	ClassRetry        Classification = "RETRY"
	ClassUnchanged    Classification = "UNCHANGED"
	ClassChanged      Classification = "CHANGED"
	ClassMissingLocal Classification = "MISSING_LOCAL"
	ClassProbeFailed  Classification = "PROBE_FAILED"
)

// Action is what the engine does about a classified URL.
type Action string

const (
	ActionDownload Action = "download"
	ActionSkip     Action = "skip"
	ActionNone     Action = "none"
)

// ClassifyInput holds everything a classification depends on.
type ClassifyInput struct {
	Prior       *rs.FileRecord    // nil when the URL has never been seen
	Observed    rs.ChangeIdentity // identity reported by the probe
	Force       bool
	LocalExists bool // whether the record's local file is on disk
}

// Decision is the result of Classify.
type Decision struct {
	Classification Classification
	Action         Action
	// Field names the identity field that decided the comparison ("etag",
	// "last_modified", "content_length"), or is empty when no comparison was made
	// or nothing was comparable.
	Field string
}

// Classify decides what to do with one URL. It has no side effects.
//
// Rules, first match wins:
//  1. no prior record: NEW
//  2. force: FORCED
//  3. prior status FAILED or PENDING: RETRY
//  4. comparable identity field differs: CHANGED
//  5. local file exists: UNCHANGED, otherwise MISSING_LOCAL
//
// Identity fields are compared in the order ETag, Last-Modified, Content-Length;
// the first field present on both sides is the only one compared.
func Classify(in ClassifyInput) Decision {
	if in.Prior == nil {
		return Decision{Classification: ClassNew, Action: ActionDownload}
	}
	if in.Force {
		return Decision{Classification: ClassForced, Action: ActionDownload}
	}
	if in.Prior.Status == rs.StatusFailed || in.Prior.Status == rs.StatusPending {
		return Decision{Classification: ClassRetry, Action: ActionDownload}
	}

	field, comparable, equal := compareIdentity(in.Prior.ChangeIdentity(), in.Observed)
	if comparable && !equal {
		return Decision{Classification: ClassChanged, Action: ActionDownload, Field: field}
	}
	if !in.LocalExists {
		return Decision{Classification: ClassMissingLocal, Action: ActionDownload, Field: field}
	}
	return Decision{Classification: ClassUnchanged, Action: ActionSkip, Field: field}
}

// compareIdentity compares the first field present in both identities.
func compareIdentity(prev, cur rs.ChangeIdentity) (field string, comparable bool, equal bool) {
	switch {
	case prev.ETag != nil && cur.ETag != nil:
		return "etag", true, *prev.ETag == *cur.ETag
	case prev.LastModified != nil && cur.LastModified != nil:
		return "last_modified", true, *prev.LastModified == *cur.LastModified
	case prev.ContentLength != nil && cur.ContentLength != nil:
		return "content_length", true, *prev.ContentLength == *cur.ContentLength
	default:
		return "", false, false
	}
}
