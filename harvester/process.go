package harvester

import (
	"context"
	"sort"

	rs "github.com/isseis/go-site-file-harvester/record_store"
	"github.com/isseis/go-site-file-harvester/site_api"
)

// target is one URL to reconcile.
type target struct {
	url       string // Canonical URL, also the record identity
	localPath string // Where the file is saved
}

// Run reconciles urls against the record store, one file at a time in sorted order.
//
// Per-file probe and transfer failures are recorded and counted; they never stop the run.
// A record store failure stops the run and is returned as is. A cancelled context stops
// the run before the next file; a file whose probe or transfer was interrupted is left
// as it was before the attempt.
func (e *Engine) Run(ctx context.Context, urls []string) (RunStats, error) {
	var stats RunStats
	log := e.getLogger()

	targets := e.prepareTargets(urls, &stats)
	log.Info("Reconciliation started", "files", len(targets), "dry_run", e.dryRun, "force", e.force)

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			log.Warn("Reconciliation interrupted", "error", err)
			return stats, err
		}
		if err := e.processFile(ctx, t, &stats); err != nil {
			if ctx.Err() != nil {
				log.Warn("Reconciliation interrupted", "url", t.url, "error", err)
			} else {
				log.Error("Record store failure, stopping run", "url", t.url, "error", err)
			}
			return stats, err
		}
	}

	log.Info("Reconciliation finished", stats.LogArgs()...)
	return stats, nil
}

// prepareTargets canonicalizes, de-duplicates and sorts urls. Unusable URLs are logged and counted as failed.
func (e *Engine) prepareTargets(urls []string, stats *RunStats) []target {
	log := e.getLogger()
	seen := make(map[string]bool, len(urls))
	owners := make(map[string]string, len(urls))
	var targets []target

	for _, raw := range urls {
		canonical, err := CanonicalURL(raw)
		if err != nil {
			log.Error("Ignoring invalid URL", "url", raw, "error", err)
			stats.Failed++
			continue
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true

		localPath, err := LocalPath(e.downloadDir, canonical)
		if err != nil {
			log.Error("Ignoring URL without a file name", "url", canonical, "error", err)
			stats.Failed++
			continue
		}
		if owner, ok := owners[localPath]; ok {
			log.Warn("URLs share a local path", "path", localPath, "url", canonical, "other_url", owner)
		} else {
			owners[localPath] = canonical
		}
		targets = append(targets, target{url: canonical, localPath: localPath})
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].url < targets[j].url })
	return targets
}

// processFile classifies one URL and acts on the decision.
// Only record store failures and context cancellation are returned.
func (e *Engine) processFile(ctx context.Context, t target, stats *RunStats) error {
	log := e.fileLogger(t)

	prior, found, err := e.store.Get(t.url)
	if err != nil {
		return err
	}
	var priorRec *rs.FileRecord
	if found {
		priorRec = &prior
	}

	probe, err := e.session.Probe(ctx, t.url)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error("Failed to probe file", "error", err)
		stats.Failed++
		e.observe(ClassProbeFailed, OutcomeFailed)
		if e.IsDryRun() {
			return nil
		}
		// Identity stays as last observed so the next run compares against the same baseline.
		rec := e.baseRecord(t, priorRec)
		rec.Status = rs.StatusFailed
		rec.LastCheckedAt = e.now()
		return e.store.Upsert(rec)
	}

	observed := probeIdentity(probe)
	d := Classify(ClassifyInput{
		Prior:       priorRec,
		Observed:    observed,
		Force:       e.force,
		LocalExists: e.fs.Exists(t.localPath),
	})
	stats.countClassification(d.Classification)
	log.Debug("Classified file", "classification", d.Classification, "action", d.Action, "field", d.Field)

	switch d.Action {
	case ActionSkip:
		stats.Skipped++
		e.observe(d.Classification, OutcomeSkipped)
		if e.IsDryRun() {
			log.Info("Dry run: would skip unchanged file")
			return nil
		}
		log.Debug("Skipping unchanged file", "path", prior.LocalPath)
		prior.LastCheckedAt = e.now()
		return e.store.Upsert(prior)

	case ActionDownload:
		if e.tooLarge(observed) {
			stats.Skipped++
			e.observe(d.Classification, OutcomeSkipped)
			log.Warn("Skipping file larger than size limit", "content_length", *observed.ContentLength, "max_file_size", e.maxFileSize)
			if e.IsDryRun() {
				return nil
			}
			rec := e.baseRecord(t, priorRec)
			rec.Status = rs.StatusSkipped
			rec.LastCheckedAt = e.now()
			return e.store.Upsert(rec)
		}
		if e.IsDryRun() {
			stats.Planned++
			e.observe(d.Classification, OutcomePlanned)
			log.Info("Dry run: would download file", "classification", d.Classification, "path", t.localPath)
			return nil
		}
		return e.download(ctx, t, priorRec, observed, d, stats)
	}
	return nil
}

// download transfers one file and records the outcome.
func (e *Engine) download(ctx context.Context, t target, prior *rs.FileRecord, observed rs.ChangeIdentity, d Decision, stats *RunStats) error {
	log := e.fileLogger(t)

	rec := e.baseRecord(t, prior)
	if prior == nil {
		rec.Status = rs.StatusPending
		rec.LastCheckedAt = e.now()
		if err := e.store.Upsert(rec); err != nil {
			return err
		}
	}

	log.Info("Downloading file", "classification", d.Classification, "path", t.localPath)
	n, err := e.fetch(ctx, t, observed)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error("Failed to download file", "error", err)
		stats.Failed++
		e.observe(d.Classification, OutcomeFailed)
		// Identity fields keep their pre-attempt values.
		rec.Status = rs.StatusFailed
		rec.LastCheckedAt = e.now()
		return e.store.Upsert(rec)
	}

	now := e.now()
	rec.SetChangeIdentity(observed)
	rec.Status = rs.StatusDownloaded
	rec.LastCheckedAt = now
	rec.LastDownloadedAt = &now
	if err := e.store.Upsert(rec); err != nil {
		return err
	}
	stats.Downloaded++
	e.observe(d.Classification, OutcomeDownloaded)
	log.Info("File downloaded successfully", "path", t.localPath, "bytes", n)
	return nil
}

// fetch streams the file body to its local path.
func (e *Engine) fetch(ctx context.Context, t target, observed rs.ChangeIdentity) (int64, error) {
	resp, err := e.session.Download(ctx, t.url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.ETag != nil && observed.ETag != nil && *resp.ETag != *observed.ETag {
		e.fileLogger(t).Warn("File changed between probe and download", "probe_etag", *observed.ETag, "download_etag", *resp.ETag)
	}
	return e.fs.WriteFile(t.localPath, resp.Body, dirPerm, filePerm)
}

// baseRecord returns a copy of prior pointed at t's local path, or a fresh record without identity fields.
func (e *Engine) baseRecord(t target, prior *rs.FileRecord) rs.FileRecord {
	if prior != nil {
		rec := *prior
		rec.LocalPath = t.localPath
		return rec
	}
	return rs.FileRecord{Identity: t.url, LocalPath: t.localPath}
}

func (e *Engine) tooLarge(observed rs.ChangeIdentity) bool {
	return e.maxFileSize > 0 && observed.ContentLength != nil && *observed.ContentLength > e.maxFileSize
}

// probeIdentity takes all three identity fields from one probe response.
func probeIdentity(p *site_api.ProbeResponse) rs.ChangeIdentity {
	return rs.ChangeIdentity{
		ETag:          p.ETag,
		LastModified:  p.LastModified,
		ContentLength: p.ContentLength,
	}
}
