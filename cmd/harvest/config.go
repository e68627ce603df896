package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/isseis/go-site-file-harvester/site_api"
	"github.com/isseis/go-site-file-harvester/status_report"
)

const stateFileName = ".harvest_state.sqlite"

// cliFlags holds the command-line flags not handled by the logger package.
type cliFlags struct {
	url         *string
	user        *string
	pass        *string
	output      *string
	state       *string
	dryRun      *bool
	force       *bool
	status      *bool
	statusLimit *int
	version     *bool
}

func registerFlags(fs *flag.FlagSet) *cliFlags {
	return &cliFlags{
		url:         fs.String("url", "", "Protected listing page URL (START_URL)"),
		user:        fs.String("user", "", "Site username (SITE_USERNAME)"),
		pass:        fs.String("pass", "", "Site password (SITE_PASSWORD)"),
		output:      fs.String("output", "", "Directory to save downloaded files (DOWNLOAD_DIR)"),
		state:       fs.String("state", "", "Record store path (HARVEST_STATE_DB)"),
		dryRun:      fs.Bool("dry-run", false, "Classify and report only; download nothing and leave the record store untouched"),
		force:       fs.Bool("force", false, "Download every known file again, even if unchanged"),
		status:      fs.Bool("status", false, "Print the record store summary and exit"),
		statusLimit: fs.Int("status-limit", status_report.DefaultLimit, "Number of recent records shown by --status"),
		version:     fs.Bool("version", false, "Print the version and exit"),
	}
}

// config is the resolved run configuration.
type config struct {
	startURL        string
	username        string
	password        string
	downloadDir     string
	statePath       string
	extensions      []string
	userAgent       string
	maxFileSize     int64
	pageTimeout     time.Duration
	probeTimeout    time.Duration
	downloadTimeout time.Duration
	metricsTextfile string
	dryRun          bool
	force           bool
	status          bool
	statusLimit     int
}

// harvestEnvVars lists the environment variables read by resolveConfig, for usage output.
var harvestEnvVars = []struct {
	Name        string
	Description string
}{
	{"START_URL", "Protected listing page URL (required)"},
	{"SITE_USERNAME", "Basic-auth username"},
	{"SITE_PASSWORD", "Basic-auth password"},
	{"DOWNLOAD_DIR", "Directory to save downloaded files (default: ~/Downloads/Automated_Web_Files)"},
	{"FILE_EXTENSIONS", "Pipe- or comma-delimited extensions (default: " + site_api.DefaultExtensions + ")"},
	{"HARVEST_STATE_DB", "Record store path (default: <DOWNLOAD_DIR>/" + stateFileName + ")"},
	{"HARVEST_USER_AGENT", "User-Agent header sent to the site"},
	{"HARVEST_MAX_FILE_SIZE", "Refuse files larger than this many bytes (default: 0, no limit)"},
	{"HARVEST_PAGE_TIMEOUT", "Time limit for fetching the listing page (default: " + site_api.DefaultPageTimeout.String() + ")"},
	{"HARVEST_PROBE_TIMEOUT", "Time limit for one file metadata check (default: " + site_api.DefaultProbeTimeout.String() + ")"},
	{"HARVEST_DOWNLOAD_TIMEOUT", "Longest wait for download data before giving up (default: " + site_api.DefaultDownloadTimeout.String() + ")"},
	{"METRICS_TEXTFILE", "Write Prometheus run metrics to this file"},
}

// resolveConfig merges flags and environment variables. Flags take precedence.
func resolveConfig(f *cliFlags) (*config, error) {
	cfg := &config{
		startURL:        valueOrEnv(f.url, "START_URL", ""),
		username:        valueOrEnv(f.user, "SITE_USERNAME", ""),
		password:        valueOrEnv(f.pass, "SITE_PASSWORD", ""),
		userAgent:       getEnv("HARVEST_USER_AGENT", defaultUserAgent()),
		metricsTextfile: getEnv("METRICS_TEXTFILE", ""),
		dryRun:          *f.dryRun,
		force:           *f.force,
		status:          *f.status,
		statusLimit:     *f.statusLimit,
	}

	downloadDir := valueOrEnv(f.output, "DOWNLOAD_DIR", "")
	if downloadDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine default download directory: %w", err)
		}
		downloadDir = filepath.Join(home, "Downloads", "Automated_Web_Files")
	}
	abs, err := filepath.Abs(downloadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path of download directory: %w", err)
	}
	cfg.downloadDir = abs

	statePath := valueOrEnv(f.state, "HARVEST_STATE_DB", filepath.Join(cfg.downloadDir, stateFileName))
	if cfg.statePath, err = filepath.Abs(statePath); err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path of record store: %w", err)
	}

	cfg.extensions = site_api.ParseExtensions(getEnv("FILE_EXTENSIONS", site_api.DefaultExtensions))
	if len(cfg.extensions) == 0 {
		return nil, errors.New("FILE_EXTENSIONS contains no extension")
	}

	if raw := strings.TrimSpace(getEnv("HARVEST_MAX_FILE_SIZE", "")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("HARVEST_MAX_FILE_SIZE must be a non-negative integer, got %q", raw)
		}
		cfg.maxFileSize = n
	}

	for _, t := range []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"HARVEST_PAGE_TIMEOUT", site_api.DefaultPageTimeout, &cfg.pageTimeout},
		{"HARVEST_PROBE_TIMEOUT", site_api.DefaultProbeTimeout, &cfg.probeTimeout},
		{"HARVEST_DOWNLOAD_TIMEOUT", site_api.DefaultDownloadTimeout, &cfg.downloadTimeout},
	} {
		d, err := durationEnv(t.key, t.fallback)
		if err != nil {
			return nil, err
		}
		*t.dst = d
	}

	if cfg.statusLimit < 1 {
		return nil, fmt.Errorf("--status-limit must be at least 1, got %d", cfg.statusLimit)
	}

	// --status only reads the record store.
	if !cfg.status && cfg.startURL == "" {
		return nil, errors.New("missing required parameter: url must be provided with --url or START_URL")
	}
	return cfg, nil
}

func defaultUserAgent() string {
	return "Mozilla/5.0 (compatible; go-site-file-harvester/" + Version + ")"
}

// durationEnv reads a positive duration such as "90s" or "2m". A bare number is taken as seconds.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		n, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr != nil {
			return 0, fmt.Errorf("%s must be a duration like 30s, got %q", key, raw)
		}
		d = time.Duration(n) * time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, raw)
	}
	return d, nil
}

func valueOrEnv(f *string, key, defaultValue string) string {
	if f != nil && *f != "" {
		return *f
	}
	return getEnv(key, defaultValue)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
