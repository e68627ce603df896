package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/isseis/go-site-file-harvester/filelock"
	"github.com/isseis/go-site-file-harvester/harvester"
	"github.com/isseis/go-site-file-harvester/logger"
	rs "github.com/isseis/go-site-file-harvester/record_store"
	"github.com/isseis/go-site-file-harvester/run_metrics"
	"github.com/isseis/go-site-file-harvester/site_api"
	"github.com/isseis/go-site-file-harvester/status_report"
)

const Version = "0.1.0"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1 // Authentication, reachability, record store or lock failure
	exitConfig  = 2 // Invalid flags or environment
)

func init() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on environment variables")
	}
}

// printUsage prints the complete usage information including flags and environment variables
func printUsage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
	flag.PrintDefaults()

	fmt.Fprintln(flag.CommandLine.Output(), "\nLogger environment variables:")
	for _, v := range logger.GetEnvVarsHelp() {
		fmt.Fprintf(flag.CommandLine.Output(), "  %-22s %s\n", v.Name, v.Description)
	}

	fmt.Fprintln(flag.CommandLine.Output(), "\nHarvester environment variables:")
	for _, v := range harvestEnvVars {
		fmt.Fprintf(flag.CommandLine.Output(), "  %-22s %s\n", v.Name, v.Description)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = printUsage
	flags := registerFlags(flag.CommandLine)
	flag.Parse()

	if *flags.version {
		fmt.Println(Version)
		return exitOK
	}

	logCfg, err := logger.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading logger config: %v\n\n", err)
		flag.Usage()
		return exitConfig
	}
	rootLog := logger.NewHybridLogger(*logCfg)
	defer func() {
		if err := rootLog.FlushWebhook(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush webhook logs: %v\n", err)
		}
	}()
	log := rootLog.With("run_id", uuid.NewString())

	cfg, err := resolveConfig(flags)
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		return exitConfig
	}

	if cfg.status {
		return runStatus(cfg, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runHarvest(ctx, cfg, log)
}

// runStatus prints the record store summary without taking the lock.
func runStatus(cfg *config, log logger.Logger) int {
	store, err := rs.Open(cfg.statePath, rs.WithReadOnly())
	if err != nil {
		log.Error("Failed to open record store", "path", cfg.statePath, "error", err)
		return exitFailure
	}
	defer store.Close()

	fmt.Printf("Record store: %s\n", cfg.statePath)
	if err := status_report.Report(os.Stdout, store, cfg.statusLimit); err != nil {
		log.Error("Failed to read record store", "path", cfg.statePath, "error", err)
		return exitFailure
	}
	return exitOK
}

// runHarvest logs in, discovers links and reconciles them against the record store.
func runHarvest(ctx context.Context, cfg *config, log logger.Logger) (exitCode int) {
	start := time.Now()
	metrics := run_metrics.New()
	defer func() {
		if cfg.metricsTextfile == "" {
			return
		}
		metrics.Finish(start, time.Now(), exitCode == exitOK)
		if err := metrics.WriteTextfile(cfg.metricsTextfile); err != nil {
			log.Warn("Failed to write metrics textfile", "path", cfg.metricsTextfile, "error", err)
		}
	}()

	log.Info("Site file harvester started", "version", Version, "url", cfg.startURL,
		"download_dir", cfg.downloadDir, "state", cfg.statePath, "dry_run", cfg.dryRun, "force", cfg.force)

	// A dry run never writes, so it neither takes the lock nor creates the store.
	storeOpts := []rs.Option{rs.WithReadOnly()}
	if !cfg.dryRun {
		unlock, err := filelock.TryLock(cfg.statePath)
		if err != nil {
			if errors.Is(err, filelock.ErrLockHeld) {
				owner, ownerErr := filelock.ReadOwner(cfg.statePath)
				log.Error("Another run is using the record store", "state", cfg.statePath, "pid", owner.PID, "acquired", owner.Acquired, "owner_error", ownerErr)
			} else {
				log.Error("Failed to acquire record store lock", "state", cfg.statePath, "error", err)
			}
			return exitFailure
		}
		defer unlock()
		storeOpts = nil
	}

	store, err := rs.Open(cfg.statePath, storeOpts...)
	if err != nil {
		log.Error("Failed to open record store", "path", cfg.statePath, "error", err)
		return exitFailure
	}
	defer store.Close()

	session, err := site_api.NewSession(cfg.startURL, cfg.username, cfg.password,
		site_api.WithUserAgent(cfg.userAgent),
		site_api.WithPageTimeout(cfg.pageTimeout),
		site_api.WithProbeTimeout(cfg.probeTimeout),
		site_api.WithDownloadTimeout(cfg.downloadTimeout),
	)
	if err != nil {
		log.Error("Invalid start URL", "url", cfg.startURL, "error", err)
		return exitConfig
	}

	page, err := session.Login(ctx)
	if err != nil {
		var authErr site_api.AuthError
		if errors.As(err, &authErr) {
			log.Error("Authentication failed", "url", cfg.startURL, "error", err)
		} else {
			log.Error("Failed to fetch listing page", "url", cfg.startURL, "error", err)
		}
		return exitFailure
	}

	links := site_api.DiscoverLinks(page, cfg.extensions)
	log.Info("Discovered downloadable links", "count", len(links), "extensions", cfg.extensions)
	if len(links) == 0 {
		fmt.Println("No downloadable files found")
		return exitOK
	}

	engine := harvester.NewEngine(session, store, &harvester.DefaultFileSystem{}, cfg.downloadDir,
		harvester.WithDryRun(cfg.dryRun),
		harvester.WithForce(cfg.force),
		harvester.WithLogger(harvester.NewLoggerAdapter(log)),
		harvester.WithMaxFileSize(cfg.maxFileSize),
		harvester.WithMetrics(metrics),
	)
	stats, err := engine.Run(ctx, links)
	fmt.Printf("Summary: %s\n", stats)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("Run interrupted", "error", err)
		} else {
			log.Error("Run aborted", "error", err)
		}
		return exitFailure
	}

	if cfg.dryRun {
		fmt.Println("No files were downloaded (dry-run).")
	} else {
		fmt.Printf("Downloaded files are in: %s\n", cfg.downloadDir)
	}
	log.Info("Site file harvester finished", stats.LogArgs()...)
	return exitOK
}
