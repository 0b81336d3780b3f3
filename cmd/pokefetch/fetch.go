package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/AgnesNM/pokefetch/internal/artifact"
	"github.com/AgnesNM/pokefetch/internal/config"
	"github.com/AgnesNM/pokefetch/internal/fetchclient"
	"github.com/AgnesNM/pokefetch/internal/progress"
	"github.com/AgnesNM/pokefetch/internal/status"
	"github.com/AgnesNM/pokefetch/internal/supervisor"
	"github.com/AgnesNM/pokefetch/internal/worker"
)

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	bucket := fs.String("bucket", "", "Artifact bucket URL or local directory")
	baseURL := fs.String("base-url", "", "Catalog API base URL")
	logFile := fs.String("log", "", "Attempt log file path")
	maxRetries := fs.Int("max-retries", 0, "Fetch attempts per item")
	retryDelay := fs.Duration("retry-delay", 0, "Wait between retryable attempts")
	rateLimitMult := fs.Float64("rate-limit-multiplier", 0, "Backoff multiplier after HTTP 429")
	connectTimeout := fs.Duration("connect-timeout", 0, "Connect timeout per request")
	totalTimeout := fs.Duration("total-timeout", 0, "Total timeout per request")
	maxParallel := fs.Int("max-parallel", 0, "Concurrent worker ceiling (0 = one per item)")
	force := fs.Bool("force", false, "Refetch even when the artifact already exists")
	noProgress := fs.Bool("no-progress", false, "Disable live progress output")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: pokefetch fetch [options] <item>...

Fetch each named record concurrently, retrying transient failures,
and store one JSON artifact per item in the bucket.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitFailure
	}

	items := fs.Args()
	if len(items) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one item is required")
		fs.Usage()
		return ExitFailure
	}

	godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFailure
	}
	cfg = cfg.Merge(config.Config{
		BaseURL: *baseURL,
		Bucket:  *bucket,
		LogFile: *logFile,
		Retry: config.RetryConfig{
			MaxRetries:          *maxRetries,
			Delay:               *retryDelay,
			RateLimitMultiplier: *rateLimitMult,
		},
		Timeouts: config.TimeoutConfig{
			Connect: *connectTimeout,
			Total:   *totalTimeout,
		},
		MaxParallel: *maxParallel,
		Force:       *force,
	})
	if *noProgress {
		cfg.Progress = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFailure
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[pokefetch] Received interrupt, shutting down...")
		cancel()
	}()

	return fetchBatch(ctx, items, cfg)
}

func fetchBatch(ctx context.Context, items []string, cfg config.Config) int {
	artifacts, err := artifact.Open(ctx, bucketURL(cfg.Bucket))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFailure
	}
	defer artifacts.Close()

	if dir := filepath.Dir(cfg.LogFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: create log directory: %v\n", err)
			return ExitFailure
		}
	}
	log, err := status.OpenLog(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFailure
	}
	defer log.Close()

	deps := supervisor.Deps{
		Client: fetchclient.New(fetchclient.Options{
			BaseURL:        cfg.BaseURL,
			ConnectTimeout: cfg.Timeouts.Connect,
			TotalTimeout:   cfg.Timeouts.Total,
			// One worker per item can mean the whole batch hitting
			// one host at once.
			MaxIdleConnsPerHost: len(items),
		}),
		Artifacts: artifacts,
		Log:       log,
	}
	if cfg.Progress {
		deps.Reporter = progress.NewReporter(progress.Options{
			TotalItems: len(items),
			Workers:    cfg.MaxParallel,
			Output:     os.Stderr,
		})
	}

	report, err := supervisor.Run(ctx, items, deps, supervisor.Config{
		Worker: worker.Config{
			MaxRetries:          cfg.Retry.MaxRetries,
			RetryDelay:          cfg.Retry.Delay,
			RateLimitMultiplier: cfg.Retry.RateLimitMultiplier,
			Force:               cfg.Force,
		},
		MaxParallel:  cfg.MaxParallel,
		PollInterval: cfg.PollInterval,
		GracePeriod:  cfg.GracePeriod,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFailure
	}

	report.WriteSummary(os.Stdout)

	switch report.Outcome() {
	case supervisor.AllSucceeded:
		return ExitSuccess
	case supervisor.PartialSuccess:
		return ExitPartial
	default:
		return ExitFailure
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// bucketURL turns a plain local path into a fileblob URL; real bucket
// URLs pass through untouched.
func bucketURL(bucket string) string {
	if strings.Contains(bucket, "://") {
		return bucket
	}
	abs, err := filepath.Abs(bucket)
	if err != nil {
		abs = bucket
	}
	return "file://" + abs + "?create_dir=true"
}
