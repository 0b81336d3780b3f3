package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/AgnesNM/pokefetch/internal/artifact"
)

func runClean(args []string) int {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	bucket := fs.String("bucket", "", "Artifact bucket URL or local directory")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: pokefetch clean [options]

Delete staged artifacts left behind by interrupted runs. Published
artifacts are never touched.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitFailure
	}

	godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFailure
	}
	if *bucket != "" {
		cfg.Bucket = *bucket
	}
	if cfg.Bucket == "" {
		fmt.Fprintln(os.Stderr, "Error: -bucket is required")
		return ExitFailure
	}

	ctx := context.Background()
	artifacts, err := artifact.Open(ctx, bucketURL(cfg.Bucket))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFailure
	}
	defer artifacts.Close()

	removed, err := artifacts.CleanStaging(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFailure
	}

	fmt.Fprintf(os.Stderr, "[pokefetch] Removed %d staged artifacts\n", removed)
	return ExitSuccess
}
