package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/AgnesNM/pokefetch/internal/artifact"
	"github.com/AgnesNM/pokefetch/internal/worker"
)

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	bucket := fs.String("bucket", "", "Artifact bucket URL or local directory")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: pokefetch verify [options] <item>...

Check that a well-formed published artifact exists for each item.

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

	present := 0
	for _, item := range items {
		if err := worker.ValidateItem(item); err != nil {
			fmt.Printf("%s\tinvalid\n", item)
			continue
		}
		ok, err := artifacts.Exists(ctx, item)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitFailure
		}
		if !ok {
			fmt.Printf("%s\tmissing\n", item)
			continue
		}
		data, err := artifacts.Read(ctx, item)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitFailure
		}
		if !worker.WellFormed(data) {
			fmt.Printf("%s\tcorrupt\n", item)
			continue
		}
		fmt.Printf("%s\tpresent\n", item)
		present++
	}

	switch {
	case present == len(items):
		return ExitSuccess
	case present > 0:
		return ExitPartial
	default:
		return ExitFailure
	}
}
