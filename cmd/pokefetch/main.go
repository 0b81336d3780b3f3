package main

import (
	"fmt"
	"os"

	// Bucket drivers selectable via the -bucket URL.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Exit codes. ExitFailure also covers setup and usage errors.
const (
	ExitSuccess = 0
	ExitPartial = 1
	ExitFailure = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitFailure
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "fetch":
		return runFetch(cmdArgs)
	case "verify":
		return runVerify(cmdArgs)
	case "clean":
		return runClean(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitFailure
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: pokefetch <command> [options] [items...]

Commands:
  fetch     Fetch a batch of catalog records concurrently
  verify    Check that artifacts exist for the given items
  clean     Remove staged leftovers from interrupted runs

Exit codes for fetch: 0 all succeeded, 1 partial success, 2 total failure.

Run 'pokefetch <command> -h' for command-specific help.`)
}
