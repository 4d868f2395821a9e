package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gtcore/qcmet/internal/cli"
)

func main() {
	inputDir := flag.String("input-dir", os.Getenv("QCMETD_INPUT_DIR"), "Directory to watch for metrics tables")
	profile := flag.String("profile", os.Getenv("QCMETD_PROFILE"), "Path to the membership profile JSON")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	opts := cli.DaemonOptions{
		InputDir:    *inputDir,
		ProfileFile: *profile,
		Verbose:     *verbose,
	}

	if err := cli.ServeDaemon(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
