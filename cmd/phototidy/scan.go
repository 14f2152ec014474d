package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phototidy/phototidy/pkg/phototidy/config"
	"github.com/phototidy/phototidy/pkg/phototidy/output"
	"github.com/phototidy/phototidy/pkg/phototidy/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Index media files and detect duplicates",
	Long: `Scan walks the image root, fingerprints every recognized media file and
stores an inventory record with content hash, capture timestamp and camera
metadata. Files whose size and modification time are unchanged since the
previous scan keep their stored hashes instead of being re-read.

An optional path argument overrides the configured image root.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScanCmd(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) > 0 {
		root, err := resolveDir(args[0])
		if err != nil {
			return err
		}
		a.paths.ImageRoot = root
	}

	printVerbose("Scanning %s (%d workers)", a.paths.ImageRoot, a.paths.HashWorkers)

	ctx, stop := commandContext()
	defer stop()

	s := scanner.New(a.paths, a.store, progressEmitter())
	summary, err := s.Scan(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printInfo("Scan interrupted")
		} else {
			return fmt.Errorf("scan failed: %w", err)
		}
	}

	return render(&output.Report{Scan: summary})
}

// resolveDir expands, absolutizes and verifies a directory path argument.
func resolveDir(path string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", abs)
		}
		return "", fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", abs)
	}
	return abs, nil
}
