package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phototidy/phototidy/pkg/phototidy/executor"
	"github.com/phototidy/phototidy/pkg/phototidy/output"
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Restore moved files to their original locations",
	Long: `Undo replays the operation log backwards and restores files that were
moved by a previous execute run. Copies are not undone. A destination whose
content no longer matches the hash recorded at move time is left in place
and reported as failed.`,
	Args: cobra.NoArgs,
	RunE: runUndoCmd,
}

func init() {
	rootCmd.AddCommand(undoCmd)
}

func runUndoCmd(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := commandContext()
	defer stop()

	engine := executor.New(a.paths, a.store)
	summary, err := engine.Undo(ctx, progressEmitter())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printInfo("Undo interrupted")
		} else {
			return fmt.Errorf("undo failed: %w", err)
		}
	}

	return render(&output.Report{Undo: summary})
}
