package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phototidy/phototidy/pkg/phototidy/executor"
	"github.com/phototidy/phototidy/pkg/phototidy/output"
	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

var (
	executeMove   bool
	executeDryRun bool

	executeCmd = &cobra.Command{
		Use:   "execute",
		Short: "Apply the current plan by copying or moving files",
		Long: `Execute processes every pending plan entry. By default files are copied,
leaving origins untouched; with --move they are relocated and the operation
becomes undoable. Each entry is logged before and after its filesystem
operation, so an interrupted run can be inspected and resumed safely.

Use --dry-run to record intents and validate every entry without touching
the filesystem.`,
		Args: cobra.NoArgs,
		RunE: runExecuteCmd,
	}
)

func init() {
	executeCmd.Flags().BoolVar(&executeMove, "move", false, "move files instead of copying")
	executeCmd.Flags().BoolVarP(&executeDryRun, "dry-run", "d", false, "validate without touching the filesystem")
	rootCmd.AddCommand(executeCmd)
}

func runExecuteCmd(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	mode := types.ModeCopy
	if executeMove {
		mode = types.ModeMove
	}

	ctx, stop := commandContext()
	defer stop()

	engine := executor.New(a.paths, a.store)
	summary, err := engine.Execute(ctx, mode, executeDryRun, progressEmitter())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printInfo("Execution interrupted")
		} else {
			return fmt.Errorf("execute failed: %w", err)
		}
	}

	return render(&output.Report{Execution: summary})
}
