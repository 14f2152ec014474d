package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/phototidy/phototidy/pkg/phototidy/output"
	"github.com/phototidy/phototidy/pkg/phototidy/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted pipeline state",
	Long: `Status reports the inventory size, plan entry counts by status, operation
log length and current plan metadata without touching the filesystem.`,
	Args: cobra.NoArgs,
	RunE: runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatusCmd(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	inventory, plan, oplog, err := a.store.Counts()
	if err != nil {
		return err
	}

	report := &output.StatusReport{
		DataDir:        a.paths.DatabaseDir,
		SchemaVersion:  a.paths.SchemaVersion,
		InventoryCount: inventory,
		PlanCount:      plan,
		LogCount:       oplog,
	}

	entries, err := a.store.PlanEntries()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		switch entry.Status {
		case store.StatusPending:
			report.Pending++
		case store.StatusCopied:
			report.Copied++
		case store.StatusMoved:
			report.Moved++
		case store.StatusFailed:
			report.Failed++
		}
	}

	if generatedAt, err := a.store.GetMeta(store.MetaPlanGeneratedAt); err == nil {
		report.PlanGeneratedAt = generatedAt
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if totalBytes, err := a.store.GetMeta(store.MetaPlanTotalBytes); err == nil {
		if n, err := strconv.ParseInt(totalBytes, 10, 64); err == nil {
			report.PlanTotalBytes = n
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	return render(&output.Report{Status: report})
}
