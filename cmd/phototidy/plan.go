package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phototidy/phototidy/pkg/phototidy/output"
	"github.com/phototidy/phototidy/pkg/phototidy/planner"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate the target layout from the current inventory",
	Long: `Plan reads the indexed inventory and computes a destination for every
file: capture-date buckets under the output root for unique files and
primary copies, hash-keyed folders under the duplicates directory for the
rest. Names are derived from the capture timestamp and made unique with
content-hash suffixes, so the same inventory always yields the same plan.

The plan replaces any previous plan and is also written as a JSON snapshot
next to the output tree.`,
	Args: cobra.NoArgs,
	RunE: runPlanCmd,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlanCmd(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p := planner.New(a.paths, a.store)
	summary, err := p.Generate(progressEmitter())
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}

	return render(&output.Report{Plan: summary})
}
