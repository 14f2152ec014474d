package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// PlainFormatter formats a report as simple aligned key-value text.
// It produces plain output suitable for scripting and piping.
// No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	switch {
	case r.Scan != nil:
		f.writeScan(tw, r)
	case r.Plan != nil:
		f.writePlan(tw, r)
	case r.Execution != nil:
		f.writeExecution(tw, r)
	case r.Undo != nil:
		f.writeUndo(tw, r)
	case r.Status != nil:
		f.writeStatus(tw, r)
	}

	return tw.Flush()
}

func (f *PlainFormatter) writeScan(tw *tabwriter.Writer, r *Report) {
	s := r.Scan
	writeRow(tw, "total", fmt.Sprint(s.TotalFiles))
	writeRow(tw, "hashed", fmt.Sprint(s.HashedFiles))
	writeRow(tw, "skipped", fmt.Sprint(s.SkippedFiles))
	writeRow(tw, "duplicates", fmt.Sprint(s.DuplicateFiles))
	writeRow(tw, "errors", fmt.Sprint(len(s.Errors)))
	for _, e := range s.Errors {
		writeRow(tw, "error", e.Path+": "+e.Error)
	}
}

func (f *PlainFormatter) writePlan(tw *tabwriter.Writer, r *Report) {
	p := r.Plan
	writeRow(tw, "generated", p.GeneratedAt)
	writeRow(tw, "entries", fmt.Sprint(p.TotalEntries))
	writeRow(tw, "unique", fmt.Sprint(p.UniqueEntries))
	writeRow(tw, "duplicates", fmt.Sprint(p.DuplicateEntries))
	writeRow(tw, "buckets", fmt.Sprint(p.DestinationBuckets))
	writeRow(tw, "bytes", humanize.IBytes(uint64(p.TotalBytes)))
	writeRow(tw, "snapshot", p.PlanJSONPath)
}

func (f *PlainFormatter) writeExecution(tw *tabwriter.Writer, r *Report) {
	e := r.Execution
	writeRow(tw, "mode", string(e.Mode))
	writeRow(tw, "dry_run", fmt.Sprint(e.DryRun))
	writeRow(tw, "entries", fmt.Sprint(e.TotalEntries))
	writeRow(tw, "processed", fmt.Sprint(e.ProcessedEntries))
	writeRow(tw, "succeeded", fmt.Sprint(e.Succeeded))
	writeRow(tw, "failed", fmt.Sprint(e.Failed))
	writeRow(tw, "duplicates", fmt.Sprint(e.DuplicateEntries))
}

func (f *PlainFormatter) writeUndo(tw *tabwriter.Writer, r *Report) {
	u := r.Undo
	writeRow(tw, "processed", fmt.Sprint(u.ProcessedEntries))
	writeRow(tw, "restored", fmt.Sprint(u.Restored))
	writeRow(tw, "missing", fmt.Sprint(u.Missing))
	writeRow(tw, "failed", fmt.Sprint(u.Failed))
}

func (f *PlainFormatter) writeStatus(tw *tabwriter.Writer, r *Report) {
	s := r.Status
	writeRow(tw, "data_dir", s.DataDir)
	writeRow(tw, "schema", fmt.Sprint(s.SchemaVersion))
	writeRow(tw, "inventory", fmt.Sprint(s.InventoryCount))
	writeRow(tw, "plan", fmt.Sprint(s.PlanCount))
	writeRow(tw, "pending", fmt.Sprint(s.Pending))
	writeRow(tw, "copied", fmt.Sprint(s.Copied))
	writeRow(tw, "moved", fmt.Sprint(s.Moved))
	writeRow(tw, "failed", fmt.Sprint(s.Failed))
	writeRow(tw, "oplog", fmt.Sprint(s.LogCount))
	if s.PlanGeneratedAt != "" {
		writeRow(tw, "plan_generated", s.PlanGeneratedAt)
		writeRow(tw, "plan_bytes", humanize.IBytes(uint64(s.PlanTotalBytes)))
	}
}

func writeRow(tw *tabwriter.Writer, key, value string) {
	_, _ = tw.Write([]byte(key + "\t" + value + "\n"))
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
