package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats a report with colors and styling using lipgloss.
// It produces output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	switch {
	case r.Scan != nil:
		w.WriteString(f.formatScan(r))
	case r.Plan != nil:
		w.WriteString(f.formatPlan(r))
	case r.Execution != nil:
		w.WriteString(f.formatExecution(r))
	case r.Undo != nil:
		w.WriteString(f.formatUndo(r))
	case r.Status != nil:
		w.WriteString(f.formatStatus(r))
	}
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatScan(r *Report) string {
	s := r.Scan

	header := HeaderBox.Render(TitleStyle.Render("Scan complete"))

	var lines []string
	lines = append(lines, field("Files:", fmt.Sprint(s.TotalFiles)))
	lines = append(lines, field("Hashed:", fmt.Sprint(s.HashedFiles)))
	lines = append(lines, field("Skipped:", fmt.Sprint(s.SkippedFiles)))
	lines = append(lines, field("Duplicates:", fmt.Sprint(s.DuplicateFiles)))

	body := strings.Join(lines, "\n")
	if len(s.Errors) > 0 {
		var sb strings.Builder
		sb.WriteString(WarningStyle.Bold(true).Render(fmt.Sprintf("Errors (%d):", len(s.Errors))))
		for _, e := range s.Errors {
			sb.WriteString("\n")
			sb.WriteString(WarningStyle.Render("  " + e.Path + ": " + e.Error))
		}
		body += "\n" + sb.String()
	}

	return header + "\n" + body
}

func (f *PrettyFormatter) formatPlan(r *Report) string {
	p := r.Plan

	header := HeaderBox.Render(TitleStyle.Render("Plan generated"))

	var lines []string
	lines = append(lines, field("Entries:", fmt.Sprint(p.TotalEntries)))
	lines = append(lines, field("Unique:", fmt.Sprint(p.UniqueEntries)))
	lines = append(lines, field("Duplicates:", fmt.Sprint(p.DuplicateEntries)))
	lines = append(lines, field("Buckets:", fmt.Sprint(p.DestinationBuckets)))
	lines = append(lines, field("Size:", CountStyle.Render(humanize.IBytes(uint64(p.TotalBytes)))))

	footer := FooterBox.Render(
		LabelStyle.Render("Snapshot: ") + PathStyle.Render(p.PlanJSONPath))

	return header + "\n" + strings.Join(lines, "\n") + "\n" + footer
}

func (f *PrettyFormatter) formatExecution(r *Report) string {
	e := r.Execution

	title := "Execution complete"
	if e.DryRun {
		title = "Dry run complete"
	}
	header := HeaderBox.Render(TitleStyle.Render(title))

	var lines []string
	lines = append(lines, field("Mode:", string(e.Mode)))
	lines = append(lines, field("Entries:", fmt.Sprint(e.TotalEntries)))
	lines = append(lines, field("Processed:", fmt.Sprint(e.ProcessedEntries)))
	lines = append(lines, field("Succeeded:", SuccessStyle.Render(fmt.Sprint(e.Succeeded))))
	if e.Failed > 0 {
		lines = append(lines, field("Failed:", ErrorStyle.Render(fmt.Sprint(e.Failed))))
	} else {
		lines = append(lines, field("Failed:", "0"))
	}
	lines = append(lines, field("Duplicates:", fmt.Sprint(e.DuplicateEntries)))

	return header + "\n" + strings.Join(lines, "\n")
}

func (f *PrettyFormatter) formatUndo(r *Report) string {
	u := r.Undo

	header := HeaderBox.Render(TitleStyle.Render("Undo complete"))

	var lines []string
	lines = append(lines, field("Processed:", fmt.Sprint(u.ProcessedEntries)))
	lines = append(lines, field("Restored:", SuccessStyle.Render(fmt.Sprint(u.Restored))))
	if u.Missing > 0 {
		lines = append(lines, field("Missing:", WarningStyle.Render(fmt.Sprint(u.Missing))))
	} else {
		lines = append(lines, field("Missing:", "0"))
	}
	if u.Failed > 0 {
		lines = append(lines, field("Failed:", ErrorStyle.Render(fmt.Sprint(u.Failed))))
	} else {
		lines = append(lines, field("Failed:", "0"))
	}

	return header + "\n" + strings.Join(lines, "\n")
}

func (f *PrettyFormatter) formatStatus(r *Report) string {
	s := r.Status

	header := HeaderBox.Render(
		TitleStyle.Render("Library status") + "  " + MutedStyle.Render(s.DataDir))

	var lines []string
	lines = append(lines, field("Schema:", fmt.Sprint(s.SchemaVersion)))
	lines = append(lines, field("Inventory:", fmt.Sprint(s.InventoryCount)))
	lines = append(lines, field("Plan entries:", fmt.Sprint(s.PlanCount)))
	lines = append(lines, field("  pending:", fmt.Sprint(s.Pending)))
	lines = append(lines, field("  copied:", fmt.Sprint(s.Copied)))
	lines = append(lines, field("  moved:", fmt.Sprint(s.Moved)))
	if s.Failed > 0 {
		lines = append(lines, field("  failed:", ErrorStyle.Render(fmt.Sprint(s.Failed))))
	} else {
		lines = append(lines, field("  failed:", "0"))
	}
	lines = append(lines, field("Log rows:", fmt.Sprint(s.LogCount)))

	body := strings.Join(lines, "\n")
	if s.PlanGeneratedAt != "" {
		footer := FooterBox.Render(
			LabelStyle.Render("Plan from ") + ValueStyle.Render(s.PlanGeneratedAt) +
				LabelStyle.Render("  payload ") + CountStyle.Render(humanize.IBytes(uint64(s.PlanTotalBytes))))
		body += "\n" + footer
	}

	return header + "\n" + body
}

func field(label, value string) string {
	return fmt.Sprintf("%s %s", LabelStyle.Render(label), ValueStyle.Render(value))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
