package executor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/phototidy/phototidy/pkg/phototidy/hasher"
	"github.com/phototidy/phototidy/pkg/phototidy/progress"
	"github.com/phototidy/phototidy/pkg/phototidy/store"
	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

// Undo restores moved files to their recorded origins by replaying the
// operation log backwards. Only real (non-dry-run) move operations whose
// latest log stage is still committed are eligible: copies leave the
// origin in place and rolled-back entries are already restored.
//
// Before restoring, the destination's content hash is recomputed and
// compared to the hash recorded at commit time. A file that has been
// modified after the move is never restored over the origin path.
func (e *Engine) Undo(ctx context.Context, emitter progress.Emitter) (*types.UndoSummary, error) {
	if emitter == nil {
		emitter = progress.Discard
	}

	logs, err := e.store.LogEntries()
	if err != nil {
		return nil, err
	}

	// Latest non-intent stage wins for each plan entry. An intent row with
	// no outcome means the process died mid-operation; such entries are
	// left alone rather than guessed at.
	final := make(map[uint64]store.LogStage)
	for _, row := range logs {
		if row.Stage == store.StageIntent {
			continue
		}
		final[row.PlanSeq] = row.Stage
	}

	var candidates []store.LogRecord
	seen := make(map[uint64]bool)
	for i := len(logs) - 1; i >= 0; i-- {
		row := logs[i]
		if row.Stage != store.StageCommitted || row.Mode != types.ModeMove || row.DryRun {
			continue
		}
		if seen[row.PlanSeq] || final[row.PlanSeq] != store.StageCommitted {
			continue
		}
		seen[row.PlanSeq] = true
		candidates = append(candidates, row)
	}

	total := len(candidates)
	emitter.Emit(progress.Event{Stage: progress.StageUndo, Total: total})

	summary := &types.UndoSummary{}
	if total == 0 {
		return summary, nil
	}

	runID := uuid.New().String()
	e.log.Info("undo started", "run", runID, "entries", total)

	for i, row := range candidates {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		e.restoreEntry(runID, row, summary)
		summary.ProcessedEntries++

		emitter.Emit(progress.Event{
			Stage:     progress.StageUndo,
			Processed: i + 1,
			Total:     total,
			Current:   filepath.ToSlash(row.TargetPath),
		})
	}

	e.log.Info("undo finished",
		"run", runID, "restored", summary.Restored, "missing", summary.Missing, "failed", summary.Failed)
	return summary, nil
}

func (e *Engine) restoreEntry(runID string, row store.LogRecord, summary *types.UndoSummary) {
	if !pathExists(row.TargetPath) {
		summary.Missing++
		e.log.Warn("destination missing during undo", "target", row.TargetPath)
		e.appendUndoRow(runID, row, store.StageFailed, "destination missing during undo")
		return
	}

	digest, err := hasher.File(row.TargetPath)
	if err != nil {
		summary.Failed++
		e.appendUndoRow(runID, row, store.StageFailed, err.Error())
		return
	}
	if digest.Content != row.ContentHash {
		summary.Failed++
		e.log.Warn("refusing undo, file changed after move", "target", row.TargetPath)
		e.appendUndoRow(runID, row, store.StageFailed, ErrHashMismatch.Error())
		return
	}

	if pathExists(row.OriginPath) {
		summary.Failed++
		e.appendUndoRow(runID, row, store.StageFailed, "origin path already occupied")
		return
	}
	if err := os.MkdirAll(filepath.Dir(row.OriginPath), 0o755); err != nil {
		summary.Failed++
		e.appendUndoRow(runID, row, store.StageFailed, err.Error())
		return
	}
	if err := moveFile(row.TargetPath, row.OriginPath); err != nil {
		summary.Failed++
		e.appendUndoRow(runID, row, store.StageFailed, err.Error())
		return
	}

	if err := e.store.UpdatePlanStatus(row.PlanSeq, store.StatusPending); err != nil {
		e.log.Error("status reset failed", "seq", row.PlanSeq, "error", err)
	}
	e.appendUndoRow(runID, row, store.StageRolledBack, "")
	summary.Restored++
}

func (e *Engine) appendUndoRow(runID string, row store.LogRecord, stage store.LogStage, message string) {
	if _, err := e.store.AppendLog(&store.LogRecord{
		RunID:       runID,
		PlanSeq:     row.PlanSeq,
		Stage:       stage,
		Mode:        types.ModeMove,
		OriginPath:  row.OriginPath,
		TargetPath:  row.TargetPath,
		ContentHash: row.ContentHash,
		Error:       message,
		At:          time.Now().UTC(),
	}); err != nil {
		e.log.Error("undo log write failed", "seq", row.PlanSeq, "error", err)
	}
}
