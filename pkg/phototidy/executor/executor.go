// Package executor applies a generated plan to the filesystem and replays
// the operation log to undo moves. Every mutation is preceded by a durable
// intent row in the append-only operation log; outcomes are recorded as
// committed or failed rows. Failures are all-or-nothing per item: the
// batch continues and partial completion is always reported in the
// summary, never silently.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/phototidy/phototidy/pkg/phototidy/config"
	"github.com/phototidy/phototidy/pkg/phototidy/logging"
	"github.com/phototidy/phototidy/pkg/phototidy/progress"
	"github.com/phototidy/phototidy/pkg/phototidy/store"
	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

// ErrHashMismatch means a file's content changed between plan and
// execute/undo time.
var ErrHashMismatch = errors.New("content hash mismatch")

// Engine executes plans and undoes move operations.
type Engine struct {
	paths config.Paths
	store *store.Store
	log   *logging.Logger
}

// New creates an Engine.
func New(paths config.Paths, st *store.Store) *Engine {
	return &Engine{
		paths: paths,
		store: st,
		log:   logging.Get("executor"),
	}
}

// Execute processes every pending plan entry in bucket order. The plan is
// persisted bucket-grouped, so entries targeting the same destination
// directory are always handled by the same sequential pass, which
// serializes operations on any single destination path.
//
// Dry-run performs every check and writes intent rows, but never mutates
// the filesystem, never writes committed rows, and never advances plan
// status, so repeated dry-runs report identical counts.
//
// On cancellation the summary accumulated so far is returned with the
// context error; committed log rows remain valid.
func (e *Engine) Execute(ctx context.Context, mode types.ExecutionMode, dryRun bool, emitter progress.Emitter) (*types.ExecutionSummary, error) {
	if emitter == nil {
		emitter = progress.Discard
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid execution mode: %q", mode)
	}

	entries, err := e.store.PlanEntriesWithStatus(store.StatusPending)
	if err != nil {
		return nil, err
	}
	total := len(entries)
	emitter.Emit(progress.Event{Stage: progress.StageExecute, Total: total})

	summary := &types.ExecutionSummary{
		Mode:         mode,
		DryRun:       dryRun,
		TotalEntries: total,
	}
	if total == 0 {
		return summary, nil
	}

	runID := uuid.New().String()
	e.log.Info("execution started", "run", runID, "mode", mode, "dry_run", dryRun, "entries", total)

	for i, entry := range entries {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if entry.IsDuplicate {
			summary.DuplicateEntries++
		}

		e.processEntry(runID, entry, mode, dryRun, summary)
		summary.ProcessedEntries++

		emitter.Emit(progress.Event{
			Stage:     progress.StageExecute,
			Processed: i + 1,
			Total:     total,
			Current:   filepath.ToSlash(entry.OriginFullPath),
		})
	}

	e.log.Info("execution finished",
		"run", runID, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}

// processEntry handles one plan entry. The intent row is appended before
// any filesystem check or mutation; crash recovery depends on that order.
func (e *Engine) processEntry(runID string, entry store.PlanRecord, mode types.ExecutionMode, dryRun bool, summary *types.ExecutionSummary) {
	targetPath := entry.TargetFullPath()

	if _, err := e.store.AppendLog(&store.LogRecord{
		RunID:       runID,
		PlanSeq:     entry.Seq,
		Stage:       store.StageIntent,
		Mode:        mode,
		DryRun:      dryRun,
		OriginPath:  entry.OriginFullPath,
		TargetPath:  targetPath,
		ContentHash: entry.ContentHash,
		At:          time.Now().UTC(),
	}); err != nil {
		// A store failure is terminal for the item, not the batch.
		e.log.Error("intent write failed", "origin", entry.OriginFullPath, "error", err)
		summary.Failed++
		return
	}

	originExists := pathExists(entry.OriginFullPath)
	targetExists := pathExists(targetPath)

	if dryRun {
		if originExists && !targetExists {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		return
	}

	if !originExists {
		e.recordFailure(runID, entry, mode, "origin file missing", summary)
		return
	}
	if targetExists {
		e.recordFailure(runID, entry, mode, "target file already exists", summary)
		return
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		e.recordFailure(runID, entry, mode, err.Error(), summary)
		return
	}

	var opErr error
	switch mode {
	case types.ModeCopy:
		opErr = copyFile(entry.OriginFullPath, targetPath)
	case types.ModeMove:
		opErr = moveFile(entry.OriginFullPath, targetPath)
	}
	if opErr != nil {
		e.recordFailure(runID, entry, mode, opErr.Error(), summary)
		return
	}

	status := store.StatusCopied
	if mode == types.ModeMove {
		status = store.StatusMoved
	}
	if err := e.store.UpdatePlanStatus(entry.Seq, status); err != nil {
		e.log.Error("status update failed", "seq", entry.Seq, "error", err)
	}
	if _, err := e.store.AppendLog(&store.LogRecord{
		RunID:       runID,
		PlanSeq:     entry.Seq,
		Stage:       store.StageCommitted,
		Mode:        mode,
		OriginPath:  entry.OriginFullPath,
		TargetPath:  targetPath,
		ContentHash: entry.ContentHash,
		At:          time.Now().UTC(),
	}); err != nil {
		e.log.Error("committed write failed", "seq", entry.Seq, "error", err)
	}
	summary.Succeeded++
}

func (e *Engine) recordFailure(runID string, entry store.PlanRecord, mode types.ExecutionMode, message string, summary *types.ExecutionSummary) {
	summary.Failed++
	e.log.Warn("entry failed", "origin", entry.OriginFullPath, "error", message)

	if err := e.store.UpdatePlanStatus(entry.Seq, store.StatusFailed); err != nil {
		e.log.Error("status update failed", "seq", entry.Seq, "error", err)
	}
	if _, err := e.store.AppendLog(&store.LogRecord{
		RunID:       runID,
		PlanSeq:     entry.Seq,
		Stage:       store.StageFailed,
		Mode:        mode,
		OriginPath:  entry.OriginFullPath,
		TargetPath:  entry.TargetFullPath(),
		ContentHash: entry.ContentHash,
		Error:       message,
		At:          time.Now().UTC(),
	}); err != nil {
		e.log.Error("failed write failed", "seq", entry.Seq, "error", err)
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// copyFile copies origin to target, preserving the file mode.
func copyFile(origin, target string) error {
	src, err := os.Open(origin)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return err
	}
	return dst.Close()
}

// moveFile renames origin to target, falling back to copy-and-remove when
// the destination is on a different device.
func moveFile(origin, target string) error {
	err := os.Rename(origin, target)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	return copyAcross(origin, target)
}

// copyAcross copies origin to target and removes the origin. When the
// origin cannot be removed the copy is undone so the item either moves
// completely or not at all.
func copyAcross(origin, target string) error {
	if err := copyFile(origin, target); err != nil {
		return err
	}
	if err := os.Remove(origin); err != nil {
		_ = os.Remove(target)
		return err
	}
	return nil
}
