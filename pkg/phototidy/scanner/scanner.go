// Package scanner walks the configured image root, compares each file's
// (size, mtime) fingerprint against the persisted inventory, and hashes
// only changed or new files. Enumeration uses fastwalk for parallel
// traversal; hashing runs on a bounded worker pool.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/phototidy/phototidy/pkg/phototidy/config"
	"github.com/phototidy/phototidy/pkg/phototidy/dedupe"
	"github.com/phototidy/phototidy/pkg/phototidy/hasher"
	"github.com/phototidy/phototidy/pkg/phototidy/logging"
	"github.com/phototidy/phototidy/pkg/phototidy/metadata"
	"github.com/phototidy/phototidy/pkg/phototidy/progress"
	"github.com/phototidy/phototidy/pkg/phototidy/store"
	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

// snapshot is one enumerated file before hashing.
type snapshot struct {
	absPath    string
	relPath    string
	fileName   string
	size       int64
	modTime    time.Time
	modifiedAt string
}

// Scanner produces an updated inventory from the image root.
type Scanner struct {
	paths     config.Paths
	store     *store.Store
	emitter   progress.Emitter
	extractor metadata.Extractor
	log       *logging.Logger

	// errors collects per-file failures without stopping the scan.
	errors   []types.FileError
	errorsMu sync.Mutex
}

// New creates a Scanner. A nil emitter discards progress.
func New(paths config.Paths, st *store.Store, emitter progress.Emitter) *Scanner {
	if emitter == nil {
		emitter = progress.Discard
	}
	return &Scanner{
		paths:   paths,
		store:   st,
		emitter: emitter,
		log:     logging.Get("scanner"),
	}
}

// Scan runs one scan: enumerate, diff, hash, upsert. Per-file IO errors
// are recorded in the summary and skipped; the run continues. On
// cancellation the partial summary accumulated so far is returned together
// with the context error, and the persisted inventory is left at its prior
// committed state.
func (s *Scanner) Scan(ctx context.Context) (*types.ScanSummary, error) {
	snapshots, err := s.enumerate(ctx)
	if err != nil {
		return s.summary(0, 0, 0, 0), err
	}

	total := len(snapshots)
	if total == 0 {
		if err := s.store.ReplaceInventory(nil); err != nil {
			return s.summary(0, 0, 0, 0), err
		}
		if err := s.store.SetMeta(store.MetaScanRoot, s.paths.ImageRoot); err != nil {
			return s.summary(0, 0, 0, 0), err
		}
		s.emitter.Emit(progress.Event{Stage: progress.StageDiff})
		s.emitter.Emit(progress.Event{Stage: progress.StageHash})
		return s.summary(0, 0, 0, 0), nil
	}

	reused, toHash, err := s.diff(snapshots)
	if err != nil {
		return s.summary(total, 0, 0, 0), err
	}
	skipped := len(reused)
	s.emitter.Emit(progress.Event{Stage: progress.StageDiff, Processed: skipped, Total: total})

	hashed, err := s.hash(ctx, toHash)
	if err != nil {
		return s.summary(total, len(hashed), skipped, 0), err
	}

	records := append(reused, hashed...)
	duplicates := dedupe.Mark(records)

	sort.Slice(records, func(i, j int) bool {
		if records[i].CapturedAt != records[j].CapturedAt {
			return records[i].CapturedAt < records[j].CapturedAt
		}
		return records[i].RelPath < records[j].RelPath
	})

	if err := s.store.ReplaceInventory(records); err != nil {
		return s.summary(total, len(hashed), skipped, duplicates), err
	}
	// Inventory paths are relative to this root; later stages resolve
	// against the persisted value rather than their own configuration.
	if err := s.store.SetMeta(store.MetaScanRoot, s.paths.ImageRoot); err != nil {
		return s.summary(total, len(hashed), skipped, duplicates), err
	}

	s.log.Info("scan complete",
		"total", total, "hashed", len(hashed), "skipped", skipped, "duplicates", duplicates)

	return s.summary(total, len(hashed), skipped, duplicates), nil
}

// enumerate walks the image root collecting files with recognized
// extensions. The result is sorted by relative path so every later stage
// iterates deterministically.
func (s *Scanner) enumerate(ctx context.Context) ([]snapshot, error) {
	root := s.paths.ImageRoot
	if _, err := os.Stat(root); os.IsNotExist(err) {
		s.emitter.Emit(progress.Event{Stage: progress.StageScan})
		return nil, nil
	}

	var (
		mu        sync.Mutex
		snapshots []snapshot
		found     atomic.Int64
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.addError(path, err)
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !s.paths.HasExtension(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.addError(path, err)
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			s.addError(path, err)
			return nil
		}

		snap := snapshot{
			absPath:    path,
			relPath:    filepath.ToSlash(rel),
			fileName:   filepath.Base(path),
			size:       info.Size(),
			modTime:    info.ModTime(),
			modifiedAt: types.FormatTimestamp(info.ModTime()),
		}

		mu.Lock()
		snapshots = append(snapshots, snap)
		mu.Unlock()

		// Enumeration has no known total; report found count as both.
		n := int(found.Add(1))
		if n%100 == 0 {
			s.emitter.Emit(progress.Event{
				Stage: progress.StageScan, Processed: n, Total: n, Current: snap.relPath,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].relPath < snapshots[j].relPath
	})
	s.emitter.Emit(progress.Event{
		Stage: progress.StageScan, Processed: len(snapshots), Total: len(snapshots),
	})
	return snapshots, nil
}

// diff splits snapshots into records reusable from the inventory and
// snapshots needing a fresh hash. A record is reusable when its
// fingerprint matches and it already carries a content hash.
func (s *Scanner) diff(snapshots []snapshot) (reused []types.MediaRecord, toHash []snapshot, err error) {
	existing, err := s.store.InventorySnapshot()
	if err != nil {
		return nil, nil, err
	}

	byPath := make(map[string]types.MediaRecord, len(existing))
	for _, record := range existing {
		byPath[record.RelPath] = record
	}

	for _, snap := range snapshots {
		record, ok := byPath[snap.relPath]
		if ok && record.FileSize == snap.size && record.ModifiedAt == snap.modifiedAt &&
			record.ContentHash != "" {
			record.FileName = snap.fileName
			record.IsDuplicate = false // re-marked after merge
			reused = append(reused, record)
			continue
		}
		toHash = append(toHash, snap)
	}
	return reused, toHash, nil
}

// hash digests every changed/new file on the worker pool and extracts
// capture metadata. Per-file failures are recorded; partial digests are
// never stored.
func (s *Scanner) hash(ctx context.Context, snapshots []snapshot) ([]types.MediaRecord, error) {
	total := len(snapshots)
	if total == 0 {
		s.emitter.Emit(progress.Event{Stage: progress.StageHash})
		return nil, nil
	}

	byPath := make(map[string]snapshot, total)
	paths := make([]string, 0, total)
	for _, snap := range snapshots {
		byPath[snap.absPath] = snap
		paths = append(paths, snap.absPath)
	}

	var (
		mu        sync.Mutex
		records   []types.MediaRecord
		processed atomic.Int64
	)

	pool := hasher.NewPool(s.paths.HashWorkers)
	err := pool.Run(ctx, paths, func(result hasher.Result) {
		snap := byPath[result.Path]
		n := int(processed.Add(1))

		if result.Err != nil {
			s.addError(result.Path, result.Err)
			s.emitter.Emit(progress.Event{
				Stage: progress.StageHash, Processed: n, Total: total, Current: snap.relPath,
			})
			return
		}

		capture := s.extractor.Extract(result.Path, snap.modTime)

		record := types.MediaRecord{
			FileHash:       result.Digest.Legacy,
			ContentHash:    result.Digest.Content,
			FileSize:       snap.size,
			FileName:       snap.fileName,
			RelPath:        snap.relPath,
			CapturedAt:     capture.Timestamp,
			CapturedSource: capture.Source,
			ModifiedAt:     snap.modifiedAt,
			CameraModel:    capture.CameraModel,
			CameraMake:     capture.CameraMake,
			Artist:         capture.Artist,
		}

		mu.Lock()
		records = append(records, record)
		mu.Unlock()

		s.emitter.Emit(progress.Event{
			Stage: progress.StageHash, Processed: n, Total: total, Current: snap.relPath,
		})
	})

	s.emitter.Emit(progress.Event{
		Stage: progress.StageHash, Processed: int(processed.Load()), Total: total,
	})
	return records, err
}

func (s *Scanner) addError(path string, err error) {
	s.log.Warn("skipping file", "path", path, "error", err)
	s.errorsMu.Lock()
	s.errors = append(s.errors, types.FileError{Path: path, Error: err.Error()})
	s.errorsMu.Unlock()
}

func (s *Scanner) summary(total, hashed, skipped, duplicates int) *types.ScanSummary {
	s.errorsMu.Lock()
	errs := append([]types.FileError(nil), s.errors...)
	s.errorsMu.Unlock()

	return &types.ScanSummary{
		TotalFiles:     total,
		HashedFiles:    hashed,
		SkippedFiles:   skipped,
		DuplicateFiles: duplicates,
		Errors:         errs,
	}
}
