// Package planner derives a deterministic destination layout from the
// inventory and duplicate index. Planning is side-effect-free on the
// filesystem: it reads the inventory and writes plan rows plus a JSON
// snapshot of the plan, nothing else.
package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/phototidy/phototidy/pkg/phototidy/config"
	"github.com/phototidy/phototidy/pkg/phototidy/dedupe"
	"github.com/phototidy/phototidy/pkg/phototidy/logging"
	"github.com/phototidy/phototidy/pkg/phototidy/progress"
	"github.com/phototidy/phototidy/pkg/phototidy/store"
	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

// PlanSchemaVersion tags persisted plan metadata.
const PlanSchemaVersion = 1

// hashSuffixLen is how many hash characters disambiguate colliding names.
const hashSuffixLen = 8

// maxNameAttempts bounds collision resolution before giving up.
const maxNameAttempts = 10000

// ErrPathCollision is returned when a destination name cannot be
// disambiguated.
var ErrPathCollision = errors.New("destination path collision could not be disambiguated")

// Planner generates plans from the persisted inventory.
type Planner struct {
	paths config.Paths
	store *store.Store
	log   *logging.Logger

	// now supplies GeneratedAt; overridden in tests.
	now func() time.Time
}

// New creates a Planner.
func New(paths config.Paths, st *store.Store) *Planner {
	return &Planner{
		paths: paths,
		store: st,
		log:   logging.Get("planner"),
		now:   time.Now,
	}
}

// imageRoot returns the root the inventory's relative paths were recorded
// under. Scans persist their effective root, which may differ from the
// configured one when a path argument overrode it.
func (p *Planner) imageRoot() (string, error) {
	root, err := p.store.GetMeta(store.MetaScanRoot)
	if errors.Is(err, store.ErrNotFound) {
		return p.paths.ImageRoot, nil
	}
	if err != nil {
		return "", err
	}
	return root, nil
}

// legacyPlanItem is the plan JSON snapshot shape kept compatible with
// prior outputs.
type legacyPlanItem struct {
	FileHash       string `json:"fileHash"`
	FileSize       int64  `json:"fileSize"`
	OriginFileName string `json:"originFileName"`
	OriginFullPath string `json:"originFullPath"`
	NewFileName    string `json:"newFileName"`
	NewPath        string `json:"newPath"`
}

// Generate consumes the inventory and duplicate index and produces a
// PlanSummary. Runs are deterministic: the same inventory always yields
// the same item sequence. A nil emitter discards progress.
func (p *Planner) Generate(emitter progress.Emitter) (*types.PlanSummary, error) {
	if emitter == nil {
		emitter = progress.Discard
	}

	inventory, err := p.store.InventorySnapshot()
	if err != nil {
		return nil, err
	}
	imageRoot, err := p.imageRoot()
	if err != nil {
		return nil, err
	}
	total := len(inventory)
	emitter.Emit(progress.Event{Stage: progress.StagePlan, Total: total})

	generatedAt := types.FormatTimestamp(p.now())

	if total == 0 {
		if err := p.persist(nil, nil, generatedAt, 0); err != nil {
			return nil, err
		}
		return &types.PlanSummary{
			GeneratedAt:  generatedAt,
			PlanJSONPath: filepath.ToSlash(p.paths.PlanJSONPath),
			Entries:      []types.PlanItem{},
		}, nil
	}

	idx := dedupe.Build(inventory)

	used := make(map[string]bool, total)
	items := make([]types.PlanItem, 0, total)
	records := make([]store.PlanRecord, 0, total)

	var totalBytes int64
	duplicates := 0

	for i, record := range inventory {
		timestamp := record.CapturedAt
		if timestamp == "" {
			timestamp = record.ModifiedAt
		}

		isDuplicate := !idx.IsPrimary(record.ContentHash, record.RelPath)

		var targetDir string
		if isDuplicate {
			targetDir = filepath.Join(p.paths.DuplicatesDir, hashPrefix(record.ContentHash))
			duplicates++
		} else {
			targetDir = filepath.Join(p.paths.OutputRoot, types.DateBucket(timestamp))
		}
		targetDir = ensureTrailingSeparator(targetDir)

		baseName := timestamp + "." + record.FileName
		fileName, err := reserveName(used, targetDir, baseName, record.ContentHash)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, baseName)
		}

		originFullPath := filepath.Join(imageRoot, filepath.FromSlash(record.RelPath))

		items = append(items, types.PlanItem{
			FileHash:       record.FileHash,
			ContentHash:    record.ContentHash,
			FileSize:       record.FileSize,
			OriginFileName: record.FileName,
			OriginFullPath: filepath.ToSlash(originFullPath),
			NewFileName:    fileName,
			NewPath:        filepath.ToSlash(targetDir),
			IsDuplicate:    isDuplicate,
		})
		records = append(records, store.PlanRecord{
			FileHash:       record.FileHash,
			ContentHash:    record.ContentHash,
			FileSize:       record.FileSize,
			OriginFileName: record.FileName,
			OriginFullPath: originFullPath,
			TargetDir:      targetDir,
			TargetFileName: fileName,
			IsDuplicate:    isDuplicate,
		})

		totalBytes += record.FileSize

		emitter.Emit(progress.Event{
			Stage: progress.StagePlan, Processed: i + 1, Total: total, Current: record.RelPath,
		})
	}

	// Group entries by destination bucket, buckets in lexicographic order,
	// so consumers iterate deterministically.
	orderByBucket(items, records)

	if err := p.persist(items, records, generatedAt, totalBytes); err != nil {
		return nil, err
	}

	buckets := make(map[string]bool)
	for _, item := range items {
		buckets[item.NewPath] = true
	}

	p.log.Info("plan generated",
		"entries", len(items), "duplicates", duplicates, "buckets", len(buckets))

	return &types.PlanSummary{
		GeneratedAt:        generatedAt,
		TotalEntries:       len(items),
		DuplicateEntries:   duplicates,
		UniqueEntries:      len(items) - duplicates,
		DestinationBuckets: len(buckets),
		TotalBytes:         totalBytes,
		PlanJSONPath:       filepath.ToSlash(p.paths.PlanJSONPath),
		Entries:            items,
	}, nil
}

// persist writes plan rows, plan metadata, and the JSON snapshot.
func (p *Planner) persist(items []types.PlanItem, records []store.PlanRecord, generatedAt string, totalBytes int64) error {
	if err := p.store.ReplacePlan(records); err != nil {
		return err
	}

	meta := map[string]string{
		store.MetaPlanGeneratedAt: generatedAt,
		store.MetaPlanEntryCount:  fmt.Sprintf("%d", len(records)),
		store.MetaPlanTotalBytes:  fmt.Sprintf("%d", totalBytes),
		store.MetaPlanSchema:      fmt.Sprintf("%d", PlanSchemaVersion),
	}
	for key, value := range meta {
		if err := p.store.SetMeta(key, value); err != nil {
			return err
		}
	}

	legacy := make([]legacyPlanItem, 0, len(items))
	for _, item := range items {
		legacy = append(legacy, legacyPlanItem{
			FileHash:       item.FileHash,
			FileSize:       item.FileSize,
			OriginFileName: item.OriginFileName,
			OriginFullPath: item.OriginFullPath,
			NewFileName:    item.NewFileName,
			NewPath:        item.NewPath,
		})
	}
	return writeJSON(p.paths.PlanJSONPath, legacy)
}

// orderByBucket sorts items and records identically: by destination
// bucket, then file name, then origin path.
func orderByBucket(items []types.PlanItem, records []store.PlanRecord) {
	less := func(aPath, aName, aOrigin, bPath, bName, bOrigin string) bool {
		if aPath != bPath {
			return aPath < bPath
		}
		if aName != bName {
			return aName < bName
		}
		return aOrigin < bOrigin
	}
	sort.Slice(items, func(i, j int) bool {
		return less(items[i].NewPath, items[i].NewFileName, items[i].OriginFullPath,
			items[j].NewPath, items[j].NewFileName, items[j].OriginFullPath)
	})
	sort.Slice(records, func(i, j int) bool {
		return less(records[i].TargetDir, records[i].TargetFileName, records[i].OriginFullPath,
			records[j].TargetDir, records[j].TargetFileName, records[j].OriginFullPath)
	})
}

// reserveName claims a destination file name unique within targetDir.
// A collision with a different content hash is resolved with a suffix
// derived from the hash prefix; members of the same group falling into
// the same directory get a numeric suffix. Both are reproducible given
// the same inventory.
func reserveName(used map[string]bool, targetDir, baseName, contentHash string) (string, error) {
	candidate := baseName
	if !used[targetDir+candidate] {
		used[targetDir+candidate] = true
		return candidate, nil
	}

	candidate = addSuffix(baseName, "-"+hashPrefix(contentHash))
	if !used[targetDir+candidate] {
		used[targetDir+candidate] = true
		return candidate, nil
	}

	for attempt := 2; attempt < maxNameAttempts; attempt++ {
		numbered := addSuffix(baseName, fmt.Sprintf("-%s-%d", hashPrefix(contentHash), attempt))
		if !used[targetDir+numbered] {
			used[targetDir+numbered] = true
			return numbered, nil
		}
	}
	return "", ErrPathCollision
}

// addSuffix inserts suffix before the file extension.
func addSuffix(name, suffix string) string {
	if idx := strings.LastIndexByte(name, '.'); idx > 0 {
		return name[:idx] + suffix + name[idx:]
	}
	return name + suffix
}

func hashPrefix(contentHash string) string {
	if len(contentHash) < hashSuffixLen {
		return contentHash
	}
	return contentHash[:hashSuffixLen]
}

func ensureTrailingSeparator(dir string) string {
	if dir == "" || strings.HasSuffix(dir, string(os.PathSeparator)) {
		return dir
	}
	return dir + string(os.PathSeparator)
}

// writeJSON writes v atomically using a temp file and rename.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan snapshot: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
