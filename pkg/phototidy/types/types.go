// Package types provides core data types for the phototidy media organizer.
// It includes the persisted inventory record, plan entries, operation log
// rows, and the summary structures returned by each pipeline stage.
package types

import (
	"strings"
	"time"
)

// TimestampLayout is the canonical layout for capture and modification
// timestamps throughout the pipeline. It sorts lexicographically in
// chronological order, which the planner relies on for date bucketing.
const TimestampLayout = "2006-01-02_15-04-05"

// TimestampSource identifies where a capture timestamp came from.
// Sources are ordered by confidence: embedded metadata beats filesystem
// timestamps, which beat a synthesized processing time.
type TimestampSource string

const (
	// SourceEmbedded means the timestamp was read from embedded media metadata.
	SourceEmbedded TimestampSource = "embedded"
	// SourceFilesystem means the timestamp is the file's modification time.
	SourceFilesystem TimestampSource = "filesystem"
	// SourceSynthetic means the timestamp was synthesized at processing time.
	SourceSynthetic TimestampSource = "synthetic"
)

// MediaRecord is one row of the persisted inventory. Identity across the
// pipeline is the (ContentHash, FileSize) pair; RelPath is the storage key.
type MediaRecord struct {
	// FileHash is the legacy MD5 digest, retained for compatibility with
	// prior plan outputs during the migration window.
	FileHash string `json:"fileHash"`

	// ContentHash is the strong BLAKE3 digest used for duplicate detection.
	ContentHash string `json:"contentHash"`

	// FileSize is the file size in bytes.
	FileSize int64 `json:"fileSize"`

	// FileName is the base name of the file.
	FileName string `json:"fileName"`

	// RelPath is the path relative to the image root, always forward-slashed.
	RelPath string `json:"relPath"`

	// CapturedAt is the best-effort capture timestamp in TimestampLayout.
	CapturedAt string `json:"capturedAt"`

	// CapturedSource records the confidence of CapturedAt.
	CapturedSource TimestampSource `json:"capturedSource"`

	// ModifiedAt is the filesystem mtime in TimestampLayout.
	ModifiedAt string `json:"modifiedAt"`

	// CameraModel, CameraMake and Artist are optional embedded metadata.
	CameraModel string `json:"cameraModel,omitempty"`
	CameraMake  string `json:"cameraMake,omitempty"`
	Artist      string `json:"artist,omitempty"`

	// IsDuplicate marks non-primary members of a duplicate group.
	IsDuplicate bool `json:"isDuplicate"`
}

// Fingerprint is the cheap (size, mtime) pair used to detect possibly
// changed files before an expensive rehash.
type Fingerprint struct {
	Size  int64
	Mtime int64
}

// ScanSummary aggregates one scan run.
type ScanSummary struct {
	TotalFiles     int `json:"totalFiles"`
	HashedFiles    int `json:"hashedFiles"`
	SkippedFiles   int `json:"skippedFiles"`
	DuplicateFiles int `json:"duplicateFiles"`

	// Errors contains per-file failures that did not abort the run.
	Errors []FileError `json:"errors,omitempty"`
}

// FileError pairs a path with the error encountered there.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// PlanItem is one planned file placement. Items are immutable once part of
// a PlanSummary.
type PlanItem struct {
	FileHash       string `json:"fileHash"`
	ContentHash    string `json:"contentHash"`
	FileSize       int64  `json:"fileSize"`
	OriginFileName string `json:"originFileName"`
	OriginFullPath string `json:"originFullPath"`
	NewFileName    string `json:"newFileName"`
	NewPath        string `json:"newPath"`
	IsDuplicate    bool   `json:"isDuplicate"`
}

// PlanSummary describes one planning run. Entries are grouped by NewPath
// with buckets in lexicographic order, so iteration is deterministic.
type PlanSummary struct {
	GeneratedAt        string     `json:"generatedAt"`
	TotalEntries       int        `json:"totalEntries"`
	DuplicateEntries   int        `json:"duplicateEntries"`
	UniqueEntries      int        `json:"uniqueEntries"`
	DestinationBuckets int        `json:"destinationBuckets"`
	TotalBytes         int64      `json:"totalBytes"`
	PlanJSONPath       string     `json:"planJsonPath"`
	Entries            []PlanItem `json:"entries"`
}

// ExecutionMode selects between copying and moving planned files.
type ExecutionMode string

const (
	// ModeCopy leaves origin files in place.
	ModeCopy ExecutionMode = "copy"
	// ModeMove relocates origin files; move operations are undoable.
	ModeMove ExecutionMode = "move"
)

// Valid reports whether the mode is a recognized execution mode.
func (m ExecutionMode) Valid() bool {
	return m == ModeCopy || m == ModeMove
}

// ExecutionSummary aggregates one execution run. Succeeded + Failed always
// equals ProcessedEntries, even under partial failure.
type ExecutionSummary struct {
	Mode             ExecutionMode `json:"mode"`
	DryRun           bool          `json:"dryRun"`
	TotalEntries     int           `json:"totalEntries"`
	ProcessedEntries int           `json:"processedEntries"`
	Succeeded        int           `json:"succeeded"`
	Failed           int           `json:"failed"`
	DuplicateEntries int           `json:"duplicateEntries"`
}

// UndoSummary aggregates one undo run over the operation log.
type UndoSummary struct {
	ProcessedEntries int `json:"processedEntries"`
	Restored         int `json:"restored"`
	Missing          int `json:"missing"`
	Failed           int `json:"failed"`
}

// FormatTimestamp renders t in the canonical timestamp layout (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a canonical timestamp back into a time.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// DateBucket returns the date component of a canonical timestamp, used as
// the destination directory name for unique files.
func DateBucket(timestamp string) string {
	if idx := strings.IndexByte(timestamp, '_'); idx >= 0 {
		return timestamp[:idx]
	}
	return timestamp
}
