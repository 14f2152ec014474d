package config

import "runtime"

// SchemaVersion is persisted alongside every table so state written by an
// older layout can be migrated forward.
const SchemaVersion = 1

// DefaultImageRootName is the directory under the user's home that is
// scanned when no image root is configured.
const DefaultImageRootName = "images"

// DefaultOutputRootName is the directory under the user's home that
// receives organized files.
const DefaultOutputRootName = "organized"

// DefaultDuplicatesFolderName is the folder under the output root where
// non-primary duplicate group members are routed.
const DefaultDuplicatesFolderName = "duplicates"

// DefaultPlanJSONName is the plan snapshot written next to the output root
// for compatibility with prior outputs.
const DefaultPlanJSONName = "target-plan.json"

// DefaultExtensions are the recognized media file extensions, lowercase
// with leading dot.
var DefaultExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".tiff", ".bmp",
	".heic", ".heif", ".mp4", ".mov", ".avi", ".mkv", ".m4v",
}

// DefaultHashWorkers bounds the hashing worker pool.
var DefaultHashWorkers = runtime.NumCPU()
