// Package dedupe groups inventory records by content hash. The index is a
// pure function of an inventory snapshot: it is recomputed on every
// planning run and never persisted, so it always reflects the latest
// inventory.
package dedupe

import (
	"sort"

	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

// Index maps a content hash to the relative paths of every file carrying
// it. Paths within a group are sorted, so the first element is the group's
// primary.
type Index map[string][]string

// Build constructs the index from an inventory snapshot. Records without a
// content hash are ignored; they never reached hashing.
func Build(records []types.MediaRecord) Index {
	idx := make(Index)
	for _, record := range records {
		if record.ContentHash == "" {
			continue
		}
		idx[record.ContentHash] = append(idx[record.ContentHash], record.RelPath)
	}
	for hash := range idx {
		sort.Strings(idx[hash])
	}
	return idx
}

// DuplicateHashes returns the hashes of groups with more than one member,
// sorted for deterministic iteration. A group of size one is not a
// duplicate.
func (idx Index) DuplicateHashes() []string {
	var hashes []string
	for hash, paths := range idx {
		if len(paths) > 1 {
			hashes = append(hashes, hash)
		}
	}
	sort.Strings(hashes)
	return hashes
}

// IsPrimary reports whether relPath is the primary member of its group:
// the lexicographically smallest original path. Files outside any group
// are their own primary.
func (idx Index) IsPrimary(contentHash, relPath string) bool {
	paths := idx[contentHash]
	if len(paths) == 0 {
		return true
	}
	return paths[0] == relPath
}

// Mark sets IsDuplicate on every non-primary group member in place and
// returns the number of duplicates. Primary selection is content-addressed
// and independent of file names or record order.
func Mark(records []types.MediaRecord) int {
	idx := Build(records)

	duplicates := 0
	for i := range records {
		dup := !idx.IsPrimary(records[i].ContentHash, records[i].RelPath)
		records[i].IsDuplicate = dup
		if dup {
			duplicates++
		}
	}
	return duplicates
}
