package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

func record(relPath, hash string) types.MediaRecord {
	return types.MediaRecord{RelPath: relPath, ContentHash: hash}
}

func TestBuild_GroupsByHash(t *testing.T) {
	records := []types.MediaRecord{
		record("z/c.jpg", "h1"),
		record("a/b.jpg", "h1"),
		record("d.jpg", "h2"),
		{RelPath: "unhashed.jpg"},
	}

	idx := Build(records)

	assert.Len(t, idx, 2)
	assert.Equal(t, []string{"a/b.jpg", "z/c.jpg"}, idx["h1"])
	assert.Equal(t, []string{"d.jpg"}, idx["h2"])
}

func TestDuplicateHashes(t *testing.T) {
	idx := Build([]types.MediaRecord{
		record("a.jpg", "h2"),
		record("b.jpg", "h2"),
		record("c.jpg", "h1"),
		record("d.jpg", "h1"),
		record("e.jpg", "h3"),
	})

	assert.Equal(t, []string{"h1", "h2"}, idx.DuplicateHashes())
}

func TestIsPrimary(t *testing.T) {
	idx := Build([]types.MediaRecord{
		record("b.jpg", "h1"),
		record("a.jpg", "h1"),
		record("solo.jpg", "h2"),
	})

	assert.True(t, idx.IsPrimary("h1", "a.jpg"))
	assert.False(t, idx.IsPrimary("h1", "b.jpg"))
	assert.True(t, idx.IsPrimary("h2", "solo.jpg"))

	// Unknown hashes are their own primary.
	assert.True(t, idx.IsPrimary("unknown", "whatever.jpg"))
}

func TestMark(t *testing.T) {
	records := []types.MediaRecord{
		record("photos/b.jpg", "h1"),
		record("photos/a.jpg", "h1"),
		record("photos/c.jpg", "h1"),
		record("other.jpg", "h2"),
	}

	count := Mark(records)

	assert.Equal(t, 2, count)
	assert.True(t, records[0].IsDuplicate)
	assert.False(t, records[1].IsDuplicate)
	assert.True(t, records[2].IsDuplicate)
	assert.False(t, records[3].IsDuplicate)
}

func TestMark_OrderIndependent(t *testing.T) {
	forward := []types.MediaRecord{
		record("a.jpg", "h1"),
		record("b.jpg", "h1"),
	}
	reversed := []types.MediaRecord{
		record("b.jpg", "h1"),
		record("a.jpg", "h1"),
	}

	Mark(forward)
	Mark(reversed)

	// The same file is primary regardless of record order.
	assert.False(t, forward[0].IsDuplicate)
	assert.True(t, reversed[0].IsDuplicate)
	assert.False(t, reversed[1].IsDuplicate)
}
