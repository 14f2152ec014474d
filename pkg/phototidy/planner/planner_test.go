package planner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototidy/phototidy/pkg/phototidy/config"
	"github.com/phototidy/phototidy/pkg/phototidy/store"
	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

func testPaths(t *testing.T) (config.Paths, *store.Store) {
	t.Helper()
	outputRoot := t.TempDir()
	paths := config.Paths{
		SchemaVersion:  1,
		DatabaseDir:    filepath.Join(t.TempDir(), "db"),
		ImageRoot:      t.TempDir(),
		OutputRoot:     outputRoot,
		DuplicatesDir:  filepath.Join(outputRoot, "duplicates"),
		DuplicatesName: "duplicates",
		PlanJSONPath:   filepath.Join(outputRoot, "target-plan.json"),
		Extensions:     []string{".jpg"},
		HashWorkers:    1,
	}

	st, err := store.Open(paths.DatabaseDir, paths.SchemaVersion)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return paths, st
}

func testPlanner(paths config.Paths, st *store.Store) *Planner {
	p := New(paths, st)
	p.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return p
}

func seedInventory(t *testing.T, st *store.Store, records []types.MediaRecord) {
	t.Helper()
	require.NoError(t, st.ReplaceInventory(records))
}

func mediaRecord(relPath, hash, capturedAt string, size int64, dup bool) types.MediaRecord {
	return types.MediaRecord{
		FileHash:    "md5-" + hash,
		ContentHash: hash,
		FileSize:    size,
		FileName:    filepath.Base(relPath),
		RelPath:     relPath,
		CapturedAt:  capturedAt,
		ModifiedAt:  capturedAt,
		IsDuplicate: dup,
	}
}

func TestGenerate_RoutesByDateAndDuplicates(t *testing.T) {
	paths, st := testPaths(t)
	seedInventory(t, st, []types.MediaRecord{
		mediaRecord("a.jpg", strings.Repeat("a", 64), "2023-01-05_10-00-00", 100, false),
		mediaRecord("b.jpg", strings.Repeat("a", 64), "2023-01-05_10-00-00", 100, true),
		mediaRecord("c.jpg", strings.Repeat("c", 64), "2023-02-10_08-30-00", 50, false),
	})

	summary, err := testPlanner(paths, st).Generate(nil)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalEntries)
	assert.Equal(t, 1, summary.DuplicateEntries)
	assert.Equal(t, 2, summary.UniqueEntries)
	assert.Equal(t, int64(250), summary.TotalBytes)
	assert.Equal(t, 3, summary.DestinationBuckets)

	byOrigin := make(map[string]types.PlanItem, len(summary.Entries))
	for _, item := range summary.Entries {
		byOrigin[item.OriginFileName] = item
	}

	// Primaries land in date buckets under the output root.
	assert.Contains(t, byOrigin["a.jpg"].NewPath, "2023-01-05")
	assert.Contains(t, byOrigin["c.jpg"].NewPath, "2023-02-10")
	assert.Equal(t, "2023-01-05_10-00-00.a.jpg", byOrigin["a.jpg"].NewFileName)

	// The duplicate lands in a hash-keyed folder under duplicates.
	dup := byOrigin["b.jpg"]
	assert.True(t, dup.IsDuplicate)
	assert.Contains(t, dup.NewPath, "duplicates")
	assert.Contains(t, dup.NewPath, strings.Repeat("a", 8))
}

func TestGenerate_CollisionGetsHashSuffix(t *testing.T) {
	paths, st := testPaths(t)

	// Two different files, same timestamp, same name, different folders.
	hashA := strings.Repeat("1", 64)
	hashB := strings.Repeat("2", 64)
	seedInventory(t, st, []types.MediaRecord{
		mediaRecord("x/photo.jpg", hashA, "2023-03-01_12-00-00", 10, false),
		mediaRecord("y/photo.jpg", hashB, "2023-03-01_12-00-00", 10, false),
	})

	summary, err := testPlanner(paths, st).Generate(nil)
	require.NoError(t, err)
	require.Len(t, summary.Entries, 2)

	names := map[string]bool{}
	for _, item := range summary.Entries {
		names[item.NewFileName] = true
	}
	assert.True(t, names["2023-03-01_12-00-00.photo.jpg"])
	assert.True(t, names["2023-03-01_12-00-00.photo-"+strings.Repeat("2", 8)+".jpg"] ||
		names["2023-03-01_12-00-00.photo-"+strings.Repeat("1", 8)+".jpg"])
}

func TestGenerate_Deterministic(t *testing.T) {
	paths, st := testPaths(t)
	seedInventory(t, st, []types.MediaRecord{
		mediaRecord("b.jpg", strings.Repeat("b", 64), "2023-01-01_09-00-00", 5, false),
		mediaRecord("a.jpg", strings.Repeat("a", 64), "2023-01-01_08-00-00", 5, false),
		mediaRecord("c.jpg", strings.Repeat("a", 64), "2023-01-01_08-00-00", 5, true),
	})

	p := testPlanner(paths, st)

	first, err := p.Generate(nil)
	require.NoError(t, err)
	second, err := p.Generate(nil)
	require.NoError(t, err)

	assert.Equal(t, first.Entries, second.Entries)

	// Entries are grouped by destination bucket in lexicographic order.
	for i := 1; i < len(first.Entries); i++ {
		assert.LessOrEqual(t, first.Entries[i-1].NewPath, first.Entries[i].NewPath)
	}
}

func TestGenerate_ResolvesOriginsAgainstPersistedScanRoot(t *testing.T) {
	paths, st := testPaths(t)
	seedInventory(t, st, []types.MediaRecord{
		mediaRecord("a.jpg", strings.Repeat("a", 64), "2023-01-05_10-00-00", 100, false),
	})

	// A scan of an overridden root records that root; origins must resolve
	// under it even when the configured image root differs.
	scannedRoot := t.TempDir()
	require.NoError(t, st.SetMeta(store.MetaScanRoot, scannedRoot))

	summary, err := testPlanner(paths, st).Generate(nil)
	require.NoError(t, err)
	require.Len(t, summary.Entries, 1)

	want := filepath.ToSlash(filepath.Join(scannedRoot, "a.jpg"))
	assert.Equal(t, want, summary.Entries[0].OriginFullPath)
	assert.NotContains(t, summary.Entries[0].OriginFullPath, filepath.ToSlash(paths.ImageRoot))
}

func TestGenerate_FallsBackToModifiedAt(t *testing.T) {
	paths, st := testPaths(t)
	record := mediaRecord("nodate.jpg", strings.Repeat("d", 64), "", 5, false)
	record.ModifiedAt = "2022-08-20_14-00-00"
	seedInventory(t, st, []types.MediaRecord{record})

	summary, err := testPlanner(paths, st).Generate(nil)
	require.NoError(t, err)
	require.Len(t, summary.Entries, 1)
	assert.Contains(t, summary.Entries[0].NewPath, "2022-08-20")
	assert.Equal(t, "2022-08-20_14-00-00.nodate.jpg", summary.Entries[0].NewFileName)
}

func TestGenerate_PersistsPlanAndSnapshot(t *testing.T) {
	paths, st := testPaths(t)
	seedInventory(t, st, []types.MediaRecord{
		mediaRecord("a.jpg", strings.Repeat("a", 64), "2023-01-01_10-00-00", 7, false),
		mediaRecord("b.jpg", strings.Repeat("b", 64), "2023-01-02_10-00-00", 9, false),
	})

	summary, err := testPlanner(paths, st).Generate(nil)
	require.NoError(t, err)

	entries, err := st.PlanEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for i, entry := range entries {
		assert.Equal(t, uint64(i+1), entry.Seq)
		assert.Equal(t, store.StatusPending, entry.Status)
		assert.True(t, strings.HasSuffix(entry.TargetDir, string(os.PathSeparator)))
	}

	generatedAt, err := st.GetMeta(store.MetaPlanGeneratedAt)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01_12-00-00", generatedAt)
	assert.Equal(t, summary.GeneratedAt, generatedAt)

	count, err := st.GetMeta(store.MetaPlanEntryCount)
	require.NoError(t, err)
	assert.Equal(t, "2", count)

	totalBytes, err := st.GetMeta(store.MetaPlanTotalBytes)
	require.NoError(t, err)
	assert.Equal(t, "16", totalBytes)

	data, err := os.ReadFile(paths.PlanJSONPath)
	require.NoError(t, err)
	var snapshot []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &snapshot))
	require.Len(t, snapshot, 2)
	assert.Contains(t, snapshot[0], "newFileName")
	assert.Contains(t, snapshot[0], "originFullPath")
}

func TestGenerate_EmptyInventory(t *testing.T) {
	paths, st := testPaths(t)

	summary, err := testPlanner(paths, st).Generate(nil)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalEntries)
	assert.Empty(t, summary.Entries)

	data, err := os.ReadFile(paths.PlanJSONPath)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))

	entries, err := st.PlanEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReserveName(t *testing.T) {
	used := map[string]bool{}
	hash := strings.Repeat("f", 64)

	first, err := reserveName(used, "/out/", "2023-01-01_10-00-00.a.jpg", hash)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01_10-00-00.a.jpg", first)

	second, err := reserveName(used, "/out/", "2023-01-01_10-00-00.a.jpg", hash)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01_10-00-00.a-ffffffff.jpg", second)

	third, err := reserveName(used, "/out/", "2023-01-01_10-00-00.a.jpg", hash)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01_10-00-00.a-ffffffff-2.jpg", third)

	// Same base name in a different directory does not collide.
	other, err := reserveName(used, "/elsewhere/", "2023-01-01_10-00-00.a.jpg", hash)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01_10-00-00.a.jpg", other)
}

func TestAddSuffix(t *testing.T) {
	assert.Equal(t, "photo-x.jpg", addSuffix("photo.jpg", "-x"))
	assert.Equal(t, "archive.tar-x.gz", addSuffix("archive.tar.gz", "-x"))
	assert.Equal(t, "noext-x", addSuffix("noext", "-x"))
	assert.Equal(t, ".hidden-x", addSuffix(".hidden", "-x"))
}
