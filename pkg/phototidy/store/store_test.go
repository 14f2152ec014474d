package store

import (
	"errors"
	"testing"
	"time"

	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return s
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestMeta(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetMeta("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.SetMeta(MetaPlanGeneratedAt, "2024-01-01_00-00-00"); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}
	got, err := s.GetMeta(MetaPlanGeneratedAt)
	if err != nil {
		t.Fatalf("GetMeta failed: %v", err)
	}
	if got != "2024-01-01_00-00-00" {
		t.Errorf("GetMeta = %q", got)
	}
}

func TestInventoryReplaceAndSnapshot(t *testing.T) {
	s := openTestStore(t)

	records := []types.MediaRecord{
		{RelPath: "b.jpg", CapturedAt: "2023-01-02_10-00-00", ContentHash: "h2"},
		{RelPath: "a.jpg", CapturedAt: "2023-01-01_10-00-00", ContentHash: "h1"},
		{RelPath: "c.jpg", CapturedAt: "2023-01-01_10-00-00", ContentHash: "h3"},
	}
	if err := s.ReplaceInventory(records); err != nil {
		t.Fatalf("ReplaceInventory failed: %v", err)
	}

	snapshot, err := s.InventorySnapshot()
	if err != nil {
		t.Fatalf("InventorySnapshot failed: %v", err)
	}
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 records, got %d", len(snapshot))
	}

	// Sorted by capture timestamp, then path.
	want := []string{"a.jpg", "c.jpg", "b.jpg"}
	for i, relPath := range want {
		if snapshot[i].RelPath != relPath {
			t.Errorf("snapshot[%d].RelPath = %q, want %q", i, snapshot[i].RelPath, relPath)
		}
	}

	// Replace drops rows that are gone.
	if err := s.ReplaceInventory(records[:1]); err != nil {
		t.Fatalf("ReplaceInventory failed: %v", err)
	}
	snapshot, err = s.InventorySnapshot()
	if err != nil {
		t.Fatalf("InventorySnapshot failed: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].RelPath != "b.jpg" {
		t.Errorf("unexpected snapshot after replace: %+v", snapshot)
	}
}

func TestGetInventory(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetInventory("nope.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	record := types.MediaRecord{
		RelPath:     "photos/one.jpg",
		FileName:    "one.jpg",
		FileSize:    42,
		ContentHash: "abc",
		ModifiedAt:  "2023-05-01_12-00-00",
	}
	if err := s.ReplaceInventory([]types.MediaRecord{record}); err != nil {
		t.Fatalf("ReplaceInventory failed: %v", err)
	}

	got, err := s.GetInventory("photos/one.jpg")
	if err != nil {
		t.Fatalf("GetInventory failed: %v", err)
	}
	if got.ContentHash != "abc" || got.FileSize != 42 {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestReplacePlanAssignsSequences(t *testing.T) {
	s := openTestStore(t)

	entries := []PlanRecord{
		{OriginFullPath: "/src/a.jpg", TargetDir: "/dst/2023-01-01/", TargetFileName: "x.jpg"},
		{OriginFullPath: "/src/b.jpg", TargetDir: "/dst/2023-01-02/", TargetFileName: "y.jpg"},
	}
	if err := s.ReplacePlan(entries); err != nil {
		t.Fatalf("ReplacePlan failed: %v", err)
	}

	got, err := s.PlanEntries()
	if err != nil {
		t.Fatalf("PlanEntries failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	for i, entry := range got {
		if entry.Seq != uint64(i+1) {
			t.Errorf("entry %d Seq = %d", i, entry.Seq)
		}
		if entry.Status != StatusPending {
			t.Errorf("entry %d Status = %q", i, entry.Status)
		}
	}
	if got[0].TargetFullPath() != "/dst/2023-01-01/x.jpg" {
		t.Errorf("TargetFullPath = %q", got[0].TargetFullPath())
	}
}

func TestReplacePlanClearsLog(t *testing.T) {
	s := openTestStore(t)

	if err := s.ReplacePlan([]PlanRecord{{OriginFullPath: "/src/a.jpg"}}); err != nil {
		t.Fatalf("ReplacePlan failed: %v", err)
	}
	if _, err := s.AppendLog(&LogRecord{PlanSeq: 1, Stage: StageIntent}); err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}

	// A fresh plan starts a fresh log.
	if err := s.ReplacePlan([]PlanRecord{{OriginFullPath: "/src/b.jpg"}}); err != nil {
		t.Fatalf("ReplacePlan failed: %v", err)
	}
	logs, err := s.LogEntries()
	if err != nil {
		t.Fatalf("LogEntries failed: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("expected empty log, got %d rows", len(logs))
	}
}

func TestUpdatePlanStatus(t *testing.T) {
	s := openTestStore(t)

	if err := s.ReplacePlan([]PlanRecord{
		{OriginFullPath: "/src/a.jpg"},
		{OriginFullPath: "/src/b.jpg"},
	}); err != nil {
		t.Fatalf("ReplacePlan failed: %v", err)
	}

	if err := s.UpdatePlanStatus(2, StatusMoved); err != nil {
		t.Fatalf("UpdatePlanStatus failed: %v", err)
	}

	pending, err := s.PlanEntriesWithStatus(StatusPending)
	if err != nil {
		t.Fatalf("PlanEntriesWithStatus failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Seq != 1 {
		t.Errorf("unexpected pending entries: %+v", pending)
	}

	if err := s.UpdatePlanStatus(99, StatusFailed); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendLogOrdering(t *testing.T) {
	s := openTestStore(t)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var seqs []uint64
	for _, stage := range []LogStage{StageIntent, StageCommitted, StageIntent} {
		seq, err := s.AppendLog(&LogRecord{
			RunID:   "run-1",
			PlanSeq: 1,
			Stage:   stage,
			Mode:    types.ModeMove,
			At:      at,
		})
		if err != nil {
			t.Fatalf("AppendLog failed: %v", err)
		}
		seqs = append(seqs, seq)
	}

	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Errorf("sequences not increasing: %v", seqs)
		}
	}

	logs, err := s.LogEntries()
	if err != nil {
		t.Fatalf("LogEntries failed: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(logs))
	}
	if logs[0].Stage != StageIntent || logs[1].Stage != StageCommitted {
		t.Errorf("unexpected order: %+v", logs)
	}
	if !logs[0].At.Equal(at) {
		t.Errorf("At = %v, want %v", logs[0].At, at)
	}
}

func TestCounts(t *testing.T) {
	s := openTestStore(t)

	if err := s.ReplaceInventory([]types.MediaRecord{
		{RelPath: "a.jpg"}, {RelPath: "b.jpg"},
	}); err != nil {
		t.Fatalf("ReplaceInventory failed: %v", err)
	}
	if err := s.ReplacePlan([]PlanRecord{{OriginFullPath: "/src/a.jpg"}}); err != nil {
		t.Fatalf("ReplacePlan failed: %v", err)
	}
	if _, err := s.AppendLog(&LogRecord{PlanSeq: 1, Stage: StageIntent}); err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}

	inventory, plan, oplog, err := s.Counts()
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if inventory != 2 || plan != 1 || oplog != 1 {
		t.Errorf("Counts = %d, %d, %d", inventory, plan, oplog)
	}
}

func TestMigrationWipesOnVersionChange(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.ReplaceInventory([]types.MediaRecord{{RelPath: "a.jpg"}}); err != nil {
		t.Fatalf("ReplaceInventory failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopening with the same version keeps data.
	s, err = Open(dir, 1)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	snapshot, err := s.InventorySnapshot()
	if err != nil {
		t.Fatalf("InventorySnapshot failed: %v", err)
	}
	if len(snapshot) != 1 {
		t.Errorf("expected 1 record after reopen, got %d", len(snapshot))
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A version bump drops everything.
	s, err = Open(dir, 2)
	if err != nil {
		t.Fatalf("reopen with new version failed: %v", err)
	}
	defer s.Close()

	snapshot, err = s.InventorySnapshot()
	if err != nil {
		t.Fatalf("InventorySnapshot failed: %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("expected empty inventory after migration, got %d", len(snapshot))
	}
	version, err := s.GetMeta(MetaSchemaVersion)
	if err != nil {
		t.Fatalf("GetMeta failed: %v", err)
	}
	if version != "2" {
		t.Errorf("schema version = %q", version)
	}
}
