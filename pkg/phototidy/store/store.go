// Package store persists pipeline state in a single Badger database:
// an inventory table (one row per media file), a plan table, an append-only
// operation log, and a small metadata table. Badger's single-process lock
// gives each run exclusive write access for its duration.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

// ErrNotFound is returned when a requested row doesn't exist.
var ErrNotFound = errors.New("store entry not found")

// Meta keys written by the pipeline.
const (
	MetaSchemaVersion   = "schema_version"
	MetaScanRoot        = "scan_root"
	MetaPlanGeneratedAt = "plan_generated_at"
	MetaPlanEntryCount  = "plan_entry_count"
	MetaPlanTotalBytes  = "plan_total_bytes"
	MetaPlanSchema      = "plan_schema_version"
)

// Store wraps Badger for pipeline state.
type Store struct {
	db     *badger.DB
	logSeq *badger.Sequence
}

// Open opens or creates a store at dir. If the persisted schema version
// differs from schemaVersion, all tables are dropped and the new version is
// recorded; state is re-derivable by re-running scan and plan.
func Open(dir string, schemaVersion int) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(schemaVersion); err != nil {
		_ = db.Close()
		return nil, err
	}

	seq, err := db.GetSequence(makeKey(prefixMeta, "oplog_seq"), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open log sequence: %w", err)
	}
	s.logSeq = seq

	return s, nil
}

// Close releases the log sequence and closes the database.
func (s *Store) Close() error {
	if s.logSeq != nil {
		if err := s.logSeq.Release(); err != nil {
			_ = s.db.Close()
			return err
		}
	}
	return s.db.Close()
}

// migrate drops all tables when the stored schema version doesn't match.
func (s *Store) migrate(schemaVersion int) error {
	stored, err := s.GetMeta(MetaSchemaVersion)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	want := strconv.Itoa(schemaVersion)
	if stored == want {
		return nil
	}

	if stored != "" {
		for _, prefix := range []string{prefixInventory, prefixPlan, prefixLog} {
			if err := s.deletePrefix(makePrefix(prefix)); err != nil {
				return fmt.Errorf("dropping %s table: %w", prefix, err)
			}
		}
	}

	return s.SetMeta(MetaSchemaVersion, want)
}

func (s *Store) deletePrefix(prefix []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetMeta stores a metadata value.
func (s *Store) SetMeta(key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(prefixMeta, key), []byte(value))
	})
}

// GetMeta retrieves a metadata value.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(prefixMeta, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	return value, err
}

// GetInventory retrieves one inventory row by relative path.
func (s *Store) GetInventory(relPath string) (*types.MediaRecord, error) {
	var record types.MediaRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(prefixInventory, relPath))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decode(val, &record)
		})
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// InventorySnapshot returns every inventory row sorted by capture
// timestamp, then relative path, so downstream iteration is deterministic.
func (s *Store) InventorySnapshot() ([]types.MediaRecord, error) {
	var records []types.MediaRecord
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := makePrefix(prefixInventory)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record types.MediaRecord
			if err := it.Item().Value(func(val []byte) error {
				return decode(val, &record)
			}); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CapturedAt != records[j].CapturedAt {
			return records[i].CapturedAt < records[j].CapturedAt
		}
		return records[i].RelPath < records[j].RelPath
	})
	return records, nil
}

// ReplaceInventory atomically swaps the inventory table for the given
// records.
func (s *Store) ReplaceInventory(records []types.MediaRecord) error {
	if err := s.deletePrefix(makePrefix(prefixInventory)); err != nil {
		return fmt.Errorf("clearing inventory: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range records {
		value, err := encode(&records[i])
		if err != nil {
			return fmt.Errorf("encoding inventory row: %w", err)
		}
		if err := wb.Set(makeKey(prefixInventory, records[i].RelPath), value); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// ReplacePlan swaps the plan table for the given entries, assigning
// sequence numbers in order. The operation log of the previous plan
// generation is cleared with it: log rows reference plan sequences and a
// fresh plan starts a fresh log.
func (s *Store) ReplacePlan(entries []PlanRecord) error {
	for _, prefix := range []string{prefixPlan, prefixLog} {
		if err := s.deletePrefix(makePrefix(prefix)); err != nil {
			return fmt.Errorf("clearing %s table: %w", prefix, err)
		}
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range entries {
		entries[i].Seq = uint64(i + 1)
		if entries[i].Status == "" {
			entries[i].Status = StatusPending
		}
		value, err := encode(&entries[i])
		if err != nil {
			return fmt.Errorf("encoding plan row: %w", err)
		}
		if err := wb.Set(makeSeqKey(prefixPlan, entries[i].Seq), value); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// PlanEntries returns every plan row in sequence order.
func (s *Store) PlanEntries() ([]PlanRecord, error) {
	var entries []PlanRecord
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := makePrefix(prefixPlan)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry PlanRecord
			if err := it.Item().Value(func(val []byte) error {
				return decode(val, &entry)
			}); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// PlanEntriesWithStatus filters plan rows by status. No statuses means all
// rows.
func (s *Store) PlanEntriesWithStatus(statuses ...PlanStatus) ([]PlanRecord, error) {
	entries, err := s.PlanEntries()
	if err != nil || len(statuses) == 0 {
		return entries, err
	}

	filtered := entries[:0]
	for _, entry := range entries {
		for _, status := range statuses {
			if entry.Status == status {
				filtered = append(filtered, entry)
				break
			}
		}
	}
	return filtered, nil
}

// UpdatePlanStatus sets the status of one plan row.
func (s *Store) UpdatePlanStatus(seq uint64, status PlanStatus) error {
	key := makeSeqKey(prefixPlan, seq)
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var entry PlanRecord
		if err := item.Value(func(val []byte) error {
			return decode(val, &entry)
		}); err != nil {
			return err
		}

		entry.Status = status
		value, err := encode(&entry)
		if err != nil {
			return err
		}
		return txn.Set(key, value)
	})
}

// AppendLog appends one operation log row, assigning and returning its
// sequence number. The write is committed before AppendLog returns, which
// is what lets an intent row precede its mutation durably.
func (s *Store) AppendLog(record *LogRecord) (uint64, error) {
	seq, err := s.logSeq.Next()
	if err != nil {
		return 0, fmt.Errorf("next log sequence: %w", err)
	}
	record.Seq = seq + 1 // sequences start at 0; keep rows 1-based like plan rows

	value, err := encode(record)
	if err != nil {
		return 0, fmt.Errorf("encoding log row: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeSeqKey(prefixLog, record.Seq), value)
	})
	if err != nil {
		return 0, err
	}
	return record.Seq, nil
}

// LogEntries returns every operation log row in ascending sequence order.
func (s *Store) LogEntries() ([]LogRecord, error) {
	var entries []LogRecord
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := makePrefix(prefixLog)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry LogRecord
			if err := it.Item().Value(func(val []byte) error {
				return decode(val, &entry)
			}); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Counts reports row counts per table, for the status command.
func (s *Store) Counts() (inventory, plan, oplog int, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		count := func(prefix []byte) int {
			n := 0
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				n++
			}
			return n
		}
		inventory = count(makePrefix(prefixInventory))
		plan = count(makePrefix(prefixPlan))
		oplog = count(makePrefix(prefixLog))
		return nil
	})
	return inventory, plan, oplog, err
}
