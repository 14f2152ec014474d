package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"time"

	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

// Key prefixes for the logical tables inside one Badger database.
const (
	prefixInventory = "inv"
	prefixPlan      = "plan"
	prefixLog       = "oplog"
	prefixMeta      = "meta"
)

// keySeparator separates the table prefix from the row key.
const keySeparator = '\x00'

// PlanStatus tracks a plan entry through execution.
type PlanStatus string

// Plan entry lifecycle states.
const (
	StatusPending PlanStatus = "pending"
	StatusCopied  PlanStatus = "copied"
	StatusMoved   PlanStatus = "moved"
	StatusFailed  PlanStatus = "failed"
)

// PlanRecord is one persisted plan entry. Seq orders entries and is the
// reference the operation log uses.
type PlanRecord struct {
	Seq            uint64
	FileHash       string
	ContentHash    string
	FileSize       int64
	OriginFileName string
	OriginFullPath string
	TargetDir      string
	TargetFileName string
	IsDuplicate    bool
	Status         PlanStatus
}

// TargetFullPath returns the complete destination path for the entry.
func (r PlanRecord) TargetFullPath() string {
	return r.TargetDir + r.TargetFileName
}

// LogStage is the stage of one operation log row.
type LogStage string

// Operation log stages. An intent row is written strictly before the
// filesystem mutation it describes; the remaining stages record outcomes.
const (
	StageIntent     LogStage = "intent"
	StageCommitted  LogStage = "committed"
	StageFailed     LogStage = "failed"
	StageRolledBack LogStage = "rolled_back"
)

// LogRecord is one append-only operation log row. Rows are never mutated
// once written; the log is the sole source of truth for undo.
type LogRecord struct {
	Seq         uint64
	RunID       string
	PlanSeq     uint64
	Stage       LogStage
	Mode        types.ExecutionMode
	DryRun      bool
	OriginPath  string
	TargetPath  string
	ContentHash string
	Error       string
	At          time.Time
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func makeKey(prefix, row string) []byte {
	return []byte(prefix + string(keySeparator) + row)
}

func makeSeqKey(prefix string, seq uint64) []byte {
	key := make([]byte, len(prefix)+1+8)
	copy(key, prefix)
	key[len(prefix)] = keySeparator
	binary.BigEndian.PutUint64(key[len(prefix)+1:], seq)
	return key
}

func makePrefix(prefix string) []byte {
	return []byte(prefix + string(keySeparator))
}
