// Package output provides formatters for rendering pipeline summaries
// in various output formats (pretty, plain, json).
//
// The package uses a registry pattern so the formatter can be selected
// at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

// StatusReport is a snapshot of the persisted pipeline state, shown by the
// status command.
type StatusReport struct {
	// DataDir is the directory holding the database.
	DataDir string `json:"dataDir"`

	// SchemaVersion is the active database schema version.
	SchemaVersion int `json:"schemaVersion"`

	// InventoryCount is the number of indexed files.
	InventoryCount int `json:"inventoryCount"`

	// PlanCount is the total number of plan entries.
	PlanCount int `json:"planCount"`

	// Pending, Copied, Moved and Failed break PlanCount down by status.
	Pending int `json:"pending"`
	Copied  int `json:"copied"`
	Moved   int `json:"moved"`
	Failed  int `json:"failed"`

	// LogCount is the number of operation log rows.
	LogCount int `json:"logCount"`

	// PlanGeneratedAt is when the current plan was generated, empty when no
	// plan exists.
	PlanGeneratedAt string `json:"planGeneratedAt,omitempty"`

	// PlanTotalBytes is the total payload size of the current plan.
	PlanTotalBytes int64 `json:"planTotalBytes"`
}

// Report carries the result of one command for formatting. Exactly one of
// the summary fields is set, matching the command that ran.
type Report struct {
	Scan      *types.ScanSummary      `json:"scan,omitempty"`
	Plan      *types.PlanSummary      `json:"plan,omitempty"`
	Execution *types.ExecutionSummary `json:"execution,omitempty"`
	Undo      *types.UndoSummary      `json:"undo,omitempty"`
	Status    *StatusReport           `json:"status,omitempty"`
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
