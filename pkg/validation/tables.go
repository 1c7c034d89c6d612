package validation

import (
	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	"github.com/NuHepMC/ReferenceImplementation/pkg/registry"
)

// StatusEntry is the declared meaning of one status or process code.
type StatusEntry struct {
	Name        string
	Description string
}

// StatusTable maps declared codes to their entries, keeping declaration
// order. A nil table is empty.
type StatusTable struct {
	codes   []int
	entries map[int]StatusEntry
}

// NewStatusTable creates an empty table.
func NewStatusTable() *StatusTable {
	return &StatusTable{entries: make(map[int]StatusEntry)}
}

// Add declares code. It reports false when code is already declared.
func (t *StatusTable) Add(code int, e StatusEntry) bool {
	if _, ok := t.entries[code]; ok {
		return false
	}
	t.entries[code] = e
	t.codes = append(t.codes, code)
	return true
}

func (t *StatusTable) Has(code int) bool {
	if t == nil {
		return false
	}
	_, ok := t.entries[code]
	return ok
}

func (t *StatusTable) Get(code int) (StatusEntry, bool) {
	if t == nil {
		return StatusEntry{}, false
	}
	e, ok := t.entries[code]
	return e, ok
}

// Codes returns the declared codes in declaration order.
func (t *StatusTable) Codes() []int {
	if t == nil {
		return nil
	}
	out := make([]int, len(t.codes))
	copy(out, t.codes)
	return out
}

func (t *StatusTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.codes)
}

// Version is the NuHepMC version a file declares.
type Version struct {
	Major, Minor, Patch int
}

// RunInfo is what run-level validation extracts from a file. It is
// immutable once returned and shared read-only by event validation.
type RunInfo struct {
	Version          Version
	Tools            []model.Tool
	Processes        *StatusTable
	VertexStatuses   *StatusTable
	ParticleStatuses *StatusTable
	WeightNames      []string
	Conventions      *registry.Conventions
	// Unchecked lists declared conventions with no automated check.
	Unchecked []string
}
