// Package registry maps declared convention tags to the checkers that
// enforce them at run level or event level.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
)

// RunChecker checks a run-level convention. A non-nil error means the
// declared convention does not hold.
type RunChecker func(run *model.RunMetadata) error

// EventChecker checks an event-level convention.
type EventChecker func(ev *model.Event) error

// Level is where a checker is bound.
type Level string

const (
	LevelRun   Level = "run"
	LevelEvent Level = "event"
)

// Entry is a registered checker.
type Entry struct {
	Tag   rules.ID
	Level Level
	Run   RunChecker
	Event EventChecker
}

// Registry holds convention checkers in registration order.
type Registry struct {
	mu sync.RWMutex

	entries map[rules.ID]Entry
	order   []rules.ID
}

// Global default registry
var defaultRegistry = New()

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[rules.ID]Entry)}
}

func (r *Registry) add(e Entry) {
	if e.Tag.Category() != rules.Convention {
		panic(fmt.Sprintf("registry: %s is not a convention tag", e.Tag))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[e.Tag]; !ok {
		r.order = append(r.order, e.Tag)
	}
	r.entries[e.Tag] = e
}

// RegisterRun binds a run-level checker to tag, replacing any previous one.
func (r *Registry) RegisterRun(tag rules.ID, c RunChecker) {
	r.add(Entry{Tag: tag, Level: LevelRun, Run: c})
}

// RegisterEvent binds an event-level checker to tag, replacing any previous one.
func (r *Registry) RegisterEvent(tag rules.ID, c EventChecker) {
	r.add(Entry{Tag: tag, Level: LevelEvent, Event: c})
}

// Lookup returns the checker bound to tag.
func (r *Registry) Lookup(tag rules.ID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[tag]
	return e, ok
}

// Entries returns every checker at level in registration order.
func (r *Registry) Entries(level Level) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, tag := range r.order {
		if e := r.entries[tag]; e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Active returns the checkers at level whose tag is declared, in
// registration order.
func (r *Registry) Active(level Level, declared *Conventions) []Entry {
	var out []Entry
	for _, e := range r.Entries(level) {
		if IsActive(e.Tag, declared) {
			out = append(out, e)
		}
	}
	return out
}

// Unchecked returns the declared tags that have no registered checker,
// sorted. They are accepted without a check.
func (r *Registry) Unchecked(declared *Conventions) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, tag := range declared.Tags() {
		if _, ok := r.entries[rules.ID(tag)]; !ok {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

// IsActive reports whether tag is in the declared set.
func IsActive(tag rules.ID, declared *Conventions) bool {
	return declared.Has(string(tag))
}

// Default returns the process-wide registry holding the built-in checkers.
func Default() *Registry { return defaultRegistry }

// RegisterRun binds a run-level checker in the default registry.
func RegisterRun(tag rules.ID, c RunChecker) { defaultRegistry.RegisterRun(tag, c) }

// RegisterEvent binds an event-level checker in the default registry.
func RegisterEvent(tag rules.ID, c EventChecker) { defaultRegistry.RegisterEvent(tag, c) }
