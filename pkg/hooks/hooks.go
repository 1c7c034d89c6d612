// Package hooks lets callers observe a validation while it runs. Progress
// bars, metrics and logging attach here.
package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/validation"
)

// Manager manages all registered hooks. The zero value is ready to use and
// a nil manager runs nothing.
type Manager struct {
	mu sync.RWMutex

	runHooks     []RunHook
	eventHooks   []EventHook
	failureHooks []FailureHook
	doneHooks    []DoneHook
}

// NewManager creates a new hook manager.
func NewManager() *Manager {
	return &Manager{}
}

// RunHook is called once run-level validation is complete.
type RunHook func(ctx context.Context, info *validation.RunInfo, warnings []lferrors.Warning)

// EventHook is called after each event is validated, in stream order.
// failures is empty for a valid event.
type EventHook func(ctx context.Context, ev *model.Event, failures []*lferrors.Failure)

// FailureHook is called for every failure, run level or event level.
type FailureHook func(ctx context.Context, f *lferrors.Failure)

// Summary is passed to DoneHook.
type Summary struct {
	Location string
	State    string
	Events   int
	Failures int
	Warnings int
	ReadErr  error
	Duration time.Duration
}

// DoneHook is called when the validation of a file ends.
type DoneHook func(ctx context.Context, s Summary)

// OnRun adds a run hook.
func (m *Manager) OnRun(hook RunHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runHooks = append(m.runHooks, hook)
}

// OnEvent adds an event hook.
func (m *Manager) OnEvent(hook EventHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventHooks = append(m.eventHooks, hook)
}

// OnFailure adds a failure hook.
func (m *Manager) OnFailure(hook FailureHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failureHooks = append(m.failureHooks, hook)
}

// OnDone adds a done hook.
func (m *Manager) OnDone(hook DoneHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doneHooks = append(m.doneHooks, hook)
}

// RunLoaded executes all run hooks.
func (m *Manager) RunLoaded(ctx context.Context, info *validation.RunInfo, warnings []lferrors.Warning) {
	if m == nil {
		return
	}
	m.mu.RLock()
	hooks := m.runHooks
	m.mu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, info, warnings)
	}
}

// EventDone executes all event hooks.
func (m *Manager) EventDone(ctx context.Context, ev *model.Event, failures []*lferrors.Failure) {
	if m == nil {
		return
	}
	m.mu.RLock()
	hooks := m.eventHooks
	m.mu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, ev, failures)
	}
}

// Failed executes all failure hooks.
func (m *Manager) Failed(ctx context.Context, f *lferrors.Failure) {
	if m == nil {
		return
	}
	m.mu.RLock()
	hooks := m.failureHooks
	m.mu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, f)
	}
}

// Done executes all done hooks.
func (m *Manager) Done(ctx context.Context, s Summary) {
	if m == nil {
		return
	}
	m.mu.RLock()
	hooks := m.doneHooks
	m.mu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, s)
	}
}
