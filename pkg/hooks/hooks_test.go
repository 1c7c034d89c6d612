package hooks

import (
	"context"
	"testing"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
	"github.com/NuHepMC/ReferenceImplementation/pkg/validation"
)

func TestManager_HooksRunInOrder(t *testing.T) {
	mgr := NewManager()

	var calls []string
	mgr.OnRun(func(ctx context.Context, info *validation.RunInfo, warnings []lferrors.Warning) {
		calls = append(calls, "run")
	})
	mgr.OnEvent(func(ctx context.Context, ev *model.Event, failures []*lferrors.Failure) {
		calls = append(calls, "event-1")
	})
	mgr.OnEvent(func(ctx context.Context, ev *model.Event, failures []*lferrors.Failure) {
		calls = append(calls, "event-2")
	})
	mgr.OnFailure(func(ctx context.Context, f *lferrors.Failure) {
		calls = append(calls, "failure:"+string(f.Rule))
	})
	mgr.OnDone(func(ctx context.Context, s Summary) {
		calls = append(calls, "done")
	})

	ctx := context.Background()
	mgr.RunLoaded(ctx, &validation.RunInfo{}, nil)
	mgr.EventDone(ctx, model.NewEvent(1), nil)
	mgr.Failed(ctx, lferrors.Fail(rules.ER1, "duplicate"))
	mgr.Done(ctx, Summary{Events: 1})

	want := []string{"run", "event-1", "event-2", "failure:E.R.1", "done"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestManager_NilIsNoop(t *testing.T) {
	var mgr *Manager
	ctx := context.Background()
	mgr.RunLoaded(ctx, nil, nil)
	mgr.EventDone(ctx, nil, nil)
	mgr.Failed(ctx, nil)
	mgr.Done(ctx, Summary{})
}
