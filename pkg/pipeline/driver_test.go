package pipeline

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/hooks"
	"github.com/NuHepMC/ReferenceImplementation/pkg/nuhepmc"
	"github.com/NuHepMC/ReferenceImplementation/pkg/reader"
	"github.com/NuHepMC/ReferenceImplementation/pkg/reference"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
	"github.com/NuHepMC/ReferenceImplementation/pkg/source"
)

// referenceRun declares version 0.1.0, one tool, processes 200, 300 and 500,
// the CV weight and no conventions.
func referenceRun() *model.RunMetadata {
	run := &model.RunMetadata{
		Tools:       []model.Tool{{Name: "MyGen", Version: "0.0.1", Description: "My Favorite Generator"}},
		WeightNames: []string{"CV"},
	}
	run.SetAttribute(nuhepmc.VersionMajor, model.Int(0))
	run.SetAttribute(nuhepmc.VersionMinor, model.Int(1))
	run.SetAttribute(nuhepmc.VersionPatch, model.Int(0))
	run.SetAttribute(nuhepmc.ProcessTable.IDs, model.VectorInt(200, 300, 500))
	for _, id := range []int{200, 300, 500} {
		run.SetAttribute(nuhepmc.ProcessTable.NameKey(id), model.String("process"))
		run.SetAttribute(nuhepmc.ProcessTable.DescriptionKey(id), model.String("a process"))
	}
	return run
}

func referenceEvent(number, procID int) *model.Event {
	ev := model.NewEvent(number)
	ev.SetAttribute(nuhepmc.ProcID, model.Int(procID))
	ev.SetAttribute(nuhepmc.LabPos, model.VectorDouble(0, 0, 0, 0))
	nu := ev.AddParticle(14, nuhepmc.ParticleStatusBeam, model.FourVector{Z: 1000, T: 1000}, 0)
	mu := ev.AddParticle(13, nuhepmc.ParticleStatusUndecayed, model.FourVector{Z: 900, T: 906}, 105.66)
	ev.AddVertex(nuhepmc.VertexStatusPrimary, model.FourVector{}, []*model.Particle{nu}, []*model.Particle{mu})
	return ev
}

func referenceEvents(numbers ...int) []*model.Event {
	procs := []int{200, 300, 500}
	out := make([]*model.Event, len(numbers))
	for i, n := range numbers {
		out[i] = referenceEvent(n, procs[i%len(procs)])
	}
	return out
}

func validate(t *testing.T, opts Options, run *model.RunMetadata, events ...*model.Event) *Result {
	t.Helper()
	return New(opts).Validate(context.Background(), "memory://test", reader.NewMemoryStream(run, events...))
}

func TestThreeValidEventsConform(t *testing.T) {
	res := validate(t, Options{}, referenceRun(), referenceEvents(1, 2, 3)...)
	require.True(t, res.OK(), "%v", res.FirstFailure())
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 3, res.Events)
	assert.NotEmpty(t, res.SessionID)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, rules.GC5, res.Warnings[0].Rule)
}

func TestDuplicateEventNumberFails(t *testing.T) {
	res := validate(t, Options{}, referenceRun(), referenceEvents(1, 1, 3)...)
	assert.Equal(t, StateFailed, res.State)
	f := res.FirstFailure()
	require.NotNil(t, f)
	assert.Equal(t, rules.ER1, f.Rule)
	assert.True(t, f.HasEvent)
	assert.Equal(t, 1, f.Event)
	assert.Contains(t, f.Error(), "event number 1")
	assert.Equal(t, 2, res.Events)
}

func TestEmptyToolVersionFails(t *testing.T) {
	run := referenceRun()
	run.Tools[0].Version = ""
	res := validate(t, Options{}, run, referenceEvents(1, 2, 3)...)
	assert.Equal(t, StateFailed, res.State)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, rules.GR3, res.Failures[0].Rule)
	assert.Zero(t, res.Events)
}

func TestMissingRunMetadata(t *testing.T) {
	res := validate(t, Options{Policy: PolicyCollectAll}, nil, referenceEvents(1)...)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, rules.GR1, res.Failures[0].Rule)
	assert.Nil(t, res.Err)
}

func TestDeterministic(t *testing.T) {
	d := New(Options{})
	run := referenceRun()
	events := referenceEvents(4, 5, 4, 6)
	first := d.Validate(context.Background(), "a", reader.NewMemoryStream(run, events...))
	second := d.Validate(context.Background(), "a", reader.NewMemoryStream(run, events...))
	require.NotNil(t, first.FirstFailure())
	assert.Equal(t, first.FirstFailure().Error(), second.FirstFailure().Error())
	assert.Equal(t, first.Events, second.Events)
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestCollectAll(t *testing.T) {
	events := referenceEvents(1, 2, 2, -1)
	events[1].SetAttribute(nuhepmc.ProcID, model.Int(999))

	res := validate(t, Options{Policy: PolicyCollectAll}, referenceRun(), events...)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 4, res.Events)

	var got []string
	for _, f := range res.Failures {
		got = append(got, string(f.Rule))
	}
	assert.Equal(t, []string{"E.R.2", "E.R.1", "E.R.1"}, got)
	assert.Equal(t, 2, res.Failures[1].Event)
	assert.Equal(t, -1, res.Failures[2].Event)
}

func TestConventionsNotCheckedUnlessDeclared(t *testing.T) {
	events := referenceEvents(1, 2)
	res := validate(t, Options{Policy: PolicyCollectAll}, referenceRun(), events...)
	assert.True(t, res.OK())

	run := referenceRun()
	run.SetAttribute(nuhepmc.Conventions, model.VectorString("G.C.4", "E.C.4"))
	res = validate(t, Options{Policy: PolicyCollectAll}, run, referenceEvents(1, 2)...)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, rules.GC4, res.Failures[0].Rule)
	assert.Zero(t, res.Events)

	run.SetAttribute(nuhepmc.FluxAveragedTotalCrossSection, model.Double(1.2))
	res = validate(t, Options{Policy: PolicyCollectAll}, run, referenceEvents(1, 2)...)
	require.Len(t, res.Failures, 2)
	for _, f := range res.Failures {
		assert.Equal(t, rules.EC4, f.Rule)
		assert.Equal(t, rules.Convention, f.Category())
	}
}

func TestReferenceFileIsConformant(t *testing.T) {
	res := validate(t, Options{Policy: PolicyCollectAll}, reference.RunMetadata(), reference.Events()...)
	require.True(t, res.OK(), "%v", res.Failures)
	assert.Equal(t, 3, res.Events)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{"E.C.1", "E.C.5", "G.C.1", "G.C.5"}, res.Info.Unchecked)
}

func TestReadErrorIsFatal(t *testing.T) {
	boom := lferrors.Malformed(12, "P 1", "particle record has 3 fields, want 10")
	for _, policy := range []Policy{PolicyFailFast, PolicyCollectAll} {
		t.Run(policy.String(), func(t *testing.T) {
			s := reader.NewMemoryStream(referenceRun(), referenceEvents(1, 2)...).FailAfter(boom)
			res := New(Options{Policy: policy}).Validate(context.Background(), "x", s)
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, 2, res.Events)
			assert.Empty(t, res.Failures)
			assert.True(t, lferrors.IsCode(res.Err, lferrors.CodeMalformed))
			assert.False(t, res.OK())
		})
	}
}

func TestForeignReadErrorIsCoded(t *testing.T) {
	s := reader.NewMemoryStream(referenceRun()).FailAfter(io.ErrUnexpectedEOF)
	res := New(Options{}).Validate(context.Background(), "x", s)
	assert.True(t, lferrors.IsCode(res.Err, lferrors.CodeReadFailed))
	assert.ErrorIs(t, res.Err, io.ErrUnexpectedEOF)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := New(Options{}).Validate(ctx, "x", reader.NewMemoryStream(referenceRun(), referenceEvents(1)...))
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, lferrors.IsCode(res.Err, lferrors.CodeContextCanceled))
}

func TestValidateSourceUnrecognized(t *testing.T) {
	res := New(Options{}).ValidateSource(context.Background(), source.NewMemorySource("junk", []byte("hello\n")))
	assert.Equal(t, StateFailed, res.State)
	assert.Nil(t, res.Info)
	assert.True(t, lferrors.IsCode(res.Err, lferrors.CodeUnrecognized))
}

func TestParallelMatchesSequential(t *testing.T) {
	numbers := make([]int, 0, 200)
	for i := 0; i < 200; i++ {
		numbers = append(numbers, i)
	}
	numbers[150] = 17

	for _, policy := range []Policy{PolicyFailFast, PolicyCollectAll} {
		t.Run(policy.String(), func(t *testing.T) {
			events := referenceEvents(numbers...)
			events[90].Vertices[0].Status = 0

			seq := validate(t, Options{Policy: policy}, referenceRun(), events...)
			par := validate(t, Options{Policy: policy, Workers: 4}, referenceRun(), events...)

			assert.Equal(t, seq.Events, par.Events)
			assert.Equal(t, seq.State, par.State)
			require.Equal(t, len(seq.Failures), len(par.Failures))
			for i := range seq.Failures {
				assert.Equal(t, seq.Failures[i].Error(), par.Failures[i].Error())
			}
		})
	}
}

func TestHooksObserveStreamOrder(t *testing.T) {
	m := hooks.NewManager()
	var (
		mu      sync.Mutex
		order   []int
		failed  []rules.ID
		summary hooks.Summary
	)
	m.OnEvent(func(_ context.Context, ev *model.Event, _ []*lferrors.Failure) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, ev.Number)
	})
	m.OnFailure(func(_ context.Context, f *lferrors.Failure) {
		failed = append(failed, f.Rule)
	})
	m.OnDone(func(_ context.Context, s hooks.Summary) {
		summary = s
	})

	events := referenceEvents(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	events[6].Particles[0].Status = 15
	res := validate(t, Options{Policy: PolicyCollectAll, Workers: 3, Hooks: m}, referenceRun(), events...)

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, order)
	assert.Equal(t, []rules.ID{rules.ER6, rules.PR1}, failed)
	assert.Equal(t, StateFailed, summary.State)
	assert.Equal(t, 10, summary.Events)
	assert.Equal(t, 2, summary.Failures)
	assert.Equal(t, res.State, summary.State)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("collect-all")
	require.NoError(t, err)
	assert.Equal(t, PolicyCollectAll, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFailFast, p)

	_, err = ParsePolicy("sometimes")
	assert.True(t, lferrors.IsCode(err, lferrors.CodeInvalidConfig))

	var q Policy
	require.NoError(t, q.UnmarshalText([]byte("collect-all")))
	assert.Equal(t, PolicyCollectAll, q)
}
