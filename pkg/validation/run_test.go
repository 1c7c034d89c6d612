package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/nuhepmc"
	"github.com/NuHepMC/ReferenceImplementation/pkg/registry"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
)

func firstRule(t *testing.T, res *RunResult) rules.ID {
	t.Helper()
	require.NotEmpty(t, res.Failures)
	return res.Failures[0].Rule
}

func TestMinimalRunPasses(t *testing.T) {
	res := NewRunValidator(registry.NewWithBuiltins(), nil).Validate(minimalRun(), true)
	require.True(t, res.OK(), "%v", res.Failures)

	info := res.Info
	assert.Equal(t, Version{0, 1, 0}, info.Version)
	assert.Equal(t, []int{200, 300, 500}, info.Processes.Codes())
	assert.Equal(t, 0, info.VertexStatuses.Len())
	assert.Equal(t, 0, info.Conventions.Len())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, rules.GC5, res.Warnings[0].Rule)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(run *model.RunMetadata) *model.RunMetadata
		rule   rules.ID
		code   lferrors.Code
	}{
		{"absent run", func(*model.RunMetadata) *model.RunMetadata { return nil }, rules.GR1, ""},
		{"missing version", func(r *model.RunMetadata) *model.RunMetadata {
			r.Attrs.Delete(nuhepmc.VersionMinor)
			return r
		}, rules.GR2, lferrors.CodeMissingAttribute},
		{"version wrong type", func(r *model.RunMetadata) *model.RunMetadata {
			r.SetAttribute(nuhepmc.VersionMajor, model.String("zero"))
			return r
		}, rules.GR2, lferrors.CodeAttributeType},
		{"negative version", func(r *model.RunMetadata) *model.RunMetadata {
			r.SetAttribute(nuhepmc.VersionPatch, model.Int(-1))
			return r
		}, rules.GR2, ""},
		{"empty tool version", func(r *model.RunMetadata) *model.RunMetadata {
			r.Tools[0].Version = ""
			return r
		}, rules.GR3, ""},
		{"missing process table", func(r *model.RunMetadata) *model.RunMetadata {
			r.Attrs.Delete(nuhepmc.ProcessTable.IDs)
			return r
		}, rules.GR4, lferrors.CodeMissingAttribute},
		{"empty process table", func(r *model.RunMetadata) *model.RunMetadata {
			r.SetAttribute(nuhepmc.ProcessTable.IDs, model.VectorInt())
			return r
		}, rules.GR4, ""},
		{"process without description", func(r *model.RunMetadata) *model.RunMetadata {
			r.Attrs.Delete(nuhepmc.ProcessTable.DescriptionKey(300))
			return r
		}, rules.GR4, lferrors.CodeMissingAttribute},
		{"duplicate process", func(r *model.RunMetadata) *model.RunMetadata {
			r.SetAttribute(nuhepmc.ProcessTable.IDs, model.VectorInt(200, 200))
			return r
		}, rules.GR4, ""},
		{"vertex status without name", func(r *model.RunMetadata) *model.RunMetadata {
			r.SetAttribute(nuhepmc.VertexStatusTable.IDs, model.VectorInt(2))
			return r
		}, rules.GR5, lferrors.CodeMissingAttribute},
		{"particle table wrong type", func(r *model.RunMetadata) *model.RunMetadata {
			r.SetAttribute(nuhepmc.ParticleStatusTable.IDs, model.VectorDouble(25))
			return r
		}, rules.GR6, lferrors.CodeAttributeType},
		{"no CV weight", func(r *model.RunMetadata) *model.RunMetadata {
			r.WeightNames = []string{"Alt"}
			return r
		}, rules.GR7, ""},
		{"conventions wrong type", func(r *model.RunMetadata) *model.RunMetadata {
			r.SetAttribute(nuhepmc.Conventions, model.Int(1))
			return r
		}, rules.GC1, lferrors.CodeAttributeType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := tt.mutate(minimalRun())
			res := NewRunValidator(registry.NewWithBuiltins(), nil).Validate(run, true)
			require.Len(t, res.Failures, 1)
			assert.Equal(t, tt.rule, firstRule(t, res))
			if tt.code != "" {
				assert.True(t, lferrors.IsCode(res.Failures[0], tt.code), res.Failures[0].Error())
			}
		})
	}
}

func TestFluxAveragedCrossSectionConvention(t *testing.T) {
	v := NewRunValidator(registry.NewWithBuiltins(), nil)

	declared := minimalRun()
	declared.SetAttribute(nuhepmc.Conventions, model.VectorString("G.C.4", "G.C.5"))
	res := v.Validate(declared, true)
	assert.Equal(t, rules.GC4, firstRule(t, res))
	assert.Equal(t, rules.Convention, res.Failures[0].Category())

	undeclared := minimalRun()
	undeclared.SetAttribute(nuhepmc.Conventions, model.VectorString("G.C.5"))
	res = v.Validate(undeclared, true)
	assert.True(t, res.OK())
	assert.Empty(t, res.Warnings)
}

func TestCollectAllRunFailures(t *testing.T) {
	run := minimalRun()
	run.Tools[0].Description = ""
	run.WeightNames = nil
	run.SetAttribute(nuhepmc.Conventions, model.VectorString("G.C.2", "G.C.4"))

	res := NewRunValidator(registry.NewWithBuiltins(), nil).Validate(run, false)
	var got []rules.ID
	for _, f := range res.Failures {
		got = append(got, f.Rule)
	}
	assert.Equal(t, []rules.ID{rules.GR3, rules.GR7, rules.GC2, rules.GC4}, got)
	assert.Equal(t, []int{200, 300, 500}, res.Info.Processes.Codes())
}

func TestUncheckedConventionsAreAccepted(t *testing.T) {
	run := minimalRun()
	run.SetAttribute(nuhepmc.Conventions, model.Raw("G.C.1 G.C.5 E.C.1 E.C.5 X.C.7"))

	res := NewRunValidator(registry.NewWithBuiltins(), nil).Validate(run, true)
	require.True(t, res.OK())
	assert.Equal(t, []string{"E.C.1", "E.C.5", "G.C.1", "G.C.5", "X.C.7"}, res.Info.Unchecked)
}

func TestNewerVersionWarns(t *testing.T) {
	run := minimalRun()
	run.SetAttribute(nuhepmc.VersionMajor, model.Int(2))

	res := NewRunValidator(nil, nil).Validate(run, true)
	require.True(t, res.OK())
	var warned []rules.ID
	for _, w := range res.Warnings {
		warned = append(warned, w.Rule)
	}
	assert.Equal(t, []rules.ID{rules.GR2, rules.GC5}, warned)
}

func TestReadStatusTable(t *testing.T) {
	run := minimalRun()
	run.SetAttribute(nuhepmc.VertexStatusTable.IDs, model.Raw("2"))
	run.SetAttribute(nuhepmc.VertexStatusTable.NameKey(2), model.Raw("FSIAbs"))
	run.SetAttribute(nuhepmc.VertexStatusTable.DescriptionKey(2), model.Raw("Pion absorption"))

	tbl, err := ReadStatusTable(run, nuhepmc.VertexStatusTable)
	require.NoError(t, err)
	e, ok := tbl.Get(2)
	require.True(t, ok)
	assert.Equal(t, StatusEntry{Name: "FSIAbs", Description: "Pion absorption"}, e)

	tbl, err = ReadStatusTable(run, nuhepmc.ParticleStatusTable)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}
