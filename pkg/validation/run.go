// Package validation checks NuHepMC run metadata and events against the
// mandatory requirements and the conventions a file declares.
package validation

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/NuHepMC/ReferenceImplementation/internal/logger"
	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	"github.com/NuHepMC/ReferenceImplementation/pkg/attr"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/nuhepmc"
	"github.com/NuHepMC/ReferenceImplementation/pkg/registry"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
)

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Supported is the version of the conventions this validator implements.
var Supported = Version{nuhepmc.SupportedMajor, nuhepmc.SupportedMinor, nuhepmc.SupportedPatch}

// RequirePresent fails G.R.1 when run metadata is absent.
func RequirePresent(run *model.RunMetadata) error {
	if run == nil {
		return lferrors.Fail(rules.GR1, "run metadata is absent")
	}
	return nil
}

// ReadVersion reads the declared NuHepMC version.
func ReadVersion(run *model.RunMetadata) (Version, error) {
	var v Version
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{nuhepmc.VersionMajor, &v.Major},
		{nuhepmc.VersionMinor, &v.Minor},
		{nuhepmc.VersionPatch, &v.Patch},
	} {
		n, err := attr.Get[int](run, f.name)
		if err != nil {
			return Version{}, lferrors.Failf(rules.GR2, err, "reading %s", f.name)
		}
		if n < 0 {
			return Version{}, lferrors.Fail(rules.GR2, "%s is negative (%d)", f.name, n)
		}
		*f.dst = n
	}
	return v, nil
}

// ValidateTools checks that every tool has a name, a version and a
// description.
func ValidateTools(run *model.RunMetadata) error {
	if run == nil {
		return lferrors.Failf(rules.GR3, lferrors.NullEntity("tools"), "reading tools")
	}
	for i, tool := range run.Tools {
		switch {
		case tool.Name == "":
			return lferrors.Fail(rules.GR3, "tool %d has an empty name", i)
		case tool.Version == "":
			return lferrors.Fail(rules.GR3, "tool %d (%s) has an empty version", i, tool.Name)
		case tool.Description == "":
			return lferrors.Fail(rules.GR3, "tool %d (%s) has an empty description", i, tool.Name)
		}
	}
	return nil
}

func tableRule(t nuhepmc.Table) rules.ID {
	switch t.IDs {
	case nuhepmc.ProcessTable.IDs:
		return rules.GR4
	case nuhepmc.VertexStatusTable.IDs:
		return rules.GR5
	default:
		return rules.GR6
	}
}

// ReadStatusTable reads one of the declared code tables. The process table
// must exist and be non-empty; the status tables may be absent or empty.
func ReadStatusTable(run *model.RunMetadata, table nuhepmc.Table) (*StatusTable, error) {
	rule := tableRule(table)
	required := table.IDs == nuhepmc.ProcessTable.IDs

	ids, err := attr.Get[[]int](run, table.IDs)
	if lferrors.IsCode(err, lferrors.CodeMissingAttribute) && !required {
		return NewStatusTable(), nil
	}
	if err != nil {
		return nil, lferrors.Failf(rule, err, "reading %s table", table.Kind)
	}

	out := NewStatusTable()
	for _, id := range ids {
		name, err := attr.Get[string](run, table.NameKey(id))
		if err != nil {
			return nil, lferrors.Failf(rule, err, "reading name of %s %d", table.Kind, id)
		}
		desc, err := attr.Get[string](run, table.DescriptionKey(id))
		if err != nil {
			return nil, lferrors.Failf(rule, err, "reading description of %s %d", table.Kind, id)
		}
		if !out.Add(id, StatusEntry{Name: name, Description: desc}) {
			return nil, lferrors.Fail(rule, "%s %d is declared twice", table.Kind, id)
		}
	}
	if required && out.Len() == 0 {
		return nil, lferrors.Fail(rule, "no %s codes are declared", table.Kind)
	}
	return out, nil
}

// ValidateWeights checks that the weight names include CV.
func ValidateWeights(run *model.RunMetadata) error {
	if run == nil {
		return lferrors.Failf(rules.GR7, lferrors.NullEntity("weight names"), "reading weight names")
	}
	for _, name := range run.WeightNames {
		if name == nuhepmc.CV {
			return nil
		}
	}
	return lferrors.Fail(rules.GR7, "weight names %v do not include %q", run.WeightNames, nuhepmc.CV)
}

// ReadConventions returns the declared conventions. An absent declaration
// is an empty set; a declaration of the wrong type fails G.C.1.
func ReadConventions(run *model.RunMetadata) (*registry.Conventions, error) {
	tags, err := attr.GetOr[[]string](run, nuhepmc.Conventions, nil)
	if err != nil {
		return registry.NewConventions(), lferrors.Failf(rules.GC1, err, "reading declared conventions")
	}
	return registry.NewConventions(tags...), nil
}

// RunValidator checks file-global rules and extracts the declared tables.
type RunValidator struct {
	registry *registry.Registry
	log      *zap.Logger
}

// NewRunValidator creates a validator using the conventions of reg; nil
// selects the default registry.
func NewRunValidator(reg *registry.Registry, log *zap.Logger) *RunValidator {
	if reg == nil {
		reg = registry.Default()
	}
	return &RunValidator{registry: reg, log: logger.OrNop(log).Named("run-validator")}
}

// RunResult is the outcome of run-level validation.
type RunResult struct {
	Info     *RunInfo
	Failures []*lferrors.Failure
	Warnings []lferrors.Warning
}

// OK reports whether no failure was found.
func (r *RunResult) OK() bool { return len(r.Failures) == 0 }

// Validate runs every run-level check in rule order. With failFast it stops
// at the first failure, otherwise it collects all of them. Info is always
// returned, holding whatever could be extracted.
func (v *RunValidator) Validate(run *model.RunMetadata, failFast bool) *RunResult {
	res := &RunResult{Info: &RunInfo{
		Processes:        NewStatusTable(),
		VertexStatuses:   NewStatusTable(),
		ParticleStatuses: NewStatusTable(),
		Conventions:      registry.NewConventions(),
	}}

	fail := func(err error) bool {
		if err == nil {
			return false
		}
		f, ok := lferrors.AsFailure(err)
		if !ok {
			f = lferrors.Failf(rules.GR1, err, "run-level validation")
		}
		res.Failures = append(res.Failures, f)
		v.log.Warn("run-level check failed", zap.Error(err))
		return failFast
	}

	if err := RequirePresent(run); err != nil {
		fail(err)
		return res
	}
	info := res.Info
	info.Tools = append([]model.Tool(nil), run.Tools...)
	info.WeightNames = append([]string(nil), run.WeightNames...)

	version, err := ReadVersion(run)
	if fail(err) {
		return res
	}
	if err == nil {
		info.Version = version
		if w, ok := newerThanSupported(version); ok {
			res.Warnings = append(res.Warnings, w)
		}
	}

	if fail(ValidateTools(run)) {
		return res
	}

	for _, t := range []struct {
		table nuhepmc.Table
		dst   **StatusTable
	}{
		{nuhepmc.ProcessTable, &info.Processes},
		{nuhepmc.VertexStatusTable, &info.VertexStatuses},
		{nuhepmc.ParticleStatusTable, &info.ParticleStatuses},
	} {
		tbl, err := ReadStatusTable(run, t.table)
		if fail(err) {
			return res
		}
		if err == nil {
			*t.dst = tbl
		}
	}

	if fail(ValidateWeights(run)) {
		return res
	}

	declared, err := ReadConventions(run)
	if fail(err) {
		return res
	}
	info.Conventions = declared
	info.Unchecked = v.registry.Unchecked(declared)
	if !declared.Has(string(rules.GC5)) {
		res.Warnings = append(res.Warnings, lferrors.Warn(rules.GC5, "citation metadata convention is not declared"))
	}

	v.log.Info("run metadata loaded",
		zap.Stringer("version", info.Version),
		zap.Int("tools", len(info.Tools)),
		zap.Int("processes", info.Processes.Len()),
		zap.Strings("conventions", declared.Tags()))

	for _, e := range v.registry.Active(registry.LevelRun, declared) {
		f := conventionFailure(e.Tag, e.Run(run))
		if f != nil && fail(f) {
			return res
		}
	}
	return res
}

// conventionFailure wraps a checker error into a failure for tag.
func conventionFailure(tag rules.ID, err error) *lferrors.Failure {
	if err == nil {
		return nil
	}
	if f, ok := lferrors.AsFailure(err); ok {
		return f
	}
	return lferrors.Failf(tag, err, "declared convention not satisfied (%s)", rules.Describe(tag))
}

func newerThanSupported(v Version) (lferrors.Warning, bool) {
	declared, err := semver.NewVersion(v.String())
	if err != nil {
		return lferrors.Warning{}, false
	}
	supported := semver.MustParse(Supported.String())
	if declared.GreaterThan(supported) {
		return lferrors.Warn(rules.GR2, "file declares NuHepMC %s, newer than the supported %s", declared, supported), true
	}
	return lferrors.Warning{}, false
}
