package validation

import (
	"go.uber.org/zap"

	"github.com/NuHepMC/ReferenceImplementation/internal/logger"
	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	"github.com/NuHepMC/ReferenceImplementation/pkg/attr"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/nuhepmc"
	"github.com/NuHepMC/ReferenceImplementation/pkg/registry"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
)

// CheckProcessID checks that the event names a declared process.
func CheckProcessID(ev *model.Event, processes *StatusTable) *lferrors.Failure {
	id, err := attr.Get[int](ev, nuhepmc.ProcID)
	if err != nil {
		return lferrors.Failf(rules.ER2, err, "reading %s", nuhepmc.ProcID)
	}
	if !processes.Has(id) {
		return lferrors.Fail(rules.ER2, "process ID %d is not in the process table %v", id, processes.Codes())
	}
	return nil
}

// CheckLabPosition checks that a lab position is recorded. Its length is
// the business of E.C.6.
func CheckLabPosition(ev *model.Event) *lferrors.Failure {
	if _, err := attr.Get[[]float64](ev, nuhepmc.LabPos); err != nil {
		return lferrors.Failf(rules.ER4, err, "reading %s", nuhepmc.LabPos)
	}
	return nil
}

// CheckVertices checks that no vertex has status 0 and exactly one is
// primary.
func CheckVertices(ev *model.Event) *lferrors.Failure {
	primaries := 0
	for _, vtx := range ev.Vertices {
		if vtx.Status == 0 {
			return lferrors.Fail(rules.ER5, "vertex %d has status 0", vtx.ID)
		}
		if vtx.Status == nuhepmc.VertexStatusPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		return lferrors.Fail(rules.ER5, "found %d primary vertices, want exactly 1", primaries)
	}
	return nil
}

// CheckBeams checks that the event has an incoming beam particle.
func CheckBeams(ev *model.Event) *lferrors.Failure {
	if len(ev.Beams()) == 0 {
		return lferrors.Fail(rules.ER6, "no beam particle (status %d)", nuhepmc.ParticleStatusBeam)
	}
	return nil
}

// CheckVertexStatuses checks every non-primary vertex status against the
// declared vertex status table. Status 0 is left to CheckVertices.
func CheckVertexStatuses(ev *model.Event, table *StatusTable) *lferrors.Failure {
	for _, vtx := range ev.Vertices {
		if vtx.Status == 0 || vtx.Status == nuhepmc.VertexStatusPrimary || table.Has(vtx.Status) {
			continue
		}
		return lferrors.Fail(rules.VR1, "vertex %d has undeclared status %d", vtx.ID, vtx.Status)
	}
	return nil
}

// ValidParticleStatus reports whether status may appear on a particle.
// The reserved range is invalid even when declared.
func ValidParticleStatus(status int, table *StatusTable) bool {
	switch {
	case status < 1:
		return false
	case status <= nuhepmc.ParticleStatusStandardMax:
		return true
	case status <= nuhepmc.ParticleStatusReservedMax:
		return false
	default:
		return table.Has(status)
	}
}

// CheckParticleStatuses checks every particle status.
func CheckParticleStatuses(ev *model.Event, table *StatusTable) *lferrors.Failure {
	for _, p := range ev.Particles {
		if ValidParticleStatus(p.Status, table) {
			continue
		}
		switch {
		case p.Status < 1:
			return lferrors.Fail(rules.PR1, "particle %d has invalid status %d", p.ID, p.Status)
		case p.Status <= nuhepmc.ParticleStatusReservedMax:
			return lferrors.Fail(rules.PR1, "particle %d has reserved status %d", p.ID, p.Status)
		default:
			return lferrors.Fail(rules.PR1, "particle %d has undeclared status %d", p.ID, p.Status)
		}
	}
	return nil
}

// EventValidator checks events against the run-level declarations. It owns
// the set of seen event numbers for one file.
type EventValidator struct {
	info   *RunInfo
	active []registry.Entry
	seen   *SeenSet
	log    *zap.Logger
}

// NewEventValidator creates a validator for the file described by info,
// using the event-level conventions of reg (nil selects the default).
func NewEventValidator(info *RunInfo, reg *registry.Registry, log *zap.Logger) *EventValidator {
	if reg == nil {
		reg = registry.Default()
	}
	if info == nil {
		info = &RunInfo{}
	}
	return &EventValidator{
		info:   info,
		active: reg.Active(registry.LevelEvent, info.Conventions),
		seen:   NewSeenSet(),
		log:    logger.OrNop(log).Named("event-validator"),
	}
}

// ClaimNumber checks E.R.1 and records the event number when it passes.
// Calls must be made in stream order.
func (v *EventValidator) ClaimNumber(ev *model.Event) *lferrors.Failure {
	if ev == nil {
		return lferrors.Failf(rules.ER1, lferrors.NullEntity("event number"), "reading event number")
	}
	if ev.Number < 0 {
		return lferrors.Fail(rules.ER1, "event number %d is negative", ev.Number).ForEvent(ev.Number)
	}
	if v.seen.Contains(ev.Number) {
		return lferrors.Fail(rules.ER1, "event number %d was already used", ev.Number).ForEvent(ev.Number)
	}
	v.seen.Insert(ev.Number)
	return nil
}

// CheckContent runs every event check after E.R.1, in rule order. It reads
// only the immutable run info, so it may run concurrently for different
// events. With failFast it returns at most one failure.
func (v *EventValidator) CheckContent(ev *model.Event, failFast bool) []*lferrors.Failure {
	if ev == nil {
		return nil
	}
	var out []*lferrors.Failure
	add := func(f *lferrors.Failure) bool {
		if f == nil {
			return false
		}
		out = append(out, f.ForEvent(ev.Number))
		return failFast
	}

	if add(CheckProcessID(ev, v.info.Processes)) ||
		add(CheckLabPosition(ev)) ||
		add(CheckVertices(ev)) ||
		add(CheckBeams(ev)) {
		return out
	}
	for _, e := range v.active {
		if add(conventionFailure(e.Tag, e.Event(ev))) {
			return out
		}
	}
	if add(CheckVertexStatuses(ev, v.info.VertexStatuses)) ||
		add(CheckParticleStatuses(ev, v.info.ParticleStatuses)) {
		return out
	}
	return out
}

// Validate checks one event completely. With failFast it returns at most
// one failure.
func (v *EventValidator) Validate(ev *model.Event, failFast bool) []*lferrors.Failure {
	if f := v.ClaimNumber(ev); f != nil {
		v.log.Debug("event number rejected", zap.Error(f))
		if failFast {
			return []*lferrors.Failure{f}
		}
		return append([]*lferrors.Failure{f}, v.CheckContent(ev, false)...)
	}
	return v.CheckContent(ev, failFast)
}

// Seen returns the number of distinct event numbers claimed so far.
func (v *EventValidator) Seen() uint64 {
	return v.seen.Len()
}

// Reset forgets the claimed event numbers so the validator can re-run the
// same file.
func (v *EventValidator) Reset() {
	v.seen.Reset()
}
