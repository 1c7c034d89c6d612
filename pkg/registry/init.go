package registry

import (
	"errors"
	"fmt"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	"github.com/NuHepMC/ReferenceImplementation/pkg/attr"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/nuhepmc"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
)

func init() {
	RegisterBuiltins(defaultRegistry)
}

// RegisterBuiltins binds the checkers of every convention with an automated
// check.
func RegisterBuiltins(r *Registry) {
	r.RegisterRun(rules.GC2, requireAttr[int](nuhepmc.ExposureNEvents))
	r.RegisterRun(rules.GC3, checkExposure)
	r.RegisterRun(rules.GC4, requireAttr[float64](nuhepmc.FluxAveragedTotalCrossSection))

	r.RegisterEvent(rules.EC2, requireEventAttr[float64](nuhepmc.TotXS))
	r.RegisterEvent(rules.EC3, requireEventAttr[float64](nuhepmc.ProcXS))
	r.RegisterEvent(rules.EC4, checkCrossSection)
	r.RegisterEvent(rules.EC6, checkLabPosition)
}

// NewWithBuiltins returns a fresh registry holding the built-in checkers.
func NewWithBuiltins() *Registry {
	r := New()
	RegisterBuiltins(r)
	return r
}

func requireAttr[T attr.Value](name string) RunChecker {
	return func(run *model.RunMetadata) error {
		_, err := attr.Get[T](run, name)
		return err
	}
}

func requireEventAttr[T attr.Value](name string) EventChecker {
	return func(ev *model.Event) error {
		_, err := attr.Get[T](ev, name)
		return err
	}
}

func checkExposure(run *model.RunMetadata) error {
	_, errPOT := attr.Get[float64](run, nuhepmc.ExposurePOT)
	if errPOT == nil {
		return nil
	}
	_, errLive := attr.Get[float64](run, nuhepmc.ExposureLivetime)
	if errLive == nil {
		return nil
	}
	var m lferrors.MultiError
	m.Add(errPOT)
	m.Add(errLive)
	return fmt.Errorf("neither %s nor %s is usable: %w",
		nuhepmc.ExposurePOT, nuhepmc.ExposureLivetime, &m)
}

func checkCrossSection(ev *model.Event) error {
	if ev.CrossSection == nil {
		return errors.New("event has no cross section")
	}
	if ev.CrossSection.Value == 0 {
		return errors.New("event cross section is zero")
	}
	return nil
}

func checkLabPosition(ev *model.Event) error {
	pos, err := attr.Get[[]float64](ev, nuhepmc.LabPos)
	if err != nil {
		return err
	}
	if len(pos) != 4 {
		return fmt.Errorf("%s has %d components, want 4", nuhepmc.LabPos, len(pos))
	}
	return nil
}
