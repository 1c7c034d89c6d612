// Package reference builds the NuHepMC example file: run metadata that
// declares every table and a handful of conventions, and three CCQE-like
// events that satisfy them.
package reference

import (
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/hepmc3"
	"github.com/NuHepMC/ReferenceImplementation/pkg/nuhepmc"
	"github.com/NuHepMC/ReferenceImplementation/pkg/source"
)

// CM2ToPB converts a cross section in cm2 to pb.
const CM2ToPB = 1e36

// Vertex and particle statuses declared by the reference generator.
const (
	VertexStatusFSIAbs = 2
	ParticleStatusFSI  = 11
)

type entry struct {
	code              int
	name, description string
}

var (
	processes = []entry{
		{200, "CCQE", "The Moon QE Model -- PRD 1234 (1990)"},
		{250, "NCQE", "The Moon QE Model -- PRD 1234 (1990)"},
		{300, "MEC", "My Shiny MEC Model -- PRL 1 (1950)"},
		{500, "Single PiPlus Production", "PiPlus 2049"},
		{600, "DIS", "Badabing Badaboom"},
	}
	vertexStatuses = []entry{
		{nuhepmc.VertexStatusPrimary, "PrimVer", "The primary vertex or hard scatter"},
		{VertexStatusFSIAbs, "FSIAbs", "Final state absorption interaction"},
	}
	particleStatuses = []entry{
		{nuhepmc.ParticleStatusUndecayed, "FinalState", "Undecayed physical particle"},
		{nuhepmc.ParticleStatusBeam, "InitialState", "Incoming beam particle"},
		{ParticleStatusFSI, "FSI", "Final state interaction steps"},
	}

	// Conventions lists the conventions the reference file declares.
	Conventions = []string{"G.C.1", "G.C.2", "G.C.4", "G.C.5", "E.C.1", "E.C.2", "E.C.3", "E.C.4", "E.C.5"}

	// ProcessIDs are the process ids of the events returned by Events.
	ProcessIDs = []int{200, 300, 500}
)

func writeTable(run *model.RunMetadata, t nuhepmc.Table, entries []entry) {
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.code
		run.SetAttribute(t.NameKey(e.code), model.String(e.name))
		run.SetAttribute(t.DescriptionKey(e.code), model.String(e.description))
	}
	run.SetAttribute(t.IDs, model.VectorInt(ids...))
}

// RunMetadata builds the reference run metadata.
func RunMetadata() *model.RunMetadata {
	run := &model.RunMetadata{
		Tools:       []model.Tool{{Name: "MyGen", Version: "0.0.1", Description: "My Favorite Generator"}},
		WeightNames: []string{nuhepmc.CV},
	}
	run.SetAttribute(nuhepmc.VersionMajor, model.Int(0))
	run.SetAttribute(nuhepmc.VersionMinor, model.Int(1))
	run.SetAttribute(nuhepmc.VersionPatch, model.Int(0))

	writeTable(run, nuhepmc.ProcessTable, processes)
	writeTable(run, nuhepmc.VertexStatusTable, vertexStatuses)
	writeTable(run, nuhepmc.ParticleStatusTable, particleStatuses)

	run.SetAttribute(nuhepmc.Conventions, model.VectorString(Conventions...))
	run.SetAttribute(nuhepmc.ExposureNEvents, model.Int(len(ProcessIDs)))
	run.SetAttribute(nuhepmc.FluxAveragedTotalCrossSection, model.Double(1.234e-38*CM2ToPB))
	return run
}

// Event builds one reference event: a neutrino and a neutron scatter into
// a muon, a proton and a pi+ that is absorbed, producing a second proton.
func Event(number, procID int) *model.Event {
	ev := model.NewEvent(number)
	ev.Weights = []float64{1}
	ev.CrossSection = &model.CrossSection{Value: 1.2e-36 * CM2ToPB}

	ev.SetAttribute(nuhepmc.TotXS, model.Double(1.2e-36*CM2ToPB))
	ev.SetAttribute(nuhepmc.ProcXS, model.Double(0.8e-36*CM2ToPB))
	ev.SetAttribute(nuhepmc.LabPos, model.VectorDouble(0, 0, 0, 0))
	ev.SetAttribute(nuhepmc.ProcID, model.Int(procID))

	fsMom := model.FourVector{X: 2.2148042245314980e+02, Y: -3.9279785316710411e+02, Z: 3.2421314743313258e+02, T: 1.0903266675337304e+03}

	neutron := ev.AddParticle(2112, nuhepmc.ParticleStatusBeam,
		model.FourVector{X: 1.5255172492130473e+02, Y: 8.9392830847276528e+01, Z: 6.4870597568257821e+01, T: 9.5825554558124941e+02},
		9.3956499999999994e+02)
	numu := ev.AddParticle(14, nuhepmc.ParticleStatusBeam, model.FourVector{Z: 1500, T: 1500}, 0)
	muon := ev.AddParticle(13, nuhepmc.ParticleStatusUndecayed,
		model.FourVector{X: -6.8928697531845643e+01, Y: 4.8219068401438176e+02, Z: 1.2406574501351240e+03, T: 1.3370316161682497e+03},
		1.0565800000000023e+02)
	proton := ev.AddParticle(2212, nuhepmc.ParticleStatusUndecayed, fsMom, 9.3827200000000005e+02)
	piplus := ev.AddParticle(211, ParticleStatusFSI, fsMom, 1.3957039000000000e+02)
	ev.AddVertex(nuhepmc.VertexStatusPrimary, model.FourVector{},
		[]*model.Particle{neutron, numu}, []*model.Particle{muon, proton, piplus})

	proton2 := ev.AddParticle(2212, nuhepmc.ParticleStatusUndecayed, fsMom, 9.3827200000000005e+02)
	ev.AddVertex(VertexStatusFSIAbs, model.FourVector{X: 1e-10, Y: 2e-10, Z: 3e-10, T: 4e-10},
		[]*model.Particle{piplus}, []*model.Particle{proton2})
	return ev
}

// Events builds the reference events, numbered from 1.
func Events() []*model.Event {
	out := make([]*model.Event, len(ProcessIDs))
	for i, id := range ProcessIDs {
		out[i] = Event(i+1, id)
	}
	return out
}

// Write writes the reference file to w as an Asciiv3 listing.
func Write(w io.Writer) error {
	hw := hepmc3.NewWriter(w)
	if err := hw.WriteRunInfo(RunMetadata()); err != nil {
		return err
	}
	for _, ev := range Events() {
		if err := hw.WriteEvent(ev); err != nil {
			return err
		}
	}
	return hw.Close()
}

// WriteFile writes the reference file to path, gzip-compressed when the
// path ends in .gz.
func WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return lferrors.Wrap(err, lferrors.CodeWriteFailed, "creating reference file").WithContext("location", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = lferrors.Wrap(cerr, lferrors.CodeWriteFailed, "closing reference file").WithContext("location", path)
		}
	}()

	if source.CompressionFromPath(path) != source.CompressionGzip {
		return Write(f)
	}
	gz := gzip.NewWriter(f)
	if err := Write(gz); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return lferrors.Wrap(err, lferrors.CodeWriteFailed, "compressing reference file").WithContext("location", path)
	}
	return nil
}
