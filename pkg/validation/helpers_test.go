package validation

import (
	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	"github.com/NuHepMC/ReferenceImplementation/pkg/nuhepmc"
)

func declareTable(run *model.RunMetadata, t nuhepmc.Table, codes ...int) {
	run.SetAttribute(t.IDs, model.VectorInt(codes...))
	for _, c := range codes {
		run.SetAttribute(t.NameKey(c), model.String("name"))
		run.SetAttribute(t.DescriptionKey(c), model.String("description"))
	}
}

// minimalRun declares only the mandatory run metadata.
func minimalRun() *model.RunMetadata {
	run := &model.RunMetadata{
		Tools:       []model.Tool{{Name: "MyGen", Version: "0.0.1", Description: "My Favorite Generator"}},
		WeightNames: []string{"CV"},
	}
	run.SetAttribute(nuhepmc.VersionMajor, model.Int(0))
	run.SetAttribute(nuhepmc.VersionMinor, model.Int(1))
	run.SetAttribute(nuhepmc.VersionPatch, model.Int(0))
	declareTable(run, nuhepmc.ProcessTable, 200, 300, 500)
	return run
}

// minimalEvent is a valid event for minimalRun.
func minimalEvent(number, procID int) *model.Event {
	ev := model.NewEvent(number)
	ev.SetAttribute(nuhepmc.ProcID, model.Int(procID))
	ev.SetAttribute(nuhepmc.LabPos, model.VectorDouble(0, 0, 0, 0))
	nu := ev.AddParticle(14, nuhepmc.ParticleStatusBeam, model.FourVector{Z: 1000, T: 1000}, 0)
	n := ev.AddParticle(2112, nuhepmc.ParticleStatusBeam, model.FourVector{T: 939.57}, 939.57)
	mu := ev.AddParticle(13, nuhepmc.ParticleStatusUndecayed, model.FourVector{}, 105.66)
	p := ev.AddParticle(2212, nuhepmc.ParticleStatusUndecayed, model.FourVector{}, 938.27)
	ev.AddVertex(nuhepmc.VertexStatusPrimary, model.FourVector{}, []*model.Particle{nu, n}, []*model.Particle{mu, p})
	return ev
}
