// Package nuhepmc holds the attribute names and status codes of the NuHepMC
// conventions.
package nuhepmc

import (
	"fmt"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
)

// Version of the conventions this validator implements.
const (
	SupportedMajor = 0
	SupportedMinor = 9
	SupportedPatch = 0
)

// Run attributes.
const (
	VersionMajor = "NuHepMC.Version.Major"
	VersionMinor = "NuHepMC.Version.Minor"
	VersionPatch = "NuHepMC.Version.Patch"

	Conventions = "NuHepMC.Conventions"

	ExposureNEvents  = "NuHepMC.Exposure.NEvents"
	ExposurePOT      = "NuHepMC.Exposure.POT"
	ExposureLivetime = "NuHepMC.Exposure.Livetime"

	FluxAveragedTotalCrossSection = "NuHepMC.FluxAveragedTotalCrossSection"
)

// Event attributes.
const (
	ProcID = "ProcID"
	LabPos = "LabPos"
	TotXS  = "TotXS"
	ProcXS = "ProcXS"
)

// CV is the weight name every file must define.
const CV = "CV"

// Status codes.
const (
	VertexStatusPrimary = model.VertexStatusPrimary

	ParticleStatusUndecayed = model.ParticleStatusUndecayed
	ParticleStatusBeam      = model.ParticleStatusBeam
	ParticleStatusTarget    = model.ParticleStatusTarget

	// Particle statuses up to this value are defined by HepMC3 and NuHepMC
	// and need no declaration.
	ParticleStatusStandardMax = 11
	// Statuses in [ReservedMin, ReservedMax] are reserved and never valid.
	ParticleStatusReservedMin = 12
	ParticleStatusReservedMax = 19
)

// Table names one of the three declared status-code tables.
type Table struct {
	// Kind is the human-readable table name.
	Kind string
	// IDs is the attribute holding the vector of declared codes.
	IDs string
	// Info is the prefix of the per-code Name and Description attributes.
	Info string
}

var (
	ProcessTable        = Table{Kind: "process", IDs: "NuHepMC.ProcessIDs", Info: "NuHepMC.ProcessInfo"}
	VertexStatusTable   = Table{Kind: "vertex status", IDs: "NuHepMC.VertexStatusIDs", Info: "NuHepMC.VertexStatusInfo"}
	ParticleStatusTable = Table{Kind: "particle status", IDs: "NuHepMC.ParticleStatusIDs", Info: "NuHepMC.ParticleStatusInfo"}
)

// NameKey is the attribute holding the name of code id.
func (t Table) NameKey(id int) string {
	return fmt.Sprintf("%s[%d].Name", t.Info, id)
}

// DescriptionKey is the attribute holding the description of code id.
func (t Table) DescriptionKey(id int) string {
	return fmt.Sprintf("%s[%d].Description", t.Info, id)
}
