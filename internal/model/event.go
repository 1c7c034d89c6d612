package model

// Status codes with a fixed meaning in every file.
const (
	VertexStatusPrimary = 1

	ParticleStatusUndecayed = 1
	ParticleStatusBeam      = 4
	ParticleStatusTarget    = 11
)

// FourVector holds a space-time position (x, y, z, t) or a momentum
// (px, py, pz, e).
type FourVector struct {
	X, Y, Z, T float64
}

// CrossSection is the generator estimate of the event cross section.
type CrossSection struct {
	Value float64
	Error float64
}

// Vertex is an interaction point. In and Out hold particle ids.
type Vertex struct {
	ID       int
	Status   int
	Position FourVector
	In       []int
	Out      []int
}

// Particle is a single particle record. Production and End hold vertex ids,
// zero when the particle has no such vertex.
type Particle struct {
	ID         int
	PDG        int
	Momentum   FourVector
	Mass       float64
	Status     int
	Production int
	End        int
}

// Event is one generated interaction.
type Event struct {
	Number       int
	MomentumUnit string
	LengthUnit   string
	Weights      []float64
	CrossSection *CrossSection
	Vertices     []*Vertex
	Particles    []*Particle
	Attrs        Attributes
}

// NewEvent creates an empty event with default units.
func NewEvent(number int) *Event {
	return &Event{Number: number, MomentumUnit: "MEV", LengthUnit: "MM"}
}

// Attribute returns the event attribute stored under name. A nil event has
// no attributes.
func (e *Event) Attribute(name string) (Attribute, bool) {
	if e == nil {
		return Attribute{}, false
	}
	return e.Attrs.Lookup(name)
}

// AttributeNames lists the event attributes in insertion order.
func (e *Event) AttributeNames() []string {
	if e == nil {
		return nil
	}
	return e.Attrs.Names()
}

// SetAttribute stores v under name.
func (e *Event) SetAttribute(name string, v Attribute) {
	e.Attrs.Set(name, v)
}

// Beams returns the incoming beam particles.
func (e *Event) Beams() []*Particle {
	var out []*Particle
	for _, p := range e.Particles {
		if p.Status == ParticleStatusBeam {
			out = append(out, p)
		}
	}
	return out
}

// AddParticle appends a particle and assigns it the next positive id.
func (e *Event) AddParticle(pdg, status int, momentum FourVector, mass float64) *Particle {
	p := &Particle{
		ID:       len(e.Particles) + 1,
		PDG:      pdg,
		Momentum: momentum,
		Mass:     mass,
		Status:   status,
	}
	e.Particles = append(e.Particles, p)
	return p
}

// AddVertex appends a vertex with the next negative id and links the
// incoming and outgoing particles to it.
func (e *Event) AddVertex(status int, position FourVector, in, out []*Particle) *Vertex {
	v := &Vertex{
		ID:       -(len(e.Vertices) + 1),
		Status:   status,
		Position: position,
	}
	for _, p := range in {
		p.End = v.ID
		v.In = append(v.In, p.ID)
	}
	for _, p := range out {
		p.Production = v.ID
		v.Out = append(v.Out, p.ID)
	}
	e.Vertices = append(e.Vertices, v)
	return v
}

// Particle returns the particle with the given id.
func (e *Event) Particle(id int) *Particle {
	if id < 1 || id > len(e.Particles) {
		return nil
	}
	if p := e.Particles[id-1]; p.ID == id {
		return p
	}
	for _, p := range e.Particles {
		if p.ID == id {
			return p
		}
	}
	return nil
}
