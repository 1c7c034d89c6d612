package hepmc3

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/NuHepMC/ReferenceImplementation/internal/logger"
	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
)

const maxLineSize = 16 * 1024 * 1024

// Reader decodes an Asciiv3 stream. Run info is decoded by NewReader, so it
// is available before the first event is read.
type Reader struct {
	sc      *bufio.Scanner
	closer  io.Closer
	line    int
	pending string
	done    bool
	run     *model.RunMetadata
	log     *zap.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) { r.log = logger.OrNop(l).Named("hepmc3") }
}

// WithCloser makes Close release c.
func WithCloser(c io.Closer) Option {
	return func(r *Reader) { r.closer = c }
}

// NewReader reads the header and run info from src. It fails with an
// unrecognized-format error when src is not an Asciiv3 listing.
func NewReader(src io.Reader, opts ...Option) (*Reader, error) {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	r := &Reader{sc: sc, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	if err := r.readRunInfo(); err != nil {
		return nil, err
	}
	return r, nil
}

// RunMetadata returns the run info, nil when the file has none.
func (r *Reader) RunMetadata() *model.RunMetadata {
	return r.run
}

// Close releases the underlying source.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// scan returns the next non-empty line.
func (r *Reader) scan() (string, bool, error) {
	for r.sc.Scan() {
		r.line++
		line := strings.TrimRight(r.sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, true, nil
	}
	if err := r.sc.Err(); err != nil {
		return "", false, lferrors.ReadFailed(err).WithContext("line", r.line)
	}
	return "", false, nil
}

func (r *Reader) readHeader() error {
	line, ok, err := r.scan()
	if err != nil {
		return err
	}
	if !ok {
		return lferrors.Unrecognized("", "empty input")
	}
	if strings.HasPrefix(line, VersionPrefix) {
		r.log.Debug("listing written by", zap.String("version", strings.TrimSpace(strings.TrimPrefix(line, VersionPrefix))))
		if line, ok, err = r.scan(); err != nil {
			return err
		}
	}
	switch {
	case ok && strings.TrimSpace(line) == StartListing:
		return nil
	case ok && strings.TrimSpace(line) == StartListingV2:
		return lferrors.Unrecognized("", "HepMC2 IO_GenEvent listings are not supported")
	default:
		return lferrors.Unrecognized("", "missing "+StartListing)
	}
}

func (r *Reader) runInfo() *model.RunMetadata {
	if r.run == nil {
		r.run = &model.RunMetadata{}
	}
	return r.run
}

func (r *Reader) readRunInfo() error {
	for {
		line, ok, err := r.scan()
		if err != nil {
			return err
		}
		if !ok {
			r.done = true
			return nil
		}
		switch line[0] {
		case 'E':
			r.pending = line
			return nil
		case 'W':
			_, rest := cutFields(line, 1)
			r.runInfo().WeightNames = append(r.runInfo().WeightNames, splitNames(rest)...)
		case 'T':
			_, rest := cutFields(line, 1)
			parts := splitTool(rest)
			r.runInfo().Tools = append(r.runInfo().Tools, model.Tool{
				Name:        parts[0],
				Version:     parts[1],
				Description: parts[2],
			})
		case 'A':
			fields, rest := cutFields(line, 2)
			if len(fields) < 2 {
				return lferrors.Malformed(r.line, line, "run attribute without a name")
			}
			r.runInfo().SetAttribute(fields[1], model.Raw(unescape(rest)))
		default:
			if strings.TrimSpace(line) == EndListing {
				r.done = true
				return nil
			}
			if strings.HasPrefix(line, "HepMC::") {
				continue
			}
			return lferrors.Malformed(r.line, line, "unexpected record before the first event")
		}
	}
}

func splitNames(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		out = append(out, strings.Trim(f, `"`))
	}
	return out
}

// Next decodes the next event. It returns io.EOF after the last one.
func (r *Reader) Next(ctx context.Context) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, lferrors.ContextCanceled("read event", err)
	}
	if r.pending == "" {
		if r.done {
			return nil, io.EOF
		}
		line, ok, err := r.scan()
		if err != nil {
			return nil, err
		}
		if !ok || strings.TrimSpace(line) == EndListing {
			r.done = true
			return nil, io.EOF
		}
		if line[0] != 'E' {
			return nil, lferrors.Malformed(r.line, line, "expected an event record")
		}
		r.pending = line
	}

	header := r.pending
	r.pending = ""
	b, err := newEventBuilder(header, r.line)
	if err != nil {
		return nil, err
	}

	for {
		line, ok, err := r.scan()
		if err != nil {
			return nil, err
		}
		if !ok {
			r.done = true
			break
		}
		if line[0] == 'E' {
			r.pending = line
			break
		}
		if strings.TrimSpace(line) == EndListing {
			r.done = true
			break
		}
		if err := b.add(line, r.line); err != nil {
			return nil, err
		}
	}
	return b.finish(r.line)
}

// eventBuilder accumulates the records of one event and links the
// topology once all of them are read.
type eventBuilder struct {
	ev            *model.Event
	wantParticles int
	parents       map[int]int
}

func newEventBuilder(header string, line int) (*eventBuilder, error) {
	fields := strings.Fields(header)
	if len(fields) < 4 || fields[0] != "E" {
		return nil, lferrors.Malformed(line, header, "event record needs a number and vertex and particle counts")
	}
	number, err1 := strconv.Atoi(fields[1])
	_, err2 := strconv.Atoi(fields[2])
	nparticles, err3 := strconv.Atoi(fields[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, lferrors.Malformed(line, header, "event record has a non-integer field")
	}
	return &eventBuilder{
		ev:            model.NewEvent(number),
		wantParticles: nparticles,
		parents:       make(map[int]int),
	}, nil
}

func (b *eventBuilder) add(line string, lineNo int) error {
	switch line[0] {
	case 'U':
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return lferrors.Malformed(lineNo, line, "units record needs momentum and length units")
		}
		b.ev.MomentumUnit, b.ev.LengthUnit = fields[1], fields[2]
	case 'W':
		fields := strings.Fields(line)[1:]
		for _, f := range fields {
			w, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return lferrors.Malformed(lineNo, line, "weight is not a number")
			}
			b.ev.Weights = append(b.ev.Weights, w)
		}
	case 'A':
		return b.addAttribute(line, lineNo)
	case 'P':
		return b.addParticle(line, lineNo)
	case 'V':
		return b.addVertex(line, lineNo)
	default:
		return lferrors.Malformed(lineNo, line, "unknown event record")
	}
	return nil
}

func (b *eventBuilder) addAttribute(line string, lineNo int) error {
	fields, rest := cutFields(line, 3)
	if len(fields) < 3 {
		return lferrors.Malformed(lineNo, line, "attribute record needs an owner id and a name")
	}
	owner, err := strconv.Atoi(fields[1])
	if err != nil {
		return lferrors.Malformed(lineNo, line, "attribute owner id is not an integer")
	}
	if owner != 0 {
		// Vertex and particle attributes are not part of the model.
		return nil
	}
	name, value := fields[2], unescape(rest)
	if name == crossSectionAttr {
		parts := strings.Fields(value)
		if len(parts) < 2 {
			return lferrors.Malformed(lineNo, line, "cross section needs a value and an error")
		}
		xs, err1 := strconv.ParseFloat(parts[0], 64)
		xsErr, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return lferrors.Malformed(lineNo, line, "cross section is not a number")
		}
		b.ev.CrossSection = &model.CrossSection{Value: xs, Error: xsErr}
		return nil
	}
	b.ev.SetAttribute(name, model.Raw(value))
	return nil
}

// P id parent pdg px py pz e m status
func (b *eventBuilder) addParticle(line string, lineNo int) error {
	fields := strings.Fields(line)
	if len(fields) != 10 {
		return lferrors.Malformed(lineNo, line, fmt.Sprintf("particle record has %d fields, want 10", len(fields)))
	}
	ints := [4]int{}
	for i, idx := range []int{1, 2, 3, 9} {
		v, err := strconv.Atoi(fields[idx])
		if err != nil {
			return lferrors.Malformed(lineNo, line, "particle record has a non-integer id, parent, pdg or status")
		}
		ints[i] = v
	}
	floats := [5]float64{}
	for i := range floats {
		v, err := strconv.ParseFloat(fields[4+i], 64)
		if err != nil {
			return lferrors.Malformed(lineNo, line, "particle record has a non-numeric momentum or mass")
		}
		floats[i] = v
	}
	id := ints[0]
	if id != len(b.ev.Particles)+1 {
		return lferrors.Malformed(lineNo, line, fmt.Sprintf("particle id %d out of sequence", id))
	}
	p := &model.Particle{
		ID:       id,
		PDG:      ints[2],
		Momentum: model.FourVector{X: floats[0], Y: floats[1], Z: floats[2], T: floats[3]},
		Mass:     floats[4],
		Status:   ints[3],
	}
	b.ev.Particles = append(b.ev.Particles, p)
	if ints[1] != 0 {
		b.parents[id] = ints[1]
	}
	return nil
}

// V id status [in,...] [@ x y z t]
func (b *eventBuilder) addVertex(line string, lineNo int) error {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return lferrors.Malformed(lineNo, line, "vertex record needs an id and a status")
	}
	id, err1 := strconv.Atoi(fields[1])
	status, err2 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || id >= 0 {
		return lferrors.Malformed(lineNo, line, "vertex record needs a negative id and an integer status")
	}
	v := &model.Vertex{ID: id, Status: status}
	rest := fields[3:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], "[") {
		list := strings.Trim(rest[0], "[]")
		if list != "" {
			for _, s := range strings.Split(list, ",") {
				pid, err := strconv.Atoi(s)
				if err != nil {
					return lferrors.Malformed(lineNo, line, "vertex incoming list has a non-integer id")
				}
				v.In = append(v.In, pid)
			}
		}
		rest = rest[1:]
	}
	if len(rest) > 0 {
		if rest[0] != "@" || len(rest) != 5 {
			return lferrors.Malformed(lineNo, line, "vertex position must be '@ x y z t'")
		}
		var pos [4]float64
		for i := range pos {
			f, err := strconv.ParseFloat(rest[1+i], 64)
			if err != nil {
				return lferrors.Malformed(lineNo, line, "vertex position is not numeric")
			}
			pos[i] = f
		}
		v.Position = model.FourVector{X: pos[0], Y: pos[1], Z: pos[2], T: pos[3]}
	}
	for _, existing := range b.ev.Vertices {
		if existing.ID == id {
			return lferrors.Malformed(lineNo, line, fmt.Sprintf("vertex %d declared twice", id))
		}
	}
	b.ev.Vertices = append(b.ev.Vertices, v)
	return nil
}

func (b *eventBuilder) finish(lineNo int) (*model.Event, error) {
	ev := b.ev
	if len(ev.Particles) != b.wantParticles {
		return nil, lferrors.Malformed(lineNo, fmt.Sprintf("E %d", ev.Number),
			fmt.Sprintf("event declares %d particles, found %d", b.wantParticles, len(ev.Particles)))
	}

	vertices := make(map[int]*model.Vertex, len(ev.Vertices))
	for _, v := range ev.Vertices {
		vertices[v.ID] = v
		for _, pid := range v.In {
			p := ev.Particle(pid)
			if p == nil {
				return nil, lferrors.Malformed(lineNo, fmt.Sprintf("V %d", v.ID),
					fmt.Sprintf("vertex references unknown particle %d", pid))
			}
			p.End = v.ID
		}
	}

	for _, p := range ev.Particles {
		parent, ok := b.parents[p.ID]
		if !ok {
			continue
		}
		var v *model.Vertex
		if parent < 0 {
			if v = vertices[parent]; v == nil {
				return nil, lferrors.Malformed(lineNo, fmt.Sprintf("P %d", p.ID),
					fmt.Sprintf("particle produced in unknown vertex %d", parent))
			}
		} else {
			mother := ev.Particle(parent)
			if mother == nil {
				return nil, lferrors.Malformed(lineNo, fmt.Sprintf("P %d", p.ID),
					fmt.Sprintf("particle has unknown mother %d", parent))
			}
			if v = vertices[mother.End]; v == nil {
				// A mother without an end vertex gets an implicit one, with
				// no status.
				v = &model.Vertex{ID: -(len(ev.Vertices) + 1), In: []int{mother.ID}}
				for vertices[v.ID] != nil {
					v.ID--
				}
				mother.End = v.ID
				vertices[v.ID] = v
				ev.Vertices = append(ev.Vertices, v)
			}
		}
		p.Production = v.ID
		v.Out = append(v.Out, p.ID)
	}
	return ev, nil
}
