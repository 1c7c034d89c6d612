package hepmc3

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
)

// Writer encodes run info and events as an Asciiv3 listing.
type Writer struct {
	w       *bufio.Writer
	started bool
	closed  bool
	err     error
}

// NewWriter creates a writer on w. Close must be called to write the
// footer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func (w *Writer) start() {
	if w.started {
		return
	}
	w.started = true
	w.printf("%s %s\n%s\n", VersionPrefix, WriterVersion, StartListing)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteRunInfo writes the header and run info. It must precede the first
// event.
func (w *Writer) WriteRunInfo(run *model.RunMetadata) error {
	if w.started {
		return lferrors.New(lferrors.CodeWriteFailed, "run info must be written before any event")
	}
	w.start()
	if run != nil {
		if len(run.WeightNames) > 0 {
			w.printf("W %s\n", strings.Join(run.WeightNames, " "))
		}
		for _, t := range run.Tools {
			w.printf("T %s%s%s%s%s\n", escapeToolField(t.Name), toolSeparator, escapeToolField(t.Version), toolSeparator, escapeToolField(t.Description))
		}
		for _, name := range run.AttributeNames() {
			a, _ := run.Attribute(name)
			w.printf("A %s %s\n", name, escape(a.Text()))
		}
	}
	return w.wrapErr()
}

// WriteEvent writes one event. Particles are written in id order, each
// vertex just before the first particle it produces.
func (w *Writer) WriteEvent(ev *model.Event) error {
	w.start()

	w.printf("E %d %d %d\n", ev.Number, len(ev.Vertices), len(ev.Particles))
	if ev.MomentumUnit != "" && ev.LengthUnit != "" {
		w.printf("U %s %s\n", ev.MomentumUnit, ev.LengthUnit)
	}
	if len(ev.Weights) > 0 {
		ws := make([]string, len(ev.Weights))
		for i, x := range ev.Weights {
			ws[i] = formatFloat(x)
		}
		w.printf("W %s\n", strings.Join(ws, " "))
	}
	if xs := ev.CrossSection; xs != nil {
		w.printf("A 0 %s %s %s -1 -1\n", crossSectionAttr, formatFloat(xs.Value), formatFloat(xs.Error))
	}
	for _, name := range ev.AttributeNames() {
		a, _ := ev.Attribute(name)
		w.printf("A 0 %s %s\n", name, escape(a.Text()))
	}

	vertices := make(map[int]*model.Vertex, len(ev.Vertices))
	for _, v := range ev.Vertices {
		vertices[v.ID] = v
	}
	written := make(map[int]bool, len(ev.Vertices))
	writeVertex := func(v *model.Vertex) {
		written[v.ID] = true
		in := make([]string, len(v.In))
		for i, id := range v.In {
			in[i] = strconv.Itoa(id)
		}
		w.printf("V %d %d [%s] @ %s %s %s %s\n", v.ID, v.Status, strings.Join(in, ","),
			formatFloat(v.Position.X), formatFloat(v.Position.Y), formatFloat(v.Position.Z), formatFloat(v.Position.T))
	}

	particles := append([]*model.Particle(nil), ev.Particles...)
	sort.SliceStable(particles, func(i, j int) bool { return particles[i].ID < particles[j].ID })
	for _, p := range particles {
		if v := vertices[p.Production]; v != nil && !written[v.ID] {
			writeVertex(v)
		}
		m := p.Momentum
		w.printf("P %d %d %d %s %s %s %s %s %d\n", p.ID, p.Production, p.PDG,
			formatFloat(m.X), formatFloat(m.Y), formatFloat(m.Z), formatFloat(m.T), formatFloat(p.Mass), p.Status)
	}
	for _, v := range ev.Vertices {
		if !written[v.ID] {
			writeVertex(v)
		}
	}
	return w.wrapErr()
}

// Close writes the footer and flushes. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	if w.closed {
		return w.wrapErr()
	}
	w.closed = true
	w.start()
	w.printf("%s\n", EndListing)
	if w.err == nil {
		w.err = w.w.Flush()
	}
	return w.wrapErr()
}

func (w *Writer) wrapErr() error {
	if w.err == nil {
		return nil
	}
	return lferrors.Wrap(w.err, lferrors.CodeWriteFailed, "writing Asciiv3 listing")
}
