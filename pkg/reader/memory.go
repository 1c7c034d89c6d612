package reader

import (
	"context"
	"io"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
)

// MemoryStream serves events held in memory.
type MemoryStream struct {
	run    *model.RunMetadata
	events []*model.Event
	pos    int
	err    error
	closed bool
}

// NewMemoryStream creates a stream over events.
func NewMemoryStream(run *model.RunMetadata, events ...*model.Event) *MemoryStream {
	return &MemoryStream{run: run, events: events}
}

// FailAfter makes Next return err once the events are exhausted, in place
// of io.EOF.
func (m *MemoryStream) FailAfter(err error) *MemoryStream {
	m.err = err
	return m
}

func (m *MemoryStream) RunMetadata() *model.RunMetadata { return m.run }

func (m *MemoryStream) Next(ctx context.Context) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, lferrors.ContextCanceled("read event", err)
	}
	if m.closed || m.pos >= len(m.events) {
		if m.err != nil && !m.closed {
			return nil, m.err
		}
		return nil, io.EOF
	}
	ev := m.events[m.pos]
	m.pos++
	return ev, nil
}

func (m *MemoryStream) Close() error {
	m.closed = true
	return nil
}
