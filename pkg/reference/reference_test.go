package reference

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	"github.com/NuHepMC/ReferenceImplementation/pkg/reader"
	"github.com/NuHepMC/ReferenceImplementation/pkg/source"
	"github.com/NuHepMC/ReferenceImplementation/pkg/validation"
)

func validate(t *testing.T, run *model.RunMetadata, events []*model.Event) {
	t.Helper()
	res := validation.NewRunValidator(nil, nil).Validate(run, false)
	require.Empty(t, res.Failures)
	assert.Equal(t, []string{"E.C.1", "E.C.5", "G.C.1", "G.C.5"}, res.Info.Unchecked)
	assert.Equal(t, 5, res.Info.Processes.Len())
	assert.Equal(t, 2, res.Info.VertexStatuses.Len())
	assert.Equal(t, 3, res.Info.ParticleStatuses.Len())

	ev := validation.NewEventValidator(res.Info, nil, nil)
	for _, e := range events {
		assert.Empty(t, ev.Validate(e, false), "event %d", e.Number)
	}
	assert.EqualValues(t, 3, ev.Seen())
}

func TestInMemoryReferenceIsConformant(t *testing.T) {
	validate(t, RunMetadata(), Events())
}

func TestEventTopology(t *testing.T) {
	ev := Event(7, 250)
	assert.Equal(t, 7, ev.Number)
	require.Len(t, ev.Vertices, 2)
	require.Len(t, ev.Particles, 6)
	assert.Len(t, ev.Beams(), 2)

	fsi := ev.Vertices[1]
	assert.Equal(t, VertexStatusFSIAbs, fsi.Status)
	assert.Equal(t, []int{5}, fsi.In)
	assert.Equal(t, []int{6}, fsi.Out)
	assert.Equal(t, fsi.ID, ev.Particle(5).End)
}

func TestWrittenReferenceIsConformant(t *testing.T) {
	for _, name := range []string{"example.hepmc3", "example.hepmc3.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteFile(path))

			src, err := source.NewFileSource(path)
			require.NoError(t, err)
			s, err := reader.Open(context.Background(), src, reader.Options{})
			require.NoError(t, err)
			defer s.Close()

			var events []*model.Event
			for {
				ev, err := s.Next(context.Background())
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				events = append(events, ev)
			}
			require.Len(t, events, 3)
			validate(t, s.RunMetadata(), events)
		})
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, Write(&a))
	require.NoError(t, Write(&b))
	assert.Equal(t, a.String(), b.String())
	assert.Contains(t, a.String(), "T MyGen\\|0.0.1\\|My Favorite Generator\n")
}

func TestWriteFileBadPath(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "out.hepmc3"))
	assert.Error(t, err)
}
