package reader

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/hepmc3"
	"github.com/NuHepMC/ReferenceImplementation/pkg/source"
)

func listing(t *testing.T) []byte {
	t.Helper()
	run := &model.RunMetadata{WeightNames: []string{"CV"}}
	run.SetAttribute("NuHepMC.Version.Major", model.Int(0))

	var buf bytes.Buffer
	w := hepmc3.NewWriter(&buf)
	require.NoError(t, w.WriteRunInfo(run))
	for i := 1; i <= 2; i++ {
		ev := model.NewEvent(i)
		ev.AddParticle(14, 4, model.FourVector{T: 1000}, 0)
		require.NoError(t, w.WriteEvent(ev))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func drain(t *testing.T, s Stream) []int {
	t.Helper()
	var numbers []int
	for {
		ev, err := s.Next(context.Background())
		if err == io.EOF {
			return numbers
		}
		require.NoError(t, err)
		numbers = append(numbers, ev.Number)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		head string
		want Format
	}{
		{"asciiv3", "HepMC::Version 3.02.06\nHepMC::Asciiv3-START_EVENT_LISTING\n", FormatAsciiv3},
		{"no version line", "\nHepMC::Asciiv3-START_EVENT_LISTING\n", FormatAsciiv3},
		{"asciiv2", "HepMC::Version 2.06.09\nHepMC::IO_GenEvent-START_EVENT_LISTING\n", FormatAsciiv2},
		{"json", `{"events": []}`, FormatUnknown},
		{"empty", "", FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect([]byte(tt.head)))
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatAsciiv3, FormatFromPath("run/out.hepmc3"))
	assert.Equal(t, FormatAsciiv3, FormatFromPath("run/out.hepmc3.gz"))
	assert.Equal(t, FormatAsciiv2, FormatFromPath("out.hepmc2"))
	assert.Equal(t, FormatUnknown, FormatFromPath("out.root"))
	assert.Equal(t, FormatAsciiv3, ParseFormat("HepMC3"))
	assert.Equal(t, "asciiv3", FormatAsciiv3.String())
}

func TestOpenPlain(t *testing.T) {
	s, err := Open(context.Background(), source.NewMemorySource("plain", listing(t)), Options{})
	require.NoError(t, err)
	defer s.Close()

	require.NotNil(t, s.RunMetadata())
	assert.Equal(t, []string{"CV"}, s.RunMetadata().WeightNames)
	assert.Equal(t, []int{1, 2}, drain(t, s))
}

func TestOpenGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(listing(t))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	s, err := Open(context.Background(), source.NewMemorySource("gz", buf.Bytes()), Options{})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, []int{1, 2}, drain(t, s))
}

func TestOpenUnrecognized(t *testing.T) {
	for name, data := range map[string]string{
		"text":   "not a listing\n",
		"hepmc2": "HepMC::Version 2.06.09\nHepMC::IO_GenEvent-START_EVENT_LISTING\n",
		"empty":  "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Open(context.Background(), source.NewMemorySource(name, []byte(data)), Options{})
			require.Error(t, err)
			assert.True(t, lferrors.IsCode(err, lferrors.CodeUnrecognized))
			assert.Contains(t, err.Error(), "memory://"+name)
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := OpenLocation(context.Background(), &source.Resolver{}, "/does/not/exist.hepmc3", Options{})
	require.Error(t, err)
	assert.Equal(t, lferrors.CodeOpenFailed, lferrors.GetCode(err))
}

func TestMemoryStream(t *testing.T) {
	run := &model.RunMetadata{}
	s := NewMemoryStream(run, model.NewEvent(4), model.NewEvent(5))
	assert.Same(t, run, s.RunMetadata())
	assert.Equal(t, []int{4, 5}, drain(t, s))

	boom := lferrors.ReadFailed(io.ErrUnexpectedEOF)
	s = NewMemoryStream(nil, model.NewEvent(1)).FailAfter(boom)
	_, err := s.Next(context.Background())
	require.NoError(t, err)
	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewMemoryStream(nil, model.NewEvent(1)).Next(ctx)
	assert.True(t, lferrors.IsCode(err, lferrors.CodeContextCanceled))
}
