// Package reader opens record files as event streams.
package reader

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/NuHepMC/ReferenceImplementation/internal/logger"
	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/hepmc3"
	"github.com/NuHepMC/ReferenceImplementation/pkg/source"
)

// Stream is a sequence of events preceded by run metadata.
// Next returns io.EOF after the last event; any other error is a read
// error and ends the stream.
type Stream interface {
	// RunMetadata returns the run metadata, nil if the file has none.
	RunMetadata() *model.RunMetadata
	Next(ctx context.Context) (*model.Event, error)
	Close() error
}

// Format is a record file format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatAsciiv3
	FormatAsciiv2
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatAsciiv3:
		return "asciiv3"
	case FormatAsciiv2:
		return "asciiv2"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "asciiv3", "hepmc3", "hepmc":
		return FormatAsciiv3
	case "asciiv2", "hepmc2":
		return FormatAsciiv2
	default:
		return FormatUnknown
	}
}

// FormatFromPath guesses the format from the file extension, ignoring any
// compression extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(source.StripCompression(path))) {
	case ".hepmc3", ".hepmc":
		return FormatAsciiv3
	case ".hepmc2":
		return FormatAsciiv2
	default:
		return FormatUnknown
	}
}

// Detect sniffs the format from the first records of a listing.
func Detect(head []byte) Format {
	sc := bufio.NewScanner(bytes.NewReader(head))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, hepmc3.VersionPrefix):
			continue
		case line == hepmc3.StartListing:
			return FormatAsciiv3
		case line == hepmc3.StartListingV2:
			return FormatAsciiv2
		}
		return FormatUnknown
	}
	return FormatUnknown
}

// Options configures Open.
type Options struct {
	// Format forces a format instead of detecting it.
	Format Format
	Logger *zap.Logger
}

const sniffSize = 4096

// Open opens src, decompressing it when needed, and reads its run
// metadata. The returned stream owns the source.
func Open(ctx context.Context, src source.Source, opts Options) (Stream, error) {
	log := logger.OrNop(opts.Logger).Named("reader")
	loc := src.Location()

	raw, err := src.Open(ctx)
	if err != nil {
		if lferrors.GetCode(err) != lferrors.CodeUnknown {
			return nil, err
		}
		return nil, lferrors.OpenFailed(loc, err)
	}
	rc, comp, err := source.Decompress(raw)
	if err != nil {
		return nil, lferrors.Unrecognized(loc, "corrupt "+string(comp)+" stream").WithContext("cause", err.Error())
	}

	br := bufio.NewReaderSize(rc, 64*1024)
	format := opts.Format
	if format == FormatUnknown {
		head, _ := br.Peek(sniffSize)
		format = Detect(head)
		if format == FormatUnknown {
			format = FormatFromPath(loc)
		}
	}
	log.Debug("opening stream",
		zap.String("location", loc),
		zap.String("compression", string(comp)),
		zap.Stringer("format", format))

	switch format {
	case FormatAsciiv3:
	case FormatAsciiv2:
		rc.Close()
		return nil, lferrors.Unrecognized(loc, "HepMC2 IO_GenEvent listings are not supported")
	default:
		rc.Close()
		return nil, lferrors.Unrecognized(loc, "not a HepMC3 Asciiv3 listing")
	}

	r, err := hepmc3.NewReader(br, hepmc3.WithCloser(rc), hepmc3.WithLogger(opts.Logger))
	if err != nil {
		rc.Close()
		if e, ok := err.(*lferrors.Error); ok && e.Code == lferrors.CodeUnrecognized {
			reason, _ := e.Context["reason"].(string)
			return nil, lferrors.Unrecognized(loc, reason)
		}
		return nil, err
	}
	return r, nil
}

// OpenLocation resolves location and opens it.
func OpenLocation(ctx context.Context, res *source.Resolver, location string, opts Options) (Stream, error) {
	src, err := res.Resolve(ctx, location)
	if err != nil {
		return nil, err
	}
	return Open(ctx, src, opts)
}
