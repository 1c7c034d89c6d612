// Package source opens the bytes of a record file, wherever it lives.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/storage/s3"
)

// Source is a readable record file.
type Source interface {
	// Location identifies the source in reports, e.g. a path or s3:// URI.
	Location() string
	// Open returns the raw bytes, still compressed if the file is.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a local file.
type FileSource struct {
	path string
	info os.FileInfo
}

// NewFileSource checks that path is a readable file.
func NewFileSource(path string) (*FileSource, error) {
	clean, err := ValidateInputFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(clean)
	if err != nil {
		return nil, lferrors.OpenFailed(path, err)
	}
	return &FileSource{path: clean, info: info}, nil
}

func (f *FileSource) Location() string   { return f.path }
func (f *FileSource) Size() int64        { return f.info.Size() }
func (f *FileSource) ModTime() time.Time { return f.info.ModTime() }

// Open returns a reader for the file.
func (f *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, lferrors.OpenFailed(f.path, err)
	}
	return file, nil
}

// MemorySource provides data from memory (for testing).
type MemorySource struct {
	id   string
	data []byte
}

// NewMemorySource creates a source from bytes.
func NewMemorySource(id string, data []byte) *MemorySource {
	return &MemorySource{id: id, data: data}
}

func (m *MemorySource) Location() string { return "memory://" + m.id }

// Open returns a reader for the data.
func (m *MemorySource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

// ObjectSource reads an object from S3.
type ObjectSource struct {
	client      *s3.Client
	bucket, key string
}

// NewObjectSource creates a source for an s3:// URI.
func NewObjectSource(client *s3.Client, uri string) (*ObjectSource, error) {
	bucket, key, err := s3.ParseURI(uri)
	if err != nil {
		return nil, lferrors.OpenFailed(uri, err)
	}
	return &ObjectSource{client: client, bucket: bucket, key: key}, nil
}

func (o *ObjectSource) Location() string { return s3.Scheme + o.bucket + "/" + o.key }

// Open starts the download.
func (o *ObjectSource) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, _, err := o.client.Reader(ctx, o.bucket, o.key)
	if err != nil {
		return nil, lferrors.OpenFailed(o.Location(), err)
	}
	return rc, nil
}

// Resolver turns locations into sources. The S3 client is created on first
// use.
type Resolver struct {
	S3 s3.Config

	once      sync.Once
	client    *s3.Client
	clientErr error
}

// Resolve returns the source for location: an s3:// URI or a local path.
func (r *Resolver) Resolve(ctx context.Context, location string) (Source, error) {
	if strings.HasPrefix(location, s3.Scheme) {
		r.once.Do(func() {
			r.client, r.clientErr = s3.NewClient(ctx, r.S3)
		})
		if r.clientErr != nil {
			return nil, lferrors.OpenFailed(location, r.clientErr)
		}
		return NewObjectSource(r.client, location)
	}
	return NewFileSource(location)
}

// Fingerprint hashes the raw content of src.
func Fingerprint(ctx context.Context, src Source) (string, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", lferrors.ReadFailed(err).WithContext("location", src.Location())
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
