// Package store keeps validation reports keyed by file content, so an
// unchanged file does not have to be validated again.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/NuHepMC/ReferenceImplementation/internal/logger"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/report"
)

// ErrNotFound is returned by Load when no report is stored under a key.
var ErrNotFound = errors.New("store: report not found")

// Backend persists reports.
type Backend interface {
	Save(ctx context.Context, key string, r *report.Report) error
	Load(ctx context.Context, key string) (*report.Report, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

// Key returns the store key of a report. Validation is deterministic, so a
// report is reusable for the same content, mode and validator version.
func Key(fingerprint, mode, validatorVersion string) string {
	return fingerprint + "-" + mode + "-" + validatorVersion
}

// KeyFor returns the store key of r.
func KeyFor(r *report.Report) string {
	return Key(r.Fingerprint, r.Mode, r.ValidatorVersion)
}

// Backend names.
const (
	BackendNone  = "none"
	BackendLocal = "local"
	BackendRedis = "redis"
	BackendS3    = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Dir     string
	Redis   RedisConfig
	S3      S3Config
}

// New creates the backend named by cfg.Backend. It returns a nil backend
// for "none".
func New(ctx context.Context, cfg Config, log *zap.Logger) (Backend, error) {
	log = logger.OrNop(log).Named("store")

	var (
		b   Backend
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case "", BackendNone:
		return nil, nil
	case BackendLocal:
		b, err = NewLocal(cfg.Dir)
	case BackendRedis:
		b, err = NewRedis(ctx, cfg.Redis)
	case BackendS3:
		b, err = NewS3(ctx, cfg.S3)
	default:
		return nil, lferrors.InvalidConfig("store.backend", cfg.Backend, "must be none, local, redis or s3")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s store: %w", cfg.Backend, err)
	}
	log.Debug("report store ready", zap.String("backend", b.Name()))
	return b, nil
}

func decode(key string, data []byte) (*report.Report, error) {
	r, err := report.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", key, err)
	}
	r.Cached = true
	return r, nil
}
