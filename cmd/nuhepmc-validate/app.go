package main

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/NuHepMC/ReferenceImplementation/internal/logger"
	"github.com/NuHepMC/ReferenceImplementation/pkg/config"
	"github.com/NuHepMC/ReferenceImplementation/pkg/hooks"
	"github.com/NuHepMC/ReferenceImplementation/pkg/metrics"
	"github.com/NuHepMC/ReferenceImplementation/pkg/pipeline"
	"github.com/NuHepMC/ReferenceImplementation/pkg/report"
	"github.com/NuHepMC/ReferenceImplementation/pkg/source"
	"github.com/NuHepMC/ReferenceImplementation/pkg/storage/s3"
	"github.com/NuHepMC/ReferenceImplementation/pkg/store"
	"github.com/NuHepMC/ReferenceImplementation/pkg/telemetry"
)

// app holds what the commands share once configuration is loaded.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer

	format   report.Format
	cache    bool
	hooks    *hooks.Manager
	driver   *pipeline.Driver
	resolver *source.Resolver
	store    store.Backend
	metrics  *metrics.Collector
	shutdown telemetry.Shutdown
}

func s3Config(c config.S3Config) s3.Config {
	cfg := s3.DefaultConfig(c.Region)
	cfg.Endpoint = c.Endpoint
	cfg.UsePathStyle = c.PathStyle
	return cfg
}

func storeConfig(c *config.Config) store.Config {
	redis := store.DefaultRedisConfig(c.Store.Redis.Address)
	redis.Password = c.Store.Redis.Password
	redis.Database = c.Store.Redis.DB
	redis.TTL = c.Store.Redis.TTL
	if c.Store.Redis.Prefix != "" {
		redis.Prefix = c.Store.Redis.Prefix
	}

	s3c := c.Store.S3
	if s3c.Region == "" {
		s3c.Region = c.Source.S3.Region
	}
	return store.Config{
		Backend: c.Store.Backend,
		Dir:     c.Store.Dir,
		Redis:   redis,
		S3:      store.S3Config{Bucket: s3c.Bucket, Prefix: s3c.Prefix, Client: s3Config(s3c)},
	}
}

// prepare builds the driver and its collaborators. withMetrics attaches a
// Prometheus collector to the driver hooks.
func (a *app) prepare(ctx context.Context, withMetrics bool) error {
	policy, err := pipeline.ParsePolicy(a.cfg.Validation.Mode)
	if err != nil {
		return err
	}
	if a.format, err = report.ParseFormat(a.cfg.Output.Format); err != nil {
		return err
	}

	tcfg := telemetry.DefaultConfig(version)
	tcfg.Enabled = a.cfg.Telemetry.Enabled
	tcfg.Endpoint = a.cfg.Telemetry.Endpoint
	tcfg.SamplingRatio = a.cfg.Telemetry.SamplingRatio
	tracer, shutdown, err := telemetry.Setup(ctx, tcfg)
	if err != nil {
		return err
	}
	a.shutdown = shutdown

	if a.store, err = store.New(ctx, storeConfig(a.cfg), a.log); err != nil {
		return err
	}

	a.hooks = hooks.NewManager()
	if withMetrics {
		a.metrics = metrics.New()
		a.metrics.Attach(a.hooks)
	}
	a.resolver = &source.Resolver{S3: s3Config(a.cfg.Source.S3)}
	a.driver = pipeline.New(pipeline.Options{
		Policy:  policy,
		Workers: a.cfg.Validation.Workers,
		Hooks:   a.hooks,
		Logger:  a.log,
		Tracer:  tracer,
	})
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.shutdown != nil {
		if err := a.shutdown(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	if c, ok := a.store.(io.Closer); ok {
		c.Close()
	}
	a.log.Sync()
}

// validate validates the file at location. A stored report is returned
// instead when caching is on and the content was validated before. The
// error is non-nil only when the location cannot be resolved.
func (a *app) validate(ctx context.Context, location string) (*report.Report, error) {
	src, err := a.resolver.Resolve(ctx, location)
	if err != nil {
		return nil, err
	}
	log := a.log.With(zap.String("location", src.Location()))

	var fingerprint string
	if a.store != nil {
		if fingerprint, err = source.Fingerprint(ctx, src); err != nil {
			log.Warn("cannot fingerprint file, report store skipped", zap.Error(err))
		}
	}
	key := store.Key(fingerprint, a.driver.Policy().String(), version)

	if a.cache && fingerprint != "" {
		r, err := a.store.Load(ctx, key)
		switch {
		case err == nil:
			log.Info("using stored report", zap.String("key", key), zap.String("store", a.store.Name()))
			r.Location = src.Location()
			return r, nil
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("cannot load stored report", zap.Error(err))
		}
	}

	res := a.driver.ValidateSource(ctx, src)
	r := report.FromResult(res, report.Meta{Fingerprint: fingerprint, ValidatorVersion: version})

	if fingerprint != "" && r.Outcome != report.OutcomeUnreadable {
		if err := a.store.Save(ctx, key, r); err != nil {
			log.Warn("cannot store report", zap.Error(err))
		}
	}
	return r, nil
}

func newLogger(c *config.Config, w io.Writer) *zap.Logger {
	return logger.NewWithWriter(c.Log.Level, c.Log.Format, w)
}
