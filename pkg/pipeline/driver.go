package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NuHepMC/ReferenceImplementation/internal/logger"
	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/hooks"
	"github.com/NuHepMC/ReferenceImplementation/pkg/reader"
	"github.com/NuHepMC/ReferenceImplementation/pkg/registry"
	"github.com/NuHepMC/ReferenceImplementation/pkg/source"
	"github.com/NuHepMC/ReferenceImplementation/pkg/validation"
)

// Driver states.
const (
	StateStart           = "start"
	StateLoadRunMetadata = "load_run_metadata"
	StateValidateRun     = "validate_run_level"
	StateStreamEvents    = "stream_events"
	StateDone            = "done"
	StateFailed          = "failed"
)

// Driver events.
const (
	EventLoad        = "load"
	EventValidateRun = "validate_run"
	EventStream      = "stream"
	EventFinish      = "finish"
	EventFail        = "fail"
)

// SpanName is the name of the span opened around a file validation.
const SpanName = "validate_file"

var transitions = fsm.Events{
	{Name: EventLoad, Src: []string{StateStart}, Dst: StateLoadRunMetadata},
	{Name: EventValidateRun, Src: []string{StateLoadRunMetadata}, Dst: StateValidateRun},
	{Name: EventStream, Src: []string{StateValidateRun}, Dst: StateStreamEvents},
	{Name: EventFinish, Src: []string{StateStreamEvents}, Dst: StateDone},
	{Name: EventFail, Src: []string{StateStart, StateLoadRunMetadata, StateValidateRun, StateStreamEvents}, Dst: StateFailed},
}

// Options configures a Driver.
type Options struct {
	Policy Policy
	// Workers is the number of goroutines running per-event content checks.
	// Values below 2 check events on the reading goroutine.
	Workers  int
	Registry *registry.Registry
	Hooks    *hooks.Manager
	Logger   *zap.Logger
	// Tracer defaults to the global OpenTelemetry tracer.
	Tracer trace.Tracer
}

// Driver validates record files. It holds no per-file state, so one driver
// may validate several files concurrently.
type Driver struct {
	opts   Options
	runs   *validation.RunValidator
	tracer trace.Tracer
	log    *zap.Logger
}

// New creates a driver.
func New(opts Options) *Driver {
	if opts.Registry == nil {
		opts.Registry = registry.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	log := logger.OrNop(opts.Logger)
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/NuHepMC/ReferenceImplementation/pkg/pipeline")
	}
	return &Driver{
		opts:   opts,
		runs:   validation.NewRunValidator(opts.Registry, log),
		tracer: tracer,
		log:    log.Named("driver"),
	}
}

// Policy returns the policy the driver applies.
func (d *Driver) Policy() Policy { return d.opts.Policy }

// Result is the outcome of validating one file.
type Result struct {
	SessionID string
	Location  string
	Policy    Policy
	State     string
	// Info is nil when the run metadata could not be read.
	Info     *validation.RunInfo
	Events   int
	Failures []*lferrors.Failure
	Warnings []lferrors.Warning
	// Err is an open, read or cancellation error. It is never a
	// validation failure.
	Err      error
	Started  time.Time
	Duration time.Duration
}

// OK reports whether the file is conformant.
func (r *Result) OK() bool {
	return r.Err == nil && len(r.Failures) == 0
}

// FirstFailure returns the first failure in report order.
func (r *Result) FirstFailure() *lferrors.Failure {
	if len(r.Failures) == 0 {
		return nil
	}
	return r.Failures[0]
}

// run carries the state of one validation.
type run struct {
	d       *Driver
	res     *Result
	machine *fsm.FSM
	span    trace.Span
	log     *zap.Logger
}

func (d *Driver) start(ctx context.Context, location string) (context.Context, *run) {
	res := &Result{
		SessionID: uuid.NewString(),
		Location:  location,
		Policy:    d.opts.Policy,
		State:     StateStart,
		Started:   time.Now(),
	}
	r := &run{
		d:   d,
		res: res,
		log: d.log.With(zap.String("session", res.SessionID), zap.String("location", location)),
	}
	r.machine = fsm.NewFSM(StateStart, transitions, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			res.State = e.Dst
			r.log.Debug("state changed", zap.String("from", e.Src), zap.String("to", e.Dst))
		},
	})
	ctx, r.span = d.tracer.Start(ctx, SpanName, trace.WithAttributes(
		attribute.String("nuhepmc.session_id", res.SessionID),
		attribute.String("nuhepmc.location", location),
		attribute.String("nuhepmc.mode", d.opts.Policy.String()),
	))
	return ctx, r
}

// step fires a state machine event. Transitions are fixed, so an error is
// a programming mistake. The machine must reach a final state even after
// ctx is canceled.
func (r *run) step(ctx context.Context, event string) {
	if err := r.machine.Event(context.WithoutCancel(ctx), event); err != nil {
		r.log.DPanic("invalid driver transition", zap.String("event", event), zap.Error(err))
	}
}

func (r *run) fail(ctx context.Context, err error) {
	if err != nil {
		r.res.Err = err
		r.span.RecordError(err)
		r.log.Error("validation aborted", zap.Error(err))
	}
	r.step(ctx, EventFail)
}

func (r *run) end(ctx context.Context) *Result {
	res := r.res
	res.Duration = time.Since(res.Started)

	outcome := "conformant"
	switch {
	case res.Err != nil:
		outcome = "unreadable"
		r.span.SetStatus(codes.Error, res.Err.Error())
	case len(res.Failures) > 0:
		outcome = "non-conformant"
		r.span.SetStatus(codes.Error, res.Failures[0].Error())
	default:
		r.span.SetStatus(codes.Ok, "")
	}
	r.span.SetAttributes(
		attribute.Int("nuhepmc.events", res.Events),
		attribute.Int("nuhepmc.failures", len(res.Failures)),
		attribute.String("nuhepmc.outcome", outcome),
	)
	r.span.End()

	r.d.opts.Hooks.Done(ctx, hooks.Summary{
		Location: res.Location,
		State:    res.State,
		Events:   res.Events,
		Failures: len(res.Failures),
		Warnings: len(res.Warnings),
		ReadErr:  res.Err,
		Duration: res.Duration,
	})
	r.log.Info("validation finished",
		zap.String("state", res.State),
		zap.Int("events", res.Events),
		zap.Int("failures", len(res.Failures)),
		zap.Duration("duration", res.Duration))
	return res
}

func (r *run) record(ctx context.Context, f *lferrors.Failure) {
	r.res.Failures = append(r.res.Failures, f)
	r.span.AddEvent("failure", trace.WithAttributes(
		attribute.String("nuhepmc.rule", string(f.Rule)),
		attribute.String("nuhepmc.message", f.Error()),
	))
	r.log.Warn("failure", zap.String("rule", string(f.Rule)), zap.Error(f))
	r.d.opts.Hooks.Failed(ctx, f)
}

// ValidateSource opens src and validates it. Open errors end the
// validation in the failed state with Err set.
func (d *Driver) ValidateSource(ctx context.Context, src source.Source) *Result {
	s, err := reader.Open(ctx, src, reader.Options{Logger: d.opts.Logger})
	if err != nil {
		ctx, r := d.start(ctx, src.Location())
		r.fail(ctx, err)
		return r.end(ctx)
	}
	defer s.Close()
	return d.Validate(ctx, src.Location(), s)
}

// Validate validates an open stream. The caller keeps ownership of s.
func (d *Driver) Validate(ctx context.Context, location string, s reader.Stream) *Result {
	ctx, r := d.start(ctx, location)
	res := r.res
	failFast := d.opts.Policy == PolicyFailFast

	r.step(ctx, EventLoad)
	meta := s.RunMetadata()

	r.step(ctx, EventValidateRun)
	rr := d.runs.Validate(meta, failFast)
	res.Info = rr.Info
	res.Warnings = append(res.Warnings, rr.Warnings...)
	for _, f := range rr.Failures {
		r.record(ctx, f)
	}
	d.opts.Hooks.RunLoaded(ctx, rr.Info, rr.Warnings)
	if !rr.OK() {
		r.fail(ctx, nil)
		return r.end(ctx)
	}

	r.step(ctx, EventStream)
	events := validation.NewEventValidator(rr.Info, d.opts.Registry, d.opts.Logger)
	var err error
	if d.opts.Workers > 1 {
		err = r.streamParallel(ctx, s, events, failFast)
	} else {
		err = r.stream(ctx, s, events, failFast)
	}
	switch {
	case err != nil:
		r.fail(ctx, err)
	case len(res.Failures) > 0:
		r.fail(ctx, nil)
	default:
		r.step(ctx, EventFinish)
	}
	return r.end(ctx)
}

// next reads one event, mapping errors to coded read errors. It returns
// io.EOF at the end of the stream.
func next(ctx context.Context, s reader.Stream) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, lferrors.ContextCanceled("stream events", err)
	}
	e, err := s.Next(ctx)
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		if lferrors.GetCode(err) == lferrors.CodeUnknown {
			err = lferrors.ReadFailed(err)
		}
		if ctx.Err() != nil && !lferrors.IsCode(err, lferrors.CodeContextCanceled) {
			err = lferrors.ContextCanceled("stream events", ctx.Err())
		}
		return nil, err
	}
	return e, nil
}

// eventDone publishes the outcome of one event in stream order. It reports
// whether streaming should stop.
func (r *run) eventDone(ctx context.Context, e *model.Event, failures []*lferrors.Failure, failFast bool) bool {
	r.res.Events++
	for _, f := range failures {
		r.record(ctx, f)
	}
	r.d.opts.Hooks.EventDone(ctx, e, failures)
	if len(failures) == 0 {
		r.log.Debug("event valid", zap.Int("event", e.Number))
	}
	return failFast && len(failures) > 0
}

func (r *run) stream(ctx context.Context, s reader.Stream, v *validation.EventValidator, failFast bool) error {
	for {
		e, err := next(ctx, s)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if r.eventDone(ctx, e, v.Validate(e, failFast), failFast) {
			return nil
		}
	}
}
