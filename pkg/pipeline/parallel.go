package pipeline

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/reader"
	"github.com/NuHepMC/ReferenceImplementation/pkg/validation"
)

// windowPerWorker is the number of events read ahead per worker.
const windowPerWorker = 8

type pending struct {
	ev      *model.Event
	claim   *lferrors.Failure
	content []*lferrors.Failure
}

// streamParallel reads events in windows. Event numbers are claimed on the
// reading goroutine in stream order, content checks run on the worker pool
// and the results are published in stream order, so the outcome is the
// same as the sequential one.
func (r *run) streamParallel(ctx context.Context, s reader.Stream, v *validation.EventValidator, failFast bool) error {
	workers := r.d.opts.Workers
	window := make([]*pending, 0, workers*windowPerWorker)

	for {
		window = window[:0]
		var readErr error
		for len(window) < cap(window) {
			ev, err := next(ctx, s)
			if err != nil {
				readErr = err
				break
			}
			window = append(window, &pending{ev: ev, claim: v.ClaimNumber(ev)})
		}

		g := new(errgroup.Group)
		g.SetLimit(workers)
		for _, p := range window {
			if failFast && p.claim != nil {
				continue
			}
			g.Go(func() error {
				p.content = v.CheckContent(p.ev, failFast)
				return nil
			})
		}
		_ = g.Wait()

		for _, p := range window {
			var failures []*lferrors.Failure
			if p.claim != nil {
				failures = append(failures, p.claim)
			}
			failures = append(failures, p.content...)
			if r.eventDone(ctx, p.ev, failures, failFast) {
				return nil
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
