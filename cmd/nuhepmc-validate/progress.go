package main

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/hooks"
)

// newProgress creates an event counter. The event count of a file is not
// known up front, so the bar spins.
func newProgress(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("events"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// attachProgress advances a progress bar on w for every validated event.
func attachProgress(m *hooks.Manager, w io.Writer, location string) *progressbar.ProgressBar {
	bar := newProgress(w, "Validating "+filepath.Base(location))
	m.OnEvent(func(context.Context, *model.Event, []*lferrors.Failure) {
		_ = bar.Add(1)
	})
	m.OnDone(func(context.Context, hooks.Summary) {
		_ = bar.Finish()
	})
	return bar
}
