package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/hooks"
	"github.com/NuHepMC/ReferenceImplementation/pkg/pipeline"
	"github.com/NuHepMC/ReferenceImplementation/pkg/reader"
	"github.com/NuHepMC/ReferenceImplementation/pkg/reference"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
)

func TestHooksFeedCollectors(t *testing.T) {
	ctx := context.Background()
	c := New()
	m := hooks.NewManager()
	c.Attach(m)

	m.RunLoaded(ctx, nil, []lferrors.Warning{lferrors.Warn(rules.GC5, "not declared")})
	m.EventDone(ctx, nil, nil)
	m.EventDone(ctx, nil, nil)
	m.Failed(ctx, lferrors.Fail(rules.EC2, "no TotXS"))
	m.Done(ctx, hooks.Summary{Failures: 1, Duration: 10 * time.Millisecond})
	m.Done(ctx, hooks.Summary{ReadErr: errors.New("truncated")})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.warnings.WithLabelValues("G.C.5")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.events))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("E.C.2", "convention")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.files.WithLabelValues(OutcomeNonConformant)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.files.WithLabelValues(OutcomeUnreadable)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.files.WithLabelValues(OutcomeConformant)))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeConformant, Outcome(hooks.Summary{}))
	assert.Equal(t, OutcomeNonConformant, Outcome(hooks.Summary{Failures: 2}))
	assert.Equal(t, OutcomeUnreadable, Outcome(hooks.Summary{Failures: 2, ReadErr: errors.New("x")}))
}

func TestDriverIntegration(t *testing.T) {
	c := New()
	m := hooks.NewManager()
	c.Attach(m)
	d := pipeline.New(pipeline.Options{Policy: pipeline.PolicyCollectAll, Hooks: m})

	events := reference.Events()
	events[1].Number = 1
	res := d.Validate(context.Background(), "memory://reference",
		reader.NewMemoryStream(reference.RunMetadata(), events...))
	require.False(t, res.OK())

	assert.Equal(t, 3.0, testutil.ToFloat64(c.events))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("E.R.1", "requirement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.files.WithLabelValues(OutcomeNonConformant)))
}

func TestHandler(t *testing.T) {
	c := New()
	c.events.Add(5)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(body, "nuhepmc_events_validated_total 5"), body)
	assert.Contains(t, body, "# TYPE nuhepmc_validation_duration_seconds histogram")
}
