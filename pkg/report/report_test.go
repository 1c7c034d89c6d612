package report

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/NuHepMC/ReferenceImplementation/pkg/nuhepmc"
	"github.com/NuHepMC/ReferenceImplementation/pkg/pipeline"
	"github.com/NuHepMC/ReferenceImplementation/pkg/reader"
	"github.com/NuHepMC/ReferenceImplementation/pkg/reference"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
	"github.com/NuHepMC/ReferenceImplementation/pkg/source"
)

var meta = Meta{Fingerprint: "00000000deadbeef", ValidatorVersion: "test"}

func conformant(t *testing.T) *Report {
	t.Helper()
	s := reader.NewMemoryStream(reference.RunMetadata(), reference.Events()...)
	res := pipeline.New(pipeline.Options{}).Validate(context.Background(), "memory://reference", s)
	return FromResult(res, meta)
}

func nonConformant(t *testing.T) *Report {
	t.Helper()
	events := reference.Events()
	events[1].Number = 1
	events[2].Attrs.Delete(nuhepmc.TotXS)
	s := reader.NewMemoryStream(reference.RunMetadata(), events...)
	res := pipeline.New(pipeline.Options{Policy: pipeline.PolicyCollectAll}).Validate(context.Background(), "memory://broken", s)
	return FromResult(res, meta)
}

func TestFromResult(t *testing.T) {
	r := conformant(t)
	assert.Equal(t, OutcomeConformant, r.Outcome)
	assert.True(t, r.OK())
	assert.Equal(t, "fail-fast", r.Mode)
	assert.Equal(t, meta.Fingerprint, r.Fingerprint)
	require.NotNil(t, r.Run)
	assert.Equal(t, "0.1.0", r.Run.Version)
	assert.Len(t, r.Run.Processes, 5)
	assert.Equal(t, Code{Code: 500, Name: "Single PiPlus Production", Description: "PiPlus 2049"}, r.Run.Processes[3])
	assert.Equal(t, reference.Conventions, r.Run.Conventions)
	assert.Equal(t, 3, r.Events)
	assert.Empty(t, r.Failures)
	assert.Equal(t, rules.Unknown, r.FirstCategory())

	r = nonConformant(t)
	assert.Equal(t, OutcomeNonConformant, r.Outcome)
	require.Len(t, r.Failures, 2)
	assert.Equal(t, "E.R.1", r.Failures[0].Rule)
	require.NotNil(t, r.Failures[0].Event)
	assert.Equal(t, 1, *r.Failures[0].Event)
	assert.Equal(t, "E.C.2", r.Failures[1].Rule)
	assert.Equal(t, rules.Convention, rules.Category(r.Failures[1].Category))
	require.NotEmpty(t, r.Failures[1].Causes)
	assert.Contains(t, r.Failures[1].Causes[0], "TotXS")
	assert.Equal(t, rules.Requirement, r.FirstCategory())
}

func TestUnreadable(t *testing.T) {
	src := source.NewMemorySource("junk", []byte("junk\n"))
	r := FromResult(pipeline.New(pipeline.Options{}).ValidateSource(context.Background(), src), meta)
	assert.Equal(t, OutcomeUnreadable, r.Outcome)
	assert.Equal(t, "S102", r.ErrorCode)
	assert.Nil(t, r.Run)
}

func TestRunLevelFailureHasNoEvent(t *testing.T) {
	run := reference.RunMetadata()
	run.WeightNames = []string{"Alt"}
	res := pipeline.New(pipeline.Options{}).Validate(context.Background(), "x", reader.NewMemoryStream(run))
	r := FromResult(res, meta)
	require.Len(t, r.Failures, 1)
	assert.Equal(t, "G.R.7", r.Failures[0].Rule)
	assert.Nil(t, r.Failures[0].Event)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, conformant(t), false))
	out := buf.String()
	assert.Contains(t, out, "MyGen 0.0.1 My Favorite Generator")
	assert.Contains(t, out, "CCQE")
	assert.Contains(t, out, "E.C.1, E.C.5, G.C.1, G.C.5")
	assert.Contains(t, out, "✓ CONFORMANT")

	buf.Reset()
	require.NoError(t, WriteText(&buf, nonConformant(t), false))
	out = buf.String()
	assert.Contains(t, out, "✗ NON-CONFORMANT")
	assert.Contains(t, out, "[E.R.1] requirement event 1")
	assert.Contains(t, out, "caused by:")
}

func TestJSONRoundTrip(t *testing.T) {
	r := nonConformant(t)
	data, err := Marshal(r)
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, r.Failures, back.Failures)
	assert.Equal(t, r.Run, back.Run)
	assert.Equal(t, r.Outcome, back.Outcome)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, FormatJSON, false))
	assert.Contains(t, buf.String(), `"outcome": "non-conformant"`)
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, conformant(t), FormatYAML, false))
	var back Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, OutcomeConformant, back.Outcome)
	assert.Equal(t, 3, back.Events)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, conformant(t), nonConformant(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "conformant", summary[1][1])
	assert.Equal(t, "non-conformant", summary[2][1])
	assert.Equal(t, "E.R.1", summary[2][6])

	failures, err := f.GetRows(SheetFailures)
	require.NoError(t, err)
	assert.Len(t, failures, 3)

	decl, err := f.GetRows(SheetDeclarations)
	require.NoError(t, err)
	// Two reports, each with 10 table rows and 9 conventions.
	assert.Len(t, decl, 1+2*(10+9))
}

func TestParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, conformant(t), nonConformant(t)))

	pr, err := file.NewParquetReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer pr.Close()
	assert.EqualValues(t, 2, pr.NumRows())
	assert.Equal(t, 7, pr.MetaData().Schema.NumColumns())
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	r := nonConformant(t)
	for _, name := range []string{"out.xlsx", "out.parquet", "out.json", "out.yaml"} {
		require.NoError(t, ExportFile(filepath.Join(dir, name), r), name)
	}
	err := ExportFile(filepath.Join(dir, "out.csv"), r)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported"))
}

func TestRenderAll(t *testing.T) {
	reports := []*Report{conformant(t), nonConformant(t)}

	var buf bytes.Buffer
	require.NoError(t, RenderAll(&buf, reports, FormatYAML, false))
	assert.Equal(t, 2, strings.Count(buf.String(), "---\n"))

	buf.Reset()
	require.NoError(t, RenderAll(&buf, reports, FormatText, false))
	assert.Contains(t, buf.String(), "CONFORMANT")
	assert.Contains(t, buf.String(), "NON-CONFORMANT")
}
