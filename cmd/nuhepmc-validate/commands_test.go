package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NuHepMC/ReferenceImplementation/pkg/reference"
	"github.com/NuHepMC/ReferenceImplementation/pkg/report"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func cli(t *testing.T, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out, errb bytes.Buffer
	code := run(args, &out, &errb)
	return result{code: code, stdout: out.String(), stderr: errb.String()}
}

func referenceFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, reference.WriteFile(path))
	return path
}

// duplicateNumberFile writes the reference file with event 2 renumbered 1.
func duplicateNumberFile(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, reference.Write(&buf))
	text := strings.Replace(buf.String(), "\nE 2 ", "\nE 1 ", 1)
	path := filepath.Join(t.TempDir(), "duplicate.hepmc3")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestValidateReference(t *testing.T) {
	for _, name := range []string{"ref.hepmc3", "ref.hepmc3.gz"} {
		t.Run(name, func(t *testing.T) {
			res := cli(t, referenceFile(t, name))
			assert.Equal(t, ExitOK, res.code, res.stderr)
			assert.Contains(t, res.stdout, "✓ CONFORMANT")
		})
	}
}

func TestValidateDuplicateNumber(t *testing.T) {
	res := cli(t, "--output", "json", duplicateNumberFile(t))
	assert.Equal(t, ExitRequirement, res.code)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &r))
	assert.Equal(t, report.OutcomeNonConformant, r.Outcome)
	require.Len(t, r.Failures, 1)
	assert.Equal(t, "E.R.1", r.Failures[0].Rule)
}

func TestValidateMissingFile(t *testing.T) {
	res := cli(t, filepath.Join(t.TempDir(), "missing.hepmc3"))
	assert.Equal(t, ExitOpen, res.code)
	assert.Contains(t, res.stderr, "S101")
}

func TestValidateUnrecognized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644))
	res := cli(t, path)
	assert.Equal(t, ExitOpen, res.code)
	assert.Contains(t, res.stdout, "UNREADABLE")
}

func TestBadMode(t *testing.T) {
	res := cli(t, "--mode", "lenient", referenceFile(t, "ref.hepmc3"))
	assert.Equal(t, ExitOther, res.code)
	assert.Contains(t, res.stderr, "C001")
}

func TestNoArguments(t *testing.T) {
	assert.Equal(t, ExitOther, cli(t).code)
}

func TestReportFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.xlsx")
	res := cli(t, "--mode", "collect-all", "--report-file", out, duplicateNumberFile(t))
	assert.Equal(t, ExitRequirement, res.code)
	assert.FileExists(t, out)
}

func TestCacheStoresReport(t *testing.T) {
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "reports")
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("store:\n  backend: local\n  dir: "+storeDir+"\n"), 0o644))
	file := referenceFile(t, "ref.hepmc3")

	first := cli(t, "--config", cfg, "--cache", file)
	require.Equal(t, ExitOK, first.code, first.stderr)
	entries, err := os.ReadDir(storeDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	second := cli(t, "--config", cfg, "--cache", "--log-level", "info", file)
	assert.Equal(t, ExitOK, second.code)
	assert.Contains(t, second.stderr, "using stored report")
	assert.Contains(t, second.stdout, "✓ CONFORMANT")
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))
	require.NoError(t, reference.WriteFile(filepath.Join(dir, "a", "one.hepmc3")))
	require.NoError(t, reference.WriteFile(filepath.Join(dir, "a", "b", "two.hepmc3.gz")))
	dup, err := os.ReadFile(duplicateNumberFile(t))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "b", "three.hepmc3"), dup, 0o644))

	res := cli(t, "batch", "--workers", "2", filepath.Join(dir, "**", "*.hepmc3*"))
	assert.Equal(t, ExitRequirement, res.code)
	assert.Contains(t, res.stderr, "3 of 3 files validated")
	assert.Contains(t, res.stderr, "2 conformant, 1 non-conformant, 0 unreadable")
}

func TestBatchNoMatch(t *testing.T) {
	res := cli(t, "batch", filepath.Join(t.TempDir(), "*.hepmc3"))
	assert.Equal(t, ExitOpen, res.code)
}

func TestReferenceCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ref.hepmc3")
	res := cli(t, "reference", out)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, ExitOK, cli(t, out).code)
}

func TestRulesCommand(t *testing.T) {
	res := cli(t, "rules")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "E.R.1")
	assert.Contains(t, res.stdout, "requirement")
	assert.Contains(t, res.stdout, "P.R.1")
}

func TestVersionCommand(t *testing.T) {
	res := cli(t, "version")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, version)
	assert.Contains(t, res.stdout, "0.9.0")
}
