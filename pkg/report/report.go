// Package report turns a validation result into a document that can be
// printed, encoded, exported or stored.
package report

import (
	"time"

	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/pipeline"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
	"github.com/NuHepMC/ReferenceImplementation/pkg/validation"
)

// Outcome is the overall verdict for a file.
type Outcome string

const (
	OutcomeConformant    Outcome = "conformant"
	OutcomeNonConformant Outcome = "non-conformant"
	OutcomeUnreadable    Outcome = "unreadable"
)

// Tool identifies a program that produced the file.
type Tool struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
}

// Code is one entry of a declared code table.
type Code struct {
	Code        int    `json:"code" yaml:"code"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Run summarizes the run metadata.
type Run struct {
	Version          string   `json:"version" yaml:"version"`
	Tools            []Tool   `json:"tools" yaml:"tools"`
	Processes        []Code   `json:"processes" yaml:"processes"`
	VertexStatuses   []Code   `json:"vertex_statuses,omitempty" yaml:"vertex_statuses,omitempty"`
	ParticleStatuses []Code   `json:"particle_statuses,omitempty" yaml:"particle_statuses,omitempty"`
	WeightNames      []string `json:"weight_names" yaml:"weight_names"`
	Conventions      []string `json:"conventions" yaml:"conventions"`
	Unchecked        []string `json:"unchecked_conventions,omitempty" yaml:"unchecked_conventions,omitempty"`
}

// Failure is one violated rule.
type Failure struct {
	Rule     string `json:"rule" yaml:"rule"`
	Category string `json:"category" yaml:"category"`
	// Event is nil for run-level failures.
	Event   *int     `json:"event,omitempty" yaml:"event,omitempty"`
	Message string   `json:"message" yaml:"message"`
	Causes  []string `json:"causes,omitempty" yaml:"causes,omitempty"`
}

// Warning is an advisory finding.
type Warning struct {
	Rule    string `json:"rule" yaml:"rule"`
	Message string `json:"message" yaml:"message"`
}

// Report is the outcome of validating one file.
type Report struct {
	Location         string    `json:"location" yaml:"location"`
	Fingerprint      string    `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	SessionID        string    `json:"session_id" yaml:"session_id"`
	Mode             string    `json:"mode" yaml:"mode"`
	ValidatorVersion string    `json:"validator_version" yaml:"validator_version"`
	Outcome          Outcome   `json:"outcome" yaml:"outcome"`
	State            string    `json:"state" yaml:"state"`
	Run              *Run      `json:"run,omitempty" yaml:"run,omitempty"`
	Events           int       `json:"events" yaml:"events"`
	Failures         []Failure `json:"failures" yaml:"failures"`
	Warnings         []Warning `json:"warnings" yaml:"warnings"`
	Error            string    `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorCode        string    `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Started          time.Time `json:"started" yaml:"started"`
	DurationMS       int64     `json:"duration_ms" yaml:"duration_ms"`
	// Cached is set when the report was loaded from a store.
	Cached bool `json:"-" yaml:"-"`
}

// Meta carries the report fields the driver does not know.
type Meta struct {
	Fingerprint      string
	ValidatorVersion string
}

// FromResult builds a report from a driver result.
func FromResult(res *pipeline.Result, meta Meta) *Report {
	r := &Report{
		Location:         res.Location,
		Fingerprint:      meta.Fingerprint,
		SessionID:        res.SessionID,
		Mode:             res.Policy.String(),
		ValidatorVersion: meta.ValidatorVersion,
		State:            res.State,
		Events:           res.Events,
		Failures:         make([]Failure, 0, len(res.Failures)),
		Warnings:         make([]Warning, 0, len(res.Warnings)),
		Started:          res.Started.UTC(),
		DurationMS:       res.Duration.Milliseconds(),
	}

	switch {
	case res.Err != nil:
		r.Outcome = OutcomeUnreadable
		r.Error = res.Err.Error()
		r.ErrorCode = string(lferrors.GetCode(res.Err))
	case len(res.Failures) > 0:
		r.Outcome = OutcomeNonConformant
	default:
		r.Outcome = OutcomeConformant
	}

	if res.Info != nil {
		r.Run = runSummary(res.Info)
	}
	for _, f := range res.Failures {
		r.Failures = append(r.Failures, failure(f))
	}
	for _, w := range res.Warnings {
		r.Warnings = append(r.Warnings, Warning{Rule: string(w.Rule), Message: w.Message})
	}
	return r
}

func failure(f *lferrors.Failure) Failure {
	out := Failure{
		Rule:     string(f.Rule),
		Category: string(f.Category()),
		Message:  f.Message,
		Causes:   f.CauseChain(),
	}
	if f.HasEvent {
		n := f.Event
		out.Event = &n
	}
	return out
}

func codes(t *validation.StatusTable) []Code {
	var out []Code
	for _, c := range t.Codes() {
		e, _ := t.Get(c)
		out = append(out, Code{Code: c, Name: e.Name, Description: e.Description})
	}
	return out
}

func runSummary(info *validation.RunInfo) *Run {
	run := &Run{
		Version:          info.Version.String(),
		Processes:        codes(info.Processes),
		VertexStatuses:   codes(info.VertexStatuses),
		ParticleStatuses: codes(info.ParticleStatuses),
		WeightNames:      append([]string(nil), info.WeightNames...),
		Conventions:      info.Conventions.Tags(),
		Unchecked:        append([]string(nil), info.Unchecked...),
	}
	for _, t := range info.Tools {
		run.Tools = append(run.Tools, Tool{Name: t.Name, Version: t.Version, Description: t.Description})
	}
	return run
}

// OK reports whether the file is conformant.
func (r *Report) OK() bool {
	return r.Outcome == OutcomeConformant
}

// FirstFailure returns the first failure in report order.
func (r *Report) FirstFailure() (Failure, bool) {
	if len(r.Failures) == 0 {
		return Failure{}, false
	}
	return r.Failures[0], true
}

// FirstCategory returns the category of the first failure, or
// rules.Unknown when there is none.
func (r *Report) FirstCategory() rules.Category {
	f, ok := r.FirstFailure()
	if !ok {
		return rules.Unknown
	}
	return rules.Category(f.Category)
}
