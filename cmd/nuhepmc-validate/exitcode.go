package main

import (
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/report"
	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitOpen        = 1
	ExitRequirement = 2
	ExitConvention  = 3
	ExitRead        = 4
	ExitOther       = 5
)

// reportExitCode maps a report to the process exit code. For a
// non-conformant file the category of the first failure decides.
func reportExitCode(r *report.Report) int {
	switch r.Outcome {
	case report.OutcomeConformant:
		return ExitOK
	case report.OutcomeUnreadable:
		return codeExitCode(lferrors.Code(r.ErrorCode))
	}
	switch r.FirstCategory() {
	case rules.Requirement:
		return ExitRequirement
	case rules.Convention:
		return ExitConvention
	default:
		return ExitOther
	}
}

// errorExitCode maps an error returned before or outside validation.
func errorExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return codeExitCode(lferrors.GetCode(err))
}

func codeExitCode(code lferrors.Code) int {
	switch code {
	case lferrors.CodeOpenFailed, lferrors.CodeUnrecognized:
		return ExitOpen
	case lferrors.CodeReadFailed, lferrors.CodeMalformed:
		return ExitRead
	default:
		return ExitOther
	}
}
