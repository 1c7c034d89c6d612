// Package rules names the NuHepMC requirements and conventions the
// validator checks.
package rules

import (
	"fmt"
	"strings"
)

// ID identifies a rule, e.g. "G.R.2" or "E.C.4". The first letter is the
// level, the second the category, the third the ordinal within both.
type ID string

const (
	GR1 ID = "G.R.1"
	GR2 ID = "G.R.2"
	GR3 ID = "G.R.3"
	GR4 ID = "G.R.4"
	GR5 ID = "G.R.5"
	GR6 ID = "G.R.6"
	GR7 ID = "G.R.7"

	GC1 ID = "G.C.1"
	GC2 ID = "G.C.2"
	GC3 ID = "G.C.3"
	GC4 ID = "G.C.4"
	GC5 ID = "G.C.5"

	ER1 ID = "E.R.1"
	ER2 ID = "E.R.2"
	ER3 ID = "E.R.3"
	ER4 ID = "E.R.4"
	ER5 ID = "E.R.5"
	ER6 ID = "E.R.6"

	EC1 ID = "E.C.1"
	EC2 ID = "E.C.2"
	EC3 ID = "E.C.3"
	EC4 ID = "E.C.4"
	EC5 ID = "E.C.5"
	EC6 ID = "E.C.6"

	VR1 ID = "V.R.1"
	PR1 ID = "P.R.1"
)

// Category separates mandatory requirements from self-declared conventions.
type Category string

const (
	Requirement Category = "requirement"
	Convention  Category = "convention"
	Unknown     Category = "unknown"
)

// Level is the entity a rule applies to.
type Level string

const (
	LevelRun      Level = "run"
	LevelEvent    Level = "event"
	LevelVertex   Level = "vertex"
	LevelParticle Level = "particle"
)

// Parse validates the shape of a rule identifier.
func Parse(s string) (ID, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 || len(parts[0]) != 1 || len(parts[1]) != 1 || parts[2] == "" {
		return "", fmt.Errorf("malformed rule id %q", s)
	}
	if !strings.Contains("GEVP", parts[0]) || !strings.Contains("RC", parts[1]) {
		return "", fmt.Errorf("malformed rule id %q", s)
	}
	for _, r := range parts[2] {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("malformed rule id %q", s)
		}
	}
	return ID(strings.Join(parts, ".")), nil
}

// Category returns the rule category encoded in the identifier.
func (id ID) Category() Category {
	s := string(id)
	if len(s) < 3 {
		return Unknown
	}
	switch s[2] {
	case 'R':
		return Requirement
	case 'C':
		return Convention
	}
	return Unknown
}

// Level returns the entity level encoded in the identifier.
func (id ID) Level() Level {
	if id == "" {
		return ""
	}
	switch id[0] {
	case 'G':
		return LevelRun
	case 'E':
		return LevelEvent
	case 'V':
		return LevelVertex
	case 'P':
		return LevelParticle
	}
	return ""
}

func (id ID) String() string { return string(id) }
