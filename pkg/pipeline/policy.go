// Package pipeline drives the validation of one record file: run metadata
// first, then every event in stream order.
package pipeline

import (
	"strings"

	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
)

// Policy determines what happens after the first failure.
type Policy int

const (
	// PolicyFailFast stops at the first failure.
	PolicyFailFast Policy = iota
	// PolicyCollectAll records every failure and keeps reading.
	PolicyCollectAll
)

func (p Policy) String() string {
	switch p {
	case PolicyFailFast:
		return "fail-fast"
	case PolicyCollectAll:
		return "collect-all"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name. An empty name selects fail-fast.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-fast", "failfast", "strict":
		return PolicyFailFast, nil
	case "collect-all", "collectall", "collect", "all":
		return PolicyCollectAll, nil
	default:
		return PolicyFailFast, lferrors.InvalidConfig("validation.mode", s, "must be fail-fast or collect-all")
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
