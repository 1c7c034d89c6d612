package report

import (
	"io"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
)

// Format is an output format for Render.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses an output format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", lferrors.InvalidConfig("output.format", s, "must be text, json or yaml")
}

// Render writes r in format f.
func Render(w io.Writer, r *Report, f Format, color bool) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatYAML:
		return WriteYAML(w, r)
	default:
		return WriteText(w, r, color)
	}
}

// RenderAll writes several reports in format f. Text reports are separated
// by a blank line and YAML reports are separate documents.
func RenderAll(w io.Writer, reports []*Report, f Format, color bool) error {
	for i, r := range reports {
		var err error
		switch {
		case f == FormatYAML:
			_, err = io.WriteString(w, "---\n")
		case f == FormatText && i > 0:
			_, err = io.WriteString(w, "\n")
		}
		if err != nil {
			return err
		}
		if err := Render(w, r, f, color); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return lferrors.Wrap(err, lferrors.CodeWriteFailed, "encoding report")
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteYAML writes r as YAML.
func WriteYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return lferrors.Wrap(err, lferrors.CodeWriteFailed, "encoding report")
	}
	return enc.Close()
}

// Marshal encodes r as compact JSON, the store encoding.
func Marshal(r *Report) ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal decodes a report encoded by Marshal.
func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
