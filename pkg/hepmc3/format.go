// Package hepmc3 reads and writes the HepMC3 Asciiv3 text format.
package hepmc3

import (
	"strings"
)

// Record markers.
const (
	VersionPrefix = "HepMC::Version"
	StartListing  = "HepMC::Asciiv3-START_EVENT_LISTING"
	EndListing    = "HepMC::Asciiv3-END_EVENT_LISTING"

	// Asciiv2 files open with this marker. They are recognized but not
	// supported.
	StartListingV2 = "HepMC::IO_GenEvent-START_EVENT_LISTING"

	// WriterVersion is written in the version header.
	WriterVersion = "3.02.06"

	crossSectionAttr = "GenCrossSection"
	toolSeparator    = `\|`
)

// escape protects backslashes and newlines the way HepMC3 does.
func escape(s string) string {
	if !strings.ContainsAny(s, "\\\n") {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\|`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				sb.WriteByte('\\')
				i++
				continue
			case '|':
				sb.WriteByte('\n')
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// escapeToolField escapes one field of a T record. Newlines are written as
// \n there because \| separates the fields.
func escapeToolField(s string) string {
	if !strings.ContainsAny(s, "\\\n") {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// splitTool splits the body of a T record into name, version and
// description, unescaping each field. Missing fields are empty.
func splitTool(s string) [3]string {
	var out [3]string
	var sb strings.Builder
	field := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case '|':
			if field < len(out)-1 {
				out[field] = sb.String()
				sb.Reset()
				field++
			} else {
				sb.WriteString(toolSeparator)
			}
		case '\\':
			sb.WriteByte('\\')
		case 'n':
			sb.WriteByte('\n')
		default:
			sb.WriteByte(s[i])
			sb.WriteByte(s[i+1])
		}
		i++
	}
	out[field] = sb.String()
	return out
}

// cutFields splits off the first n whitespace-separated fields of line and
// returns the remainder with leading whitespace removed.
func cutFields(line string, n int) ([]string, string) {
	fields := make([]string, 0, n)
	rest := line
	for len(fields) < n {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			fields = append(fields, rest)
			rest = ""
			break
		}
		fields = append(fields, rest[:end])
		rest = rest[end:]
	}
	return fields, strings.TrimLeft(rest, " \t")
}
