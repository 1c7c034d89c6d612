// Package model defines the entities a NuHepMC record file is made of:
// run metadata, events, vertices, particles and their typed attributes.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// AttrKind indicates the stored type of an attribute value.
type AttrKind uint8

const (
	// AttrRaw is an attribute still in its encoded text form. Text record
	// files store every attribute this way; the value is converted on the
	// first typed access.
	AttrRaw AttrKind = iota
	AttrInt
	AttrDouble
	AttrString
	AttrVectorInt
	AttrVectorDouble
	AttrVectorString
)

var kindNames = [...]string{
	AttrRaw:          "raw",
	AttrInt:          "int",
	AttrDouble:       "double",
	AttrString:       "string",
	AttrVectorInt:    "vector<int>",
	AttrVectorDouble: "vector<double>",
	AttrVectorString: "vector<string>",
}

func (k AttrKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Attribute is a typed value attached to run metadata or an event.
// Value holds int, float64, string, []int, []float64 or []string
// according to Kind; a raw attribute holds its text as a string.
type Attribute struct {
	Kind  AttrKind
	Value any
}

func Raw(text string) Attribute { return Attribute{Kind: AttrRaw, Value: text} }
func Int(v int) Attribute { return Attribute{Kind: AttrInt, Value: v} }
func Double(v float64) Attribute { return Attribute{Kind: AttrDouble, Value: v} }
func String(v string) Attribute { return Attribute{Kind: AttrString, Value: v} }
func VectorInt(v ...int) Attribute { return Attribute{Kind: AttrVectorInt, Value: v} }
func VectorDouble(v ...float64) Attribute { return Attribute{Kind: AttrVectorDouble, Value: v} }
func VectorString(v ...string) Attribute { return Attribute{Kind: AttrVectorString, Value: v} }

// Text returns the encoded text form of the attribute, the way a text
// record file stores it.
func (a Attribute) Text() string {
	switch v := a.Value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []int:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = strconv.Itoa(x)
		}
		return strings.Join(parts, " ")
	case []float64:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(v, " ")
	}
	return ""
}

// Convert returns the attribute as kind k. Typed attributes only convert to
// their own kind; raw attributes are parsed from their text.
func (a Attribute) Convert(k AttrKind) (Attribute, error) {
	if a.Kind == k {
		return a, nil
	}
	if a.Kind != AttrRaw {
		return Attribute{}, fmt.Errorf("stored as %s, requested %s", a.Kind, k)
	}
	text, _ := a.Value.(string)
	switch k {
	case AttrString:
		return String(text), nil
	case AttrInt:
		v, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return Attribute{}, fmt.Errorf("parse %q as %s: %w", text, k, err)
		}
		return Int(v), nil
	case AttrDouble:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Attribute{}, fmt.Errorf("parse %q as %s: %w", text, k, err)
		}
		return Double(v), nil
	case AttrVectorInt:
		fields := strings.Fields(text)
		out := make([]int, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return Attribute{}, fmt.Errorf("parse %q as %s: %w", text, k, err)
			}
			out = append(out, v)
		}
		return VectorInt(out...), nil
	case AttrVectorDouble:
		fields := strings.Fields(text)
		out := make([]float64, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return Attribute{}, fmt.Errorf("parse %q as %s: %w", text, k, err)
			}
			out = append(out, v)
		}
		return VectorDouble(out...), nil
	case AttrVectorString:
		return VectorString(splitWords(text)...), nil
	}
	return Attribute{}, fmt.Errorf("cannot convert to %s", k)
}

// splitWords splits on whitespace, keeping double-quoted words together.
func splitWords(text string) []string {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
		inWord bool
	)
	for _, r := range text {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n'):
			if inWord {
				out = append(out, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		out = append(out, cur.String())
	}
	return out
}

// Attributes is an insertion-ordered attribute bag. The zero value is empty
// and ready to use.
type Attributes struct {
	names  []string
	values map[string]Attribute
}

// Set stores v under name, replacing any previous value.
func (a *Attributes) Set(name string, v Attribute) {
	if a.values == nil {
		a.values = make(map[string]Attribute)
	}
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = v
}

// Lookup returns the attribute stored under name.
func (a *Attributes) Lookup(name string) (Attribute, bool) {
	if a == nil || a.values == nil {
		return Attribute{}, false
	}
	v, ok := a.values[name]
	return v, ok
}

// Delete removes name from the bag.
func (a *Attributes) Delete(name string) {
	if a == nil {
		return
	}
	if _, ok := a.values[name]; !ok {
		return
	}
	delete(a.values, name)
	for i, n := range a.names {
		if n == name {
			a.names = append(a.names[:i], a.names[i+1:]...)
			break
		}
	}
}

// Names returns attribute names in insertion order.
func (a *Attributes) Names() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.names)
}
