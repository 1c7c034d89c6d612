package model

// Tool identifies a program that produced or processed a file.
type Tool struct {
	Name        string
	Version     string
	Description string
}

// RunMetadata is the file-global header of a record file. It is read once
// when a stream is opened and shared read-only afterwards.
type RunMetadata struct {
	Tools       []Tool
	WeightNames []string
	Attrs       Attributes
}

// Attribute returns the run attribute stored under name. A nil run has no
// attributes.
func (r *RunMetadata) Attribute(name string) (Attribute, bool) {
	if r == nil {
		return Attribute{}, false
	}
	return r.Attrs.Lookup(name)
}

// AttributeNames lists the run attributes in insertion order.
func (r *RunMetadata) AttributeNames() []string {
	if r == nil {
		return nil
	}
	return r.Attrs.Names()
}

// SetAttribute stores v under name.
func (r *RunMetadata) SetAttribute(name string, v Attribute) {
	r.Attrs.Set(name, v)
}
