package rules

// Rule describes one entry of the catalog.
type Rule struct {
	ID    ID
	Title string
	// Checked is false for rules the validator accepts without an automated
	// check.
	Checked bool
}

var catalog = []Rule{
	{GR1, "Run info is present", true},
	{GR2, "NuHepMC version is declared", true},
	{GR3, "Generating tools are fully identified", true},
	{GR4, "Process metadata is declared", true},
	{GR5, "Vertex status metadata is well formed", true},
	{GR6, "Particle status metadata is well formed", true},
	{GR7, "Event weight names include CV", true},
	{GC1, "Followed conventions are signalled", true},
	{GC2, "Exposure is given as a number of events", true},
	{GC3, "Exposure is given as POT or livetime", true},
	{GC4, "Flux-averaged total cross section is declared", true},
	{GC5, "Citation metadata is provided", false},
	{ER1, "Event number is unique and non-negative", true},
	{ER2, "Process ID is a declared process", true},
	{ER3, "Units are declared", false},
	{ER4, "Lab position is recorded", true},
	{ER5, "Exactly one primary vertex and no status 0 vertex", true},
	{ER6, "At least one beam particle", true},
	{EC1, "Event-level convention E.C.1", false},
	{EC2, "Total cross section is recorded (TotXS)", true},
	{EC3, "Process cross section is recorded (ProcXS)", true},
	{EC4, "Estimated cross section is present and non-zero", true},
	{EC5, "Event-level convention E.C.5", false},
	{EC6, "Lab position is a four-vector", true},
	{VR1, "Vertex status is declared", true},
	{PR1, "Particle status is in a valid range or declared", true},
}

// Catalog returns every known rule in document order.
func Catalog() []Rule {
	out := make([]Rule, len(catalog))
	copy(out, catalog)
	return out
}

// Describe returns the title of a rule, or the identifier itself when the
// rule is not known.
func Describe(id ID) string {
	for _, r := range catalog {
		if r.ID == id {
			return r.Title
		}
	}
	return string(id)
}

// Known reports whether id is in the catalog.
func Known(id ID) bool {
	for _, r := range catalog {
		if r.ID == id {
			return true
		}
	}
	return false
}
