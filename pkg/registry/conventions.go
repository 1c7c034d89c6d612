package registry

// Conventions is the set of convention tags a file declares, keeping the
// declaration order. A nil set is empty.
type Conventions struct {
	tags []string
	set  map[string]struct{}
}

// NewConventions builds a set from tags, dropping duplicates.
func NewConventions(tags ...string) *Conventions {
	c := &Conventions{set: make(map[string]struct{}, len(tags))}
	for _, t := range tags {
		if _, ok := c.set[t]; ok {
			continue
		}
		c.set[t] = struct{}{}
		c.tags = append(c.tags, t)
	}
	return c
}

func (c *Conventions) Has(tag string) bool {
	if c == nil {
		return false
	}
	_, ok := c.set[tag]
	return ok
}

// Tags returns the declared tags in declaration order.
func (c *Conventions) Tags() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.tags))
	copy(out, c.tags)
	return out
}

func (c *Conventions) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tags)
}
