package origins

// A Set is an immutable collection of compiled origin patterns.
// The zero value is an empty set.
type Set struct {
	patterns []Pattern
}

// NewSet returns a Set made up of the specified patterns.
func NewSet(patterns ...Pattern) Set {
	return Set{patterns: patterns}
}

// Size returns the number of patterns in set.
func (set Set) Size() int {
	return len(set.patterns)
}

// Contains reports whether any of set's patterns matches o.
// Configured pattern lists are short in practice,
// so a linear scan beats fancier indexing here.
func (set Set) Contains(o *Origin) bool {
	for i := range set.patterns {
		if set.patterns[i].Matches(o) {
			return true
		}
	}
	return false
}

// Elems returns the raw forms of set's patterns, in configuration order.
func (set Set) Elems() []string {
	elems := make([]string, len(set.patterns))
	for i := range set.patterns {
		elems[i] = set.patterns[i].String()
	}
	return elems
}
