package util

import "slices"

// An OrderedSet represents a set of strings that remembers the order in which
// its elements were first added.
// The zero value represents an empty set.
type OrderedSet struct {
	elems []string // invariant: free of duplicates
}

// NewOrderedSet returns an OrderedSet that contains all of elems
// but no other elements.
func NewOrderedSet(elems ...string) (set OrderedSet) {
	for _, e := range elems {
		set.Add(e)
	}
	return
}

// Add adds e to set if set does not already contain e.
func (set *OrderedSet) Add(e string) {
	if slices.Contains(set.elems, e) {
		return
	}
	set.elems = append(set.elems, e)
}

// Contains reports whether e is an element of set.
func (set OrderedSet) Contains(e string) bool {
	return slices.Contains(set.elems, e)
}

// Size returns the cardinality of set.
func (set OrderedSet) Size() int {
	return len(set.elems)
}

// ToSlice returns a slice of set's elements in insertion order.
func (set OrderedSet) ToSlice() []string {
	// We need defensive copying here because clients can mutate the result;
	// see (*cors.Middleware).Config.
	return slices.Clone(set.elems)
}
