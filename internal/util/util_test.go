package util

import (
	"slices"
	"testing"
)

func TestOrderedSet(t *testing.T) {
	var set OrderedSet
	if set.Size() != 0 {
		t.Errorf("got size %d; want 0", set.Size())
	}
	for _, e := range []string{"GET", "POST", "GET", "PURGE", "POST"} {
		set.Add(e)
	}
	if got, want := set.Size(), 3; got != want {
		t.Errorf("got size %d; want %d", got, want)
	}
	want := []string{"GET", "POST", "PURGE"} // insertion order, duplicates dropped
	got := set.ToSlice()
	if !slices.Equal(got, want) {
		t.Errorf("got %v; want %v", got, want)
	}
	if !set.Contains("PURGE") {
		t.Error(`set should contain "PURGE"`)
	}
	if set.Contains("purge") { // case-sensitive
		t.Error(`set should not contain "purge"`)
	}

	// ToSlice must return a defensive copy.
	got[0] = "DELETE"
	if !slices.Equal(set.ToSlice(), want) {
		t.Error("mutating ToSlice's result should not affect the set")
	}
}

func TestNewOrderedSet(t *testing.T) {
	set := NewOrderedSet("a", "b", "a")
	want := []string{"a", "b"}
	if got := set.ToSlice(); !slices.Equal(got, want) {
		t.Errorf("got %v; want %v", got, want)
	}
}

func TestByteLowercase(t *testing.T) {
	cases := []struct{ str, want string }{
		{"", ""},
		{"AUTHORIZATION", "authorization"},
		{"Content-Type", "content-type"},
		{"x-foo_2", "x-foo_2"},
		{"CAFÉ", "cafÉ"}, // non-ASCII bytes are left untouched
	}
	for _, tc := range cases {
		if got := ByteLowercase(tc.str); got != tc.want {
			t.Errorf("ByteLowercase(%q): got %q; want %q", tc.str, got, tc.want)
		}
	}
}

func TestByteUppercase(t *testing.T) {
	cases := []struct{ str, want string }{
		{"", ""},
		{"get", "GET"},
		{"PaTcH", "PATCH"},
		{"purge!", "PURGE!"},
	}
	for _, tc := range cases {
		if got := ByteUppercase(tc.str); got != tc.want {
			t.Errorf("ByteUppercase(%q): got %q; want %q", tc.str, got, tc.want)
		}
	}
}
