package feed

import (
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("Title", "http://example.com/x", "Description")
	b := Fingerprint("Title", "http://example.com/x", "Description")
	if a != b {
		t.Errorf("same inputs produced different fingerprints: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprintFieldSensitivity(t *testing.T) {
	base := Fingerprint("Title", "http://example.com/x", "Description")

	tests := []struct {
		name              string
		title, url, descr string
	}{
		{"changed title", "Title2", "http://example.com/x", "Description"},
		{"changed url", "Title", "http://example.com/y", "Description"},
		{"changed description", "Title", "http://example.com/x", "Description2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Fingerprint(tt.title, tt.url, tt.descr) == base {
				t.Error("fingerprint did not change")
			}
		})
	}
}

func TestFingerprintBoundaryShift(t *testing.T) {
	// ("ab","c") and ("a","bc") concatenate identically; the length
	// prefixes must keep them distinct.
	a := Fingerprint("ab", "c", "")
	b := Fingerprint("a", "bc", "")
	if a == b {
		t.Error("boundary-shifted fields collided")
	}

	c := Fingerprint("", "ab", "c")
	d := Fingerprint("", "a", "bc")
	if c == d {
		t.Error("boundary-shifted fields collided across url/description")
	}
}
