package uri

import (
	"errors"
	"testing"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

func pickDesc(object, attributor, session string) storage.Descriptor {
	return storage.Descriptor{
		Kind:       storage.PicksKind,
		Scope:      storage.Scope{Run: "TS_001"},
		Name:       object,
		Attributor: attributor,
		Session:    session,
	}
}

func matcherFor(t *testing.T, kind storage.Kind, uriStr string) *Matcher {
	t.Helper()
	p, err := Parse(kind, uriStr)
	if err != nil {
		t.Fatalf("Parse(%q): %v", uriStr, err)
	}
	m, err := p.Matcher()
	if err != nil {
		t.Fatalf("Matcher(%q): %v", uriStr, err)
	}
	return m
}

func TestGlobMatching(t *testing.T) {
	tests := []struct {
		uri  string
		desc storage.Descriptor
		want bool
	}{
		{"ribosome", pickDesc("ribosome", "alice", "7"), true},
		{"ribosome", pickDesc("proteasome", "alice", "7"), false},
		{"ribo*", pickDesc("ribosome", "alice", "7"), true},
		{"*", pickDesc("proteasome", "bob", "0"), true},
		{"ribosome:alice", pickDesc("ribosome", "alice", "7"), true},
		{"ribosome:alice", pickDesc("ribosome", "bob", "7"), false},
		{"ribosome:*/0", pickDesc("ribosome", "gapstop", "0"), true},
		{"ribosome:*/0", pickDesc("ribosome", "alice", "7"), false},
		{"ribosome:a?ice/7", pickDesc("ribosome", "alice", "7"), true},
		// Glob wildcards match whole fields only.
		{"ribo", pickDesc("ribosome", "alice", "7"), false},
	}
	for _, test := range tests {
		m := matcherFor(t, storage.PicksKind, test.uri)
		if got := m.Match(test.desc); got != test.want {
			t.Errorf("Match(%q, %s) = %t, want %t", test.uri, test.desc.Key(), got, test.want)
		}
	}
}

func TestRegexMatching(t *testing.T) {
	m := matcherFor(t, storage.PicksKind, `re:ribo.*:.*/\d+`)
	if !m.Match(pickDesc("ribosome", "alice", "7")) {
		t.Error("numeric session should match \\d+")
	}
	if !m.Match(pickDesc("ribosome", "gapstop", "0")) {
		t.Error("tool session should match \\d+")
	}
	if m.Match(pickDesc("ribosome", "alice", "s7")) {
		t.Error("non-numeric session should not match \\d+")
	}
	if m.Match(pickDesc("proteasome", "alice", "7")) {
		t.Error("object not matching ribo.* should be rejected")
	}
}

func TestBadRegexNamesField(t *testing.T) {
	p, err := Parse(storage.PicksKind, "re:ribosome:alice/[7")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = p.Matcher()
	if err == nil {
		t.Fatal("malformed regex should fail to compile")
	}
	var verr tomo.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %T, want ValidationError", err)
	}
	if verr.Field != "sessionId" {
		t.Errorf("error names field %q, want sessionId", verr.Field)
	}
}

func TestMultilabelTristate(t *testing.T) {
	single := storage.Descriptor{
		Kind:       storage.SegmentationKind,
		Scope:      storage.Scope{Run: "TS_001"},
		Name:       "membrane",
		Attributor: "alice",
		Session:    "7",
		Spacing:    "10.000",
	}
	multi := single
	multi.Name = "cellmap"
	multi.Multilabel = true

	m := matcherFor(t, storage.SegmentationKind, "*")
	if !m.Match(single) || !m.Match(multi) {
		t.Error("unset multilabel should match both variants")
	}
	m = matcherFor(t, storage.SegmentationKind, "*?multilabel=true")
	if m.Match(single) || !m.Match(multi) {
		t.Error("multilabel=true should match only multilabel maps")
	}
	m = matcherFor(t, storage.SegmentationKind, "*?multilabel=false")
	if !m.Match(single) || m.Match(multi) {
		t.Error("multilabel=false should match only single-object maps")
	}
}

func TestMatchRejectsOtherKinds(t *testing.T) {
	m := matcherFor(t, storage.PicksKind, "*")
	mesh := storage.Descriptor{
		Kind:       storage.MeshKind,
		Scope:      storage.Scope{Run: "TS_001"},
		Name:       "membrane",
		Attributor: "alice",
		Session:    "7",
	}
	if m.Match(mesh) {
		t.Error("picks matcher should reject mesh descriptors")
	}
}
