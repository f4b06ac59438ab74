package uri

import (
	"testing"

	"github.com/tomoverse/tomocat/storage"
)

func TestParsePicks(t *testing.T) {
	tests := []struct {
		in     string
		fields map[string]string
		exact  bool
	}{
		{"ribosome:alice/7", map[string]string{"objectName": "ribosome", "attributorId": "alice", "sessionId": "7"}, true},
		{"ribosome:alice", map[string]string{"objectName": "ribosome", "attributorId": "alice", "sessionId": "*"}, false},
		{"ribosome", map[string]string{"objectName": "ribosome", "attributorId": "*", "sessionId": "*"}, false},
		{"", map[string]string{"objectName": "*", "attributorId": "*", "sessionId": "*"}, false},
		{"ribo*:alice/7", map[string]string{"objectName": "ribo*", "attributorId": "alice", "sessionId": "7"}, false},
		{"ribosome:*/0", map[string]string{"objectName": "ribosome", "attributorId": "*", "sessionId": "0"}, false},
	}
	for _, test := range tests {
		p, err := Parse(storage.PicksKind, test.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", test.in, err)
			continue
		}
		for field, want := range test.fields {
			if got := p.Fields[field]; got != want {
				t.Errorf("Parse(%q) field %s = %q, want %q", test.in, field, got, want)
			}
		}
		if p.IsExact() != test.exact {
			t.Errorf("Parse(%q).IsExact() = %t, want %t", test.in, p.IsExact(), test.exact)
		}
	}
}

func TestParseRegexMode(t *testing.T) {
	p, err := Parse(storage.PicksKind, `re:ribo.*:.*/\d+`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Mode != RegexMode {
		t.Error("re: prefix should switch to regex mode")
	}
	if p.Fields["objectName"] != "ribo.*" || p.Fields["attributorId"] != ".*" || p.Fields["sessionId"] != `\d+` {
		t.Errorf("regex fields parsed wrong: %v", p.Fields)
	}
	if p.IsExact() {
		t.Error("regex URIs are never exact")
	}
}

func TestParseSegmentation(t *testing.T) {
	p, err := Parse(storage.SegmentationKind, "membrane:alice/7@10?multilabel=false")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Fields["name"] != "membrane" || p.Fields["attributorId"] != "alice" ||
		p.Fields["sessionId"] != "7" {
		t.Errorf("segmentation fields parsed wrong: %v", p.Fields)
	}
	if p.Fields["spacing"] != "10.000" {
		t.Errorf("literal spacing %q not canonicalized to 10.000", p.Fields["spacing"])
	}
	if p.Multilabel != False {
		t.Error("multilabel=false should parse to False")
	}
	if !p.IsExact() {
		t.Error("fully specified segmentation URI should be exact")
	}

	// Without the multilabel parameter the URI matches both variants and
	// cannot be exact.
	p, err = Parse(storage.SegmentationKind, "membrane:alice/7@10.000")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Multilabel != Unset {
		t.Error("absent multilabel should parse to Unset")
	}
	if p.IsExact() {
		t.Error("segmentation URI without multilabel is not exact")
	}
}

func TestParseQueryErrors(t *testing.T) {
	if _, err := Parse(storage.SegmentationKind, "membrane:alice/7@10?multilabel=maybe"); err == nil {
		t.Error("bad multilabel value should fail")
	}
	if _, err := Parse(storage.SegmentationKind, "membrane:alice/7@10?color=red"); err == nil {
		t.Error("unknown query parameter should fail")
	}
	if _, err := Parse(storage.PicksKind, "ribosome:alice/7?multilabel=true"); err == nil {
		t.Error("picks URIs take no query parameters")
	}
}

func TestParseVolumeAndFeatureMap(t *testing.T) {
	p, err := Parse(storage.VolumeKind, "wbp@7.84")
	if err != nil {
		t.Fatalf("Parse volume: %v", err)
	}
	if p.Fields["typeName"] != "wbp" || p.Fields["spacing"] != "7.840" {
		t.Errorf("volume fields parsed wrong: %v", p.Fields)
	}
	if !p.IsExact() {
		t.Error("fully specified volume URI should be exact")
	}

	p, err = Parse(storage.FeatureMapKind, "wbp@7.840:sobel")
	if err != nil {
		t.Fatalf("Parse feature map: %v", err)
	}
	if p.Fields["typeName"] != "wbp" || p.Fields["spacing"] != "7.840" || p.Fields["featureType"] != "sobel" {
		t.Errorf("feature-map fields parsed wrong: %v", p.Fields)
	}

	p, err = Parse(storage.FeatureMapKind, "wbp")
	if err != nil {
		t.Fatalf("Parse truncated feature map: %v", err)
	}
	if p.Fields["spacing"] != "*" || p.Fields["featureType"] != "*" {
		t.Errorf("truncated fields should fill with *: %v", p.Fields)
	}
}

func TestParseUnknownKind(t *testing.T) {
	if _, err := Parse(storage.RunKind, "TS_001"); err == nil {
		t.Error("runs have no URI grammar")
	}
}

// Serializing a descriptor and parsing the result must reproduce the
// identity fields exactly.
func TestSerializeParseRoundTrip(t *testing.T) {
	descs := []storage.Descriptor{
		{Kind: storage.PicksKind, Scope: storage.Scope{Run: "TS_001"}, Name: "ribosome", Attributor: "alice", Session: "7"},
		{Kind: storage.MeshKind, Scope: storage.Scope{Run: "TS_001"}, Name: "membrane", Attributor: "gapstop", Session: "0"},
		{Kind: storage.SegmentationKind, Scope: storage.Scope{Run: "TS_001"}, Name: "membrane", Attributor: "alice", Session: "7", Spacing: "10.000"},
		{Kind: storage.SegmentationKind, Scope: storage.Scope{Run: "TS_001"}, Name: "cellmap", Attributor: "bob", Session: "3", Spacing: "7.840", Multilabel: true},
		{Kind: storage.VolumeKind, Scope: storage.Scope{Run: "TS_001", Spacing: "10.000"}, Name: "wbp", Spacing: "10.000"},
		{Kind: storage.FeatureMapKind, Scope: storage.Scope{Run: "TS_001", Spacing: "10.000"}, Name: "wbp", Spacing: "10.000", Feature: "sobel"},
	}
	for _, desc := range descs {
		s, err := Serialize(desc)
		if err != nil {
			t.Fatalf("Serialize(%s): %v", desc, err)
		}
		p, err := Parse(desc.Kind, s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		got, err := ToDescriptor(p, desc.Scope.Run)
		if err != nil {
			t.Fatalf("ToDescriptor(%q): %v", s, err)
		}
		if got.Key() != desc.Key() {
			t.Errorf("round trip of %q: key %q, want %q", s, got.Key(), desc.Key())
		}
	}
}

func TestToDescriptorRejectsPatterns(t *testing.T) {
	p, err := Parse(storage.PicksKind, "ribo*:alice/7")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := ToDescriptor(p, "TS_001"); err == nil {
		t.Error("pattern URI should not convert to a descriptor")
	}
}
