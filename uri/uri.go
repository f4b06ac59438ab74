/*
	Package uri implements the compact entity-addressing grammar.  Each
	entity kind has an ordered field list joined by fixed separators:

		picks/mesh     objectName:attributorId/sessionId
		segmentation   name:attributorId/sessionId@spacing?multilabel=true|false
		volume         typeName@spacing
		featuremap     typeName@spacing:featureType

	Splitting is left-to-right on the fixed separators; any suffix omitted
	from the input is filled with "*" (match-any).  A leading "re:" prefix
	switches every field from shell-glob to raw-regex matching.  The
	multilabel query parameter is tri-state: absent means match both.

	Parsing and matching are pure computations; nothing here touches a
	backend.
*/

package uri

import (
	"strings"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

// Mode selects how field patterns are interpreted.
type Mode uint8

const (
	GlobMode Mode = iota
	RegexMode
)

// RegexPrefix switches an entire URI to raw-regex field matching.
const RegexPrefix = "re:"

// Tristate represents the multilabel selector of a segmentation URI.
type Tristate uint8

const (
	Unset Tristate = iota
	True
	False
)

// grammar is the ordered field list and separators for one kind.  Field i
// is terminated by separator i; the last field runs to the end.
type grammar struct {
	fields []string
	seps   []string
}

var grammars = map[storage.Kind]grammar{
	storage.PicksKind:        {[]string{"objectName", "attributorId", "sessionId"}, []string{":", "/"}},
	storage.MeshKind:         {[]string{"objectName", "attributorId", "sessionId"}, []string{":", "/"}},
	storage.SegmentationKind: {[]string{"name", "attributorId", "sessionId", "spacing"}, []string{":", "/", "@"}},
	storage.VolumeKind:       {[]string{"typeName", "spacing"}, []string{"@"}},
	storage.FeatureMapKind:   {[]string{"typeName", "spacing", "featureType"}, []string{"@", ":"}},
}

// FieldNames returns the ordered URI fields of a kind.
func FieldNames(kind storage.Kind) ([]string, error) {
	g, found := grammars[kind]
	if !found {
		return nil, tomo.Invalidf("entity type", "no URI grammar for %s", kind)
	}
	return g.fields, nil
}

// Parsed is the result of parsing one URI string.
type Parsed struct {
	Kind       storage.Kind
	Mode       Mode
	Fields     map[string]string
	Multilabel Tristate
}

// Parse splits a URI for the given kind into its field patterns.
func Parse(kind storage.Kind, s string) (Parsed, error) {
	g, found := grammars[kind]
	if !found {
		return Parsed{}, tomo.Invalidf("entity type", "no URI grammar for %s", kind)
	}
	p := Parsed{Kind: kind, Mode: GlobMode, Fields: make(map[string]string, len(g.fields))}
	if strings.HasPrefix(s, RegexPrefix) {
		p.Mode = RegexMode
		s = strings.TrimPrefix(s, RegexPrefix)
	}

	rest, query := splitQuery(s)
	if query != "" {
		if kind != storage.SegmentationKind {
			return Parsed{}, tomo.Invalidf("uri", "%s URIs take no query parameters", kind)
		}
		if err := p.setQuery(query); err != nil {
			return Parsed{}, err
		}
	}
	exhausted := false
	for i, field := range g.fields {
		if exhausted {
			p.Fields[field] = "*"
			continue
		}
		if i < len(g.seps) {
			if j := strings.Index(rest, g.seps[i]); j >= 0 {
				p.Fields[field] = rest[:j]
				rest = rest[j+len(g.seps[i]):]
			} else {
				p.Fields[field] = rest
				exhausted = true
			}
		} else {
			p.Fields[field] = rest
		}
	}
	for field, pattern := range p.Fields {
		if pattern == "" {
			p.Fields[field] = "*"
		}
	}
	p.canonicalizeSpacing()
	return p, nil
}

// splitQuery separates a trailing query from the field text.  A "?" only
// starts a query when a "=" follows it; a bare "?" is the single-character
// glob wildcard.
func splitQuery(s string) (fields, query string) {
	i := strings.LastIndex(s, "?")
	if i < 0 || !strings.Contains(s[i+1:], "=") {
		return s, ""
	}
	return s[:i], s[i+1:]
}

// setQuery interprets the multilabel query parameter.
func (p *Parsed) setQuery(query string) error {
	key, value, _ := strings.Cut(query, "=")
	if key != "multilabel" {
		return tomo.Invalidf("query", "unknown query parameter in %q", query)
	}
	switch value {
	case "true":
		p.Multilabel = True
	case "false":
		p.Multilabel = False
	default:
		return tomo.Invalidf("multilabel", "must be true or false, got %q", value)
	}
	return nil
}

// canonicalizeSpacing rewrites a literal glob spacing field into its
// canonical three-decimal form so "10" matches a stored "10.000".
func (p *Parsed) canonicalizeSpacing() {
	pattern, found := p.Fields["spacing"]
	if !found || p.Mode == RegexMode || strings.ContainsAny(pattern, globMeta) {
		return
	}
	if v, err := storage.ParseSpacing(pattern); err == nil {
		p.Fields["spacing"] = storage.CanonicalSpacing(v)
	}
}

// IsExact reports whether the URI can only ever address a single identity:
// glob mode with no wildcard metacharacters in any field and, for
// segmentations, an explicit multilabel value.
func (p Parsed) IsExact() bool {
	if p.Mode == RegexMode {
		return false
	}
	for _, pattern := range p.Fields {
		if strings.ContainsAny(pattern, globMeta) {
			return false
		}
	}
	if p.Kind == storage.SegmentationKind && p.Multilabel == Unset {
		return false
	}
	return true
}

// Serialize emits the canonical URI of a resolved entity.  Parsing the
// result reproduces an equivalent field set (round-trip identity).
func Serialize(d storage.Descriptor) (string, error) {
	switch d.Kind {
	case storage.PicksKind, storage.MeshKind:
		return d.Name + ":" + d.Attributor + "/" + d.Session, nil
	case storage.SegmentationKind:
		s := d.Name + ":" + d.Attributor + "/" + d.Session + "@" + d.Spacing
		if d.Multilabel {
			return s + "?multilabel=true", nil
		}
		return s + "?multilabel=false", nil
	case storage.VolumeKind:
		return d.Name + "@" + d.Spacing, nil
	case storage.FeatureMapKind:
		return d.Name + "@" + d.Spacing + ":" + d.Feature, nil
	default:
		return "", tomo.Invalidf("entity type", "no URI grammar for %s", d.Kind)
	}
}

// ToDescriptor converts an exact URI into the descriptor it addresses
// within a run.  Pattern URIs are rejected.
func ToDescriptor(p Parsed, run string) (storage.Descriptor, error) {
	if !p.IsExact() {
		return storage.Descriptor{}, tomo.Invalidf("uri", "pattern URI does not address a single %s", p.Kind)
	}
	d := storage.Descriptor{Kind: p.Kind, Scope: storage.Scope{Run: run}}
	switch p.Kind {
	case storage.PicksKind, storage.MeshKind:
		d.Name = p.Fields["objectName"]
		d.Attributor = p.Fields["attributorId"]
		d.Session = p.Fields["sessionId"]
	case storage.SegmentationKind:
		d.Name = p.Fields["name"]
		d.Attributor = p.Fields["attributorId"]
		d.Session = p.Fields["sessionId"]
		d.Spacing = p.Fields["spacing"]
		d.Multilabel = p.Multilabel == True
	case storage.VolumeKind:
		d.Name = p.Fields["typeName"]
		d.Spacing = p.Fields["spacing"]
		d.Scope.Spacing = d.Spacing
	case storage.FeatureMapKind:
		d.Name = p.Fields["typeName"]
		d.Spacing = p.Fields["spacing"]
		d.Feature = p.Fields["featureType"]
		d.Scope.Spacing = d.Spacing
		d.Scope.Volume = d.Name
	default:
		return storage.Descriptor{}, tomo.Invalidf("entity type", "no URI grammar for %s", p.Kind)
	}
	return d, nil
}
