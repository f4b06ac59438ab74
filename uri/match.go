/*
	This file translates field patterns into anchored regular expressions
	and matches them against entity descriptors.
*/

package uri

import (
	"regexp"
	"strings"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

// globMeta are the wildcard metacharacters recognized in glob mode.
const globMeta = "*?"

// globToRegexp translates a shell-glob pattern into an unanchored regular
// expression: "*" matches any run of characters, "?" any single character,
// and everything else is literal.
func globToRegexp(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// Matcher holds the compiled field patterns of one parsed URI.
type Matcher struct {
	kind       storage.Kind
	fields     []string
	res        map[string]*regexp.Regexp
	multilabel Tristate
}

// Matcher compiles all field patterns of the parsed URI.  Every pattern is
// anchored, so a field matches only as a whole.  A malformed regex is a
// ValidationError naming the offending field.
func (p Parsed) Matcher() (*Matcher, error) {
	fields, err := FieldNames(p.Kind)
	if err != nil {
		return nil, err
	}
	m := &Matcher{
		kind:       p.Kind,
		fields:     fields,
		res:        make(map[string]*regexp.Regexp, len(fields)),
		multilabel: p.Multilabel,
	}
	for _, field := range fields {
		pattern := p.Fields[field]
		if p.Mode == GlobMode {
			pattern = globToRegexp(pattern)
		}
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, tomo.Invalidf(field, "bad pattern %q: %v", p.Fields[field], err)
		}
		m.res[field] = re
	}
	return m, nil
}

// Match reports whether the descriptor satisfies every field pattern.
func (m *Matcher) Match(d storage.Descriptor) bool {
	if d.Kind != m.kind {
		return false
	}
	for _, field := range m.fields {
		value, found := d.Field(field)
		if !found || !m.res[field].MatchString(value) {
			return false
		}
	}
	if m.kind == storage.SegmentationKind {
		switch m.multilabel {
		case True:
			return d.Multilabel
		case False:
			return !d.Multilabel
		}
	}
	return true
}
