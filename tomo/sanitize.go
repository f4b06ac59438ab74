package tomo

import "strings"

// nameSafe are the runes allowed in entity and object names as stored by
// any backend.
func nameSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '-' || r == '_':
		return true
	}
	return false
}

// SanitizeName collapses every maximal sequence of filename-unsafe runes
// into a single underscore and trims leading/trailing underscores.  A name
// with no safe runes at all is a ValidationError.
func SanitizeName(name string) (string, error) {
	var b strings.Builder
	pending := false
	for _, r := range name {
		if nameSafe(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "", Invalidf("name", "no usable characters in %q", name)
	}
	return s, nil
}
