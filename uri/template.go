/*
	This file implements placeholder substitution for mutation targets.
	When a copy or move fans out over a multi-match source pattern, the
	target URI must carry placeholders that are expanded per matched
	entity, e.g. "{objectName}:curator/{sessionId}".
*/

package uri

import (
	"regexp"
	"strings"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

var placeholderRE = regexp.MustCompile(`\{([A-Za-z]+)\}`)

// allowed placeholder names, per the mutation contract.
var placeholders = map[string]bool{
	"objectName":   true,
	"name":         true,
	"attributorId": true,
	"sessionId":    true,
	"spacing":      true,
}

// HasTemplate reports whether the string contains any placeholder.
func HasTemplate(s string) bool {
	return placeholderRE.MatchString(s)
}

// Expand substitutes every placeholder in the template with the matched
// entity's own field value.  Unknown placeholders are a ValidationError.
func Expand(template string, d storage.Descriptor) (string, error) {
	var badField string
	expanded := placeholderRE.ReplaceAllStringFunc(template, func(ph string) string {
		name := strings.Trim(ph, "{}")
		if !placeholders[name] {
			if badField == "" {
				badField = name
			}
			return ph
		}
		value, found := d.Field(name)
		if !found {
			if badField == "" {
				badField = name
			}
			return ph
		}
		return value
	})
	if badField != "" {
		return "", tomo.Invalidf(badField, "unknown placeholder in target %q", template)
	}
	return expanded, nil
}
