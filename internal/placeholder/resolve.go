package placeholder

import (
	"errors"
	"regexp"
)

// ErrMissingField marks a placeholder whose field is absent from the record
var ErrMissingField = errors.New("missing placeholder field")

// Identifiers are letters, digits, underscore, dot and dash. Anything else
// between braces is left as literal text.
var placeholderPattern = regexp.MustCompile(`\{([\p{L}\p{N}_.\-]+)\}`)

// Resolve replaces every {FIELD} in template with the record value. Missing
// fields become the empty string. Substituted values are not scanned again.
func Resolve(template string, fields *Fields) string {
	if template == "" {
		return ""
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		v, _ := fields.Lookup(name)
		return v
	})
}

// Names returns the field names referenced by template, in order of appearance
func Names(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Missing returns the referenced names that the record does not provide
func Missing(template string, fields *Fields) []string {
	var missing []string
	for _, name := range Names(template) {
		if _, ok := fields.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
