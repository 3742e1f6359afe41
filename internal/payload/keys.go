package payload

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// normalizeKey folds camelCase, dotted and snake_case spellings onto one form:
// "places.displayName" and "places_display_name" both become "places_display_name".
func normalizeKey(key string) string {
	key = strings.ReplaceAll(key, ".", "_")
	key = camelBoundary.ReplaceAllString(key, "${1}_${2}")
	return strings.ToLower(key)
}

// escapeKey makes a literal object key safe to use as a gjson path component.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// pick resolves the first candidate present on record. Literal keys (and dotted
// paths into nested objects) are tried in priority order first; only when none
// matches are the record's own keys compared after snake/camel folding.
func pick(record gjson.Result, candidates ...string) gjson.Result {
	if !record.IsObject() {
		return gjson.Result{}
	}

	for _, candidate := range candidates {
		if v := record.Get(escapeKey(candidate)); v.Exists() {
			return v
		}
		if strings.Contains(candidate, ".") {
			if v := record.Get(candidate); v.Exists() {
				return v
			}
		}
	}

	type entry struct {
		key   string
		value gjson.Result
	}
	var entries []entry
	record.ForEach(func(key, value gjson.Result) bool {
		entries = append(entries, entry{key: normalizeKey(key.String()), value: value})
		return true
	})

	for _, candidate := range candidates {
		want := normalizeKey(candidate)
		for _, e := range entries {
			if e.key == want {
				return e.value
			}
		}
	}
	return gjson.Result{}
}
