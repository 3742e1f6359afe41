package payload

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

func coerceString(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		return s, s != ""
	case gjson.Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), true
	case gjson.True:
		return "true", true
	case gjson.False:
		return "false", true
	case gjson.JSON:
		if !v.IsObject() {
			return "", false
		}
		// Places API style {"text": "...", "languageCode": "..."} wrappers.
		if text := v.Get("text"); text.Type == gjson.String {
			s := strings.TrimSpace(text.Str)
			return s, s != ""
		}
		if name := v.Get("name"); name.Type == gjson.String {
			s := strings.TrimSpace(name.Str)
			return s, s != ""
		}
	}
	return "", false
}

func coerceNumber(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return 0, false
		}
		return v.Num, true
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func coerceBool(v gjson.Result) (bool, bool) {
	switch v.Type {
	case gjson.True:
		return true, true
	case gjson.False:
		return false, true
	case gjson.String:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// toList treats a scalar as a one-element list and null/missing as empty.
func toList(v gjson.Result) []gjson.Result {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if v.IsArray() {
		return v.Array()
	}
	return []gjson.Result{v}
}

// dedupeStrings drops blanks and case-insensitive repeats, keeping the first spelling.
func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	return out
}

func stringList(v gjson.Result) []string {
	items := toList(v)
	values := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := coerceString(item); ok {
			values = append(values, s)
		}
	}
	return dedupeStrings(values)
}

func photoURLs(v gjson.Result) []string {
	items := toList(v)
	values := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type == gjson.String {
			values = append(values, item.Str)
			continue
		}
		if !item.IsObject() {
			continue
		}
		if url, ok := coerceString(pick(item, "url", "uri", "photo_url", "photoUri", "image", "imageUrl")); ok {
			values = append(values, url)
			continue
		}
		// Photo references are only usable when they already are URLs.
		if ref, ok := coerceString(pick(item, "photo_reference", "photoReference", "name")); ok && strings.HasPrefix(ref, "http") {
			values = append(values, ref)
		}
	}
	return dedupeStrings(values)
}
