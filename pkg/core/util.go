package core

import (
	"maps"
	"reflect"
	"slices"
	"strings"
	"unicode"
)

// camelize converts a hyphen-delimited name to camelCase ("my-prop" -> "myProp").
func camelize(s string) string {
	if !strings.Contains(s, "-") {
		return s
	}
	var sb strings.Builder
	upper := false
	for _, r := range s {
		if r == '-' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// hyphenate converts a camelCase name to hyphen-delimited form ("myProp" -> "my-prop").
func hyphenate(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// classify converts "my-component" or "my_component" to "MyComponent".
func classify(s string) string {
	var sb strings.Builder
	upper := true
	for _, r := range s {
		if r == '-' || r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// isReserved reports whether key starts with $ or _, the prefixes used by
// instance internals.
func isReserved(key string) bool {
	return strings.HasPrefix(key, "$") || strings.HasPrefix(key, "_")
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// identical reports whether a and b are the same value by identity:
// reference kinds compare by address, comparable values by ==, and
// non-nil functions never compare identical.
func identical(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return va.IsNil() && vb.IsNil()
	}
	if !va.Type().Comparable() {
		return false
	}
	// Interface fields holding uncomparable values panic on ==.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
