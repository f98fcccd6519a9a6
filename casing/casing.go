// Package casing converts map keys between the snake_case naming used by the
// zfr records and the camelCase naming used on the Zephyr Scale wire format.
package casing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Option configures a key conversion.
type Option func(*options)

type options struct {
	opaque map[string]struct{}
}

// Opaque leaves the values stored under the given keys untouched. Keys are
// matched before conversion, so pass them in the source casing.
func Opaque(keys ...string) Option {
	return func(o *options) {
		for _, k := range keys {
			o.opaque[k] = struct{}{}
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{opaque: make(map[string]struct{})}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CamelToSnake inserts an underscore before every uppercase letter that is
// not the first character and lowercases the result.
func CamelToSnake(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			sb.WriteByte('_')
		}
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}

// SnakeToCamel keeps the first underscore separated segment as is and title
// cases every following segment.
func SnakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	if len(parts) == 1 {
		return s
	}

	title := cases.Title(language.Und)

	var sb strings.Builder
	sb.Grow(len(s))
	sb.WriteString(parts[0])
	for _, p := range parts[1:] {
		sb.WriteString(title.String(p))
	}
	return sb.String()
}

// KeysToSnake returns a deep copy of v with every map key converted to
// snake_case. Maps and slices are walked recursively, other values are
// returned unchanged.
func KeysToSnake(v any, opts ...Option) any {
	return convert(v, CamelToSnake, newOptions(opts))
}

// KeysToCamel returns a deep copy of v with every map key converted to
// camelCase.
func KeysToCamel(v any, opts ...Option) any {
	return convert(v, SnakeToCamel, newOptions(opts))
}

func convert(v any, fn func(string) string, o *options) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if _, ok := o.opaque[k]; ok {
				out[fn(k)] = val
				continue
			}
			out[fn(k)] = convert(val, fn, o)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = convert(val, fn, o)
		}
		return out
	default:
		return v
	}
}
