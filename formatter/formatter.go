// Package formatter writes command results to stdout as JSON or as a table.
package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Format is an output format name.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatTable:
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown output format %q (must be json or table)", s)
}

// Formatter prints results in one format.
type Formatter struct {
	out    io.Writer
	format Format
	pretty bool
}

// New creates a Formatter. pretty indents JSON output and is ignored for
// tables.
func New(out io.Writer, format Format, pretty bool) *Formatter {
	return &Formatter{
		out:    out,
		format: format,
		pretty: pretty,
	}
}

// Print writes v. An absent result prints an empty line.
func (f *Formatter) Print(v any) error {
	if isNil(v) {
		_, err := fmt.Fprintln(f.out)
		return err
	}

	if f.format == FormatTable {
		return f.printTable(v)
	}
	return f.printJSON(v)
}

func (f *Formatter) printJSON(v any) error {
	enc := json.NewEncoder(f.out)
	enc.SetEscapeHTML(false)
	if f.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func (f *Formatter) printTable(v any) error {
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(f.out)
	tw.SetStyle(table.StyleLight)

	switch t := generic.(type) {
	case map[string]any:
		tw.AppendHeader(table.Row{"Field", "Value"})
		for _, k := range sortedKeys(t) {
			tw.AppendRow(table.Row{k, cell(t[k])})
		}
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		})
	case []any:
		if len(t) == 0 {
			_, err := fmt.Fprintln(f.out)
			return err
		}
		columns := columnsOf(t)
		header := make(table.Row, len(columns))
		for i, c := range columns {
			header[i] = c
		}
		tw.AppendHeader(header)
		for _, item := range t {
			row := make(table.Row, len(columns))
			if m, ok := item.(map[string]any); ok {
				for i, c := range columns {
					row[i] = cell(m[c])
				}
			} else {
				row[0] = cell(item)
			}
			tw.AppendRow(row)
		}
	default:
		_, err := fmt.Fprintln(f.out, cell(t))
		return err
	}

	tw.Render()
	return nil
}

// toGeneric round-trips v through JSON so tables use the same field names as
// the JSON output.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// columnsOf returns the sorted union of keys across a list of objects. A list
// of scalars gets a single "value" column.
func columnsOf(items []any) []string {
	seen := make(map[string]any)
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return []string{"value"}
		}
		for k := range m {
			seen[k] = nil
		}
	}
	return sortedKeys(seen)
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprint(t)
	case bool:
		return fmt.Sprint(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, cell(item))
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
