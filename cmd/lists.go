package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nathonfowlie/zfr/zephyr"
)

// splitList splits a comma separated flag value, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// uniqueList is splitList without repeated entries, in first-seen order.
func uniqueList(s string) []string {
	items := splitList(s)
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseCustomFields decodes the --fields JSON object.
func parseCustomFields(s string) (map[string]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, fmt.Errorf("%w: --fields must be a JSON object: %v", zephyr.ErrInvalidInput, err)
	}
	return fields, nil
}
