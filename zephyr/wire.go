package zephyr

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/nathonfowlie/zfr/casing"
)

// Custom field names are user data and keep their casing on both sides.
var (
	opaqueSnake = casing.Opaque("custom_fields")
	opaqueCamel = casing.Opaque("customFields")
)

// toWire converts a record into the camelCase map sent to the API.
func toWire(record any) (map[string]any, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := decodeNumbers(data, &m); err != nil {
		return nil, err
	}

	out, _ := casing.KeysToCamel(m, opaqueSnake).(map[string]any)
	return out, nil
}

// fromWire converts a camelCase API body into dst.
func fromWire(body []byte, dst any) error {
	var raw any
	if err := decodeNumbers(body, &raw); err != nil {
		return err
	}

	data, err := json.Marshal(casing.KeysToSnake(raw, opaqueCamel))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func decodeNumbers(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dst)
}

// dropEmpty removes every empty value so an update never blanks out data
// that is already stored.
func dropEmpty(m map[string]any) {
	for k, v := range m {
		if isEmpty(v) {
			delete(m, k)
		}
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// withLeadingSlash is the form the API wants when a folder is created or
// referenced from a plan.
func withLeadingSlash(name string) string {
	if name == "" || strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

// canonicalFolderName is the stored form, used for folder updates.
func canonicalFolderName(name string) string {
	return strings.TrimLeft(name, "/")
}

// slashFolderField prefixes a non-empty string value stored under key.
func slashFolderField(m map[string]any, key string) {
	if s, ok := m[key].(string); ok {
		m[key] = withLeadingSlash(s)
	}
}
