// Package schema validates record documents against JSON Schema subsets
// before they reach the record store.
package schema

import (
	"fmt"
	"reflect"
	"sort"
	"unicode/utf8"
)

// Validate checks a document against a JSON Schema (draft-07 subset).
// Returns nil if validation passes or the schema is nil.
//
// Supported JSON Schema keywords:
//   - type (string, object, array, boolean, null, number)
//   - properties, required
//   - maxLength
func Validate(schema map[string]any, doc map[string]any) error {
	if schema == nil {
		return nil
	}
	return validateValue(schema, doc, "$")
}

func validateValue(schema map[string]any, value any, path string) error {
	if t, ok := schema["type"].(string); ok {
		if actual := jsonType(value); actual != t {
			return fmt.Errorf("%s: expected type %q, got %q", path, t, actual)
		}
	}

	switch v := value.(type) {
	case map[string]any:
		return validateObject(schema, v, path)
	case string:
		return validateString(schema, v, path)
	}
	return nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	default:
		return reflect.TypeOf(v).String()
	}
}

func validateObject(schema map[string]any, obj map[string]any, path string) error {
	for _, field := range stringList(schema["required"]) {
		if _, exists := obj[field]; !exists {
			return fmt.Errorf("%s: missing required field %q", path, field)
		}
	}

	props, _ := schema["properties"].(map[string]any)
	fields := make([]string, 0, len(props))
	for field := range props {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		val, exists := obj[field]
		if !exists {
			continue
		}
		ps, ok := props[field].(map[string]any)
		if !ok {
			continue
		}
		if err := validateValue(ps, val, path+"."+field); err != nil {
			return err
		}
	}
	return nil
}

func validateString(schema map[string]any, s string, path string) error {
	n := utf8.RuneCountInString(s)
	if v, ok := toInt(schema["maxLength"]); ok && n > v {
		return fmt.Errorf("%s: string length %d is greater than maxLength %d", path, n, v)
	}
	return nil
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
