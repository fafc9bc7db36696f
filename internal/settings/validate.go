package settings

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Rule constrains one key. Type uses the names string, number, boolean and
// object. Validate receives nil for an absent key and returns nil when the
// value is acceptable.
type Rule struct {
	Required bool
	Type     string
	Validate func(value any) error
}

// Schema maps keys to rules.
type Schema map[string]Rule

// ValidationResult lists every violation found.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks the current values against schema. Keys are visited in
// sorted order so the error list is stable.
func (s *Store) Validate(schema Schema) ValidationResult {
	values := s.All()

	var errs []string
	for _, key := range slices.Sorted(maps.Keys(schema)) {
		rule := schema[key]
		value, present := values[key]

		if rule.Required && !present {
			errs = append(errs, fmt.Sprintf("%s is required", key))
		}
		if present && rule.Type != "" && TypeOf(value) != rule.Type {
			errs = append(errs, fmt.Sprintf("%s must be of type %s", key, rule.Type))
		}
		if rule.Validate != nil {
			if err := rule.Validate(value); err != nil {
				msg := err.Error()
				if msg == "" {
					msg = fmt.Sprintf("%s is invalid", key)
				}
				errs = append(errs, msg)
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// TypeOf names the dynamic type of v the way the schema's Type field does.
// nil reports object.
func TypeOf(v any) string {
	if v == nil {
		return "object"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Func:
		return "function"
	default:
		return "object"
	}
}
