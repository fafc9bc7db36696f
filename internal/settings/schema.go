package settings

import (
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// ruleSpec is the YAML form of a Rule. Validate functions cannot be written
// in YAML, so the declarative constraints below are compiled into one.
type ruleSpec struct {
	Required bool     `yaml:"required"`
	Type     string   `yaml:"type"`
	Pattern  string   `yaml:"pattern"`
	Enum     []string `yaml:"enum"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	Message  string   `yaml:"message"`
}

var schemaTypes = []string{"", "string", "number", "boolean", "object"}

// ParseSchema decodes a YAML document mapping keys to rules:
//
//	theme:
//	  required: true
//	  type: string
//	  enum: [light, dark]
//	volume:
//	  type: number
//	  min: 0
//	  max: 100
func ParseSchema(data []byte) (Schema, error) {
	var specs map[string]ruleSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	schema := make(Schema, len(specs))
	for key, spec := range specs {
		rule, err := spec.compile(key)
		if err != nil {
			return nil, err
		}
		schema[key] = rule
	}
	return schema, nil
}

// LoadSchema reads and parses a YAML schema file.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(data)
}

func (spec ruleSpec) compile(key string) (Rule, error) {
	if !slices.Contains(schemaTypes, spec.Type) {
		return Rule{}, fmt.Errorf("schema %s: unknown type %q", key, spec.Type)
	}
	rule := Rule{Required: spec.Required, Type: spec.Type}

	var pattern *regexp.Regexp
	if spec.Pattern != "" {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return Rule{}, fmt.Errorf("schema %s: %w", key, err)
		}
		pattern = re
	}
	if pattern == nil && len(spec.Enum) == 0 && spec.Min == nil && spec.Max == nil {
		return rule, nil
	}

	fail := func(format string, args ...any) error {
		if spec.Message != "" {
			return fmt.Errorf("%s", spec.Message)
		}
		return fmt.Errorf(format, args...)
	}

	rule.Validate = func(value any) error {
		if value == nil {
			return nil
		}
		if s, ok := value.(string); ok {
			if pattern != nil && !pattern.MatchString(s) {
				return fail("%s does not match %s", key, spec.Pattern)
			}
			if len(spec.Enum) > 0 && !slices.Contains(spec.Enum, s) {
				return fail("%s must be one of %v", key, spec.Enum)
			}
		}
		if n, ok := number(value); ok {
			if spec.Min != nil && n < *spec.Min {
				return fail("%s must be at least %v", key, *spec.Min)
			}
			if spec.Max != nil && n > *spec.Max {
				return fail("%s must be at most %v", key, *spec.Max)
			}
		}
		return nil
	}
	return rule, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
