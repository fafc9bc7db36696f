package settings

import (
	"encoding/json"
	"fmt"
)

// ImportResult reports the outcome of Import.
type ImportResult struct {
	Success bool
	Error   string
}

// Export renders the current values as two-space indented JSON.
func (s *Store) Export() (string, error) {
	data, err := json.MarshalIndent(s.All(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("export settings: %w", err)
	}
	return string(data), nil
}

// Import parses text as a JSON object and applies it with SetMany. Text that
// does not parse or is not an object leaves the store untouched.
func (s *Store) Import(text string) ImportResult {
	var values map[string]any
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		return ImportResult{Error: err.Error()}
	}
	if values == nil {
		return ImportResult{Error: "Invalid JSON: expected an object"}
	}
	if err := s.SetMany(values); err != nil {
		return ImportResult{Error: err.Error()}
	}
	return ImportResult{Success: true}
}
