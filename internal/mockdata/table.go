// Package mockdata holds the canned responses served by the request client
// when mock mode is active.
package mockdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// Key identifies a canned response by HTTP method and exact path.
type Key struct {
	Method string
	Path   string
}

// NewKey builds a key with the method upper-cased.
func NewKey(method, path string) Key {
	return Key{Method: strings.ToUpper(strings.TrimSpace(method)), Path: path}
}

// ParseKey parses the "METHOD /path/" form used in fixture files.
func ParseKey(s string) (Key, error) {
	method, path, ok := strings.Cut(strings.TrimSpace(s), " ")
	path = strings.TrimSpace(path)
	if !ok || method == "" || path == "" {
		return Key{}, fmt.Errorf("invalid fixture key %q", s)
	}
	return NewKey(method, path), nil
}

// String renders the key as "METHOD /path/".
func (k Key) String() string {
	return k.Method + " " + k.Path
}

// Table is an immutable mapping from Key to a JSON payload.
type Table struct {
	entries map[Key]json.RawMessage
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the table built from the embedded fixtures.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(fixturesYAML)
		if err != nil {
			panic(fmt.Sprintf("mockdata: embedded fixtures: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// Parse builds a table from a YAML document whose top-level keys are
// "METHOD /path/" strings.
func Parse(data []byte) (*Table, error) {
	entries, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &Table{entries: entries}, nil
}

// Overlay returns a new table containing base plus the entries in data.
// Entries in data replace base entries with the same key.
func Overlay(base *Table, data []byte) (*Table, error) {
	extra, err := decode(data)
	if err != nil {
		return nil, err
	}
	merged := make(map[Key]json.RawMessage, base.Len()+len(extra))
	if base != nil {
		maps.Copy(merged, base.entries)
	}
	maps.Copy(merged, extra)
	return &Table{entries: merged}, nil
}

// LoadOverlayFile reads a YAML fixture file and overlays it on base.
func LoadOverlayFile(base *Table, path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	t, err := Overlay(base, data)
	if err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return t, nil
}

func decode(data []byte) (map[Key]json.RawMessage, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	entries := make(map[Key]json.RawMessage, len(raw))
	for name, value := range raw {
		key, err := ParseKey(name)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		entries[key] = encoded
	}
	return entries, nil
}

// Lookup returns a copy of the payload stored under key.
func (t *Table) Lookup(key Key) (json.RawMessage, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// Keys returns every key sorted by path, then method.
func (t *Table) Keys() []Key {
	if t == nil {
		return nil
	}
	keys := slices.Collect(maps.Keys(t.entries))
	slices.SortFunc(keys, func(a, b Key) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return keys
}

// Len reports the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
