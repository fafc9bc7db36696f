// Package settings is the observable runtime configuration store. Values are
// kept as one JSON object persisted under a single key of a store.KV.
package settings

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// StorageKey is the KV key holding the serialized snapshot.
const StorageKey = "watchtogether-config"

// KV is the persistence the store writes through to.
type KV interface {
	Read(key string) (string, bool, error)
	Write(key, value string) error
}

// KeyListener observes changes of one key.
type KeyListener func(newValue, oldValue any)

// WildcardListener observes changes of every key.
type WildcardListener func(key string, newValue, oldValue any)

type keyReg struct {
	id int
	fn KeyListener
}

type wildcardReg struct {
	id int
	fn WildcardListener
}

// Store holds the runtime configuration map.
type Store struct {
	kv         KV
	storageKey string
	logger     *log.Logger

	mu       sync.Mutex
	values   map[string]any
	keyed    map[string][]keyReg
	wildcard []wildcardReg
	nextID   int
}

// Option configures Open.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithStorageKey overrides StorageKey.
func WithStorageKey(key string) Option {
	return func(s *Store) { s.storageKey = key }
}

// Open loads the snapshot from kv. A missing, unreadable or malformed
// snapshot yields an empty store and is only logged.
func Open(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:         kv,
		storageKey: StorageKey,
		logger:     log.Default(),
		values:     map[string]any{},
		keyed:      map[string][]keyReg{},
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := kv.Read(s.storageKey)
	switch {
	case err != nil:
		s.logger.Error("Failed to read settings snapshot", "key", s.storageKey, "error", err)
	case ok && raw != "":
		var loaded map[string]any
		if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
			s.logger.Error("Failed to load settings snapshot", "key", s.storageKey, "error", err)
		} else if loaded != nil {
			s.values = loaded
		}
	}
	return s
}

// Get returns the value stored under key, or fallback when absent.
func (s *Store) Get(key string, fallback any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return fallback
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// All returns a shallow copy of the whole map.
func (s *Store) All() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values)
}

// Set stores value, persists the snapshot and notifies listeners of key,
// then wildcard listeners. The value is kept in its JSON shape (numbers as
// float64, slices as []any, objects as map[string]any), the same shape a
// reload or Import produces, and never aliases the caller's value.
// Listeners run on the caller's goroutine after the lock is released, so
// they may call back into the store. A persistence failure is logged and
// returned after listeners have run.
func (s *Store) Set(key string, value any) error {
	value, err := normalize(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	s.mu.Lock()
	old := s.values[key]
	s.values[key] = value
	persistErr := s.persistLocked()
	keyed := slices.Clone(s.keyed[key])
	wildcard := slices.Clone(s.wildcard)
	s.mu.Unlock()

	for _, reg := range keyed {
		reg.fn(value, old)
	}
	for _, reg := range wildcard {
		reg.fn(key, value, old)
	}
	return persistErr
}

// SetMany applies Set for each entry in ascending key order and returns the
// first persistence error.
func (s *Store) SetMany(values map[string]any) error {
	var first error
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if err := s.Set(key, values[key]); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Reset clears every value, persists the empty snapshot and notifies each
// key listener with (nil, previous). Wildcard listeners are not notified.
func (s *Store) Reset() error {
	s.mu.Lock()
	previous := s.values
	s.values = map[string]any{}
	persistErr := s.persistLocked()
	type pending struct {
		old any
		fns []keyReg
	}
	var calls []pending
	for _, key := range slices.Sorted(maps.Keys(s.keyed)) {
		calls = append(calls, pending{old: previous[key], fns: slices.Clone(s.keyed[key])})
	}
	s.mu.Unlock()

	for _, call := range calls {
		for _, reg := range call.fns {
			reg.fn(nil, call.old)
		}
	}
	return persistErr
}

// Subscribe registers fn for changes of key. The returned function removes
// exactly this registration.
func (s *Store) Subscribe(key string, fn KeyListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.keyed[key] = append(s.keyed[key], keyReg{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		regs := s.keyed[key]
		if i := slices.IndexFunc(regs, func(r keyReg) bool { return r.id == id }); i >= 0 {
			s.keyed[key] = slices.Delete(slices.Clone(regs), i, i+1)
		}
		if len(s.keyed[key]) == 0 {
			delete(s.keyed, key)
		}
	}
}

// SubscribeAll registers fn for changes of any key.
func (s *Store) SubscribeAll(fn WildcardListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.wildcard = append(s.wildcard, wildcardReg{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if i := slices.IndexFunc(s.wildcard, func(r wildcardReg) bool { return r.id == id }); i >= 0 {
			s.wildcard = slices.Delete(slices.Clone(s.wildcard), i, i+1)
		}
	}
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) persistLocked() error {
	data, err := json.Marshal(s.values)
	if err != nil {
		s.logger.Error("Failed to encode settings", "error", err)
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.kv.Write(s.storageKey, string(data)); err != nil {
		s.logger.Error("Failed to save settings", "key", s.storageKey, "error", err)
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Value returns key decoded as T. Values loaded from the snapshot are JSON
// shaped (float64, map[string]any), so a direct type assertion is tried first
// and a JSON round-trip second. fallback is returned when the key is absent
// or cannot be converted.
func Value[T any](s *Store, key string, fallback T) T {
	return as(s.Get(key, nil), fallback)
}

func as[T any](v any, fallback T) T {
	if v == nil {
		return fallback
	}
	if typed, ok := v.(T); ok {
		return typed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return fallback
	}
	return out
}
