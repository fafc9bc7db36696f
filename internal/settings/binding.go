package settings

import "sync"

// Binding tracks one key for a long-lived consumer. It mirrors the latest
// value and must be closed when the consumer goes away.
type Binding[T any] struct {
	store *Store
	key   string

	mu          sync.Mutex
	value       T
	unsubscribe func()
	onChange    func(T)
}

// Bind returns a binding seeded with the current value of key.
func Bind[T any](s *Store, key string, fallback T) *Binding[T] {
	b := &Binding[T]{store: s, key: key, value: Value(s, key, fallback)}
	b.unsubscribe = s.Subscribe(key, func(newValue, _ any) {
		v := as(newValue, fallback)
		b.mu.Lock()
		b.value = v
		fn := b.onChange
		b.mu.Unlock()
		if fn != nil {
			fn(v)
		}
	})
	return b
}

// Value returns the last observed value.
func (b *Binding[T]) Value() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Set writes through to the store.
func (b *Binding[T]) Set(v T) error {
	return b.store.Set(b.key, v)
}

// OnChange registers fn to run after the binding observes a new value.
func (b *Binding[T]) OnChange(fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Close stops observing the store. It is safe to call more than once.
func (b *Binding[T]) Close() {
	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
