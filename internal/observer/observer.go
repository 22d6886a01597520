// Package observer provides listener lists with per-listener isolation.
//
// A listener that panics is recovered and logged; the remaining listeners are
// still notified. Notify takes a copy of the list, so listeners may subscribe
// or unsubscribe (themselves included) while being notified.
package observer

import (
	"log/slog"
	"sync"
)

type entry[T any] struct {
	id int
	fn func(T)
}

// List is an ordered set of listeners for values of type T.
type List[T any] struct {
	name   string
	logger *slog.Logger

	mu      sync.Mutex
	nextID  int
	entries []entry[T]
}

// New returns an empty list. name is only used in log records.
func New[T any](name string, logger *slog.Logger) *List[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &List[T]{name: name, logger: logger}
}

// Subscribe adds fn and returns a function that removes it again.
// The returned function is idempotent.
func (l *List[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, entry[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *List[T]) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribed listeners.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Notify calls every listener with v in subscription order.
func (l *List[T]) Notify(v T) {
	l.mu.Lock()
	snapshot := make([]entry[T], len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	for _, e := range snapshot {
		l.call(e, v)
	}
}

func (l *List[T]) call(e entry[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("listener panicked", "list", l.name, "listener", e.id, "panic", r)
		}
	}()
	e.fn(v)
}
