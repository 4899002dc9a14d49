// Package lock provides in-process mutual exclusion keyed by entity.
package lock

import (
	"context"
	"sync"
)

// Arena hands out one mutex per key. Slots exist only while a key is held
// or awaited, so the arena does not grow with the number of entities seen.
type Arena struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{slots: make(map[string]*slot)}
}

// Lock blocks until key is free or ctx is done. The returned func releases
// the key and is safe to call more than once.
func (a *Arena) Lock(ctx context.Context, key string) (func(), error) {
	a.mu.Lock()
	s, ok := a.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		a.slots[key] = s
	}
	s.refs++
	a.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		a.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			a.release(key, s)
		})
	}, nil
}

func (a *Arena) release(key string, s *slot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(a.slots, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots)
}
