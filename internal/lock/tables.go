// Package lock serializes schema mutations per table name. Two rebuilds of the same
// table never interleave; mutations of different tables do not block each other.
package lock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Tables hands out per-table exclusive locks. Keys are case-insensitive, like
// SQLite table names. The zero value is ready to use.
type Tables struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewTables creates an empty lock set.
func NewTables() *Tables {
	return &Tables{}
}

// Lock blocks until every named table is held exclusively or ctx is done. Names are
// acquired in sorted order so callers locking several tables cannot deadlock. The
// returned function releases all of them and must be called exactly once.
func (t *Tables) Lock(ctx context.Context, names ...string) (func(), error) {
	keys := normalize(names)
	held := make([]string, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			t.release(held[i])
		}
	}

	for _, key := range keys {
		e := t.acquireEntry(key)
		if err := e.sem.Acquire(ctx, 1); err != nil {
			t.dropRef(key)
			release()
			return nil, fmt.Errorf("lock table %q: %w", key, err)
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// Held returns the number of tables currently locked or waited on.
func (t *Tables) Held() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Tables) acquireEntry(key string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[string]*entry)
	}
	e, ok := t.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		t.entries[key] = e
	}
	e.refs++
	return e
}

func (t *Tables) release(key string) {
	t.mu.Lock()
	e := t.entries[key]
	t.mu.Unlock()
	if e == nil {
		return
	}
	e.sem.Release(1)
	t.dropRef(key)
}

func (t *Tables) dropRef(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs < 0 {
		panic("lock: table refcount dropped below zero")
	}
	if e.refs == 0 {
		delete(t.entries, key)
	}
}

func normalize(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	keys := make([]string, 0, len(names))
	for _, n := range names {
		k := strings.ToLower(strings.TrimSpace(n))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
