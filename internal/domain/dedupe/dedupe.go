// Package dedupe tracks which records have already been seen.
package dedupe

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// keySeparator cannot occur in CSV or Redis text fields we accept.
const keySeparator = "\x1f"

// Deduper records seen keys so that only the first occurrence is kept.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key, e.g. when the record it stood for was rejected later.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Key joins record fields into a single dedupe key. Two records produce the
// same key only when every field is equal.
func Key(fields ...string) string {
	return strings.Join(fields, keySeparator)
}

type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	capacity int
	size     atomic.Int64
}

// NewInMemoryDeduper creates an unbounded in-memory deduper. Records are
// never evicted, so a key seen once stays seen for the deduper's lifetime.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.capacity)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
