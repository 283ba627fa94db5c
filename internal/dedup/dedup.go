// Package dedup suppresses duplicate notification sends when a provider
// retries a webhook delivery for the same logical occurrence.
package dedup

import (
	"fmt"
	"sync"
)

// DefaultCapacity bounds the in-memory key set. Old keys are evicted in
// insertion order once the bound is reached.
const DefaultCapacity = 1024

// Deduplicator tracks which (pr_number, action) pairs have already
// triggered a downstream notification. The key carries no repository
// qualifier: two same-numbered PRs in different repositories collide.
// State lives in memory only and resets on restart.
type Deduplicator struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	order    []string
	capacity int
}

// New creates a Deduplicator. capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Deduplicator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Deduplicator{
		seen:     make(map[string]struct{}),
		capacity: capacity,
	}
}

// MarkAndCheck atomically tests membership of (prNumber, action), inserts
// the key if absent, and reports whether this is the first occurrence.
// First occurrence means the caller should notify; repeats are suppressed.
func (d *Deduplicator) MarkAndCheck(prNumber int, action string) bool {
	key := fmt.Sprintf("%d:%s", prNumber, action)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	d.order = append(d.order, key)
	if len(d.order) > d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	return true
}

// Len reports the number of tracked keys.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
