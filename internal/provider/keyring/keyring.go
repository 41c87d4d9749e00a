// Package keyring spreads upstream calls over a fixed pool of credentials.
package keyring

import (
	"strings"
	"sync"

	"stockdata/internal/provider"
)

// Rotator hands out keys in strict round-robin order. It keeps no memory of
// failures: every call advances the cursor by one.
type Rotator struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// New copies the non-blank keys into an immutable pool.
func New(keys ...string) (*Rotator, error) {
	pool := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			pool = append(pool, k)
		}
	}
	if len(pool) == 0 {
		return nil, provider.ErrNoKeys
	}
	return &Rotator{keys: pool}, nil
}

// Next returns the key under the cursor and advances it modulo the pool size.
func (r *Rotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.keys[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.keys)
	return k
}

// Size is the number of keys in the pool.
func (r *Rotator) Size() int { return len(r.keys) }
