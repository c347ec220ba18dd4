// Package ai implements the AI text-service collaborator: a Gemini-style
// REST client with rotating API keys, used as the fallback transaction
// parser and the keyword advisor.
package ai

import (
	"errors"
	"sync"
)

// KeyRing hands out API keys round-robin so request quota spreads evenly
// across all configured keys. Safe for concurrent use.
type KeyRing struct {
	mu   sync.Mutex
	keys []string
	next int
}

// NewKeyRing builds a ring from the configured keys. At least one key is
// required; running without the AI collaborator configured is a deployment
// error, not a runtime condition.
func NewKeyRing(keys []string) (*KeyRing, error) {
	filtered := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			filtered = append(filtered, k)
		}
	}
	if len(filtered) == 0 {
		return nil, errors.New("at least one API key is required")
	}
	return &KeyRing{keys: filtered}, nil
}

// Next returns the next key in rotation.
func (r *KeyRing) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.keys[r.next]
	r.next = (r.next + 1) % len(r.keys)
	return key
}

// Len returns the number of keys in the ring.
func (r *KeyRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}
