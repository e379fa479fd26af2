// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scopus

import "fmt"

// KeyRing holds the API key pool and the round-robin rotation pointer.
// The ring is owned by the harvest session; rotation state never lives in
// a package-level variable. The pipelines are strictly sequential, so no
// locking.
type KeyRing struct {
	keys []string
	next int
}

// NewKeyRing builds a ring from the key pool.
func NewKeyRing(keys []string) (*KeyRing, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("key ring requires at least one API key")
	}
	return &KeyRing{keys: keys}, nil
}

// Current returns the active key.
func (r *KeyRing) Current() string {
	return r.keys[r.next]
}

// Rotate advances to the next key, wrapping modulo pool size, and returns it.
func (r *KeyRing) Rotate() string {
	r.next = (r.next + 1) % len(r.keys)
	return r.keys[r.next]
}

// Replace swaps in a new key pool and resets the pointer. Used when keys
// are reloaded during an operator pause.
func (r *KeyRing) Replace(keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("replacement key pool is empty")
	}
	r.keys = keys
	r.next = 0
	return nil
}

// Len returns the pool size.
func (r *KeyRing) Len() int {
	return len(r.keys)
}
