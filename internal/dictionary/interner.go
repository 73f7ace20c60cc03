// Package dictionary implements the builder's metadata key dictionary: an
// append-only, order-preserving string interner. Keys are assigned ids in
// the order they are first seen, never sorted — the on-wire metadata
// dictionary stores its string bytes in that same assignment order, so the
// builder never needs to renumber a key once it has been interned.
//
// Lookups are hashed with xxHash64 and verified against the exact stored
// bytes on match, the same hash-then-verify shape the teacher uses to guard
// against accidental hash collisions when tracking metric identifiers.
package dictionary

import "github.com/cespare/xxhash/v2"

// Interner maps distinct key strings to small integer ids, assigned in
// first-seen order. It is not safe for concurrent use.
type Interner struct {
	buckets map[uint64][]int // hash -> indices into keys sharing that hash
	keys    []string         // id -> key, in assignment order
}

// New creates an empty Interner.
func New() *Interner {
	return &Interner{buckets: make(map[uint64][]int)}
}

// Intern returns the id for key, assigning it the next sequential id the
// first time key is seen. It reports whether the key was already present.
func (n *Interner) Intern(key string) (id int, existed bool) {
	h := xxhash.Sum64String(key)
	for _, idx := range n.buckets[h] {
		if n.keys[idx] == key {
			return idx, true
		}
	}

	id = len(n.keys)
	n.keys = append(n.keys, key)
	n.buckets[h] = append(n.buckets[h], id)
	return id, false
}

// Lookup returns the id previously assigned to key, if any, without
// interning it. Exposed for hosts that need to check whether a key is
// already in the dictionary without risking assigning it a new id as a
// side effect (Intern always does, on a miss).
func (n *Interner) Lookup(key string) (id int, ok bool) {
	h := xxhash.Sum64String(key)
	for _, idx := range n.buckets[h] {
		if n.keys[idx] == key {
			return idx, true
		}
	}
	return 0, false
}

// Key returns the key assigned to id. It panics if id is out of range; only
// ids returned by Intern or Lookup on this Interner are valid.
func (n *Interner) Key(id int) string {
	return n.keys[id]
}

// Len returns the number of distinct keys interned so far.
func (n *Interner) Len() int {
	return len(n.keys)
}

// Keys returns the interned keys in assignment order. The returned slice
// must not be mutated by the caller.
func (n *Interner) Keys() []string {
	return n.keys
}

// Reset clears the interner for reuse, retaining its allocated capacity.
func (n *Interner) Reset() {
	for h := range n.buckets {
		delete(n.buckets, h)
	}
	n.keys = n.keys[:0]
}
