package vow

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// tableEntry holds the predecessor of one distinguished point: the
// input frame whose chain reaches the DP after steps iterations.
type tableEntry struct {
	key   []byte // first N bytes of the DP chain value
	frame []byte
	steps uint64
}

// Table maps DP keys to their predecessor frame and step distance.
// Keys are the first N bytes of a chain value; two DPs are equal iff
// their keys agree on all N bytes. Buckets are indexed by a 64-bit
// xxhash of the key, so equal keys always land in the same bucket
// regardless of N and K.
type Table struct {
	n       int
	buckets map[uint64][]tableEntry
	size    int
}

// NewTable creates an empty DP table for N-byte keys.
func NewTable(n int) *Table {
	return &Table{
		n:       n,
		buckets: make(map[uint64][]tableEntry),
	}
}

// Lookup returns the stored predecessor for the DP with the given
// chain value, if present. The chain value may be longer than N; only
// its first N bytes are consulted.
func (t *Table) Lookup(chain []byte) (frame []byte, steps uint64, ok bool) {
	key := chain[:t.n]

	for _, e := range t.buckets[xxhash.Sum64(key)] {
		if bytes.Equal(e.key, key) {
			return e.frame, e.steps, true
		}
	}

	return nil, 0, false
}

// Insert stores the predecessor (frame, steps) for the DP with the
// given chain value. Key and frame bytes are copied. Inserting a key
// that is already present is a caller bug; the batch loop looks up
// before inserting and stops on the first hit.
func (t *Table) Insert(chain, frame []byte, steps uint64) {
	key := append([]byte(nil), chain[:t.n]...)

	e := tableEntry{
		key:   key,
		frame: append([]byte(nil), frame...),
		steps: steps,
	}

	h := xxhash.Sum64(key)
	t.buckets[h] = append(t.buckets[h], e)
	t.size++
}

// Len returns the number of stored DPs.
func (t *Table) Len() int {
	return t.size
}
