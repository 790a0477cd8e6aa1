package object

import (
	"strings"

	"github.com/avl-labs/wisp/pkg/value"
)

// HashFunc computes a bucket hash for a key; EqualFunc tests key equality.
// Hash defaults to a string-keyed implementation (spec.md §3.2 "a
// user-supplied comparator and hash function (or string-key defaults)").
type HashFunc func(value.Value) uint64
type EqualFunc func(a, b value.Value) bool

type hashEntry struct {
	key, val value.Value
}

// Hash is a chained-bucket hash table (spec.md §3.2 "open-addressed table
// with chained entries"): each bucket holds a slice of entries that share a
// hash, probed linearly within the bucket on collision.
type Hash struct {
	Equal   EqualFunc
	HashOf  HashFunc
	buckets [][]hashEntry
	size    int
}

func (h *Hash) ObjType() value.ObjectType { return value.THash }

func (h *Hash) String() string {
	var b strings.Builder
	b.WriteString("#{")
	first := true
	for _, bucket := range h.buckets {
		for _, e := range bucket {
			if !first {
				b.WriteByte(' ')
			}
			first = false
			b.WriteString(e.key.String())
			b.WriteByte('=')
			b.WriteString(e.val.String())
		}
	}
	b.WriteByte('}')
	return b.String()
}

// DefaultEqual is eq?/string-content equality: heap strings compare by
// content, everything else by the Value's own == (spec.md §3.2 "string-key
// defaults").
func DefaultEqual(a, b value.Value) bool {
	as, aok := a.Object().(*String)
	bs, bok := b.Object().(*String)
	if aok && bok {
		return string(as.Bytes) == string(bs.Bytes)
	}
	return value.Eq(a, b)
}

// DefaultHash hashes a Value, treating heap strings by content (FNV-1a) and
// everything else via its printed form.
func DefaultHash(v value.Value) uint64 {
	var s string
	if str, ok := v.Object().(*String); ok {
		s = string(str.Bytes)
	} else {
		s = v.String()
	}
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

const initialBucketCount = 16

// NewHash creates an empty hash table with the given comparator/hash pair,
// or the string-content defaults when either is nil.
func NewHash(eq EqualFunc, hf HashFunc) *Hash {
	if eq == nil {
		eq = DefaultEqual
	}
	if hf == nil {
		hf = DefaultHash
	}
	return &Hash{Equal: eq, HashOf: hf, buckets: make([][]hashEntry, initialBucketCount)}
}

func (h *Hash) bucketIndex(key value.Value) int {
	return int(h.HashOf(key) % uint64(len(h.buckets)))
}

// Get looks up key; ok is false if absent.
func (h *Hash) Get(key value.Value) (value.Value, bool) {
	idx := h.bucketIndex(key)
	for _, e := range h.buckets[idx] {
		if h.Equal(e.key, key) {
			return e.val, true
		}
	}
	return value.Value{}, false
}

// Set inserts or updates the binding for key, growing the table when load
// factor exceeds 1.
func (h *Hash) Set(key, val value.Value) {
	if h.size >= len(h.buckets) {
		h.grow()
	}
	idx := h.bucketIndex(key)
	for i, e := range h.buckets[idx] {
		if h.Equal(e.key, key) {
			h.buckets[idx][i].val = val
			return
		}
	}
	h.buckets[idx] = append(h.buckets[idx], hashEntry{key: key, val: val})
	h.size++
}

// Delete removes key's binding, if any.
func (h *Hash) Delete(key value.Value) {
	idx := h.bucketIndex(key)
	bucket := h.buckets[idx]
	for i, e := range bucket {
		if h.Equal(e.key, key) {
			h.buckets[idx] = append(bucket[:i], bucket[i+1:]...)
			h.size--
			return
		}
	}
}

// Size returns the number of bindings.
func (h *Hash) Size() int { return h.size }

func (h *Hash) grow() {
	old := h.buckets
	h.buckets = make([][]hashEntry, len(old)*2)
	for _, bucket := range old {
		for _, e := range bucket {
			idx := h.bucketIndex(e.key)
			h.buckets[idx] = append(h.buckets[idx], e)
		}
	}
}
