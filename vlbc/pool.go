package vlbc

import (
	"hash/fnv"

	"fortio.org/safecast"
)

// Interned is one immutable pool entry: the raw bytes, a cached content
// hash, and the dense index the entry occupies. Entries are owned by their
// Pool and never mutated after creation.
type Interned struct {
	bytes []byte
	hash  uint64
	index uint32
}

// Bytes returns the raw byte content. Callers must not modify it.
func (s *Interned) Bytes() []byte { return s.bytes }

// String returns the content as a Go string.
func (s *Interned) String() string { return string(s.bytes) }

// Hash returns the cached FNV-1a hash of the content.
func (s *Interned) Hash() uint64 { return s.hash }

// Index returns the dense pool index of the entry.
func (s *Interned) Index() uint32 { return s.index }

// Equal reports content equality, using the cached hash as a fast reject.
func (s *Interned) Equal(o *Interned) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || s.hash != o.hash {
		return false
	}
	return string(s.bytes) == string(o.bytes)
}

// Pool is a deduplicating string interner. Entries keep their insertion
// order, index i is valid iff i < Len(), and indices are never reused or
// reordered after insertion.
type Pool struct {
	entries []*Interned
	index   map[string]uint32
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		entries: make([]*Interned, 0, 8),
		index:   make(map[string]uint32, 8),
	}
}

// Intern returns the entry for s, allocating a new slot on first sight and
// reusing the existing one afterwards.
func (p *Pool) Intern(s string) (*Interned, error) {
	if idx, ok := p.index[s]; ok {
		return p.entries[idx], nil
	}
	idx, err := safecast.Conv[uint32](len(p.entries))
	if err != nil {
		return nil, Errorf(ErrOutOfMemory, "string pool exceeds %d entries", uint64(1)<<32)
	}
	h := fnv.New64a()
	h.Write([]byte(s))
	entry := &Interned{
		bytes: []byte(s),
		hash:  h.Sum64(),
		index: idx,
	}
	p.entries = append(p.entries, entry)
	p.index[s] = idx
	return entry, nil
}

// appendRaw appends an entry without deduplication, preserving the index
// positions of an externally supplied container. The lookup map keeps the
// first occurrence, matching first-seen intern semantics.
func (p *Pool) appendRaw(s string) (*Interned, error) {
	idx, err := safecast.Conv[uint32](len(p.entries))
	if err != nil {
		return nil, Errorf(ErrOutOfMemory, "string pool exceeds %d entries", uint64(1)<<32)
	}
	h := fnv.New64a()
	h.Write([]byte(s))
	entry := &Interned{
		bytes: []byte(s),
		hash:  h.Sum64(),
		index: idx,
	}
	p.entries = append(p.entries, entry)
	if _, ok := p.index[s]; !ok {
		p.index[s] = idx
	}
	return entry, nil
}

// Lookup returns the entry for s without interning it.
func (p *Pool) Lookup(s string) (*Interned, bool) {
	idx, ok := p.index[s]
	if !ok {
		return nil, false
	}
	return p.entries[idx], true
}

// At returns the entry at index i, or nil if i is out of range.
func (p *Pool) At(i uint32) *Interned {
	if int(i) >= len(p.entries) {
		return nil
	}
	return p.entries[i]
}

// Len returns the number of entries.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Each calls fn for every entry in insertion order.
func (p *Pool) Each(fn func(*Interned)) {
	for _, e := range p.entries {
		fn(e)
	}
}
