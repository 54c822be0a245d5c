package link

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode encodes link maps canonically so the same link always
// produces byte-identical map artifacts.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("link: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Entry records one pool-index rewrite: the string Name at index Old in
// module Module landed at index New in the merged pool.
type Entry struct {
	Module string `cbor:"module"`
	Name   string `cbor:"name"`
	Old    uint32 `cbor:"old"`
	New    uint32 `cbor:"new"`
}

// Map is the linker's side artifact: every (module, old index) to merged
// index assignment, in merge order. Pure reporting; a link is complete
// without it.
type Map struct {
	Entries []Entry `cbor:"entries"`
}

func (m *Map) add(module, name string, old, merged uint32) {
	m.Entries = append(m.Entries, Entry{Module: module, Name: name, Old: old, New: merged})
}

// Len returns the number of rewrite entries.
func (m *Map) Len() int { return len(m.Entries) }

// Text renders the map as a human-readable listing, one rewrite per line.
func (m *Map) Text() string {
	var b strings.Builder
	b.WriteString("; link map: (module, old) -> new\n")
	for _, e := range m.Entries {
		fmt.Fprintf(&b, "%s\t%d -> %d\t; %q\n", e.Module, e.Old, e.New, e.Name)
	}
	return b.String()
}

// MarshalMap serializes a link map to canonical CBOR bytes.
func MarshalMap(m *Map) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

// UnmarshalMap deserializes a link map from CBOR bytes.
func UnmarshalMap(data []byte) (*Map, error) {
	var m Map
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("link: unmarshal map: %w", err)
	}
	return &m, nil
}
