package sink

import (
	"fmt"
	"sort"
)

// Board stores the current value of each sink of a view together with the
// version at which it was last written. Versions grow with every write.
// A Board is owned by one session and is not safe for concurrent use.
type Board struct {
	version uint64
	entries map[ID]Entry
}

// Entry is a written sink value.
type Entry struct {
	Kind    Kind   `json:"kind"`
	Version uint64 `json:"version"`
	Value   Value  `json:"value"`
}

func NewBoard() *Board {
	return &Board{entries: make(map[ID]Entry)}
}

// Set writes v into id. Writing a value of the wrong kind is a programming
// error and panics.
func (b *Board) Set(id ID, v Value) {
	if !id.Valid() {
		panic(fmt.Sprintf("sink: invalid id %d", int(id)))
	}
	if v.Kind() != id.Kind() {
		panic(fmt.Sprintf("sink: %s holds %s, got %s", id, id.Kind(), v.Kind()))
	}
	b.version++
	b.entries[id] = Entry{Kind: v.Kind(), Version: b.version, Value: v}
}

func (b *Board) SetText(id ID, text string) { b.Set(id, Text{Text: text}) }

func (b *Board) Get(id ID) (Entry, bool) {
	e, ok := b.entries[id]
	return e, ok
}

func (b *Board) Text(id ID) string {
	if t, ok := b.entries[id].Value.(Text); ok {
		return t.Text
	}
	return ""
}

func (b *Board) Chart(id ID) (Chart, bool) {
	c, ok := b.entries[id].Value.(Chart)
	return c, ok
}

func (b *Board) Table(id ID) (Table, bool) {
	t, ok := b.entries[id].Value.(Table)
	return t, ok
}

// Version is the version of the latest write.
func (b *Board) Version() uint64 { return b.version }

// VersionOf is the version of the latest write to id, zero if never written.
func (b *Board) VersionOf(id ID) uint64 { return b.entries[id].Version }

// Changed lists identifiers written after version since, in declaration order.
func (b *Board) Changed(since uint64) []ID {
	var out []ID
	for id, e := range b.entries {
		if e.Version > since {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot maps sink names to entries, restricted to ids when given.
func (b *Board) Snapshot(ids ...ID) map[string]Entry {
	if len(ids) == 0 {
		ids = b.Changed(0)
	}
	out := make(map[string]Entry, len(ids))
	for _, id := range ids {
		if e, ok := b.entries[id]; ok {
			out[id.String()] = e
		}
	}
	return out
}
