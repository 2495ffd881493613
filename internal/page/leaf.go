package page

import (
	"encoding/binary"
	"sort"
)

// ───────────────────────────────────────────────────────────────────────────
// Leaf node
// ───────────────────────────────────────────────────────────────────────────
//
// Leaf body layout (relative to the node body, offset 8 of the full page):
//
//   [0:8]   prev_page_id (uint64 BE)
//   [8:16]  next_page_id (uint64 BE)
//   [16:..] slotted body holding records; each record is key(8) || value

const leafSlottedOffset = 16

// Leaf is a view over a leaf node's full page buffer.
type Leaf struct {
	buf     []byte
	slotted *Slotted
}

// WrapLeaf adapts an already-initialized leaf page.
func WrapLeaf(buf []byte) *Leaf {
	l := &Leaf{buf: buf}
	l.slotted = Wrap(body(buf)[leafSlottedOffset:])
	return l
}

// InitializeLeaf resets buf as a new, empty leaf with the given sibling
// links (use Invalid for absent siblings).
func InitializeLeaf(buf []byte, prev, next PageID) *Leaf {
	setType(buf, NodeLeaf)
	l := &Leaf{buf: buf}
	l.slotted = Wrap(body(buf)[leafSlottedOffset:])
	l.slotted.Initialize()
	l.SetPrev(prev)
	l.SetNext(next)
	return l
}

// Prev returns the previous leaf's page id, or Invalid.
func (l *Leaf) Prev() PageID {
	return PageID(binary.BigEndian.Uint64(body(l.buf)[0:8]))
}

// SetPrev sets the previous leaf's page id.
func (l *Leaf) SetPrev(id PageID) {
	binary.BigEndian.PutUint64(body(l.buf)[0:8], uint64(id))
}

// Next returns the next leaf's page id, or Invalid.
func (l *Leaf) Next() PageID {
	return PageID(binary.BigEndian.Uint64(body(l.buf)[8:16]))
}

// SetNext sets the next leaf's page id.
func (l *Leaf) SetNext(id PageID) {
	binary.BigEndian.PutUint64(body(l.buf)[8:16], uint64(id))
}

// NumRecords returns the number of records currently stored.
func (l *Leaf) NumRecords() int { return l.slotted.NumSlots() }

// MaxValueSize returns the largest value this leaf can ever store,
// sized so that any split can guarantee forward progress.
func (l *Leaf) MaxValueSize() int {
	return MaxLeafValueSize()
}

// MaxLeafValueSize returns the largest value any leaf on a page.Size page
// can ever store. Computed without a live page so callers (e.g.
// BTree.Insert validating a value) can reject oversized values before
// ever touching the buffer pool.
func MaxLeafValueSize() int {
	capacity := Size - nodeBodyOffset - leafSlottedOffset
	return capacity/2 - pointerSize - KeySize
}

// RecordKey returns the key stored at slot index.
func (l *Leaf) RecordKey(index int) Key {
	return KeyFromBytes(l.slotted.Slot(index)[:KeySize])
}

// RecordValue returns the value bytes stored at slot index. The returned
// slice aliases the page buffer.
func (l *Leaf) RecordValue(index int) []byte {
	return l.slotted.Slot(index)[KeySize:]
}

// Find performs an ordered search for key. If found, ok is true and index
// is the record's slot. If absent, ok is false and index is the position
// key would be inserted at to keep records ascending.
func (l *Leaf) Find(key Key) (index int, ok bool) {
	n := l.NumRecords()
	i := sort.Search(n, func(i int) bool {
		return l.RecordKey(i).Compare(key) >= 0
	})
	if i < n && l.RecordKey(i) == key {
		return i, true
	}
	return i, false
}

// Get returns the value for key, if present.
func (l *Leaf) Get(key Key) ([]byte, bool) {
	i, ok := l.Find(key)
	if !ok {
		return nil, false
	}
	return l.RecordValue(i), true
}

// Put inserts or updates key -> value. Returns false without mutation if
// there isn't enough space. Panics if value exceeds MaxValueSize(), since
// that would violate the split-progress invariant.
func (l *Leaf) Put(key Key, value []byte) bool {
	if len(value) > l.MaxValueSize() {
		panic("page: value exceeds max value size for this leaf")
	}
	record := make([]byte, KeySize+len(value))
	copy(record[:KeySize], key[:])
	copy(record[KeySize:], value)

	i, found := l.Find(key)
	var ok bool
	if found {
		ok = l.slotted.Resize(i, len(record))
	} else {
		ok = l.slotted.Allocate(i, len(record))
	}
	if ok {
		copy(l.slotted.Slot(i), record)
	}
	return ok
}

// SplitPut moves the largest records from this leaf into newLeaf (by
// repeatedly popping the last slot and appending it onto newLeaf) until
// this leaf has strictly more free space than newLeaf, reverses newLeaf's
// directory (the pops arrive in descending order) so both leaves read in
// ascending order, then inserts (newKey, newValue) into whichever side it
// belongs. Returns the first key of newLeaf — the promoted separator.
func (l *Leaf) SplitPut(newLeaf *Leaf, newKey Key, newValue []byte) Key {
	for l.slotted.FreeSpace() <= newLeaf.slotted.FreeSpace() {
		last := l.NumRecords() - 1
		rec := append([]byte{}, l.slotted.Slot(last)...)
		idx := newLeaf.NumRecords()
		if ok := newLeaf.slotted.Allocate(idx, len(rec)); !ok {
			panic("page: split target leaf ran out of space")
		}
		copy(newLeaf.slotted.Slot(idx), rec)
		l.slotted.Remove(last)
	}
	newLeaf.slotted.Reverse()

	belongsLeft := newLeaf.NumRecords() == 0 || newKey.Less(newLeaf.RecordKey(0))
	if belongsLeft {
		if ok := l.Put(newKey, newValue); !ok {
			panic("page: no room for new record after split")
		}
	} else {
		if ok := newLeaf.Put(newKey, newValue); !ok {
			panic("page: no room for new record in split target")
		}
	}
	return newLeaf.RecordKey(0)
}
