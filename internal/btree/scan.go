package btree

import (
	"github.com/koba789/qpkv/internal/buffer"
	"github.com/koba789/qpkv/internal/page"
)

// Iterator walks a tree's leaf chain forward or backward starting from
// an optional key. It holds exactly one shared leaf latch at a time;
// crossing into the next leaf releases the old one before latching the
// new one.
type Iterator struct {
	t        *BTree
	guard    *buffer.Guard
	leaf     *page.Leaf
	idx      int
	backward bool
	closed   bool
	err      error
}

// Scan starts an iterator. If start is nil, forward scans begin at the
// first key and backward scans begin at the last. If start is non-nil,
// forward scans begin at the first key >= start; backward scans begin
// at the first key <= start.
func (t *BTree) Scan(start *page.Key, backward bool) (*Iterator, error) {
	rootID, err := t.root()
	if err != nil {
		return nil, err
	}

	g, err := t.descendShared(rootID, func(br *page.Branch) uint16 {
		switch {
		case start != nil:
			return br.Find(*start)
		case backward:
			return uint16(br.NumPairs() - 1)
		default:
			return 0
		}
	})
	if err != nil {
		return nil, err
	}

	leaf := page.WrapLeaf(g.Data())
	var idx int
	switch {
	case start != nil:
		pos, found := leaf.Find(*start)
		if backward {
			if found {
				idx = pos
			} else {
				idx = pos - 1
			}
		} else {
			idx = pos
		}
	case backward:
		idx = leaf.NumRecords() - 1
	default:
		idx = 0
	}

	return &Iterator{t: t, guard: g, leaf: leaf, idx: idx, backward: backward}, nil
}

// Next returns the next (key, value) pair, or ok == false once the scan
// is exhausted (having crossed the last sibling link in the chosen
// direction).
func (it *Iterator) Next() (key page.Key, value []byte, ok bool, err error) {
	if it.closed {
		return page.Key{}, nil, false, it.err
	}
	for {
		if it.backward {
			if it.idx < 0 {
				if !it.crossTo(it.leaf.Prev(), true) {
					return page.Key{}, nil, false, it.err
				}
				continue
			}
		} else {
			if it.idx >= it.leaf.NumRecords() {
				if !it.crossTo(it.leaf.Next(), false) {
					return page.Key{}, nil, false, it.err
				}
				continue
			}
		}
		break
	}

	k := it.leaf.RecordKey(it.idx)
	v := append([]byte(nil), it.leaf.RecordValue(it.idx)...)
	if it.backward {
		it.idx--
	} else {
		it.idx++
	}
	return k, v, true, nil
}

// crossTo releases the current leaf and moves to sibling, positioning
// idx at the appropriate end. Returns false (and closes the iterator)
// if sibling is page.Invalid.
func (it *Iterator) crossTo(sibling page.PageID, toLast bool) bool {
	it.guard.RUnlock()
	it.guard.Unpin()
	if sibling == page.Invalid {
		it.closed = true
		return false
	}
	g, err := it.t.bpm.FetchPage(sibling)
	if err != nil {
		it.closed = true
		it.err = err
		return false
	}
	g.RLock()
	it.guard = g
	it.leaf = page.WrapLeaf(g.Data())
	if toLast {
		it.idx = it.leaf.NumRecords() - 1
	} else {
		it.idx = 0
	}
	return true
}

// Close releases the iterator's currently held latch, if any. Safe to
// call after exhaustion or more than once.
func (it *Iterator) Close() {
	if it.closed {
		return
	}
	it.guard.RUnlock()
	it.guard.Unpin()
	it.closed = true
}
