// Package btree implements the B+Tree access layer: latch-coupled
// traversal, point lookup, forward/backward scans, and insertion with
// recursive split and root growth.
package btree

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/koba789/qpkv/internal/buffer"
	"github.com/koba789/qpkv/internal/page"
)

// ErrDeadlock is returned when an insert cannot acquire the right
// sibling's latch during a leaf split. The tree is left unchanged; the
// client is expected to retry.
var ErrDeadlock = errors.New("btree: deadlock, retry")

// BTree is a handle to a B+Tree identified by its header page.
type BTree struct {
	bpm    *buffer.Manager
	header page.PageID
}

// Create allocates a new tree: a header page pointing at a fresh, empty
// leaf root.
func Create(bpm *buffer.Manager) (*BTree, error) {
	headerID, headerGuard, err := bpm.CreatePage()
	if err != nil {
		return nil, fmt.Errorf("btree: create header page: %w", err)
	}
	leafID, leafGuard, err := bpm.CreatePage()
	if err != nil {
		headerGuard.Unpin()
		return nil, fmt.Errorf("btree: create root leaf: %w", err)
	}
	page.InitializeLeaf(leafGuard.Data(), page.Invalid, page.Invalid)
	leafGuard.MarkDirty()
	leafGuard.Unpin()

	binary.BigEndian.PutUint64(headerGuard.Data()[0:8], uint64(leafID))
	headerGuard.MarkDirty()
	headerGuard.Unpin()

	_ = headerID
	return &BTree{bpm: bpm, header: headerID}, nil
}

// Open returns a handle to an existing tree given its header page id.
func Open(bpm *buffer.Manager, header page.PageID) *BTree {
	return &BTree{bpm: bpm, header: header}
}

// Header returns the tree's header page id.
func (t *BTree) Header() page.PageID { return t.header }

func (t *BTree) root() (page.PageID, error) {
	g, err := t.bpm.FetchPage(t.header)
	if err != nil {
		return 0, err
	}
	g.RLock()
	root := page.PageID(binary.BigEndian.Uint64(g.Data()[0:8]))
	g.RUnlock()
	g.Unpin()
	return root, nil
}

// Get looks up key. ok is false if the key is absent.
func (t *BTree) Get(key page.Key) (value []byte, ok bool, err error) {
	rootID, err := t.root()
	if err != nil {
		return nil, false, err
	}
	g, err := t.descendShared(rootID, func(br *page.Branch) uint16 {
		return br.Find(key)
	})
	if err != nil {
		return nil, false, err
	}
	defer func() {
		g.RUnlock()
		g.Unpin()
	}()

	leaf := page.WrapLeaf(g.Data())
	v, found := leaf.Get(key)
	if !found {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// descendShared performs latch-coupled shared descent from pageID to a
// leaf, using chooseChild to pick which child to follow at each branch.
// At most two shared latches (current + child) are held at any instant;
// the parent is released as soon as the child is latched.
func (t *BTree) descendShared(pageID page.PageID, chooseChild func(*page.Branch) uint16) (*buffer.Guard, error) {
	g, err := t.bpm.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	g.RLock()
	for {
		typ, err := page.Type(g.Data())
		if err != nil {
			g.RUnlock()
			g.Unpin()
			return nil, err
		}
		if typ == page.NodeLeaf {
			return g, nil
		}
		br := page.WrapBranch(g.Data())
		idx := chooseChild(br)
		child := br.PairChild(int(idx))

		cg, err := t.bpm.FetchPage(child)
		if err != nil {
			g.RUnlock()
			g.Unpin()
			return nil, err
		}
		cg.RLock()
		g.RUnlock()
		g.Unpin()
		g = cg
	}
}

// Insert adds or updates key -> value within the tree, splitting leaves
// and branches and growing the root as needed. Exclusive latches are
// held on the full path from header to leaf for the duration of the
// call; see package buffer and spec §5 for why this is acceptable.
func (t *BTree) Insert(key page.Key, value []byte) error {
	if len(value) > page.MaxLeafValueSize() {
		return fmt.Errorf("btree: value of %d bytes exceeds max %d", len(value), page.MaxLeafValueSize())
	}

	headerGuard, err := t.bpm.FetchPage(t.header)
	if err != nil {
		return err
	}
	headerGuard.Lock()

	var path []*buffer.Guard
	release := func() {
		for i := len(path) - 1; i >= 0; i-- {
			path[i].Unlock()
			path[i].Unpin()
		}
		headerGuard.Unlock()
		headerGuard.Unpin()
	}

	rootID := page.PageID(binary.BigEndian.Uint64(headerGuard.Data()[0:8]))
	cur, err := t.bpm.FetchPage(rootID)
	if err != nil {
		headerGuard.Unlock()
		headerGuard.Unpin()
		return err
	}
	cur.Lock()
	path = append(path, cur)

	for {
		typ, err := page.Type(cur.Data())
		if err != nil {
			release()
			return err
		}
		if typ == page.NodeLeaf {
			break
		}
		br := page.WrapBranch(cur.Data())
		idx := br.Find(key)
		childID := br.PairChild(int(idx))

		childGuard, err := t.bpm.FetchPage(childID)
		if err != nil {
			release()
			return err
		}
		childGuard.Lock()
		path = append(path, childGuard)
		cur = childGuard
	}

	leaf := page.WrapLeaf(cur.Data())
	if ok := leaf.Put(key, value); ok {
		cur.MarkDirty()
		release()
		return nil
	}

	sep, child, err := t.splitLeaf(cur, key, value)
	if err != nil {
		release()
		return err
	}
	cur.MarkDirty()

	splitRoot := true
	for i := len(path) - 2; i >= 0; i-- {
		promoted, newID, split, err := insertIntoBranch(t.bpm, path[i], sep, child)
		if err != nil {
			release()
			return err
		}
		if !split {
			splitRoot = false
			break
		}
		sep, child = promoted, newID
	}

	if splitRoot {
		newRootID, newRootGuard, err := t.bpm.CreatePage()
		if err != nil {
			release()
			return err
		}
		page.InitializeBranch(newRootGuard.Data(), sep, path[0].PageID(), child)
		newRootGuard.MarkDirty()
		newRootGuard.Unpin()

		binary.BigEndian.PutUint64(headerGuard.Data()[0:8], uint64(newRootID))
		headerGuard.MarkDirty()
	}

	release()
	return nil
}

// splitLeaf splits a full leaf to make room for (key, value), relinking
// its right sibling. The sibling's latch is acquired non-blocking; on
// failure the tree is left untouched and ErrDeadlock is returned.
func (t *BTree) splitLeaf(leafGuard *buffer.Guard, key page.Key, value []byte) (page.Key, page.PageID, error) {
	leaf := page.WrapLeaf(leafGuard.Data())
	oldNext := leaf.Next()

	var nextGuard *buffer.Guard
	if oldNext != page.Invalid {
		var err error
		nextGuard, err = t.bpm.FetchPage(oldNext)
		if err != nil {
			return page.Key{}, 0, err
		}
		if !nextGuard.TryLock() {
			nextGuard.Unpin()
			return page.Key{}, 0, ErrDeadlock
		}
	}

	newLeafID, newLeafGuard, err := t.bpm.CreatePage()
	if err != nil {
		if nextGuard != nil {
			nextGuard.Unlock()
			nextGuard.Unpin()
		}
		return page.Key{}, 0, err
	}
	newLeaf := page.InitializeLeaf(newLeafGuard.Data(), leafGuard.PageID(), oldNext)

	sep := leaf.SplitPut(newLeaf, key, value)
	leaf.SetNext(newLeafID)

	if nextGuard != nil {
		page.WrapLeaf(nextGuard.Data()).SetPrev(newLeafID)
		nextGuard.MarkDirty()
		nextGuard.Unlock()
		nextGuard.Unpin()
	}

	newLeafGuard.MarkDirty()
	newLeafGuard.Unpin()
	return sep, newLeafID, nil
}

// insertIntoBranch inserts (key, child) into the branch held by guard.
// If the branch has room, it is a plain insert (split == false). If
// full, the branch is split first and the new pair is inserted into
// whichever half it belongs to; the promoted separator and the new
// sibling's page id are returned for the caller to propagate upward.
func insertIntoBranch(bpm *buffer.Manager, guard *buffer.Guard, key page.Key, child page.PageID) (promoted page.Key, newNodeID page.PageID, split bool, err error) {
	br := page.WrapBranch(guard.Data())
	if br.NumPairs() < br.MaxPairs() {
		idx := br.Find(key)
		br.Insert(int(idx)+1, key, child)
		guard.MarkDirty()
		return page.Key{}, 0, false, nil
	}

	newID, newGuard, err := bpm.CreatePage()
	if err != nil {
		return page.Key{}, 0, false, err
	}
	newBranch := page.WrapBranch(newGuard.Data())
	sep := br.Split(newBranch)

	if key.Less(sep) {
		idx := br.Find(key)
		br.Insert(int(idx)+1, key, child)
	} else {
		idx := newBranch.Find(key)
		newBranch.Insert(int(idx)+1, key, child)
	}
	guard.MarkDirty()
	newGuard.MarkDirty()
	newGuard.Unpin()
	return sep, newID, true, nil
}
