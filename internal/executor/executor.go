// Package executor translates the six request kinds of the wire
// protocol into operations against the catalog tree and per-table
// B+Trees.
package executor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/koba789/qpkv/internal/btree"
	"github.com/koba789/qpkv/internal/buffer"
	"github.com/koba789/qpkv/internal/catalog"
	"github.com/koba789/qpkv/internal/page"
)

// ErrUnknownTable is returned by any operation addressing a table_id
// that CreateTable has never registered.
var ErrUnknownTable = errors.New("executor: unknown table")

// ErrNotImplemented is returned by DeleteItem: deletion is stubbed out
// of scope for this engine.
var ErrNotImplemented = errors.New("executor: not implemented")

// Item is a single key/value pair as returned by GetItem and ScanItem.
type Item struct {
	Key   page.Key
	Value []byte
}

// Executor holds the catalog and a cache of opened per-table tree
// handles (a *btree.BTree is cheap and stateless beyond its header page
// id, but reusing one avoids reconstructing it on every request).
type Executor struct {
	bpm *buffer.Manager
	cat *catalog.Catalog

	mu    sync.Mutex
	trees map[page.PageID]*btree.BTree
}

// New creates an Executor over an already-open buffer pool and catalog.
func New(bpm *buffer.Manager, cat *catalog.Catalog) *Executor {
	return &Executor{
		bpm:   bpm,
		cat:   cat,
		trees: make(map[page.PageID]*btree.BTree),
	}
}

func (e *Executor) treeFor(root page.PageID) *btree.BTree {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.trees[root]; ok {
		return t
	}
	t := btree.Open(e.bpm, root)
	e.trees[root] = t
	return t
}

func (e *Executor) tableTree(tableID page.Key) (*btree.BTree, error) {
	root, ok, err := e.cat.RootOf(tableID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownTable
	}
	return e.treeFor(root), nil
}

// CreateTable registers a brand-new, empty table under tableID.
func (e *Executor) CreateTable(tableID page.Key) error {
	_, err := e.cat.CreateTable(tableID)
	return err
}

// GetItem looks up key within tableID. ok is false if the key is
// absent (this is a successful response carrying no item, not an
// error).
func (e *Executor) GetItem(tableID, key page.Key) (value []byte, ok bool, err error) {
	t, err := e.tableTree(tableID)
	if err != nil {
		return nil, false, err
	}
	return t.Get(key)
}

// PutItem inserts or updates key -> value within tableID.
func (e *Executor) PutItem(tableID, key page.Key, value []byte) error {
	t, err := e.tableTree(tableID)
	if err != nil {
		return err
	}
	return t.Insert(key, value)
}

// ScanItem iterates tableID, optionally starting at start, in the
// requested direction, returning at most limit items.
func (e *Executor) ScanItem(tableID page.Key, start *page.Key, backward bool, limit int) ([]Item, error) {
	t, err := e.tableTree(tableID)
	if err != nil {
		return nil, err
	}
	it, err := t.Scan(start, backward)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	items := make([]Item, 0, limit)
	for len(items) < limit {
		k, v, ok, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("executor: scan: %w", err)
		}
		if !ok {
			break
		}
		items = append(items, Item{Key: k, Value: v})
	}
	return items, nil
}

// DeleteItem is out of scope; it always fails without mutating state.
func (e *Executor) DeleteItem(tableID, key page.Key) error {
	return ErrNotImplemented
}

// Flush writes back every dirty page in the buffer pool.
func (e *Executor) Flush() error {
	return e.bpm.Flush()
}
