// Package catalog implements the system catalog: a B+Tree rooted at
// page.Catalog mapping table_id -> that table's own B+Tree header page id.
package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/koba789/qpkv/internal/btree"
	"github.com/koba789/qpkv/internal/buffer"
	"github.com/koba789/qpkv/internal/disk"
	"github.com/koba789/qpkv/internal/page"
)

// ErrTableExists is returned by CreateTable when table_id is already
// registered.
var ErrTableExists = errors.New("catalog: table already exists")

// Catalog manages the table_id -> root page id mapping.
type Catalog struct {
	bpm  *buffer.Manager
	tree *btree.BTree
}

// Open initializes the catalog tree on first open (a freshly created,
// empty data file has no pages yet, so page.Catalog must be created
// before any other operation) or attaches to the existing one.
func Open(bpm *buffer.Manager, d *disk.Manager) (*Catalog, error) {
	if d.Allocated() == 0 {
		tree, err := btree.Create(bpm)
		if err != nil {
			return nil, fmt.Errorf("catalog: create: %w", err)
		}
		if tree.Header() != page.Catalog {
			return nil, fmt.Errorf("catalog: expected header at page %d, got %d", page.Catalog, tree.Header())
		}
		return &Catalog{bpm: bpm, tree: tree}, nil
	}
	return &Catalog{bpm: bpm, tree: btree.Open(bpm, page.Catalog)}, nil
}

// CreateTable allocates a new table tree and registers its header page id
// under tableID.
func (c *Catalog) CreateTable(tableID page.Key) (page.PageID, error) {
	if _, ok, err := c.RootOf(tableID); err != nil {
		return 0, err
	} else if ok {
		return 0, ErrTableExists
	}

	tree, err := btree.Create(c.bpm)
	if err != nil {
		return 0, fmt.Errorf("catalog: create table tree: %w", err)
	}

	var value [8]byte
	binary.BigEndian.PutUint64(value[:], uint64(tree.Header()))
	if err := c.tree.Insert(tableID, value[:]); err != nil {
		return 0, fmt.Errorf("catalog: register table: %w", err)
	}
	return tree.Header(), nil
}

// RootOf returns the header page id of tableID's tree, if registered.
func (c *Catalog) RootOf(tableID page.Key) (page.PageID, bool, error) {
	v, ok, err := c.tree.Get(tableID)
	if err != nil || !ok {
		return 0, ok, err
	}
	if len(v) != 8 {
		return 0, false, fmt.Errorf("catalog: corrupt entry for table: value is %d bytes, want 8", len(v))
	}
	return page.PageID(binary.BigEndian.Uint64(v)), true, nil
}
