// Package disk implements random access to fixed-size pages in a single
// data file.
package disk

import (
	"fmt"
	"os"
	"sync"

	"github.com/koba789/qpkv/internal/page"
)

// Manager owns a data file and serves page-aligned reads and writes.
// All access is serialized by a single mutex; every write is followed by
// an fsync, so durability is per-page.
type Manager struct {
	mu         sync.Mutex
	file       *os.File
	nextPageID page.PageID
}

// Open opens or creates path read/write and computes the next page id
// from the current file size.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("disk: stat %s: %w", path, err)
	}
	if fi.Size()%page.Size != 0 {
		f.Close()
		return nil, fmt.Errorf("disk: %s size %d is not a multiple of page size %d", path, fi.Size(), page.Size)
	}
	return &Manager{
		file:       f,
		nextPageID: page.PageID(fi.Size() / page.Size),
	}, nil
}

// ReadPageData reads exactly one page into dst, which must be page.Size
// bytes long.
func (m *Manager) ReadPageData(id page.PageID, dst []byte) error {
	if len(dst) != page.Size {
		panic("disk: dst must be exactly page.Size bytes")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	off := int64(id) * int64(page.Size)
	n, err := m.file.ReadAt(dst, off)
	if err != nil {
		return fmt.Errorf("disk: read page %d: %w", id, err)
	}
	if n != page.Size {
		return fmt.Errorf("disk: short read of page %d: got %d bytes", id, n)
	}
	return nil
}

// WritePageData writes exactly one page from src, flushes, and fsyncs.
func (m *Manager) WritePageData(id page.PageID, src []byte) error {
	if len(src) != page.Size {
		panic("disk: src must be exactly page.Size bytes")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	off := int64(id) * int64(page.Size)
	if _, err := m.file.WriteAt(src, off); err != nil {
		return fmt.Errorf("disk: write page %d: %w", id, err)
	}
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("disk: fsync after writing page %d: %w", id, err)
	}
	return nil
}

// AllocatePage returns the current next page id, then increments it. No
// I/O happens here; the extent is created by the first write.
func (m *Manager) AllocatePage() page.PageID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextPageID
	m.nextPageID++
	return id
}

// Allocated returns the number of pages ever allocated (equivalently,
// the next page id that would be returned by AllocatePage). A value of
// 0 means the data file was empty when opened, which the catalog uses
// to decide whether to initialize page 0 as the catalog tree's header.
func (m *Manager) Allocated() page.PageID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextPageID
}

// Close releases the underlying file descriptor.
func (m *Manager) Close() error {
	return m.file.Close()
}
