package buffer

import (
	"sync/atomic"

	"github.com/koba789/qpkv/internal/disk"
	"github.com/koba789/qpkv/internal/page"
)

// Manager is the BufferPoolManager: it fetches and creates pages through
// a fixed-size pool backed by a disk.Manager, handling eviction,
// write-back of dirty frames, and page-table bookkeeping.
//
// Lock order: the pool's mutex is always acquired before any disk I/O is
// issued on its behalf (pool_lock, then disk_lock internal to
// disk.Manager) — never the reverse.
type Manager struct {
	pool *pool
	disk *disk.Manager
}

// NewManager creates a buffer pool of the given number of frames over disk.
func NewManager(d *disk.Manager, poolSize int) *Manager {
	return &Manager{pool: newPool(poolSize), disk: d}
}

// FetchPage returns a pinned, unlatched Guard for id. If the page is
// already resident, no I/O is performed. Otherwise a victim frame is
// evicted (writing back its old contents if dirty) and the page is read
// from disk.
func (m *Manager) FetchPage(id page.PageID) (*Guard, error) {
	m.pool.mu.Lock()
	if idx, ok := m.pool.pageTable[id]; ok {
		f := m.pool.frames[idx]
		f.usageCount++
		atomic.AddInt32(&f.pinCount, 1)
		m.pool.mu.Unlock()
		return newGuard(f), nil
	}

	idx, err := m.pool.selectVictim()
	if err != nil {
		m.pool.mu.Unlock()
		return nil, err
	}
	f := m.pool.frames[idx]
	if f.assigned && f.Dirty {
		if err := m.disk.WritePageData(f.PageID, f.Data); err != nil {
			m.pool.mu.Unlock()
			return nil, err
		}
	}
	f.assigned = true
	f.PageID = id
	f.Dirty = false
	if err := m.disk.ReadPageData(id, f.Data); err != nil {
		m.pool.mu.Unlock()
		return nil, err
	}
	m.pool.pageTable[id] = idx
	atomic.AddInt32(&f.pinCount, 1)
	m.pool.mu.Unlock()
	return newGuard(f), nil
}

// CreatePage allocates a new page id, evicts a frame for it (writing
// back old dirty contents if needed), and returns the new id with a
// pinned, dirty, zeroed Guard. The page is marked dirty immediately so a
// subsequent eviction persists its existence even if the caller never
// writes to it.
func (m *Manager) CreatePage() (page.PageID, *Guard, error) {
	m.pool.mu.Lock()
	idx, err := m.pool.selectVictim()
	if err != nil {
		m.pool.mu.Unlock()
		return 0, nil, err
	}
	f := m.pool.frames[idx]
	if f.assigned && f.Dirty {
		if err := m.disk.WritePageData(f.PageID, f.Data); err != nil {
			m.pool.mu.Unlock()
			return 0, nil, err
		}
	}
	id := m.disk.AllocatePage()
	f.assigned = true
	f.PageID = id
	for i := range f.Data {
		f.Data[i] = 0
	}
	f.Dirty = true
	m.pool.pageTable[id] = idx
	atomic.AddInt32(&f.pinCount, 1)
	m.pool.mu.Unlock()
	return id, newGuard(f), nil
}

// Flush writes every resident dirty frame back to disk (each write is
// fsync'd by disk.Manager) and clears its dirty flag.
func (m *Manager) Flush() error {
	m.pool.mu.Lock()
	defer m.pool.mu.Unlock()
	for id, idx := range m.pool.pageTable {
		f := m.pool.frames[idx]
		if !f.Dirty {
			continue
		}
		if err := m.disk.WritePageData(id, f.Data); err != nil {
			return err
		}
		f.Dirty = false
	}
	return nil
}
