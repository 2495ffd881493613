package buffer

import (
	"sync/atomic"

	"github.com/koba789/qpkv/internal/page"
)

// Guard is a pinned reference to a frame. It must be released exactly
// once (Unpin) when the caller is done with the page, after any latch
// held through it has been released. A Guard is not safe to share across
// goroutines; each goroutine that needs the page should hold its own
// Guard (obtained via a fresh FetchPage/CreatePage call) and its own
// latch acquisition.
type Guard struct {
	frame    *Frame
	unpinned int32
}

func newGuard(f *Frame) *Guard {
	return &Guard{frame: f}
}

// PageID returns the page id currently held by this frame.
func (g *Guard) PageID() page.PageID { return g.frame.PageID }

// Data returns the frame's page buffer. Callers must hold the
// appropriate latch (RLock for reads, Lock for writes) before touching
// the returned bytes.
func (g *Guard) Data() []byte { return g.frame.Data }

// MarkDirty flags the frame for write-back on eviction or flush. Callers
// must hold the write latch.
func (g *Guard) MarkDirty() { g.frame.Dirty = true }

// RLock acquires the page's latch for shared (read) access.
func (g *Guard) RLock() { g.frame.Latch.RLock() }

// RUnlock releases a shared latch.
func (g *Guard) RUnlock() { g.frame.Latch.RUnlock() }

// Lock acquires the page's latch for exclusive (write) access.
func (g *Guard) Lock() { g.frame.Latch.Lock() }

// Unlock releases an exclusive latch.
func (g *Guard) Unlock() { g.frame.Latch.Unlock() }

// TryLock attempts to acquire the exclusive latch without blocking. Used
// for the one case where two write latches on distinct pages must be
// held simultaneously: relinking a leaf's right sibling during a split.
func (g *Guard) TryLock() bool { return g.frame.Latch.TryLock() }

// Unpin decrements the frame's pin count, making it eligible for
// eviction once no other guard references it. Safe to call more than
// once; only the first call has effect.
func (g *Guard) Unpin() {
	if atomic.CompareAndSwapInt32(&g.unpinned, 0, 1) {
		atomic.AddInt32(&g.frame.pinCount, -1)
	}
}
