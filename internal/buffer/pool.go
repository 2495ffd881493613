package buffer

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/koba789/qpkv/internal/page"
)

// ErrNoFreeBuffer is returned when every frame is pinned for an entire
// sweep of the clock hand.
var ErrNoFreeBuffer = errors.New("buffer: no free buffer")

// pool is the fixed array of frames plus the page table mapping PageID to
// frame index. Its mutex is the "pool_lock" of the design: short-held,
// never held across disk I/O except during the eviction transition (where
// the disk manager's own lock is also taken, pool_lock first).
type pool struct {
	mu         sync.Mutex
	frames     []*Frame
	pageTable  map[page.PageID]int
	nextVictim int
}

func newPool(size int) *pool {
	frames := make([]*Frame, size)
	for i := range frames {
		frames[i] = newFrame()
	}
	return &pool{
		frames:    frames,
		pageTable: make(map[page.PageID]int, size),
	}
}

// selectVictim runs the clock algorithm: starting at nextVictim and
// wrapping, a frame with usageCount == 0 is the victim; an unpinned frame
// with usageCount > 0 has its count decremented and the hand advances; a
// pinned frame increments a "consecutive pinned" counter that fails the
// whole sweep with ErrNoFreeBuffer once it reaches the pool size.
//
// Must be called with mu held. On success, the returned frame's old page
// table entry (if any) has been removed and its usageCount reset to 1;
// the caller is responsible for writing back dirty contents and
// populating the frame with the new page before releasing mu.
func (p *pool) selectVictim() (int, error) {
	n := len(p.frames)
	consecutivePinned := 0
	for {
		idx := p.nextVictim
		f := p.frames[idx]
		p.nextVictim = (idx + 1) % n

		if f.usageCount == 0 {
			if f.assigned {
				delete(p.pageTable, f.PageID)
			}
			f.usageCount = 1
			return idx, nil
		}
		if atomic.LoadInt32(&f.pinCount) == 0 {
			f.usageCount--
			consecutivePinned = 0
			continue
		}
		consecutivePinned++
		if consecutivePinned == n {
			return 0, ErrNoFreeBuffer
		}
	}
}
