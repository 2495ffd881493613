// Package buffer implements the fixed-size buffer pool: a bounded cache
// of pages with clock-style eviction, per-page pinning, and a per-page
// reader/writer latch.
package buffer

import (
	"sync"

	"github.com/koba789/qpkv/internal/page"
)

// Frame is an in-memory slot holding one page plus its bookkeeping. The
// pool owns frames for its entire lifetime; only the contents (PageID,
// Data, Dirty) change as pages are swapped in and out.
type Frame struct {
	assigned   bool
	PageID     page.PageID
	Data       []byte
	Dirty      bool
	usageCount int32
	pinCount   int32
	Latch      sync.RWMutex
}

func newFrame() *Frame {
	return &Frame{Data: make([]byte, page.Size)}
}
