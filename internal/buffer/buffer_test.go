package buffer

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/koba789/qpkv/internal/disk"
	"github.com/koba789/qpkv/internal/page"
)

func openManager(t *testing.T, poolSize int) (*Manager, *disk.Manager) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.qpkv")
	dm, err := disk.Open(path)
	if err != nil {
		t.Fatalf("disk.Open: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	return NewManager(dm, poolSize), dm
}

func TestManager_CreateFetchRoundTrip(t *testing.T) {
	bpm, _ := openManager(t, 4)

	id, g, err := bpm.CreatePage()
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	g.Lock()
	copy(g.Data(), bytes.Repeat([]byte{0x7A}, page.Size))
	g.MarkDirty()
	g.Unlock()
	g.Unpin()

	g2, err := bpm.FetchPage(id)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	g2.RLock()
	if g2.Data()[0] != 0x7A {
		t.Fatalf("fetched page contents mismatch")
	}
	g2.RUnlock()
	g2.Unpin()
}

func TestManager_FlushPersistsDirtyPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.qpkv")
	dm, err := disk.Open(path)
	if err != nil {
		t.Fatalf("disk.Open: %v", err)
	}
	bpm := NewManager(dm, 4)

	id, g, err := bpm.CreatePage()
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	want := bytes.Repeat([]byte{0x5C}, page.Size)
	g.Lock()
	copy(g.Data(), want)
	g.MarkDirty()
	g.Unlock()
	g.Unpin()

	if err := bpm.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := make([]byte, page.Size)
	if err := dm.ReadPageData(id, got); err != nil {
		t.Fatalf("ReadPageData: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("flushed data mismatch")
	}
}

func TestManager_EvictionWritesBackDirtyVictim(t *testing.T) {
	bpm, dm := openManager(t, 1)

	id1, g1, err := bpm.CreatePage()
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	want1 := bytes.Repeat([]byte{0x11}, page.Size)
	g1.Lock()
	copy(g1.Data(), want1)
	g1.MarkDirty()
	g1.Unlock()
	g1.Unpin()

	// A single-frame pool: creating a second page must evict the first,
	// writing back its dirty contents first.
	id2, g2, err := bpm.CreatePage()
	if err != nil {
		t.Fatalf("CreatePage 2: %v", err)
	}
	g2.Unpin()
	if id2 == id1 {
		t.Fatalf("expected a distinct page id")
	}

	got := make([]byte, page.Size)
	if err := dm.ReadPageData(id1, got); err != nil {
		t.Fatalf("ReadPageData: %v", err)
	}
	if !bytes.Equal(got, want1) {
		t.Fatalf("evicted dirty page was not written back")
	}
}

func TestPool_NoFreeBufferWhenAllPinned(t *testing.T) {
	bpm, _ := openManager(t, 2)

	_, g1, err := bpm.CreatePage()
	if err != nil {
		t.Fatalf("CreatePage 1: %v", err)
	}
	_, g2, err := bpm.CreatePage()
	if err != nil {
		t.Fatalf("CreatePage 2: %v", err)
	}
	defer g1.Unpin()
	defer g2.Unpin()

	if _, _, err := bpm.CreatePage(); err != ErrNoFreeBuffer {
		t.Fatalf("CreatePage with pool exhausted = %v, want ErrNoFreeBuffer", err)
	}
}
