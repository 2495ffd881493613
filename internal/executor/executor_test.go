package executor

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/koba789/qpkv/internal/buffer"
	"github.com/koba789/qpkv/internal/catalog"
	"github.com/koba789/qpkv/internal/disk"
	"github.com/koba789/qpkv/internal/page"
)

func newExecutor(t *testing.T) *Executor {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.qpkv")
	dm, err := disk.Open(path)
	if err != nil {
		t.Fatalf("disk.Open: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	bpm := buffer.NewManager(dm, 32)
	cat, err := catalog.Open(bpm, dm)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	return New(bpm, cat)
}

func TestExecutor_GetOnUnknownTable(t *testing.T) {
	e := newExecutor(t)
	if _, _, err := e.GetItem(page.KeyFromUint64(1), page.KeyFromUint64(1)); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("GetItem on unknown table = %v, want ErrUnknownTable", err)
	}
}

func TestExecutor_CreateTablePutGet(t *testing.T) {
	e := newExecutor(t)
	tableID := page.KeyFromUint64(1)
	if err := e.CreateTable(tableID); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	key := page.KeyFromUint64(7)
	if err := e.PutItem(tableID, key, []byte("value")); err != nil {
		t.Fatalf("PutItem: %v", err)
	}

	v, ok, err := e.GetItem(tableID, key)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if !ok {
		t.Fatalf("GetItem: not found")
	}
	if string(v) != "value" {
		t.Fatalf("GetItem value = %q, want %q", v, "value")
	}
}

func TestExecutor_ScanItemRespectsLimit(t *testing.T) {
	e := newExecutor(t)
	tableID := page.KeyFromUint64(2)
	if err := e.CreateTable(tableID); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := e.PutItem(tableID, page.KeyFromUint64(uint64(i)), []byte("v")); err != nil {
			t.Fatalf("PutItem(%d): %v", i, err)
		}
	}

	items, err := e.ScanItem(tableID, nil, false, 3)
	if err != nil {
		t.Fatalf("ScanItem: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("ScanItem returned %d items, want 3", len(items))
	}
	for i, it := range items {
		if it.Key.Uint64() != uint64(i) {
			t.Fatalf("item %d key = %d, want %d", i, it.Key.Uint64(), i)
		}
	}
}

func TestExecutor_DeleteItemNotImplemented(t *testing.T) {
	e := newExecutor(t)
	tableID := page.KeyFromUint64(3)
	if err := e.CreateTable(tableID); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := e.DeleteItem(tableID, page.KeyFromUint64(1)); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("DeleteItem = %v, want ErrNotImplemented", err)
	}
}

func TestExecutor_Flush(t *testing.T) {
	e := newExecutor(t)
	tableID := page.KeyFromUint64(4)
	if err := e.CreateTable(tableID); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := e.PutItem(tableID, page.KeyFromUint64(1), []byte("v")); err != nil {
		t.Fatalf("PutItem: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestExecutor_TreeHandleIsCached(t *testing.T) {
	e := newExecutor(t)
	tableID := page.KeyFromUint64(5)
	if err := e.CreateTable(tableID); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	t1, err := e.tableTree(tableID)
	if err != nil {
		t.Fatalf("tableTree: %v", err)
	}
	t2, err := e.tableTree(tableID)
	if err != nil {
		t.Fatalf("tableTree: %v", err)
	}
	if t1 != t2 {
		t.Fatalf("tableTree returned distinct handles for the same table")
	}
}
