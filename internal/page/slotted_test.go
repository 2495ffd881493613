package page

import (
	"bytes"
	"testing"
)

func newSlotted(t *testing.T, size int) *Slotted {
	t.Helper()
	s := Wrap(make([]byte, size))
	s.Initialize()
	return s
}

func TestSlotted_AllocateAndRead(t *testing.T) {
	s := newSlotted(t, 256)
	if ok := s.Allocate(0, 5); !ok {
		t.Fatalf("allocate failed")
	}
	copy(s.Slot(0), []byte("hello"))
	if got := s.Slot(0); !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("slot 0 = %q, want %q", got, "hello")
	}
	if n := s.NumSlots(); n != 1 {
		t.Fatalf("NumSlots() = %d, want 1", n)
	}
}

func TestSlotted_FreeSpaceExhausted(t *testing.T) {
	s := newSlotted(t, headerSize+pointerSize+4)
	if ok := s.Allocate(0, 4); !ok {
		t.Fatalf("first allocate should fit")
	}
	if ok := s.Allocate(1, 1); ok {
		t.Fatalf("second allocate should fail: no room for another pointer+byte")
	}
}

func TestSlotted_ResizeGrowAndShrink(t *testing.T) {
	s := newSlotted(t, 256)
	s.Allocate(0, 4)
	copy(s.Slot(0), []byte("abcd"))
	s.Allocate(1, 4)
	copy(s.Slot(1), []byte("wxyz"))

	if ok := s.Resize(0, 8); !ok {
		t.Fatalf("grow failed")
	}
	copy(s.Slot(0)[:4], []byte("efgh"))
	if got := s.Slot(0); !bytes.Equal(got, []byte("efghabcd")) {
		t.Fatalf("after grow, slot 0 = %q", got)
	}
	if got := s.Slot(1); !bytes.Equal(got, []byte("wxyz")) {
		t.Fatalf("after grow, slot 1 (untouched) = %q", got)
	}

	if ok := s.Resize(0, 2); !ok {
		t.Fatalf("shrink failed")
	}
	if got := s.Slot(0); !bytes.Equal(got, []byte("cd")) {
		t.Fatalf("after shrink, slot 0 = %q", got)
	}
	if got := s.Slot(1); !bytes.Equal(got, []byte("wxyz")) {
		t.Fatalf("after shrink, slot 1 (untouched) = %q", got)
	}
}

// TestSlotted_ResizeNonLastAllocatedSlot resizes the slot that is NOT
// adjacent to the free-space frontier (slot 0, allocated first, so its
// heap bytes sit further from free_space_offset than slot 1's). The heap
// region between free_space_offset and slot 0's old offset — which holds
// slot 1's bytes — must shift, and every pointer at or before that old
// offset (both slots here) must move by the same delta.
func TestSlotted_ResizeNonLastAllocatedSlot(t *testing.T) {
	s := newSlotted(t, 256)
	s.Allocate(0, 4)
	copy(s.Slot(0), []byte("abcd"))
	s.Allocate(1, 4)
	copy(s.Slot(1), []byte("wxyz"))

	if ok := s.Resize(0, 8); !ok {
		t.Fatalf("resize failed")
	}
	copy(s.Slot(0)[:4], []byte("efgh"))
	if got := s.Slot(0); !bytes.Equal(got, []byte("efghabcd")) {
		t.Fatalf("slot 0 after resize = %q, want %q", got, "efghabcd")
	}
	if got := s.Slot(1); !bytes.Equal(got, []byte("wxyz")) {
		t.Fatalf("slot 1 after resize = %q, want %q", got, "wxyz")
	}
}

// TestSlotted_RemoveNonLastAllocatedSlot removes slot 0 (allocated first,
// so its bytes sit furthest from the free-space frontier) while slot 1
// (allocated after it, closer to the frontier) survives and must have its
// offset shifted to match the compacted heap.
func TestSlotted_RemoveNonLastAllocatedSlot(t *testing.T) {
	s := newSlotted(t, 256)
	s.Allocate(0, 4)
	copy(s.Slot(0), []byte("abcd"))
	s.Allocate(1, 4)
	copy(s.Slot(1), []byte("wxyz"))

	s.Remove(0)
	if n := s.NumSlots(); n != 1 {
		t.Fatalf("NumSlots() after remove = %d, want 1", n)
	}
	if got := s.Slot(0); !bytes.Equal(got, []byte("wxyz")) {
		t.Fatalf("slot 0 after remove = %q, want %q", got, "wxyz")
	}
}

func TestSlotted_RemoveCompactsAndShiftsPointers(t *testing.T) {
	s := newSlotted(t, 256)
	s.Allocate(0, 3)
	copy(s.Slot(0), []byte("one"))
	s.Allocate(1, 3)
	copy(s.Slot(1), []byte("two"))
	s.Allocate(2, 5)
	copy(s.Slot(2), []byte("three"))

	before := s.FreeSpace()
	s.Remove(1)
	after := s.FreeSpace()
	if after != before+3+pointerSize {
		t.Fatalf("FreeSpace after remove = %d, want %d", after, before+3+pointerSize)
	}
	if got := s.Slot(0); !bytes.Equal(got, []byte("one")) {
		t.Fatalf("slot 0 after remove = %q", got)
	}
	if got := s.Slot(1); !bytes.Equal(got, []byte("three")) {
		t.Fatalf("slot 1 after remove = %q, want %q", got, "three")
	}
	if n := s.NumSlots(); n != 2 {
		t.Fatalf("NumSlots() after remove = %d, want 2", n)
	}
}

func TestSlotted_Reverse(t *testing.T) {
	s := newSlotted(t, 256)
	vals := []string{"a", "b", "c"}
	for i, v := range vals {
		s.Allocate(i, len(v))
		copy(s.Slot(i), v)
	}
	s.Reverse()
	for i, want := range []string{"c", "b", "a"} {
		if got := string(s.Slot(i)); got != want {
			t.Fatalf("slot %d after reverse = %q, want %q", i, got, want)
		}
	}
}
