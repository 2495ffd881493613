package page

import (
	"encoding/binary"
)

// ───────────────────────────────────────────────────────────────────────────
// Slotted page body
// ───────────────────────────────────────────────────────────────────────────
//
// Layout of the body slice passed to Slotted:
//
//   [0:2]   num_slots        (uint16 BE)
//   [2:4]   free_space_offset (uint16 BE)
//   [4:...] slot directory — (offset uint16 BE, len uint16 BE) per slot,
//           growing forward from offset 4
//   ...     free space ...
//   [free_space_offset:cap]  record bytes, growing backward from cap
//
// The heap never overlaps the directory: free_space_offset is always
// >= headerSize + num_slots*pointerSize, and every slot's byte range lies
// in [free_space_offset, cap) with no two ranges overlapping.

const (
	headerSize  = 4 // num_slots(2) + free_space_offset(2)
	pointerSize = 4 // offset(2) + len(2)
)

// Slotted wraps a byte slice (the body of a node page, below the node
// header) as a slotted-page record store.
type Slotted struct {
	body []byte
}

// Wrap adapts an existing, already-initialized body slice.
func Wrap(body []byte) *Slotted {
	return &Slotted{body: body}
}

// Initialize resets the body to an empty slotted page.
func (s *Slotted) Initialize() {
	binary.BigEndian.PutUint16(s.body[0:2], 0)
	binary.BigEndian.PutUint16(s.body[2:4], uint16(len(s.body)))
}

func (s *Slotted) numSlots() int {
	return int(binary.BigEndian.Uint16(s.body[0:2]))
}

func (s *Slotted) setNumSlots(n int) {
	binary.BigEndian.PutUint16(s.body[0:2], uint16(n))
}

// NumSlots returns the current slot count.
func (s *Slotted) NumSlots() int { return s.numSlots() }

func (s *Slotted) freeSpaceOffset() int {
	return int(binary.BigEndian.Uint16(s.body[2:4]))
}

func (s *Slotted) setFreeSpaceOffset(off int) {
	binary.BigEndian.PutUint16(s.body[2:4], uint16(off))
}

// FreeSpace returns the number of bytes available for a new record plus
// its pointer entry.
func (s *Slotted) FreeSpace() int {
	return s.freeSpaceOffset() - headerSize - s.numSlots()*pointerSize
}

func (s *Slotted) pointerOffset(i int) int {
	return headerSize + i*pointerSize
}

func (s *Slotted) getPointer(i int) (offset, length int) {
	po := s.pointerOffset(i)
	offset = int(binary.BigEndian.Uint16(s.body[po : po+2]))
	length = int(binary.BigEndian.Uint16(s.body[po+2 : po+4]))
	return
}

func (s *Slotted) setPointer(i, offset, length int) {
	po := s.pointerOffset(i)
	binary.BigEndian.PutUint16(s.body[po:po+2], uint16(offset))
	binary.BigEndian.PutUint16(s.body[po+2:po+4], uint16(length))
}

// Allocate inserts a new slot at position index (index in [0, NumSlots()]),
// pushing later slots rightward in the directory. Returns false without
// side effect if there isn't enough free space.
func (s *Slotted) Allocate(index, length int) bool {
	if s.FreeSpace() < length+pointerSize {
		return false
	}
	n := s.numSlots()
	newOffset := s.freeSpaceOffset() - length
	s.setFreeSpaceOffset(newOffset)

	// Shift the pointer subarray [index, n) rightward by one slot.
	for i := n; i > index; i-- {
		o, l := s.getPointer(i - 1)
		s.setPointer(i, o, l)
	}
	s.setPointer(index, newOffset, length)
	s.setNumSlots(n + 1)
	return true
}

// Resize changes slot index's length in place. See spec.md §4.3 for the
// exact shifting rule: the heap region between free_space_offset and the
// slot's old offset is shifted by the size delta, and every pointer whose
// offset is <= the old offset is adjusted by the same delta. The slot's
// own bytes are not moved: after a grow they form the tail of the resized
// record (the new bytes are at its front), and after a shrink the record
// keeps its last newLen bytes.
func (s *Slotted) Resize(index, newLen int) bool {
	oldOffset, oldLen := s.getPointer(index)
	if newLen == oldLen {
		return true
	}
	delta := newLen - oldLen
	if delta > 0 && s.FreeSpace() < delta {
		return false
	}

	oldFree := s.freeSpaceOffset()
	// Shift heap bytes [oldFree, oldOffset) by -delta: grow leftward when
	// delta > 0 (new_len > old_len), shrink rightward when delta < 0.
	shiftRegion(s.body, oldFree, oldOffset, -delta)

	newFree := oldFree - delta
	s.setFreeSpaceOffset(newFree)

	n := s.numSlots()
	for i := 0; i < n; i++ {
		o, l := s.getPointer(i)
		if o <= oldOffset {
			o -= delta
		}
		if i == index {
			l = newLen
			if newLen == 0 {
				o = newFree
			}
		}
		s.setPointer(i, o, l)
	}
	return true
}

// shiftRegion moves body[from:to) by delta bytes (to body[from+delta:to+delta)).
// Handles overlapping ranges correctly regardless of delta's sign.
func shiftRegion(body []byte, from, to, delta int) {
	if delta == 0 || from >= to {
		return
	}
	if delta > 0 {
		for i := to - 1; i >= from; i-- {
			body[i+delta] = body[i]
		}
	} else {
		for i := from; i < to; i++ {
			body[i+delta] = body[i]
		}
	}
}

// Remove deletes slot index: equivalent to Resize(index, 0) followed by
// removing the pointer entry and decrementing the slot count.
func (s *Slotted) Remove(index int) {
	if ok := s.Resize(index, 0); !ok {
		panic("page: resize-to-zero must never fail")
	}
	n := s.numSlots()
	for i := index; i < n-1; i++ {
		o, l := s.getPointer(i + 1)
		s.setPointer(i, o, l)
	}
	s.setNumSlots(n - 1)
}

// Reverse reverses the slot directory in place. Heap bytes are untouched.
func (s *Slotted) Reverse() {
	n := s.numSlots()
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		oi, li := s.getPointer(i)
		oj, lj := s.getPointer(j)
		s.setPointer(i, oj, lj)
		s.setPointer(j, oi, li)
	}
}

// Slot returns the record bytes for slot index. The returned slice aliases
// the body and may be written in place by the caller.
func (s *Slotted) Slot(index int) []byte {
	o, l := s.getPointer(index)
	return s.body[o : o+l]
}

// SlotLen returns the length of slot index's record without materialising
// a slice.
func (s *Slotted) SlotLen(index int) int {
	_, l := s.getPointer(index)
	return l
}
