// Package page implements the on-disk byte layouts described in the
// storage engine design: the fixed page size, the slotted record body,
// and the B+Tree node/leaf/branch bodies built on top of it.
package page

import (
	"bytes"
	"encoding/binary"
)

// Size is the fixed page size in bytes. The engine supports exactly one
// page size per data file; disk.Open rejects files whose length isn't a
// multiple of it.
const Size = 4096

// KeySize is the fixed width of every key in the tree. Variable-length
// keys are out of scope.
const KeySize = 8

// Key is a fixed 8-byte identifier, compared lexicographically (which is
// equivalent to big-endian unsigned 64-bit comparison).
type Key [KeySize]byte

// KeyFromUint64 encodes n as a big-endian 8-byte key.
func KeyFromUint64(n uint64) Key {
	var k Key
	binary.BigEndian.PutUint64(k[:], n)
	return k
}

// Uint64 decodes the key as a big-endian unsigned integer.
func (k Key) Uint64() uint64 {
	return binary.BigEndian.Uint64(k[:])
}

// KeyFromBytes copies an 8-byte slice into a Key. Panics if b is not
// exactly KeySize bytes — callers are expected to validate length at the
// system boundary (the wire decoder) before reaching here.
func KeyFromBytes(b []byte) Key {
	if len(b) != KeySize {
		panic("page: key must be exactly 8 bytes")
	}
	var k Key
	copy(k[:], b)
	return k
}

// Compare returns -1, 0, or 1 as k is less than, equal to, or greater
// than other.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k[:], other[:])
}

// Less reports whether k sorts before other.
func (k Key) Less(other Key) bool {
	return k.Compare(other) < 0
}

// PageID identifies a page within the data file.
type PageID uint64

// Catalog is the reserved page ID of the catalog tree's header page.
const Catalog PageID = 0

// Invalid encodes "no sibling" / "no parent" / "no page" in on-disk
// fields. Equality with Invalid is the only way a PageID represents
// absence.
const Invalid PageID = ^PageID(0)

// OptionalPageID converts an optional page id to its stored form,
// mapping absence to Invalid.
func OptionalPageID(id PageID, present bool) PageID {
	if !present {
		return Invalid
	}
	return id
}
