package page

import "encoding/binary"

// ───────────────────────────────────────────────────────────────────────────
// Branch node
// ───────────────────────────────────────────────────────────────────────────
//
// Branch body layout (relative to the node body, i.e. offset 8 of the
// full page):
//
//   [0:2]  num_pairs (uint16 BE)
//   [2:4]  padding
//   [4:..] pairs: (Key[8], PageID[8]) each, 16 bytes per pair
//
// pair 0's key is unused; its child is the leftmost subtree. Pair i for
// i >= 1 carries the separator key and the right-child pointer.

const (
	branchPairsOffset = 4
	branchPairSize    = KeySize + 8 // key + PageID
)

// Branch is a view over a branch node's full page buffer.
type Branch struct {
	buf []byte
}

// WrapBranch adapts an already-initialized branch page.
func WrapBranch(buf []byte) *Branch {
	return &Branch{buf: buf}
}

// InitializeBranch resets buf as a new branch with two children: the
// leftmost (pair 0, key unused) and the first separated child (pair 1).
func InitializeBranch(buf []byte, key Key, left, right PageID) *Branch {
	setType(buf, NodeBranch)
	b := &Branch{buf: buf}
	b.setNumPairs(2)
	b.setPair(0, Key{}, left)
	b.setPair(1, key, right)
	return b
}

func (b *Branch) body() []byte { return body(b.buf) }

// MaxPairs returns the maximum number of pairs this page can hold.
func (b *Branch) MaxPairs() int {
	return (len(b.body()) - branchPairsOffset) / branchPairSize
}

// NumPairs returns the current pair count.
func (b *Branch) NumPairs() int {
	return int(binary.BigEndian.Uint16(b.body()[0:2]))
}

func (b *Branch) setNumPairs(n int) {
	binary.BigEndian.PutUint16(b.body()[0:2], uint16(n))
}

func (b *Branch) pairOffset(i int) int {
	return branchPairsOffset + i*branchPairSize
}

// PairKey returns the key of pair i. Pair 0's key is conceptually -inf
// and should not be relied upon by callers.
func (b *Branch) PairKey(i int) Key {
	o := b.pairOffset(i)
	return KeyFromBytes(b.body()[o : o+KeySize])
}

// PairChild returns the child page id of pair i.
func (b *Branch) PairChild(i int) PageID {
	o := b.pairOffset(i) + KeySize
	return PageID(binary.BigEndian.Uint64(b.body()[o : o+8]))
}

func (b *Branch) setPair(i int, key Key, child PageID) {
	o := b.pairOffset(i)
	body := b.body()
	copy(body[o:o+KeySize], key[:])
	binary.BigEndian.PutUint64(body[o+KeySize:o+KeySize+8], uint64(child))
}

// Find returns the index i in [0, NumPairs()) of the child to descend
// into for key: the largest i such that PairKey(i) <= key, treating pair
// 0's key as -infinity.
func (b *Branch) Find(key Key) uint16 {
	n := b.NumPairs()
	// Binary search over indices 1..n for the largest i with
	// PairKey(i) <= key.
	lo, hi := 1, n // hi is exclusive upper bound on the search window
	best := 0
	for lo < hi {
		mid := lo + (hi-lo)/2
		if b.PairKey(mid).Compare(key) <= 0 {
			best = mid
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return uint16(best)
}

// Insert shifts pairs[index..NumPairs()) one position right and writes
// (key, child) at index. The caller guarantees NumPairs() < MaxPairs().
func (b *Branch) Insert(index int, key Key, child PageID) {
	n := b.NumPairs()
	for i := n; i > index; i-- {
		k := b.PairKey(i - 1)
		c := b.PairChild(i - 1)
		b.setPair(i, k, c)
	}
	b.setPair(index, key, child)
	b.setNumPairs(n + 1)
}

// Split moves the upper half of this branch's pairs into newBranch and
// returns the promoted separator key. mid = NumPairs()/2; pairs[mid:] are
// copied to newBranch starting at index 0 (so the promoted pair's child
// becomes newBranch's leftmost child), this branch keeps pairs[:mid], and
// pairs[mid].key is returned as the separator (it is promoted, retained
// on neither side).
func (b *Branch) Split(newBranch *Branch) Key {
	setType(newBranch.buf, NodeBranch)
	n := b.NumPairs()
	mid := n / 2

	for i := mid; i < n; i++ {
		k := b.PairKey(i)
		c := b.PairChild(i)
		newBranch.setPair(i-mid, k, c)
	}
	newBranch.setNumPairs(n - mid)
	promoted := b.PairKey(mid)
	b.setNumPairs(mid)
	return promoted
}
