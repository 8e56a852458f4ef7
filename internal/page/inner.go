package page

import "github.com/ryogrid/go-fixed-bplustree/internal/diskstore"

// Inner header layout (5 bytes):
//
//	0   1  flags: bit0=0 (inner)
//	1   4  key_count (big-endian)
//	5  ... child[0] (4 bytes), then for i=1..key_count:
//	        (key[i-1] key_size bytes, child[i] PageID 4 bytes) cells
//
// child[i] lives at offset CELL_BEGIN + i*(4+key_size);
// key[i] lives at offset CELL_BEGIN + 4 + i*(4+key_size).
// An inner node with key_count keys holds key_count+1 children.
const (
	innerKeyCountOffset = 1
	innerCellBegin      = 5
	innerChildSize      = 4
)

// MaxInnerKeys returns the maximum number of keys an inner node with
// the given key width can hold.
func MaxInnerKeys(keySize int) int {
	return (Size - innerCellBegin - innerChildSize) / (innerChildSize + keySize)
}

// Inner is the in-memory, mutable view of an inner node's contents.
// len(Children) == len(Keys)+1 is an invariant maintained by callers
// (spec.md §3 invariant 4); this package does not enforce it, it only
// parses and emits whatever shape it is given.
type Inner struct {
	KeySize int

	Keys     [][]byte
	Children []diskstore.PageID
}

// NewEmptyInner returns an inner view with no keys and no children.
func NewEmptyInner(keySize int) *Inner {
	return &Inner{KeySize: keySize}
}

// MaxKeys returns this node's capacity given its configured key width.
func (n *Inner) MaxKeys() int {
	return MaxInnerKeys(n.KeySize)
}

func innerCellStride(keySize int) int {
	return innerChildSize + keySize
}

// ParseInner decodes an inner view from a raw PageSize-byte block.
func ParseInner(block []byte, keySize int) *Inner {
	n := &Inner{KeySize: keySize}

	count := int(getPageID(block[innerKeyCountOffset : innerKeyCountOffset+4]))
	stride := innerCellStride(keySize)

	n.Children = make([]diskstore.PageID, 0, count+1)
	n.Keys = make([][]byte, 0, count)
	for i := 0; i <= count; i++ {
		childOff := innerCellBegin + i*stride
		n.Children = append(n.Children, getPageID(block[childOff:childOff+innerChildSize]))
		if i < count {
			keyOff := childOff + innerChildSize
			key := make([]byte, keySize)
			copy(key, block[keyOff:keyOff+keySize])
			n.Keys = append(n.Keys, key)
		}
	}
	return n
}

// Emit serializes the view into a fresh, zeroed PageSize-byte block.
func (n *Inner) Emit() []byte {
	block := make([]byte, Size)

	putPageID(block[innerKeyCountOffset:innerKeyCountOffset+4], diskstore.PageID(len(n.Keys)))

	stride := innerCellStride(n.KeySize)
	for i, child := range n.Children {
		childOff := innerCellBegin + i*stride
		putPageID(block[childOff:childOff+innerChildSize], child)
		if i < len(n.Keys) {
			keyOff := childOff + innerChildSize
			copy(block[keyOff:keyOff+n.KeySize], n.Keys[i])
		}
	}

	// bit0=0 marks an inner node; nothing else to OR in.
	block[0] = 0

	return block
}
