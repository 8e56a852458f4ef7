package page

import "github.com/ryogrid/go-fixed-bplustree/internal/diskstore"

// Leaf header layout (13 bytes):
//
//	0   1  flags: bit0=1 (leaf), bit1=has-prev, bit2=has-next
//	1   4  prev PageID (big-endian), valid iff bit1 set
//	5   4  next PageID (big-endian), valid iff bit2 set
//	9   4  key_count (big-endian)
//	13  ... key_count cells of key||value, ascending
const (
	leafPrevBit = 0b0000_0010
	leafNextBit = 0b0000_0100

	leafPrevOffset     = 1
	leafNextOffset     = 5
	leafKeyCountOffset = 9
	leafCellBegin      = 13
)

// MaxLeafKeys returns the maximum number of key/value cells a leaf of
// the given widths can hold.
func MaxLeafKeys(keySize, valueSize int) int {
	return (Size - leafCellBegin) / (keySize + valueSize)
}

// Leaf is the in-memory, mutable view of a leaf node's contents.
type Leaf struct {
	KeySize   int
	ValueSize int

	HasPrev bool
	Prev    diskstore.PageID
	HasNext bool
	Next    diskstore.PageID

	Keys   [][]byte
	Values [][]byte
}

// NewEmptyLeaf returns a leaf view with no keys and no sibling links.
func NewEmptyLeaf(keySize, valueSize int) *Leaf {
	return &Leaf{KeySize: keySize, ValueSize: valueSize}
}

// MaxKeys returns this leaf's capacity given its configured widths.
func (l *Leaf) MaxKeys() int {
	return MaxLeafKeys(l.KeySize, l.ValueSize)
}

// ParseLeaf decodes a leaf view from a raw PageSize-byte block.
// Trailing bytes beyond key_count cells are ignored.
func ParseLeaf(block []byte, keySize, valueSize int) *Leaf {
	l := &Leaf{KeySize: keySize, ValueSize: valueSize}

	flags := block[0]
	if flags&leafPrevBit != 0 {
		l.HasPrev = true
		l.Prev = getPageID(block[leafPrevOffset : leafPrevOffset+4])
	}
	if flags&leafNextBit != 0 {
		l.HasNext = true
		l.Next = getPageID(block[leafNextOffset : leafNextOffset+4])
	}

	count := int(getPageID(block[leafKeyCountOffset : leafKeyCountOffset+4]))
	cellSize := keySize + valueSize
	begin := leafCellBegin
	l.Keys = make([][]byte, 0, count)
	l.Values = make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		key := make([]byte, keySize)
		copy(key, block[begin:begin+keySize])
		value := make([]byte, valueSize)
		copy(value, block[begin+keySize:begin+cellSize])
		l.Keys = append(l.Keys, key)
		l.Values = append(l.Values, value)
		begin += cellSize
	}
	return l
}

// Emit serializes the view into a fresh, zeroed PageSize-byte block.
// The flags byte is written last, ORing in the bits implied by the
// set fields, per spec.md §4.2.
func (l *Leaf) Emit() []byte {
	block := make([]byte, Size)

	if l.HasPrev {
		putPageID(block[leafPrevOffset:leafPrevOffset+4], l.Prev)
	}
	if l.HasNext {
		putPageID(block[leafNextOffset:leafNextOffset+4], l.Next)
	}
	putPageID(block[leafKeyCountOffset:leafKeyCountOffset+4], diskstore.PageID(len(l.Keys)))

	cellSize := l.KeySize + l.ValueSize
	begin := leafCellBegin
	for i, key := range l.Keys {
		copy(block[begin:begin+l.KeySize], key)
		copy(block[begin+l.KeySize:begin+cellSize], l.Values[i])
		begin += cellSize
	}

	flags := byte(leafBit)
	if l.HasPrev {
		flags |= leafPrevBit
	}
	if l.HasNext {
		flags |= leafNextBit
	}
	block[0] = flags

	return block
}
