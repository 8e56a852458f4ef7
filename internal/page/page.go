// Package page implements the on-disk byte layout of the two B+tree
// node kinds (leaf and inner) described in spec.md §3/§6. It is a pure
// codec: parsing never allocates a fresh block, and emitting always
// produces a fresh zeroed block. All multi-byte integers are
// big-endian.
package page

import (
	"encoding/binary"

	"github.com/ryogrid/go-fixed-bplustree/internal/diskstore"
)

// Size is the fixed size of every page, equal to diskstore.PageSize.
const Size = diskstore.PageSize

const leafBit = 0b0000_0001

// IsLeaf reports the node kind encoded in a block's flags byte (bit 0).
func IsLeaf(block []byte) bool {
	return block[0]&leafBit == leafBit
}

func putPageID(dst []byte, id diskstore.PageID) {
	binary.BigEndian.PutUint32(dst, uint32(id))
}

func getPageID(src []byte) diskstore.PageID {
	return diskstore.PageID(binary.BigEndian.Uint32(src))
}
