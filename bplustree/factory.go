package bplustree

import (
	"fmt"

	"github.com/ryogrid/go-fixed-bplustree/internal/buffer"
	"github.com/ryogrid/go-fixed-bplustree/internal/diskstore"
)

// OpenManager is the external-collaborator factory from spec.md §4.6:
// it opens (creating if absent) a heap file at path and wires a
// fixed-capacity buffer pool manager around it. Callers combine the
// result with New or Open to get a tree.
func OpenManager(path string, poolCapacity int) (*buffer.Manager, error) {
	ds, err := diskstore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bplustree: open manager: %w", err)
	}
	return buffer.NewManager(ds, buffer.NewPool(poolCapacity)), nil
}

// OpenManagerDirect is OpenManager using O_DIRECT I/O, bypassing the
// kernel page cache since the buffer pool already does that job.
func OpenManagerDirect(path string, poolCapacity int) (*buffer.Manager, error) {
	ds, err := diskstore.OpenDirect(path)
	if err != nil {
		return nil, fmt.Errorf("bplustree: open manager: %w", err)
	}
	return buffer.NewManager(ds, buffer.NewPool(poolCapacity)), nil
}
