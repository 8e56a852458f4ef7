// Package diskstore provides the bottom layer of the index: a flat
// heap file addressed by fixed-size blocks. It knows nothing about
// B+trees, keys, or page formats; it only allocates, reads, and
// writes PAGE_SIZE-byte blocks.
package diskstore

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ncw/directio"
)

// PageSize is the fixed size of every block in the heap file.
const PageSize = 4096

// PageID identifies a block offset in the heap file. IDs are handed
// out monotonically by Allocate and are never reused.
type PageID uint32

// NoPageID is the reserved sentinel meaning "unassigned". It is never
// returned by Allocate: reaching it would require a heap file of
// roughly 2^32 * PageSize bytes.
const NoPageID PageID = math.MaxUint32

// file is the minimal surface DiskStore needs from its backing file.
// os.File and github.com/dsnet/golib/memfile.File both satisfy it,
// which lets tests swap a real heap file for an in-memory one.
type file interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// DiskStore allocates and reads/writes fixed-size blocks against a
// single heap file. It does not cache anything; that is BufferPool's
// job.
type DiskStore struct {
	f          file
	nextPageID PageID
	// Truncated reports whether the file size given at open time ended
	// in a trailing partial block (not a multiple of PageSize). That
	// block is ignored when computing the next PageID; the file itself
	// is not modified. See DESIGN.md, Open Question 4.
	Truncated bool
	// direct is set when f was opened with directio.OpenFile: reads and
	// writes must then go through directio.AlignedBlock-backed buffers,
	// since O_DIRECT rejects unaligned ones with EINVAL.
	direct bool
}

// Open opens (creating if absent) a heap file at path for buffered
// I/O via the OS page cache.
func Open(path string) (*DiskStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("diskstore: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("diskstore: stat %s: %w", path, err)
	}
	return newStore(f, info.Size(), false)
}

// OpenDirect opens (creating if absent) a heap file at path for
// unbuffered O_DIRECT I/O, bypassing the OS page cache. Block reads
// and writes go through directio.AlignedBlock-backed buffers internally
// so callers never need to worry about alignment themselves.
func OpenDirect(path string) (*DiskStore, error) {
	f, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("diskstore: open direct %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("diskstore: stat %s: %w", path, err)
	}
	return newStore(f, info.Size(), true)
}

// FromFile wraps an already-open file as a DiskStore, sized according
// to currentSize. Used by tests to back a DiskStore with an in-memory
// file (github.com/dsnet/golib/memfile) instead of a real one.
func FromFile(f file, currentSize int64) (*DiskStore, error) {
	return newStore(f, currentSize, false)
}

func newStore(f file, size int64, direct bool) (*DiskStore, error) {
	whole := size - size%PageSize
	ds := &DiskStore{
		f:          f,
		nextPageID: PageID(whole / PageSize),
		Truncated:  whole != size,
		direct:     direct,
	}
	return ds, nil
}

// Close closes the underlying heap file.
func (d *DiskStore) Close() error {
	return d.f.Close()
}

// Allocate returns the next PageID and advances the counter. It does
// not touch the file; the caller is expected to eventually write the
// block through WriteBlock (directly or via the buffer pool).
func (d *DiskStore) Allocate() PageID {
	id := d.nextPageID
	d.nextPageID++
	return id
}

// WriteBlock writes exactly PageSize bytes at the block addressed by
// id. Writing past the current end of file extends it with
// zero-filled holes as needed.
func (d *DiskStore) WriteBlock(id PageID, block []byte) error {
	if len(block) != PageSize {
		return fmt.Errorf("diskstore: write block %d: block must be exactly %d bytes, got %d", id, PageSize, len(block))
	}
	out := block
	if d.direct {
		// block came from the page codec via a plain make([]byte, ...)
		// and is not guaranteed page-aligned; O_DIRECT rejects an
		// unaligned buffer with EINVAL, so copy it into an aligned one.
		out = directio.AlignedBlock(PageSize)
		copy(out, block)
	}
	offset := int64(id) * PageSize
	if _, err := d.f.WriteAt(out, offset); err != nil {
		return fmt.Errorf("diskstore: write block %d: %w", id, err)
	}
	return nil
}

// ReadBlock reads exactly PageSize bytes from the block addressed by
// id. Reading a block that was allocated but never written returns
// all-zero bytes.
func (d *DiskStore) ReadBlock(id PageID) ([]byte, error) {
	var block []byte
	if d.direct {
		block = directio.AlignedBlock(PageSize)
	} else {
		block = make([]byte, PageSize)
	}
	offset := int64(id) * PageSize
	n, err := d.f.ReadAt(block, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("diskstore: read block %d: %w", id, err)
	}
	// A short read past the logical end of a sparse file is not an
	// error: the rest of the block is implicitly zero.
	for i := n; i < PageSize; i++ {
		block[i] = 0
	}
	return block, nil
}
