// Package buffer implements the fixed-size page cache that sits
// between the B+tree and the disk store: a BufferPool of frames with
// clock-sweep victim selection, and a BufferPoolManager that maps page
// IDs onto frames and writes dirty frames back on eviction.
package buffer

import "github.com/ryogrid/go-fixed-bplustree/internal/diskstore"

// frame pairs a usage count with a cached buffer. usage_count acts as
// a decaying reference-frequency counter: it is bumped on every fetch
// and decremented by one sweep pass of clock eviction.
type frame struct {
	usageCount uint32
	buf        buf
}

// buf is the contents of one cached page.
type buf struct {
	pageID  diskstore.PageID
	block   []byte
	isDirty bool
}

// Pool is a fixed-length array of frames plus a sweep cursor. It does
// not know about page IDs beyond what's already resident in its
// frames; page-ID lookup is BufferPoolManager's job.
type Pool struct {
	frames       []frame
	nextVictimID int
}

// NewPool creates a pool with the given number of frames. A capacity
// below 1 is treated as 1.
func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	frames := make([]frame, capacity)
	for i := range frames {
		frames[i].buf.pageID = diskstore.NoPageID
	}
	return &Pool{frames: frames}
}

// Len returns the number of frames in the pool.
func (p *Pool) Len() int {
	return len(p.frames)
}

// evict implements clock sweep with a single decrement step: it
// repeatedly examines the frame at nextVictimID, returning its index
// the moment usage_count is zero (without advancing the cursor, since
// the caller is about to overwrite that frame), otherwise decrementing
// usage_count and advancing modulo pool size. It assumes at least one
// frame is evictable (spec.md §4.3: no pinning beyond a single op).
func (p *Pool) evict() int {
	for {
		idx := p.nextVictimID
		f := &p.frames[idx]
		if f.usageCount == 0 {
			return idx
		}
		f.usageCount--
		p.nextVictimID = (p.nextVictimID + 1) % len(p.frames)
	}
}
