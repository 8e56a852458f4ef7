package buffer

import (
	"fmt"

	"github.com/ryogrid/go-fixed-bplustree/internal/diskstore"
)

// Handle is a short-lived, mutable view onto one cached page. Per
// spec.md §5, a handle is valid only until the next manager call: the
// manager may hand the same frame to a different page on the very
// next Fetch/Create, so callers must not retain a handle across calls.
type Handle struct {
	b *buf
}

// PageID returns the ID of the page this handle refers to.
func (h *Handle) PageID() diskstore.PageID { return h.b.pageID }

// Block returns the handle's backing bytes. Mutate in place (or use
// SetBlock to replace it wholesale) and call MarkDirty so the change
// survives eviction.
func (h *Handle) Block() []byte { return h.b.block }

// SetBlock replaces the handle's backing bytes wholesale. The slice
// must be exactly diskstore.PageSize bytes.
func (h *Handle) SetBlock(block []byte) { h.b.block = block }

// MarkDirty flags the page as modified so the manager writes it back
// on eviction or flush.
func (h *Handle) MarkDirty() { h.b.isDirty = true }

// Manager maps page IDs onto Pool frames and writes dirty frames back
// to the disk store on eviction or explicit Flush.
type Manager struct {
	disk      *diskstore.DiskStore
	pool      *Pool
	pageTable map[diskstore.PageID]int

	reads  uint64
	writes uint64
}

// NewManager wires a disk store and a buffer pool together.
func NewManager(disk *diskstore.DiskStore, pool *Pool) *Manager {
	return &Manager{
		disk:      disk,
		pool:      pool,
		pageTable: make(map[diskstore.PageID]int, pool.Len()),
	}
}

// writeBack persists a dirty victim frame's contents before it is
// overwritten, and removes its old page-table entry.
func (m *Manager) writeBack(idx int) error {
	f := &m.pool.frames[idx]
	old := f.buf.pageID
	if f.buf.isDirty {
		if err := m.disk.WriteBlock(old, f.buf.block); err != nil {
			return fmt.Errorf("buffer: write back page %d: %w", old, err)
		}
		m.writes++
	}
	delete(m.pageTable, old)
	return nil
}

// Fetch returns a handle to the page with the given ID, loading it
// from disk (possibly evicting another page) if it is not already
// resident.
func (m *Manager) Fetch(id diskstore.PageID) (*Handle, error) {
	if idx, ok := m.pageTable[id]; ok {
		f := &m.pool.frames[idx]
		f.usageCount++
		return &Handle{b: &f.buf}, nil
	}

	idx := m.pool.evict()
	if err := m.writeBack(idx); err != nil {
		return nil, err
	}

	block, err := m.disk.ReadBlock(id)
	if err != nil {
		return nil, fmt.Errorf("buffer: fetch page %d: %w", id, err)
	}
	m.reads++

	f := &m.pool.frames[idx]
	f.buf = buf{pageID: id, block: block, isDirty: false}
	f.usageCount = 1
	m.pageTable[id] = idx

	return &Handle{b: &f.buf}, nil
}

// Create allocates a fresh page, installs a zeroed, dirty buffer for
// it in a frame (possibly evicting another page first), and returns a
// handle. The caller is expected to populate the block and call
// MarkDirty again if it replaces the block wholesale; newly created
// pages start dirty so they are persisted even if the caller writes
// nothing further.
func (m *Manager) Create() (*Handle, error) {
	idx := m.pool.evict()
	if err := m.writeBack(idx); err != nil {
		return nil, err
	}

	id := m.disk.Allocate()

	f := &m.pool.frames[idx]
	f.buf = buf{pageID: id, block: make([]byte, diskstore.PageSize), isDirty: true}
	f.usageCount = 1
	m.pageTable[id] = idx

	return &Handle{b: &f.buf}, nil
}

// Flush writes every dirty resident page back to disk and clears
// their dirty bits.
func (m *Manager) Flush() error {
	for id, idx := range m.pageTable {
		f := &m.pool.frames[idx]
		if f.buf.isDirty {
			if err := m.disk.WriteBlock(id, f.buf.block); err != nil {
				return fmt.Errorf("buffer: flush page %d: %w", id, err)
			}
			m.writes++
			f.buf.isDirty = false
		}
	}
	return nil
}

// Stats reports cache occupancy and lifetime disk I/O counts, in the
// spirit of the teacher's read/write counters.
type Stats struct {
	Resident int
	Reads    uint64
	Writes   uint64
}

// Stats returns a snapshot of the manager's current state.
func (m *Manager) Stats() Stats {
	return Stats{
		Resident: len(m.pageTable),
		Reads:    m.reads,
		Writes:   m.writes,
	}
}
