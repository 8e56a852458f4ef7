// Package bplustree implements the B+tree described in spec.md §4.5:
// search, insertion, split propagation, and root growth over pages
// managed by internal/buffer and laid out by internal/page.
package bplustree

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ryogrid/go-fixed-bplustree/internal/buffer"
	"github.com/ryogrid/go-fixed-bplustree/internal/diskstore"
	"github.com/ryogrid/go-fixed-bplustree/internal/page"
)

// ErrKeySize and ErrValueSize are precondition violations (spec.md §7:
// caller contract violations are rejected, not undefined behavior).
var (
	ErrKeySize   = errors.New("bplustree: key has the wrong size")
	ErrValueSize = errors.New("bplustree: value has the wrong size")
)

// BTree is an ordered index of fixed-width keys to fixed-width values,
// backed by a buffer.Manager.
type BTree struct {
	mgr       *buffer.Manager
	keySize   int
	valueSize int
	rootID    diskstore.PageID

	splits uint64
}

// New creates a fresh, empty tree: one empty leaf becomes the root.
func New(mgr *buffer.Manager, keySize, valueSize int) (*BTree, error) {
	h, err := mgr.Create()
	if err != nil {
		return nil, fmt.Errorf("bplustree: new: %w", err)
	}
	leaf := page.NewEmptyLeaf(keySize, valueSize)
	h.SetBlock(leaf.Emit())
	h.MarkDirty()

	return &BTree{mgr: mgr, keySize: keySize, valueSize: valueSize, rootID: h.PageID()}, nil
}

// Open reopens a tree whose root is already on disk at rootID. Tree
// identity is not persisted (spec.md §6): the caller must remember
// rootID, keySize, and valueSize out-of-band.
func Open(mgr *buffer.Manager, keySize, valueSize int, rootID diskstore.PageID) *BTree {
	return &BTree{mgr: mgr, keySize: keySize, valueSize: valueSize, rootID: rootID}
}

// RootID returns the current root page ID, for the caller to persist
// out-of-band and pass back into Open on the next process start.
func (t *BTree) RootID() diskstore.PageID {
	return t.rootID
}

func (t *BTree) checkKey(key []byte) error {
	if len(key) != t.keySize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrKeySize, len(key), t.keySize)
	}
	return nil
}

func (t *BTree) checkValue(value []byte) error {
	if len(value) != t.valueSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrValueSize, len(value), t.valueSize)
	}
	return nil
}

// bisectLeft is the idiomatic-Go equivalent of Python's
// bisect.bisect_left: the first index i with keys[i] >= key.
func bisectLeft(keys [][]byte, key []byte) int {
	return sort.Search(len(keys), func(i int) bool {
		return bytes.Compare(keys[i], key) >= 0
	})
}

// Contains reports whether key is present in the tree.
func (t *BTree) Contains(key []byte) (bool, error) {
	if err := t.checkKey(key); err != nil {
		return false, err
	}
	return t.search(key)
}

func (t *BTree) search(key []byte) (bool, error) {
	id := t.rootID
	for {
		h, err := t.mgr.Fetch(id)
		if err != nil {
			return false, fmt.Errorf("bplustree: search: %w", err)
		}
		block := h.Block()
		if page.IsLeaf(block) {
			leaf := page.ParseLeaf(block, t.keySize, t.valueSize)
			i := bisectLeft(leaf.Keys, key)
			return i < len(leaf.Keys) && bytes.Equal(leaf.Keys[i], key), nil
		}
		inner := page.ParseInner(block, t.keySize)
		i := bisectLeft(inner.Keys, key)
		id = inner.Children[i]
	}
}

// splitResult is what a node split propagates up to its parent: the
// new sibling's page ID and its promoted separator key (the last key
// of the new, lower-keyed sibling). innerSibling is set only when the
// split happened on an inner node; it lets Add's root-growth step
// replicate the original source's root-only key-popping quirk, see
// DESIGN.md.
type splitResult struct {
	id           diskstore.PageID
	splitKey     []byte
	innerSibling *page.Inner
}

// Add inserts key/value, returning false without modifying the tree
// if key is already present.
func (t *BTree) Add(key, value []byte) (bool, error) {
	if err := t.checkKey(key); err != nil {
		return false, err
	}
	if err := t.checkValue(value); err != nil {
		return false, err
	}

	exists, err := t.search(key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	split, err := t.addRec(t.rootID, key, value)
	if err != nil {
		return false, err
	}
	if split == nil {
		return true, nil
	}
	if err := t.growRoot(split); err != nil {
		return false, err
	}
	return true, nil
}

// growRoot builds a new inner root over the old root and the sibling
// produced by splitting it, per spec.md §4.5 step 4.
func (t *BTree) growRoot(split *splitResult) error {
	oldRootID := t.rootID

	newRootH, err := t.mgr.Create()
	if err != nil {
		return fmt.Errorf("bplustree: grow root: %w", err)
	}
	t.rootID = newRootH.PageID()

	newRoot := page.NewEmptyInner(t.keySize)
	newRoot.Keys = [][]byte{split.splitKey}
	newRoot.Children = []diskstore.PageID{split.id, oldRootID}

	if split.innerSibling != nil {
		// The sibling stops being a split-propagation artifact and
		// becomes a permanent child of the new root; drop its
		// redundant trailing key the same way the original source's
		// InnerPage.keys_pop (as opposed to LeafPage's non-destructive
		// peek) does at this exact point.
		sibling := split.innerSibling
		sibling.Keys = sibling.Keys[:len(sibling.Keys)-1]
		h, err := t.mgr.Fetch(split.id)
		if err != nil {
			return fmt.Errorf("bplustree: grow root: %w", err)
		}
		h.SetBlock(sibling.Emit())
		h.MarkDirty()
	}

	h, err := t.mgr.Fetch(t.rootID)
	if err != nil {
		return fmt.Errorf("bplustree: grow root: %w", err)
	}
	h.SetBlock(newRoot.Emit())
	h.MarkDirty()

	return nil
}

// addRec recursively descends to the insertion point, splices the new
// key/value or key/child in, and returns a splitResult if the node it
// touched had to split. The page holding id is re-fetched immediately
// before every write because any Fetch/Create call made since the
// last time id's handle was obtained, including ones made deeper in
// the recursion, may have evicted its frame for another page; see
// spec.md §4.6/§9 and DESIGN.md.
func (t *BTree) addRec(id diskstore.PageID, key, value []byte) (*splitResult, error) {
	h, err := t.mgr.Fetch(id)
	if err != nil {
		return nil, fmt.Errorf("bplustree: add: %w", err)
	}

	if page.IsLeaf(h.Block()) {
		leaf := page.ParseLeaf(h.Block(), t.keySize, t.valueSize)
		i := bisectLeft(leaf.Keys, key)
		leaf.Keys = insertBytesAt(leaf.Keys, i, key)
		leaf.Values = insertBytesAt(leaf.Values, i, value)

		h, err = t.mgr.Fetch(id)
		if err != nil {
			return nil, fmt.Errorf("bplustree: add: %w", err)
		}
		h.SetBlock(leaf.Emit())
		h.MarkDirty()

		return t.splitLeaf(leaf, id)
	}

	inner := page.ParseInner(h.Block(), t.keySize)
	i := bisectLeft(inner.Keys, key)
	childID := inner.Children[i]

	split, err := t.addRec(childID, key, value)
	if err != nil {
		return nil, err
	}
	if split != nil {
		inner.Keys = insertBytesAt(inner.Keys, i, split.splitKey)
		inner.Children = insertPageIDAt(inner.Children, i, split.id)
	}

	h, err = t.mgr.Fetch(id)
	if err != nil {
		return nil, fmt.Errorf("bplustree: add: %w", err)
	}
	h.SetBlock(inner.Emit())
	h.MarkDirty()

	return t.splitInner(inner, id)
}

// splitLeaf splits a full leaf, splicing the new sibling into the
// leaf chain to its left, per spec.md §4.5 "Leaf split".
func (t *BTree) splitLeaf(leaf *page.Leaf, id diskstore.PageID) (*splitResult, error) {
	max := leaf.MaxKeys()
	if len(leaf.Keys) != max {
		return nil, nil
	}
	half := max / 2

	newH, err := t.mgr.Create()
	if err != nil {
		return nil, fmt.Errorf("bplustree: split leaf: %w", err)
	}
	newID := newH.PageID()

	newLeaf := page.NewEmptyLeaf(t.keySize, t.valueSize)
	newLeaf.Keys = append([][]byte(nil), leaf.Keys[:half]...)
	newLeaf.Values = append([][]byte(nil), leaf.Values[:half]...)
	leaf.Keys = leaf.Keys[half:]
	leaf.Values = leaf.Values[half:]

	if leaf.HasPrev {
		prevH, err := t.mgr.Fetch(leaf.Prev)
		if err != nil {
			return nil, fmt.Errorf("bplustree: split leaf: %w", err)
		}
		prev := page.ParseLeaf(prevH.Block(), t.keySize, t.valueSize)
		prev.HasNext = true
		prev.Next = newID
		prevH.SetBlock(prev.Emit())
		prevH.MarkDirty()

		newLeaf.HasPrev = true
		newLeaf.Prev = leaf.Prev
	}
	newLeaf.HasNext = true
	newLeaf.Next = id

	leaf.HasPrev = true
	leaf.Prev = newID

	// Re-fetch id and newID: the Fetch(leaf.Prev) call above (if taken)
	// may have evicted either frame.
	h, err := t.mgr.Fetch(id)
	if err != nil {
		return nil, fmt.Errorf("bplustree: split leaf: %w", err)
	}
	h.SetBlock(leaf.Emit())
	h.MarkDirty()

	newH, err = t.mgr.Fetch(newID)
	if err != nil {
		return nil, fmt.Errorf("bplustree: split leaf: %w", err)
	}
	newH.SetBlock(newLeaf.Emit())
	newH.MarkDirty()

	t.splits++
	splitKey := newLeaf.Keys[len(newLeaf.Keys)-1]
	return &splitResult{id: newID, splitKey: splitKey}, nil
}

// splitInner splits a full inner node, per spec.md §4.5 "Inner split".
func (t *BTree) splitInner(inner *page.Inner, id diskstore.PageID) (*splitResult, error) {
	max := inner.MaxKeys()
	if len(inner.Keys) != max {
		return nil, nil
	}
	half := max / 2

	newH, err := t.mgr.Create()
	if err != nil {
		return nil, fmt.Errorf("bplustree: split inner: %w", err)
	}
	newID := newH.PageID()

	newInner := page.NewEmptyInner(t.keySize)
	newInner.Keys = append([][]byte(nil), inner.Keys[:half]...)
	newInner.Children = append([]diskstore.PageID(nil), inner.Children[:half]...)
	inner.Keys = inner.Keys[half:]
	inner.Children = inner.Children[half:]

	h, err := t.mgr.Fetch(id)
	if err != nil {
		return nil, fmt.Errorf("bplustree: split inner: %w", err)
	}
	h.SetBlock(inner.Emit())
	h.MarkDirty()

	newH, err = t.mgr.Fetch(newID)
	if err != nil {
		return nil, fmt.Errorf("bplustree: split inner: %w", err)
	}
	newH.SetBlock(newInner.Emit())
	newH.MarkDirty()

	t.splits++
	splitKey := newInner.Keys[len(newInner.Keys)-1]
	return &splitResult{id: newID, splitKey: splitKey, innerSibling: newInner}, nil
}

func insertBytesAt(s [][]byte, i int, v []byte) [][]byte {
	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertPageIDAt(s []diskstore.PageID, i int, v diskstore.PageID) []diskstore.PageID {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// Stats reports lifetime counters in the spirit of the teacher's
// BLTree reads/writes fields.
type Stats struct {
	buffer.Stats
	Splits uint64
}

// Stats returns a snapshot of this tree's activity and its manager's.
func (t *BTree) Stats() Stats {
	return Stats{Stats: t.mgr.Stats(), Splits: t.splits}
}
