package page

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ryogrid/go-fixed-bplustree/internal/diskstore"
)

func TestNewEmptyLeaf(t *testing.T) {
	l := NewEmptyLeaf(4, 4)
	if l.HasPrev || l.HasNext {
		t.Errorf("NewEmptyLeaf() has sibling links set, want none")
	}
	if len(l.Keys) != 0 || len(l.Values) != 0 {
		t.Errorf("NewEmptyLeaf() has %d keys, want 0", len(l.Keys))
	}
}

// TestLeaf_FillAndRoundTrip is scenario S1 from spec.md: key_size=4,
// value_size=4, fill to max_key_count, set prev/next, emit, parse,
// expect every field equal.
func TestLeaf_FillAndRoundTrip(t *testing.T) {
	const keySize, valueSize = 4, 4
	l := NewEmptyLeaf(keySize, valueSize)
	max := l.MaxKeys()

	for i := 0; i < max; i++ {
		key := make([]byte, keySize)
		binary.BigEndian.PutUint32(key, uint32(2*i))
		value := make([]byte, valueSize)
		binary.BigEndian.PutUint32(value, uint32(i))
		l.Keys = append(l.Keys, key)
		l.Values = append(l.Values, value)
	}
	l.HasPrev, l.Prev = true, 2
	l.HasNext, l.Next = true, 1

	block := l.Emit()
	if len(block) != Size {
		t.Fatalf("Emit() len = %d, want %d", len(block), Size)
	}
	if !IsLeaf(block) {
		t.Fatalf("Emit() flags bit0 not set")
	}

	got := ParseLeaf(block, keySize, valueSize)
	if got.HasPrev != l.HasPrev || got.Prev != l.Prev {
		t.Errorf("Parse prev = (%v,%d), want (%v,%d)", got.HasPrev, got.Prev, l.HasPrev, l.Prev)
	}
	if got.HasNext != l.HasNext || got.Next != l.Next {
		t.Errorf("Parse next = (%v,%d), want (%v,%d)", got.HasNext, got.Next, l.HasNext, l.Next)
	}
	if len(got.Keys) != max {
		t.Fatalf("Parse key count = %d, want %d", len(got.Keys), max)
	}
	for i := range l.Keys {
		if !bytes.Equal(got.Keys[i], l.Keys[i]) {
			t.Errorf("key[%d] = %x, want %x", i, got.Keys[i], l.Keys[i])
		}
		if !bytes.Equal(got.Values[i], l.Values[i]) {
			t.Errorf("value[%d] = %x, want %x", i, got.Values[i], l.Values[i])
		}
	}
}

// TestLeaf_RoundTripAtEveryFillLevel is spec.md §8 invariant 5: for
// every fill level in [0, max_key_count], parse(emit(view)) == view.
func TestLeaf_RoundTripAtEveryFillLevel(t *testing.T) {
	const keySize, valueSize = 3, 5
	max := MaxLeafKeys(keySize, valueSize)

	for n := 0; n <= max; n++ {
		l := NewEmptyLeaf(keySize, valueSize)
		for i := 0; i < n; i++ {
			l.Keys = append(l.Keys, bytes.Repeat([]byte{byte(i)}, keySize))
			l.Values = append(l.Values, bytes.Repeat([]byte{byte(i + 1)}, valueSize))
		}
		got := ParseLeaf(l.Emit(), keySize, valueSize)
		if len(got.Keys) != n {
			t.Fatalf("n=%d: got %d keys after round trip", n, len(got.Keys))
		}
		for i := 0; i < n; i++ {
			if !bytes.Equal(got.Keys[i], l.Keys[i]) || !bytes.Equal(got.Values[i], l.Values[i]) {
				t.Fatalf("n=%d: cell %d did not round trip", n, i)
			}
		}
	}
}

func TestLeaf_NoSiblingBitsWhenUnset(t *testing.T) {
	l := NewEmptyLeaf(4, 4)
	block := l.Emit()
	got := ParseLeaf(block, 4, 4)
	if got.HasPrev || got.HasNext {
		t.Errorf("ParseLeaf() of a page with no siblings reported HasPrev=%v HasNext=%v", got.HasPrev, got.HasNext)
	}
	if got.Prev != diskstore.PageID(0) && got.HasPrev {
		t.Errorf("unexpected prev value")
	}
}
