package buffer

import "testing"

func TestPool_EvictPrefersZeroUsageFrame(t *testing.T) {
	p := NewPool(3)
	p.frames[0].usageCount = 2
	p.frames[1].usageCount = 0
	p.frames[2].usageCount = 1

	if got := p.evict(); got != 1 {
		t.Errorf("evict() = %d, want 1", got)
	}
}

func TestPool_EvictDoesNotAdvanceCursorOnHit(t *testing.T) {
	p := NewPool(2)
	p.frames[0].usageCount = 0

	if got := p.evict(); got != 0 {
		t.Fatalf("evict() = %d, want 0", got)
	}
	if p.nextVictimID != 0 {
		t.Errorf("nextVictimID = %d after an immediate hit, want unchanged 0", p.nextVictimID)
	}
}

func TestPool_EvictSweepsAndDecrements(t *testing.T) {
	p := NewPool(3)
	p.frames[0].usageCount = 1
	p.frames[1].usageCount = 1
	p.frames[2].usageCount = 0

	if got := p.evict(); got != 2 {
		t.Fatalf("evict() = %d, want 2", got)
	}
	if p.frames[0].usageCount != 0 {
		t.Errorf("frame 0 usageCount = %d, want 0 after one sweep pass", p.frames[0].usageCount)
	}
	if p.frames[1].usageCount != 0 {
		t.Errorf("frame 1 usageCount = %d, want 0 after one sweep pass", p.frames[1].usageCount)
	}
}

func TestPool_EvictWrapsAroundModuloPoolSize(t *testing.T) {
	p := NewPool(2)
	p.nextVictimID = 1
	p.frames[1].usageCount = 1
	p.frames[0].usageCount = 0

	if got := p.evict(); got != 0 {
		t.Fatalf("evict() = %d, want 0 after wrapping past the end", got)
	}
}

func TestNewPool_MinimumCapacityOne(t *testing.T) {
	p := NewPool(0)
	if p.Len() != 1 {
		t.Errorf("NewPool(0).Len() = %d, want 1", p.Len())
	}
}
