package memory

import (
	"testing"
)

func TestArenaAllocAligned(t *testing.T) {
	a := NewArena(NewHostMemory(1))

	ptr, err := a.Alloc(24, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if ptr == 0 {
		t.Fatal("alloc returned null sentinel")
	}
	if ptr%8 != 0 {
		t.Errorf("block not 8-aligned: %d", ptr)
	}

	other, err := a.Alloc(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if other < ptr+24 {
		t.Errorf("blocks overlap: %d after %d+24", other, ptr)
	}
}

func TestArenaReuseFreedBlock(t *testing.T) {
	a := NewArena(NewHostMemory(1))

	first, _ := a.Alloc(32, 8)
	barrier, _ := a.Alloc(32, 8) // keeps first off the heap tail
	a.Free(first, 32, 8)

	again, err := a.Alloc(32, 8)
	if err != nil {
		t.Fatal(err)
	}
	if again != first {
		t.Errorf("freed block not reused: got %d, want %d", again, first)
	}
	_ = barrier
}

func TestArenaTailFreeShrinksHeap(t *testing.T) {
	a := NewArena(NewHostMemory(1))

	ptr, _ := a.Alloc(64, 8)
	end := a.Stats().HeapEnd
	a.Free(ptr, 64, 8)

	if a.Stats().HeapEnd >= end {
		t.Errorf("heap end did not shrink: %d -> %d", end, a.Stats().HeapEnd)
	}
	if a.FreeBlocks() != 0 {
		t.Errorf("tail free should not populate the free list, got %d blocks", a.FreeBlocks())
	}
}

func TestArenaSplitsLargeBlock(t *testing.T) {
	a := NewArena(NewHostMemory(1))

	big, _ := a.Alloc(64, 8)
	barrier, _ := a.Alloc(8, 8)
	a.Free(big, 64, 8)

	small, err := a.Alloc(16, 8)
	if err != nil {
		t.Fatal(err)
	}
	if small != big {
		t.Errorf("first fit should reuse the freed block: got %d, want %d", small, big)
	}
	if a.FreeBlocks() != 1 {
		t.Errorf("remainder should stay on the free list, got %d blocks", a.FreeBlocks())
	}
	_ = barrier
}

func TestArenaStats(t *testing.T) {
	a := NewArena(NewHostMemory(1))

	p1, _ := a.Alloc(16, 8)
	p2, _ := a.Alloc(16, 8)
	a.Free(p1, 16, 8)

	s := a.Stats()
	if s.Allocs != 2 || s.Frees != 1 {
		t.Errorf("allocs/frees: got %d/%d, want 2/1", s.Allocs, s.Frees)
	}
	if s.LiveBlocks != 1 || s.LiveBytes != 16 {
		t.Errorf("live: got %d blocks / %d bytes, want 1/16", s.LiveBlocks, s.LiveBytes)
	}
	_ = p2
}

func TestArenaGrowsMemoryOnDemand(t *testing.T) {
	mem := NewHostMemoryWithLimit(1, 4)
	a := NewArena(mem)

	// Larger than the initial page: the arena must grow the memory.
	ptr, err := a.Alloc(3*PageSize/2, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if ptr == 0 {
		t.Fatal("null block")
	}
	if mem.Size() < 2*PageSize {
		t.Errorf("memory did not grow: %d bytes", mem.Size())
	}
}

func TestArenaExhaustion(t *testing.T) {
	a := NewArena(NewHostMemoryWithLimit(1, 1))

	if _, err := a.Alloc(2*PageSize, 8); err == nil {
		t.Fatal("expected allocation failure on capped memory")
	}
}

func TestArenaRespectsBase(t *testing.T) {
	a := NewArenaAt(NewHostMemory(1), 1024)

	ptr, err := a.Alloc(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if ptr < 1024 {
		t.Errorf("block below base: %d", ptr)
	}
}

func TestMustAllocFatalOnFailure(t *testing.T) {
	a := NewArena(NewHostMemoryWithLimit(1, 1))

	SetFatalHandler(func(format string, args ...any) {
		panic("fatal")
	})
	defer SetFatalHandler(func(format string, args ...any) {
		panic("unexpected fatal")
	})

	defer func() {
		if recover() == nil {
			t.Error("expected fatal handler to fire")
		}
	}()
	MustAlloc(a, 2*PageSize, 8)
}
