package memory

import (
	"sync"

	mvsruntime "github.com/mvslang/mvs-runtime"
	"github.com/mvslang/mvs-runtime/errors"
)

// ArenaBase is the first address an arena hands out by default. Address
// 0 is the runtime's null sentinel and must never be allocated.
const ArenaBase = 8

// arenaGrain is the internal allocation granularity. Every block is
// grain-aligned so array headers can hold an atomically accessed u64.
const arenaGrain = 8

// Stats describes an arena's allocation activity.
type Stats struct {
	Allocs     uint64
	Frees      uint64
	LiveBlocks uint64
	LiveBytes  uint64
	HeapEnd    uint32
}

type freeBlock struct {
	ptr  uint32
	size uint32
}

// Arena is a first-fit free-list allocator over a linear memory. Block
// bookkeeping is host-side only; freed blocks are reused but not
// coalesced, which is sufficient for the runtime's fixed-size header
// and payload blocks.
type Arena struct {
	mem  mvsruntime.Memory
	free []freeBlock
	mu   sync.Mutex

	base  uint32
	brk   uint32
	stats Stats
}

// NewArena creates an arena allocating from ArenaBase upward.
func NewArena(mem mvsruntime.Memory) *Arena {
	return NewArenaAt(mem, ArenaBase)
}

// NewArenaAt creates an arena whose heap starts at base. Engines pass
// the guest's __heap_base so the arena does not clobber static data.
func NewArenaAt(mem mvsruntime.Memory, base uint32) *Arena {
	aligned := alignUp(base, arenaGrain)
	if aligned == 0 {
		aligned = arenaGrain
	}
	return &Arena{
		mem:  mem,
		base: aligned,
		brk:  aligned,
	}
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

// Alloc hands out a block of at least size bytes. The returned address
// is aligned to max(align, 8).
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		size = arenaGrain
	}
	need := alignUp(size, arenaGrain)
	if align < arenaGrain {
		align = arenaGrain
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Reuse a freed block when one fits. Blocks are grain-aligned, so
	// any block satisfies align <= 8; larger alignments fall through to
	// the bump path.
	if align == arenaGrain {
		for i, b := range a.free {
			if b.size >= need {
				a.free[i] = a.free[len(a.free)-1]
				a.free = a.free[:len(a.free)-1]
				if rest := b.size - need; rest >= arenaGrain {
					a.free = append(a.free, freeBlock{ptr: b.ptr + need, size: rest})
				}
				a.stats.Allocs++
				a.stats.LiveBlocks++
				a.stats.LiveBytes += uint64(need)
				return b.ptr, nil
			}
		}
	}

	ptr := alignUp(a.brk, align)
	end := uint64(ptr) + uint64(need)

	if err := a.ensure(end); err != nil {
		return 0, err
	}

	a.brk = uint32(end)
	a.stats.Allocs++
	a.stats.LiveBlocks++
	a.stats.LiveBytes += uint64(need)
	return ptr, nil
}

// ensure grows the backing memory until it covers end bytes.
func (a *Arena) ensure(end uint64) error {
	var have uint64
	if sizer, ok := a.mem.(mvsruntime.MemorySizer); ok {
		have = uint64(sizer.Size())
	}
	if end <= have {
		return nil
	}

	grower, ok := a.mem.(mvsruntime.MemoryGrower)
	if !ok {
		return errors.New(errors.PhaseAlloc, errors.KindOutOfBounds).
			Detail("heap end %d exceeds memory of %d bytes and memory cannot grow", end, have).
			Build()
	}

	needPages := uint32((end - have + PageSize - 1) / PageSize)
	if _, grown := grower.Grow(needPages); !grown {
		return errors.New(errors.PhaseAlloc, errors.KindOutOfBounds).
			Detail("memory refused to grow by %d pages", needPages).
			Build()
	}
	return nil
}

// Free returns a block to the arena. The size must match the size
// passed to Alloc; the runtime always knows it from the witness.
func (a *Arena) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	if size == 0 {
		size = arenaGrain
	}
	need := alignUp(size, arenaGrain)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Frees++
	a.stats.LiveBlocks--
	a.stats.LiveBytes -= uint64(need)

	// Blocks at the end of the heap shrink the bump pointer instead of
	// landing on the free list.
	if ptr+need == a.brk {
		a.brk = ptr
		return
	}
	a.free = append(a.free, freeBlock{ptr: ptr, size: need})
}

// Stats returns a snapshot of the arena's counters.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.HeapEnd = a.brk
	return s
}

// FreeBlocks returns the number of blocks currently on the free list.
func (a *Arena) FreeBlocks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}

var _ mvsruntime.Allocator = (*Arena)(nil)
