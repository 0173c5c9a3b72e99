package exist

import (
	mvsruntime "github.com/mvslang/mvs-runtime"
	"github.com/mvslang/mvs-runtime/errors"
	"github.com/mvslang/mvs-runtime/memory"
	"github.com/mvslang/mvs-runtime/witness"
)

const (
	// InlineSize is the capacity of the container's inline storage.
	// Payloads at or below this size are stored in place.
	InlineSize = 24

	// ContainerSize is the byte size of an existential container value.
	ContainerSize = 32

	offWitness = 24
)

// Ops implements the existential container operations over one linear
// memory, allocator, and witness table. An Ops value is immutable and
// safe for concurrent use.
type Ops struct {
	mem       mvsruntime.Memory
	heap      mvsruntime.Allocator
	witnesses *witness.Table
}

// New creates the container operations for a memory/allocator pair.
func New(mem mvsruntime.Memory, heap mvsruntime.Allocator, witnesses *witness.Table) *Ops {
	return &Ops{mem: mem, heap: heap, witnesses: witnesses}
}

// Witnesses returns the witness table the operations resolve ids against.
func (o *Ops) Witnesses() *witness.Table { return o.witnesses }

func (o *Ops) resolve(c uint32) (witness.ID, *witness.Witness, error) {
	raw, err := o.mem.ReadU32(c + offWitness)
	if err != nil {
		return 0, nil, err
	}
	id := witness.ID(raw)
	if id == 0 {
		return 0, nil, nil
	}
	w, ok := o.witnesses.Lookup(id)
	if !ok {
		return id, nil, errors.InvalidHandle(errors.PhaseExist, raw)
	}
	return id, w, nil
}

// storage resolves the address of the stored instance, branching on the
// witness's size to pick the inline or out-of-line representation.
func (o *Ops) storage(c uint32, w *witness.Witness) (uint32, error) {
	if w.Size <= InlineSize {
		return c, nil
	}
	return o.mem.ReadU32(c)
}

// Set prepares an empty container at c for a value of the witnessed
// type: it records the witness id and, for an out-of-line payload,
// allocates the owned block. It returns the address the instance must
// be written to. Allocation failure is fatal.
func (o *Ops) Set(c uint32, id witness.ID) (uint32, error) {
	w, ok := o.witnesses.Lookup(id)
	if !ok {
		return 0, errors.InvalidHandle(errors.PhaseExist, uint32(id))
	}
	if err := o.mem.WriteU32(c+offWitness, uint32(id)); err != nil {
		return 0, err
	}
	if w.Size <= InlineSize {
		return c, nil
	}
	block := memory.MustAlloc(o.heap, w.Size, w.Align)
	if err := o.mem.WriteU32(c, block); err != nil {
		return 0, err
	}
	return block, nil
}

// Storage returns the address of the stored instance and its witness.
func (o *Ops) Storage(c uint32) (uint32, *witness.Witness, error) {
	_, w, err := o.resolve(c)
	if err != nil || w == nil {
		return 0, nil, err
	}
	addr, err := o.storage(c, w)
	return addr, w, err
}

// Drop destroys the stored instance, frees its out-of-line block if
// any, and clears the container. Dropping a cleared container is a
// no-op.
func (o *Ops) Drop(c uint32) error {
	debugf("exist_drop(%#x)", c)

	_, w, err := o.resolve(c)
	if err != nil {
		return err
	}
	if w != nil {
		if w.Size <= InlineSize {
			if err := w.DropValue(o.mem, c); err != nil {
				return err
			}
		} else {
			block, err := o.mem.ReadU32(c)
			if err != nil {
				return err
			}
			if err := w.DropValue(o.mem, block); err != nil {
				return err
			}
			debugf("  dealloc %#x", block)
			o.heap.Free(block, w.Size, w.Align)
		}
	}

	return witness.ZeroFill(o.mem, c, ContainerSize)
}

// Copy makes dst an independent duplicate of the container at src,
// allocating a fresh out-of-line block first when the payload does not
// fit inline. Allocation failure is fatal.
func (o *Ops) Copy(dst, src uint32) error {
	debugf("exist_copy(%#x, %#x)", dst, src)

	id, w, err := o.resolve(src)
	if err != nil {
		return err
	}
	if w == nil {
		return witness.ZeroFill(o.mem, dst, ContainerSize)
	}

	if err := o.mem.WriteU32(dst+offWitness, uint32(id)); err != nil {
		return err
	}

	srcStorage, err := o.storage(src, w)
	if err != nil {
		return err
	}

	var dstStorage uint32
	if w.Size <= InlineSize {
		dstStorage = dst
	} else {
		dstStorage = memory.MustAlloc(o.heap, w.Size, w.Align)
		if err := o.mem.WriteU32(dst, dstStorage); err != nil {
			return err
		}
		debugf("  alloc %d bytes at %#x", w.Size, dstStorage)
	}

	return w.CopyValue(o.mem, dstStorage, srcStorage)
}

// Equal reports whether two containers hold equal instances of the same
// dynamic type. Containers with different witnesses are never equal.
func (o *Ops) Equal(lhs, rhs uint32) (bool, error) {
	lid, lw, err := o.resolve(lhs)
	if err != nil {
		return false, err
	}
	rid, _, err := o.resolve(rhs)
	if err != nil {
		return false, err
	}

	if lid != rid {
		return false, nil
	}
	if lw == nil {
		// Both cleared.
		return true, nil
	}

	a, err := o.storage(lhs, lw)
	if err != nil {
		return false, err
	}
	b, err := o.storage(rhs, lw)
	if err != nil {
		return false, err
	}
	return lw.EqualValues(o.mem, a, b)
}
