package array

import (
	"math"

	mvsruntime "github.com/mvslang/mvs-runtime"
	"github.com/mvslang/mvs-runtime/memory"
	"github.com/mvslang/mvs-runtime/witness"
)

const (
	// HeaderSize is the byte size of the storage header preceding the
	// payload: {refc u64, count u64, capacity u64}.
	HeaderSize = 24

	// HandleSize is the byte size of an array value in generated code:
	// one pointer to the payload base.
	HandleSize = 4

	offRefc     = 0
	offCount    = 8
	offCapacity = 16

	// maxCapacity bounds the payload so HeaderSize+capacity stays
	// addressable in 32-bit linear memory.
	maxCapacity = math.MaxUint32 - HeaderSize
)

// Ops implements the shared array operations over one linear memory and
// allocator pair. An Ops value is immutable and safe for concurrent use.
type Ops struct {
	mem    mvsruntime.Memory
	heap   mvsruntime.Allocator
	atomic mvsruntime.AtomicMemory // nil when the memory has no atomic access
}

// New creates the array operations for a memory/allocator pair.
func New(mem mvsruntime.Memory, heap mvsruntime.Allocator) *Ops {
	o := &Ops{mem: mem, heap: heap}
	if am, ok := mem.(mvsruntime.AtomicMemory); ok {
		o.atomic = am
	}
	return o
}

// Memory returns the linear memory the operations run against.
func (o *Ops) Memory() mvsruntime.Memory { return o.mem }

// refcAdd adds delta to the reference count of the header at base and
// returns the value observed before the addition.
func (o *Ops) refcAdd(header uint32, delta uint64) (uint64, error) {
	if o.atomic != nil {
		return o.atomic.AddU64(header+offRefc, delta)
	}
	old, err := o.mem.ReadU64(header + offRefc)
	if err != nil {
		return 0, err
	}
	return old, o.mem.WriteU64(header+offRefc, old+delta)
}

func (o *Ops) refcLoad(header uint32) (uint64, error) {
	if o.atomic != nil {
		return o.atomic.LoadU64(header + offRefc)
	}
	return o.mem.ReadU64(header + offRefc)
}

// payload reads the handle slot at arr. Zero means the empty sentinel.
func (o *Ops) payload(arr uint32) (uint32, error) {
	return o.mem.ReadU32(arr)
}

// Init allocates and initializes storage for count elements of stride
// bytes each, leaving the handle slot at arr pointing at the payload.
// The stride must equal w.Size. A count of zero or less produces the
// no-allocation empty sentinel. Allocation failure is fatal.
func (o *Ops) Init(arr uint32, w *witness.Witness, count int64, stride uint32) error {
	debugf("array_init(%#x, %s, %d, %d)", arr, w.Name, count, stride)

	if count <= 0 {
		return o.mem.WriteU32(arr, 0)
	}

	capacity := uint64(count) * uint64(stride)
	if stride != 0 && (capacity/uint64(stride) != uint64(count) || capacity > maxCapacity) {
		memory.Fatalf("mvs: array of %d elements of %d-byte stride exceeds the 32-bit heap", count, stride)
	}
	storage := memory.MustAlloc(o.heap, HeaderSize+uint32(capacity), 8)
	payload := storage + HeaderSize

	if err := o.mem.WriteU64(storage+offRefc, 1); err != nil {
		return err
	}
	if err := o.mem.WriteU64(storage+offCount, uint64(count)); err != nil {
		return err
	}
	if err := o.mem.WriteU64(storage+offCapacity, capacity); err != nil {
		return err
	}

	if w.Init != nil {
		for i := int64(0); i < count; i++ {
			if err := w.Init(o.mem, payload+uint32(i)*stride); err != nil {
				return err
			}
		}
	} else {
		if err := witness.ZeroFill(o.mem, payload, uint32(capacity)); err != nil {
			return err
		}
	}

	return o.mem.WriteU32(arr, payload)
}

// Drop releases one reference to the array's storage. The last
// reference runs the element destructors and frees the allocation.
// The handle is consumed: the slot is cleared on the last reference,
// and any use of the handle after Drop is undefined.
func (o *Ops) Drop(arr uint32, w *witness.Witness) error {
	debugf("array_drop(%#x, %s)", arr, w.Name)

	payload, err := o.payload(arr)
	if err != nil {
		return err
	}
	if payload == 0 {
		return nil
	}

	released, err := o.release(payload, w)
	if err != nil {
		return err
	}
	if released {
		return o.mem.WriteU32(arr, 0)
	}
	return nil
}

// release decrements the refcount of the storage under payload and, if
// this was the last reference, destroys the elements and frees the
// allocation. Reports whether the storage was freed.
func (o *Ops) release(payload uint32, w *witness.Witness) (bool, error) {
	header := payload - HeaderSize

	old, err := o.refcAdd(header, ^uint64(0))
	if err != nil {
		return false, err
	}
	if old != 1 {
		debugf("  release %#x (%d)", header, old-1)
		return false, nil
	}

	count, err := o.mem.ReadU64(header + offCount)
	if err != nil {
		return false, err
	}
	capacity, err := o.mem.ReadU64(header + offCapacity)
	if err != nil {
		return false, err
	}

	if w.Drop != nil {
		for i := uint64(0); i < count; i++ {
			if err := w.Drop(o.mem, payload+uint32(i)*w.Size); err != nil {
				return false, err
			}
		}
	}

	debugf("  dealloc %#x", header)
	o.heap.Free(header, HeaderSize+uint32(capacity), 8)
	return true, nil
}

// Copy makes dst an independent handle sharing the storage of src. No
// element is copied; the reference count is incremented. The increment
// is relaxed: holding src already orders the storage's initialization
// before this call.
func (o *Ops) Copy(dst, src uint32) error {
	debugf("array_copy(%#x, %#x)", dst, src)

	payload, err := o.payload(src)
	if err != nil {
		return err
	}
	if err := o.mem.WriteU32(dst, payload); err != nil {
		return err
	}
	if payload == 0 {
		return nil
	}

	old, err := o.refcAdd(payload-HeaderSize, 1)
	if err != nil {
		return err
	}
	debugf("  retain  %#x (%d)", payload-HeaderSize, old+1)
	return nil
}

// Uniq guarantees exclusive ownership of the storage behind the handle
// at arr, deep-copying the payload when it is shared. This is the sole
// mutation gate: every write through a handle must be preceded by Uniq.
func (o *Ops) Uniq(arr uint32, w *witness.Witness) error {
	debugf("array_uniq(%#x, %s)", arr, w.Name)

	payload, err := o.payload(arr)
	if err != nil {
		return err
	}
	if payload == 0 {
		return nil
	}
	header := payload - HeaderSize

	refc, err := o.refcLoad(header)
	if err != nil {
		return err
	}
	if refc == 1 {
		return nil
	}

	count, err := o.mem.ReadU64(header + offCount)
	if err != nil {
		return err
	}
	capacity, err := o.mem.ReadU64(header + offCapacity)
	if err != nil {
		return err
	}
	if capacity > maxCapacity {
		memory.Fatalf("mvs: array capacity %d exceeds the 32-bit heap", capacity)
	}

	storage := memory.MustAlloc(o.heap, HeaderSize+uint32(capacity), 8)
	newPayload := storage + HeaderSize

	if err := o.mem.WriteU64(storage+offRefc, 1); err != nil {
		return err
	}
	if err := o.mem.WriteU64(storage+offCount, count); err != nil {
		return err
	}
	if err := o.mem.WriteU64(storage+offCapacity, capacity); err != nil {
		return err
	}

	if w.Copy == nil {
		if err := witness.BitwiseCopy(o.mem, newPayload, payload, uint32(capacity)); err != nil {
			return err
		}
	} else {
		for i := uint64(0); i < count; i++ {
			off := uint32(i) * w.Size
			if err := w.Copy(o.mem, newPayload+off, payload+off); err != nil {
				return err
			}
		}
	}

	if err := o.mem.WriteU32(arr, newPayload); err != nil {
		return err
	}

	// Another holder may drop concurrently, leaving this decrement to be
	// the one that reaches zero.
	_, err = o.release(payload, w)
	return err
}

// Equal reports elementwise equality of the two arrays, assuming both
// hold elements described by w. Handles sharing storage are equal
// without touching any element.
func (o *Ops) Equal(lhs, rhs uint32, w *witness.Witness) (bool, error) {
	lp, err := o.payload(lhs)
	if err != nil {
		return false, err
	}
	rp, err := o.payload(rhs)
	if err != nil {
		return false, err
	}

	if lp == rp {
		return true, nil
	}
	if lp == 0 || rp == 0 {
		// One side is empty, the other is not: a non-empty array never
		// keeps a null payload.
		return false, nil
	}

	lcount, err := o.mem.ReadU64(lp - HeaderSize + offCount)
	if err != nil {
		return false, err
	}
	rcount, err := o.mem.ReadU64(rp - HeaderSize + offCount)
	if err != nil {
		return false, err
	}
	if lcount != rcount {
		return false, nil
	}

	for i := uint64(0); i < lcount; i++ {
		off := uint32(i) * w.Size
		eq, err := w.Equal(o.mem, lp+off, rp+off)
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}

// Payload returns the payload address behind the handle at arr, 0 for
// the empty sentinel.
func (o *Ops) Payload(arr uint32) (uint32, error) {
	return o.payload(arr)
}

// Count returns the element count of the array behind the handle at arr.
func (o *Ops) Count(arr uint32) (uint64, error) {
	payload, err := o.payload(arr)
	if err != nil || payload == 0 {
		return 0, err
	}
	return o.mem.ReadU64(payload - HeaderSize + offCount)
}

// Refcount returns the current reference count of the array's storage,
// 0 for the empty sentinel.
func (o *Ops) Refcount(arr uint32) (uint64, error) {
	payload, err := o.payload(arr)
	if err != nil || payload == 0 {
		return 0, err
	}
	return o.refcLoad(payload - HeaderSize)
}
