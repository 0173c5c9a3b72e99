package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tetratelabs/wazero/api"

	"github.com/mvslang/mvs-runtime/errors"
	"github.com/mvslang/mvs-runtime/memory"
	"github.com/mvslang/mvs-runtime/witness"
)

// The host ABI mirrors the native runtime's C entry points. Pointers
// are i32 offsets into the caller's linear memory, sizes and counts
// are i64, and witnesses are table ids. Memory faults trap the guest:
// host functions panic with a structured error and wazero surfaces it
// from the export call.

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

// check traps the guest on a runtime fault.
func check(err error) {
	if err != nil {
		panic(err)
	}
}

// guest resolves the runtime state for the calling module, trapping
// when the caller has no memory.
func (e *Engine) guest(mod api.Module) *guestState {
	s, err := e.state(mod)
	check(err)
	return s
}

func (s *guestState) lookup(id uint64) *witness.Witness {
	w, ok := s.table.Lookup(witness.ID(id))
	if !ok {
		panic(errors.InvalidHandle(errors.PhaseWitness, uint32(id)))
	}
	return w
}

func (e *Engine) instantiateHost(ctx context.Context) error {
	b := e.runtime.NewHostModuleBuilder(HostModule)

	export := func(name string, fn api.GoModuleFunc, params, results []api.ValueType) {
		b.NewFunctionBuilder().
			WithGoModuleFunction(fn, params, results).
			Export(name)
	}

	export("mvs_malloc", e.hostMalloc, []api.ValueType{i64}, []api.ValueType{i32})
	export("mvs_free", e.hostFree, []api.ValueType{i32}, nil)

	export("mvs_array_init", e.hostArrayInit, []api.ValueType{i32, i32, i64, i64}, nil)
	export("mvs_array_drop", e.hostArrayDrop, []api.ValueType{i32, i32}, nil)
	export("mvs_array_copy", e.hostArrayCopy, []api.ValueType{i32, i32}, nil)
	export("mvs_array_uniq", e.hostArrayUniq, []api.ValueType{i32, i32}, nil)
	export("mvs_array_equal", e.hostArrayEqual, []api.ValueType{i32, i32, i32}, []api.ValueType{i64})

	export("mvs_exist_drop", e.hostExistDrop, []api.ValueType{i32}, nil)
	export("mvs_exist_copy", e.hostExistCopy, []api.ValueType{i32, i32}, nil)
	export("mvs_exist_equal", e.hostExistEqual, []api.ValueType{i32, i32}, []api.ValueType{i64})

	export("mvs_witness_trivial", e.hostWitnessTrivial, []api.ValueType{i64}, []api.ValueType{i32})
	export("mvs_witness_array", e.hostWitnessArray, []api.ValueType{i32}, []api.ValueType{i32})
	export("mvs_witness_exist", e.hostWitnessExist, nil, []api.ValueType{i32})

	export("mvs_sqrt", e.hostSqrt, []api.ValueType{f64}, []api.ValueType{f64})
	export("mvs_uptime_nanoseconds", e.hostUptime, nil, []api.ValueType{f64})
	export("mvs_print_i64", e.hostPrintI64, []api.ValueType{i64}, nil)
	export("mvs_print_f64", e.hostPrintF64, []api.ValueType{f64}, nil)

	if _, err := b.Instantiate(ctx); err != nil {
		return errors.New(errors.PhaseRun, errors.KindInstantiation).
			Detail("instantiate host module %q", HostModule).Cause(err).Build()
	}
	return nil
}

func (e *Engine) hostMalloc(_ context.Context, mod api.Module, stack []uint64) {
	size := int64(stack[0])
	if size <= 0 {
		stack[0] = 0
		return
	}
	if size > math.MaxUint32 {
		memory.Fatalf("mvs: malloc of %d bytes exceeds the 32-bit heap", size)
	}

	s := e.guest(mod)
	ptr := memory.MustAlloc(s.heap, uint32(size), 8)

	s.mu.Lock()
	s.mallocs[ptr] = uint32(size)
	s.mu.Unlock()

	stack[0] = uint64(ptr)
}

func (e *Engine) hostFree(_ context.Context, mod api.Module, stack []uint64) {
	ptr := uint32(stack[0])
	if ptr == 0 {
		return
	}

	s := e.guest(mod)
	s.mu.Lock()
	size, ok := s.mallocs[ptr]
	delete(s.mallocs, ptr)
	s.mu.Unlock()

	if !ok {
		debugf("mvs_free(%#x): pointer not from mvs_malloc", ptr)
		return
	}
	s.heap.Free(ptr, size, 8)
}

func (e *Engine) hostArrayInit(_ context.Context, mod api.Module, stack []uint64) {
	s := e.guest(mod)
	w := s.lookup(stack[1])
	check(s.arrays.Init(uint32(stack[0]), w, int64(stack[2]), uint32(stack[3])))
}

func (e *Engine) hostArrayDrop(_ context.Context, mod api.Module, stack []uint64) {
	s := e.guest(mod)
	w := s.lookup(stack[1])
	check(s.arrays.Drop(uint32(stack[0]), w))
}

func (e *Engine) hostArrayCopy(_ context.Context, mod api.Module, stack []uint64) {
	s := e.guest(mod)
	check(s.arrays.Copy(uint32(stack[0]), uint32(stack[1])))
}

func (e *Engine) hostArrayUniq(_ context.Context, mod api.Module, stack []uint64) {
	s := e.guest(mod)
	w := s.lookup(stack[1])
	check(s.arrays.Uniq(uint32(stack[0]), w))
}

func (e *Engine) hostArrayEqual(_ context.Context, mod api.Module, stack []uint64) {
	s := e.guest(mod)
	w := s.lookup(stack[2])
	eq, err := s.arrays.Equal(uint32(stack[0]), uint32(stack[1]), w)
	check(err)
	stack[0] = boolToWasm(eq)
}

func (e *Engine) hostExistDrop(_ context.Context, mod api.Module, stack []uint64) {
	s := e.guest(mod)
	check(s.exists.Drop(uint32(stack[0])))
}

func (e *Engine) hostExistCopy(_ context.Context, mod api.Module, stack []uint64) {
	s := e.guest(mod)
	check(s.exists.Copy(uint32(stack[0]), uint32(stack[1])))
}

func (e *Engine) hostExistEqual(_ context.Context, mod api.Module, stack []uint64) {
	s := e.guest(mod)
	eq, err := s.exists.Equal(uint32(stack[0]), uint32(stack[1]))
	check(err)
	stack[0] = boolToWasm(eq)
}

// hostWitnessTrivial registers a witness for a trivially copyable value
// of the given byte size. Ids are shared per size, so distinct guest
// types of equal size fold into one dynamic type and compare bitwise
// (two identical NaN payloads are equal). Guests that need per-type
// identity must carry their own discriminant in the value.
func (e *Engine) hostWitnessTrivial(_ context.Context, mod api.Module, stack []uint64) {
	size := int64(stack[0])
	if size < 0 {
		panic(errors.InvalidInput(errors.PhaseWitness,
			fmt.Sprintf("negative witness size %d", size)))
	}

	s := e.guest(mod)
	s.mu.Lock()
	id, ok := s.wordIDs[uint32(size)]
	if !ok {
		id = s.table.Register(witness.Word(uint32(size)))
		s.wordIDs[uint32(size)] = id
	}
	s.mu.Unlock()

	stack[0] = uint64(id)
}

func (e *Engine) hostWitnessArray(_ context.Context, mod api.Module, stack []uint64) {
	s := e.guest(mod)
	elemID := witness.ID(stack[0])
	elem := s.lookup(stack[0])

	s.mu.Lock()
	id, ok := s.arrayIDs[elemID]
	if !ok {
		id = s.table.Register(s.arrays.ElemWitness(elem))
		s.arrayIDs[elemID] = id
	}
	s.mu.Unlock()

	stack[0] = uint64(id)
}

func (e *Engine) hostWitnessExist(_ context.Context, mod api.Module, stack []uint64) {
	s := e.guest(mod)

	s.mu.Lock()
	if s.existID == 0 {
		s.existID = s.table.Register(s.exists.ElemWitness())
	}
	id := s.existID
	s.mu.Unlock()

	stack[0] = uint64(id)
}

func (e *Engine) hostSqrt(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeF64(math.Sqrt(api.DecodeF64(stack[0])))
}

func (e *Engine) hostUptime(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeF64(float64(time.Since(e.epoch).Nanoseconds()))
}

func (e *Engine) hostPrintI64(_ context.Context, _ api.Module, stack []uint64) {
	fmt.Fprintf(e.out, "%d\n", int64(stack[0]))
}

func (e *Engine) hostPrintF64(_ context.Context, _ api.Module, stack []uint64) {
	fmt.Fprintf(e.out, "%f\n", api.DecodeF64(stack[0]))
}

func boolToWasm(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
