package exist

import (
	"testing"

	"github.com/mvslang/mvs-runtime/array"
	"github.com/mvslang/mvs-runtime/memory"
	"github.com/mvslang/mvs-runtime/witness"
)

// test helpers

type countingAllocator struct {
	inner  *memory.Arena
	allocs int
	frees  int
}

func (a *countingAllocator) Alloc(size, align uint32) (uint32, error) {
	ptr, err := a.inner.Alloc(size, align)
	if err == nil {
		a.allocs++
	}
	return ptr, err
}

func (a *countingAllocator) Free(ptr, size, align uint32) {
	a.frees++
	a.inner.Free(ptr, size, align)
}

func (a *countingAllocator) outstanding() int {
	return a.allocs - a.frees
}

type testEnv struct {
	mem   *memory.HostMemory
	heap  *countingAllocator
	table *witness.Table
	ops   *Ops
	slots uint32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := memory.NewHostMemory(1)
	heap := &countingAllocator{inner: memory.NewArenaAt(mem, 4096)}
	table := witness.NewTable()
	return &testEnv{
		mem:   mem,
		heap:  heap,
		table: table,
		ops:   New(mem, heap, table),
		slots: 8,
	}
}

// container hands out a fresh zeroed container slot below the heap.
func (e *testEnv) container(t *testing.T) uint32 {
	t.Helper()
	c := e.slots
	e.slots += ContainerSize
	if e.slots >= 4096 {
		t.Fatal("test slot space exhausted")
	}
	return c
}

func TestInlinePayloadNeverTouchesHeap(t *testing.T) {
	e := newTestEnv(t)
	id := e.table.Register(witness.I32())

	c := e.container(t)
	addr, err := e.ops.Set(c, id)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if addr != c {
		t.Errorf("inline payload not stored in place: %#x vs %#x", addr, c)
	}
	if err := e.mem.WriteU32(addr, 42); err != nil {
		t.Fatal(err)
	}

	dup := e.container(t)
	if err := e.ops.Copy(dup, c); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if err := e.ops.Drop(c); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := e.ops.Drop(dup); err != nil {
		t.Fatal(err)
	}

	if e.heap.allocs != 0 {
		t.Errorf("inline lifecycle performed %d heap allocations", e.heap.allocs)
	}
}

func TestInlineCopyIsIndependent(t *testing.T) {
	e := newTestEnv(t)
	id := e.table.Register(witness.I32())

	c := e.container(t)
	addr, _ := e.ops.Set(c, id)
	if err := e.mem.WriteU32(addr, 42); err != nil {
		t.Fatal(err)
	}

	dup := e.container(t)
	if err := e.ops.Copy(dup, c); err != nil {
		t.Fatal(err)
	}

	eq, err := e.ops.Equal(c, dup)
	if err != nil || !eq {
		t.Errorf("copy must compare equal: %v %v", eq, err)
	}

	// The two containers store the value at distinct addresses.
	dupAddr, _, err := e.ops.Storage(dup)
	if err != nil {
		t.Fatal(err)
	}
	if dupAddr == addr {
		t.Error("copy shares storage with source")
	}

	if err := e.mem.WriteU32(dupAddr, 7); err != nil {
		t.Fatal(err)
	}
	if v, _ := e.mem.ReadU32(addr); v != 42 {
		t.Errorf("mutation of copy leaked into source: %d", v)
	}
	if eq, _ := e.ops.Equal(c, dup); eq {
		t.Error("containers equal after divergent mutation")
	}
}

func TestOutOfLinePayload(t *testing.T) {
	e := newTestEnv(t)
	big := witness.Word(64)
	id := e.table.Register(big)

	c := e.container(t)
	addr, err := e.ops.Set(c, id)
	if err != nil {
		t.Fatal(err)
	}
	if addr == c {
		t.Fatal("64-byte payload stored inline")
	}
	if e.heap.allocs != 1 {
		t.Fatalf("expected exactly one heap block, got %d", e.heap.allocs)
	}

	for i := range uint32(8) {
		if err := e.mem.WriteU64(addr+i*8, uint64(i)+100); err != nil {
			t.Fatal(err)
		}
	}

	// Copy allocates its own block and survives dropping the source.
	dup := e.container(t)
	if err := e.ops.Copy(dup, c); err != nil {
		t.Fatal(err)
	}
	if e.heap.allocs != 2 {
		t.Errorf("copy did not allocate: %d blocks", e.heap.allocs)
	}

	if err := e.ops.Drop(c); err != nil {
		t.Fatal(err)
	}

	dupAddr, _, err := e.ops.Storage(dup)
	if err != nil {
		t.Fatal(err)
	}
	for i := range uint32(8) {
		v, _ := e.mem.ReadU64(dupAddr + i*8)
		if v != uint64(i)+100 {
			t.Errorf("word %d: got %d, want %d", i, v, uint64(i)+100)
		}
	}

	if err := e.ops.Drop(dup); err != nil {
		t.Fatal(err)
	}
	if e.heap.outstanding() != 0 {
		t.Errorf("leak: %d blocks", e.heap.outstanding())
	}
}

func TestDropClearsContainer(t *testing.T) {
	e := newTestEnv(t)
	id := e.table.Register(witness.I64())

	c := e.container(t)
	addr, _ := e.ops.Set(c, id)
	if err := e.mem.WriteU64(addr, 99); err != nil {
		t.Fatal(err)
	}
	if err := e.ops.Drop(c); err != nil {
		t.Fatal(err)
	}

	data, err := e.mem.Read(c, ContainerSize)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d not cleared: %d", i, b)
		}
	}

	// Dropping a cleared container is a no-op.
	if err := e.ops.Drop(c); err != nil {
		t.Errorf("drop on cleared container: %v", err)
	}
}

func TestEqualRejectsDifferentWitnesses(t *testing.T) {
	e := newTestEnv(t)
	i32ID := e.table.Register(witness.I32())
	f32ID := e.table.Register(witness.F32())

	a := e.container(t)
	b := e.container(t)
	aAddr, _ := e.ops.Set(a, i32ID)
	bAddr, _ := e.ops.Set(b, f32ID)

	// Same bits, different dynamic type.
	if err := e.mem.WriteU32(aAddr, 42); err != nil {
		t.Fatal(err)
	}
	if err := e.mem.WriteU32(bAddr, 42); err != nil {
		t.Fatal(err)
	}

	eq, err := e.ops.Equal(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if eq {
		t.Error("containers with different witnesses compare equal")
	}
}

func TestUnknownWitnessID(t *testing.T) {
	e := newTestEnv(t)

	c := e.container(t)
	if err := e.mem.WriteU32(c+offWitness, 99); err != nil {
		t.Fatal(err)
	}

	if err := e.ops.Drop(c); err == nil {
		t.Error("expected invalid handle error")
	}
	if _, err := e.ops.Set(c, 99); err == nil {
		t.Error("expected invalid handle error from Set")
	}
}

func TestContainerHoldingArray(t *testing.T) {
	e := newTestEnv(t)
	arrays := array.New(e.mem, e.heap)
	elem := arrays.ElemWitness(witness.I64())
	id := e.table.Register(elem)

	c := e.container(t)
	slot, err := e.ops.Set(c, id)
	if err != nil {
		t.Fatal(err)
	}
	if err := arrays.Init(slot, witness.I64(), 3, 8); err != nil {
		t.Fatal(err)
	}

	// Copying the container deep-copies through the array witness,
	// sharing the array storage with a bumped refcount.
	dup := e.container(t)
	if err := e.ops.Copy(dup, c); err != nil {
		t.Fatal(err)
	}
	if rc, _ := arrays.Refcount(slot); rc != 2 {
		t.Errorf("array refcount after container copy: got %d, want 2", rc)
	}

	eq, err := e.ops.Equal(c, dup)
	if err != nil || !eq {
		t.Errorf("containers holding equal arrays: got %v %v", eq, err)
	}

	if err := e.ops.Drop(c); err != nil {
		t.Fatal(err)
	}
	if err := e.ops.Drop(dup); err != nil {
		t.Fatal(err)
	}
	if e.heap.outstanding() != 0 {
		t.Errorf("leak: %d blocks", e.heap.outstanding())
	}
}

func TestNestedExistential(t *testing.T) {
	e := newTestEnv(t)
	anyID := e.table.Register(e.ops.ElemWitness())
	i64ID := e.table.Register(witness.I64())

	outer := e.container(t)
	innerAddr, err := e.ops.Set(outer, anyID)
	if err != nil {
		t.Fatal(err)
	}
	// ContainerSize exceeds InlineSize, so the inner container lives
	// out of line.
	if innerAddr == outer {
		t.Fatal("nested container stored inline")
	}

	valAddr, err := e.ops.Set(innerAddr, i64ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.mem.WriteU64(valAddr, 1234); err != nil {
		t.Fatal(err)
	}

	dup := e.container(t)
	if err := e.ops.Copy(dup, outer); err != nil {
		t.Fatal(err)
	}
	eq, err := e.ops.Equal(outer, dup)
	if err != nil || !eq {
		t.Errorf("nested copies must compare equal: %v %v", eq, err)
	}

	if err := e.ops.Drop(outer); err != nil {
		t.Fatal(err)
	}
	if err := e.ops.Drop(dup); err != nil {
		t.Fatal(err)
	}
	if e.heap.outstanding() != 0 {
		t.Errorf("leak: %d blocks", e.heap.outstanding())
	}
}
