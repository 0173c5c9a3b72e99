package witness

import (
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/mvslang/mvs-runtime/memory"
)

func TestBuiltinSizes(t *testing.T) {
	tests := []struct {
		w     *Witness
		name  string
		size  uint32
		align uint32
	}{
		{I8(), "i8", 1, 1},
		{I16(), "i16", 2, 2},
		{I32(), "i32", 4, 4},
		{I64(), "i64", 8, 8},
		{F32(), "f32", 4, 4},
		{F64(), "f64", 8, 8},
	}
	for _, tc := range tests {
		if tc.w.Size != tc.size || tc.w.Align != tc.align {
			t.Errorf("%s: got size=%d align=%d, want %d/%d",
				tc.name, tc.w.Size, tc.w.Align, tc.size, tc.align)
		}
		if !tc.w.Trivial() {
			t.Errorf("%s: builtin must be trivial", tc.name)
		}
		if tc.w.Equal == nil {
			t.Errorf("%s: builtin must carry Equal", tc.name)
		}
	}
}

func TestBuiltinIdentity(t *testing.T) {
	if I64() != I64() {
		t.Error("I64 must return the same descriptor instance")
	}
}

func TestWordAlignment(t *testing.T) {
	tests := []struct {
		size, align uint32
	}{
		{1, 1},
		{2, 2},
		{4, 4},
		{8, 8},
		{12, 4},
		{24, 8},
		{64, 8},
	}
	for _, tc := range tests {
		w := Word(tc.size)
		if w.Size != tc.size || w.Align != tc.align {
			t.Errorf("Word(%d): got size=%d align=%d, want align %d",
				tc.size, w.Size, w.Align, tc.align)
		}
	}
}

func TestTrivialOperations(t *testing.T) {
	mem := memory.NewHostMemory(1)
	w := I64()

	if err := mem.WriteU64(0, 0xffffffffffffffff); err != nil {
		t.Fatal(err)
	}
	if err := w.InitValue(mem, 0); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU64(0); v != 0 {
		t.Errorf("trivial init must zero-fill, got %#x", v)
	}

	if err := mem.WriteU64(8, 1234); err != nil {
		t.Fatal(err)
	}
	if err := w.CopyValue(mem, 16, 8); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU64(16); v != 1234 {
		t.Errorf("trivial copy: got %d", v)
	}

	eq, err := w.EqualValues(mem, 8, 16)
	if err != nil || !eq {
		t.Errorf("copied value must compare equal: %v %v", eq, err)
	}

	// Drop on a trivial witness is a no-op.
	if err := w.DropValue(mem, 8); err != nil {
		t.Fatal(err)
	}
}

func TestBitwiseEqual(t *testing.T) {
	mem := memory.NewHostMemory(1)
	_ = mem.Write(0, []byte{1, 2, 3, 4})
	_ = mem.Write(8, []byte{1, 2, 3, 4})
	_ = mem.Write(16, []byte{1, 2, 9, 4})

	if eq, _ := BitwiseEqual(mem, 0, 8, 4); !eq {
		t.Error("identical bytes must be equal")
	}
	if eq, _ := BitwiseEqual(mem, 0, 16, 4); eq {
		t.Error("differing bytes must not be equal")
	}
	if eq, _ := BitwiseEqual(mem, 0, 16, 0); !eq {
		t.Error("zero-size comparison must be equal")
	}
}

func TestTableRegisterLookup(t *testing.T) {
	table := NewTable()

	id := table.Register(I64())
	if id == 0 {
		t.Fatal("id 0 handed out")
	}

	w, ok := table.Lookup(id)
	if !ok || w != I64() {
		t.Error("lookup did not return the registered descriptor")
	}

	if _, ok := table.Lookup(0); ok {
		t.Error("id 0 must never resolve")
	}
	if _, ok := table.Lookup(id + 100); ok {
		t.Error("unknown id must not resolve")
	}
}

func TestTablePreservesIdentity(t *testing.T) {
	table := NewTable()

	first := table.Register(I64())
	second := table.Register(I64())
	if first != second {
		t.Errorf("re-registration changed id: %d vs %d", first, second)
	}

	other := table.Register(F64())
	if other == first {
		t.Error("distinct witnesses share an id")
	}

	if table.IDOf(I64()) != first {
		t.Error("IDOf mismatch")
	}
	if table.Len() != 2 {
		t.Errorf("len: got %d, want 2", table.Len())
	}
}

func TestTableWalkOrder(t *testing.T) {
	table := NewTable()
	table.Register(I8())
	table.Register(I16())
	table.Register(I32())

	var ids []ID
	table.Walk(func(id ID, w *Witness) {
		ids = append(ids, id)
	})
	for i, id := range ids {
		if id != ID(i+1) {
			t.Errorf("walk order: position %d has id %d", i, id)
		}
	}
}

func TestFromWIT(t *testing.T) {
	record := &wit.TypeDef{Kind: &wit.Record{
		Fields: []wit.Field{
			{Name: "x", Type: wit.F64{}},
			{Name: "y", Type: wit.F64{}},
			{Name: "tag", Type: wit.U8{}},
		},
	}}

	w := FromWIT("point", record)
	if w.Size != 24 {
		t.Errorf("size: got %d, want 24", w.Size)
	}
	if w.Align != 8 {
		t.Errorf("align: got %d, want 8", w.Align)
	}
	if !w.Trivial() {
		t.Error("WIT-derived witness must be trivial")
	}

	mem := memory.NewHostMemory(1)
	_ = mem.WriteU64(0, 42)
	_ = mem.WriteU64(32, 42)
	if eq, _ := w.EqualValues(mem, 0, 32); !eq {
		t.Error("identical 24-byte records must compare equal")
	}
	_ = mem.WriteU8(16, 7) // flip the tag on one side
	if eq, _ := w.EqualValues(mem, 0, 32); eq {
		t.Error("records differing in the tag byte must not compare equal")
	}
}
