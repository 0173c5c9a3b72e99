package wasm

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestGuestBuilderDefaults(t *testing.T) {
	b := NewGuestBuilder("mvs")
	if b.hostModule != "mvs" {
		t.Errorf("expected host module 'mvs', got %q", b.hostModule)
	}
	if b.memPages != 1 {
		t.Errorf("expected 1 memory page, got %d", b.memPages)
	}
	if b.memExport != "memory" {
		t.Errorf("expected memory export 'memory', got %q", b.memExport)
	}
}

func TestGuestBuilderHeader(t *testing.T) {
	b := NewGuestBuilder("mvs")
	out := b.Build()

	header := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	if len(out) < len(header) || !bytes.Equal(out[:len(header)], header) {
		t.Fatalf("bad module header: % x", out[:min(len(out), 8)])
	}
}

func TestGuestBuilderImportFunc(t *testing.T) {
	b := NewGuestBuilder("mvs")
	b.ImportFunc("mvs_sqrt", []api.ValueType{api.ValueTypeF64}, []api.ValueType{api.ValueTypeF64})

	if len(b.funcs) != 1 {
		t.Fatalf("expected 1 func, got %d", len(b.funcs))
	}
	if b.funcs[0].name != "mvs_sqrt" {
		t.Errorf("expected name 'mvs_sqrt', got %q", b.funcs[0].name)
	}
}

// TestGuestModuleRuns validates the emitted binary against a real
// runtime: a stub host function is bound, the module is instantiated,
// and the trampoline must forward arguments and results.
func TestGuestModuleRuns(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	var gotA, gotB uint64
	_, err := r.NewHostModuleBuilder("mvs").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			gotA, gotB = stack[0], stack[1]
			stack[0] = stack[0] + stack[1]
		}), []api.ValueType{api.ValueTypeI64, api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export("add").
		Instantiate(ctx)
	if err != nil {
		t.Fatalf("instantiate host: %v", err)
	}

	b := NewGuestBuilder("mvs")
	b.SetMemoryPages(2)
	b.SetHeapBase(1024)
	b.ImportFunc("add", []api.ValueType{api.ValueTypeI64, api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64})

	mod, err := r.Instantiate(ctx, b.Build())
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}

	if mod.Memory() == nil {
		t.Fatal("memory not exported")
	}
	if size := mod.Memory().Size(); size != 2*65536 {
		t.Errorf("memory size: expected 131072, got %d", size)
	}

	g := mod.ExportedGlobal("__heap_base")
	if g == nil {
		t.Fatal("__heap_base not exported")
	}
	if g.Get() != 1024 {
		t.Errorf("__heap_base: expected 1024, got %d", g.Get())
	}

	results, err := mod.ExportedFunction("add").Call(ctx, 40, 2)
	if err != nil {
		t.Fatalf("call trampoline: %v", err)
	}
	if gotA != 40 || gotB != 2 {
		t.Errorf("host saw (%d, %d), expected (40, 2)", gotA, gotB)
	}
	if len(results) != 1 || results[0] != 42 {
		t.Errorf("trampoline result: expected [42], got %v", results)
	}
}

func TestGuestModuleNoFuncs(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	mod, err := r.Instantiate(ctx, NewGuestBuilder("mvs").Build())
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if mod.Memory() == nil {
		t.Fatal("memory not exported")
	}
}
