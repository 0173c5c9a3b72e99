package wasm

import (
	"github.com/tetratelabs/wazero/api"
)

// GuestBuilder builds minimal guest modules that import host functions
// and re-export them as trampolines over a local, exported memory.
type GuestBuilder struct {
	hostModule string
	memExport  string
	funcs      []guestFunc
	memPages   uint32
	heapBase   uint32
	hasHeap    bool
}

type guestFunc struct {
	name        string
	paramTypes  []api.ValueType
	resultTypes []api.ValueType
}

// NewGuestBuilder creates a builder importing from the given host
// module name. The module declares one memory page and exports it as
// "memory".
func NewGuestBuilder(hostModule string) *GuestBuilder {
	return &GuestBuilder{
		hostModule: hostModule,
		memPages:   1,
		memExport:  "memory",
	}
}

// SetMemoryPages sets the minimum size of the local memory.
func (b *GuestBuilder) SetMemoryPages(pages uint32) {
	b.memPages = pages
}

// SetHeapBase exports an immutable __heap_base global marking the end
// of the guest's static data.
func (b *GuestBuilder) SetHeapBase(addr uint32) {
	b.heapBase = addr
	b.hasHeap = true
}

// ImportFunc adds a host function to import and re-export.
func (b *GuestBuilder) ImportFunc(name string, params, results []api.ValueType) {
	b.funcs = append(b.funcs, guestFunc{
		name:        name,
		paramTypes:  params,
		resultTypes: results,
	})
}

// Build generates the WASM module bytes.
func (b *GuestBuilder) Build() []byte {
	hasFuncs := len(b.funcs) > 0
	var wasm []byte

	// Magic and version
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d)
	wasm = append(wasm, 0x01, 0x00, 0x00, 0x00)

	appendSection := func(id byte, section []byte) {
		wasm = append(wasm, id)
		wasm = append(wasm, EncodeULEB128(uint32(len(section)))...)
		wasm = append(wasm, section...)
	}

	if hasFuncs {
		appendSection(0x01, b.buildTypeSection())
		appendSection(0x02, b.buildImportSection())
		appendSection(0x03, b.buildFuncSection())
	}

	appendSection(0x05, b.buildMemorySection())

	if b.hasHeap {
		appendSection(0x06, b.buildGlobalSection())
	}

	appendSection(0x07, b.buildExportSection())

	if hasFuncs {
		appendSection(0x0a, b.buildCodeSection())
	}

	return wasm
}

func (b *GuestBuilder) buildTypeSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)

	for _, f := range b.funcs {
		section = append(section, 0x60)
		section = append(section, EncodeULEB128(uint32(len(f.paramTypes)))...)
		for _, t := range f.paramTypes {
			section = append(section, ValTypeToWasm(t))
		}
		section = append(section, EncodeULEB128(uint32(len(f.resultTypes)))...)
		for _, t := range f.resultTypes {
			section = append(section, ValTypeToWasm(t))
		}
	}

	return section
}

func (b *GuestBuilder) buildImportSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)

	for i, f := range b.funcs {
		section = append(section, EncodeULEB128(uint32(len(b.hostModule)))...)
		section = append(section, []byte(b.hostModule)...)
		section = append(section, EncodeULEB128(uint32(len(f.name)))...)
		section = append(section, []byte(f.name)...)
		section = append(section, 0x00)
		section = append(section, EncodeULEB128(uint32(i))...)
	}

	return section
}

func (b *GuestBuilder) buildFuncSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)
	for i := range b.funcs {
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}

func (b *GuestBuilder) buildMemorySection() []byte {
	var section []byte
	section = append(section, 0x01)
	section = append(section, 0x00)
	section = append(section, EncodeULEB128(b.memPages)...)
	return section
}

func (b *GuestBuilder) buildGlobalSection() []byte {
	var section []byte
	section = append(section, 0x01)
	section = append(section, 0x7f, 0x00)
	section = append(section, 0x41)
	section = append(section, EncodeSLEB128(int32(b.heapBase))...)
	section = append(section, 0x0b)
	return section
}

func (b *GuestBuilder) buildExportSection() []byte {
	var section []byte

	numExports := 1 + len(b.funcs)
	if b.hasHeap {
		numExports++
	}
	section = append(section, EncodeULEB128(uint32(numExports))...)

	// Memory export
	section = append(section, EncodeULEB128(uint32(len(b.memExport)))...)
	section = append(section, []byte(b.memExport)...)
	section = append(section, 0x02)
	section = append(section, 0x00)

	// Heap-base global export
	if b.hasHeap {
		name := "__heap_base"
		section = append(section, EncodeULEB128(uint32(len(name)))...)
		section = append(section, []byte(name)...)
		section = append(section, 0x03)
		section = append(section, 0x00)
	}

	// Trampoline exports under the import names
	numImports := len(b.funcs)
	for i, f := range b.funcs {
		section = append(section, EncodeULEB128(uint32(len(f.name)))...)
		section = append(section, []byte(f.name)...)
		section = append(section, 0x00)
		section = append(section, EncodeULEB128(uint32(numImports+i))...)
	}

	return section
}

func (b *GuestBuilder) buildCodeSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)

	for i, f := range b.funcs {
		funcBody := b.buildFuncBody(i, f)
		section = append(section, EncodeULEB128(uint32(len(funcBody)))...)
		section = append(section, funcBody...)
	}

	return section
}

func (b *GuestBuilder) buildFuncBody(importIdx int, f guestFunc) []byte {
	var body []byte
	body = append(body, 0x00)

	for i := range f.paramTypes {
		body = append(body, 0x20)
		body = append(body, EncodeULEB128(uint32(i))...)
	}

	body = append(body, 0x10)
	body = append(body, EncodeULEB128(uint32(importIdx))...)
	body = append(body, 0x0b)

	return body
}
