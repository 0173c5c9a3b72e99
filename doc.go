// Package mvsruntime is the memory runtime of the MVS language: the pair
// of type-erased value containers that compiled MVS programs rely on for
// the semantics of copyable aggregate types.
//
// MVS has no generics at the machine level. Every container and value
// operation is parameterized at run time by a witness, a descriptor of
// how to initialize, destroy, copy, and compare instances of a concrete
// type. On top of the witness abstraction sit two containers:
//
//   - a reference-counted, copy-on-write dynamic array, and
//   - a fixed-size existential box storing a witness-described value
//     either inline (small payloads) or in a single owned heap block.
//
// All values live in a 32-bit linear address space described by the
// Memory interface, with raw storage handed out by an Allocator:
//
//	mvsruntime/          Root package with Memory and Allocator interfaces
//	├── witness/         Type witnesses and the witness table
//	├── layout/          Size/alignment calculation for WIT-described types
//	├── memory/          Host-backed linear memory and the arena allocator
//	├── array/           Shared copy-on-write array operations
//	├── exist/           Existential container operations
//	├── engine/          wazero host module exposing the runtime to guests
//	└── errors/          Structured error types
//
// Go embedders operate on a memory.HostMemory directly:
//
//	mem := memory.NewHostMemory(1)
//	heap := memory.NewArena(mem)
//	arrays := array.New(mem, heap)
//
//	arrays.Init(slot, witness.I64(), 3, 8)
//	defer arrays.Drop(slot, witness.I64())
//
// Programs compiled to WebAssembly import the same operations as host
// functions from the "mvs" module; see package engine.
//
// # Thread Safety
//
// Array handles produced by Copy may be dropped concurrently from
// multiple goroutines when the backing Memory implements AtomicMemory.
// A handle that has been copied but not yet uniquified must be treated
// as read-only across goroutines. Existential containers share no state
// and need no synchronization of their own.
package mvsruntime
