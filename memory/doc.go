// Package memory provides the host-backed linear memory and the raw
// arena allocator consumed by the container operations.
//
// HostMemory is a page-granular, growable byte store addressed by
// uint32 offsets, for embedders and tests that run the runtime without
// a wasm guest. Its backing is 8-byte aligned so the shared-array
// reference count can use real atomic operations (AtomicMemory).
//
// Arena is a first-fit free-list allocator handing out blocks of any
// Memory. Callers pass the block size back on Free (the runtime always
// knows it from the witness), so the arena keeps no per-block headers
// in linear memory; bookkeeping lives host-side.
//
// Allocation exhaustion is fatal by policy: the container operations
// never surface an out-of-memory condition to generated code. Fatalf
// writes a diagnostic to stderr and terminates the process; tests
// install a panicking handler via SetFatalHandler.
package memory
