// Package wasm emits minimal guest modules binding the runtime's host
// ABI. The builder produces a core module that imports functions from
// the host namespace, declares and exports a linear memory, and
// re-exports each import through a trampoline so tests and tools can
// drive the ABI without a compiled guest.
package wasm
