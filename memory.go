package mvsruntime

// Memory is a 32-bit linear address space holding runtime-managed values.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of a linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// MemoryGrower extends a linear memory by whole 64 KiB pages.
// Returns the previous size in pages, or false if the memory cannot grow.
type MemoryGrower interface {
	Grow(pages uint32) (uint32, bool)
}

// AtomicMemory is implemented by memories that support atomic 64-bit
// access. Shared array reference counts use it when available; memories
// without it (e.g. single-threaded wasm guests) fall back to plain
// read-modify-write.
type AtomicMemory interface {
	// AddU64 atomically adds delta to the word at offset and returns the
	// value observed before the addition. The offset must be 8-aligned.
	AddU64(offset uint32, delta uint64) (uint64, error)

	// LoadU64 atomically loads the word at offset. The offset must be 8-aligned.
	LoadU64(offset uint32) (uint64, error)
}

// Allocator hands out blocks of linear memory.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
