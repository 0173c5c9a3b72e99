package memory

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	mvsruntime "github.com/mvslang/mvs-runtime"
	"github.com/mvslang/mvs-runtime/errors"
)

// PageSize is the linear-memory page granularity, matching wasm.
const PageSize = 64 * 1024

// DefaultMaxPages caps a HostMemory at 256 MiB unless configured.
const DefaultMaxPages = 4096

// HostMemory is a growable linear memory backed by host RAM. The
// backing store is allocated as uint64 words, so every 8-aligned offset
// supports atomic 64-bit access.
type HostMemory struct {
	words    []uint64
	data     []byte
	maxPages uint32
}

// NewHostMemory creates a memory of the given initial size in pages.
func NewHostMemory(pages uint32) *HostMemory {
	m := &HostMemory{maxPages: DefaultMaxPages}
	m.setSize(pages)
	return m
}

// NewHostMemoryWithLimit creates a memory with a custom page limit.
func NewHostMemoryWithLimit(pages, maxPages uint32) *HostMemory {
	m := &HostMemory{maxPages: maxPages}
	m.setSize(pages)
	return m
}

func (m *HostMemory) setSize(pages uint32) {
	bytes := uint64(pages) * PageSize
	words := make([]uint64, bytes/8)
	copy(words, m.words)
	m.words = words
	if bytes == 0 {
		m.data = nil
		return
	}
	m.data = unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), bytes)
}

// Size returns the current size in bytes.
func (m *HostMemory) Size() uint32 {
	return uint32(len(m.data))
}

// Grow extends the memory by the given number of pages and returns the
// previous size in pages. Growing reallocates the backing store: it is
// not safe concurrently with atomic access, mirroring wasm memories.
func (m *HostMemory) Grow(pages uint32) (uint32, bool) {
	current := uint32(len(m.data)) / PageSize
	if pages == 0 {
		return current, true
	}
	if current+pages > m.maxPages {
		return 0, false
	}
	m.setSize(current + pages)
	return current, true
}

func (m *HostMemory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, length, uint32(len(m.data)))
	}
	return nil
}

// Read returns a view of length bytes at offset. The view stays valid
// until the next Grow.
func (m *HostMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length : offset+length], nil
}

func (m *HostMemory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *HostMemory) ReadU8(offset uint32) (uint8, error) {
	if err := m.check(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

func (m *HostMemory) ReadU16(offset uint32) (uint16, error) {
	if err := m.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

func (m *HostMemory) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *HostMemory) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *HostMemory) WriteU8(offset uint32, value uint8) error {
	if err := m.check(offset, 1); err != nil {
		return err
	}
	m.data[offset] = value
	return nil
}

func (m *HostMemory) WriteU16(offset uint32, value uint16) error {
	if err := m.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[offset:], value)
	return nil
}

func (m *HostMemory) WriteU32(offset uint32, value uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

func (m *HostMemory) WriteU64(offset uint32, value uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}

// AddU64 atomically adds delta to the 8-aligned word at offset and
// returns the value observed before the addition.
func (m *HostMemory) AddU64(offset uint32, delta uint64) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	if offset%8 != 0 {
		return 0, errors.Misaligned(errors.PhaseMemory, offset, 8)
	}
	word := (*uint64)(unsafe.Pointer(&m.data[offset]))
	return atomic.AddUint64(word, delta) - delta, nil
}

// LoadU64 atomically loads the 8-aligned word at offset.
func (m *HostMemory) LoadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	if offset%8 != 0 {
		return 0, errors.Misaligned(errors.PhaseMemory, offset, 8)
	}
	word := (*uint64)(unsafe.Pointer(&m.data[offset]))
	return atomic.LoadUint64(word), nil
}

var (
	_ mvsruntime.Memory       = (*HostMemory)(nil)
	_ mvsruntime.MemorySizer  = (*HostMemory)(nil)
	_ mvsruntime.MemoryGrower = (*HostMemory)(nil)
	_ mvsruntime.AtomicMemory = (*HostMemory)(nil)
)
