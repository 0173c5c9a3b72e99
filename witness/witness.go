package witness

import (
	mvsruntime "github.com/mvslang/mvs-runtime"
)

// ID refers to a witness registered in a Table. ID 0 is reserved and
// always invalid.
type ID uint32

// Witness describes the value semantics of one concrete type. A nil
// Init, Drop, or Copy marks that operation as trivial; Equal is
// required whenever equality is used.
type Witness struct {
	// Init zero/default-initializes one instance in place.
	Init func(mem mvsruntime.Memory, addr uint32) error

	// Drop destroys one instance in place.
	Drop func(mem mvsruntime.Memory, addr uint32) error

	// Copy copies one instance from src to dst.
	Copy func(mem mvsruntime.Memory, dst, src uint32) error

	// Equal reports structural equality of two instances.
	Equal func(mem mvsruntime.Memory, a, b uint32) (bool, error)

	// Name identifies the witness in logs and errors.
	Name string

	// Size is the byte size (stride) of one instance.
	Size uint32

	// Align is the required alignment of an instance.
	Align uint32
}

// Trivial reports whether all lifecycle operations are trivial.
func (w *Witness) Trivial() bool {
	return w.Init == nil && w.Drop == nil && w.Copy == nil
}

// InitValue initializes one instance at addr, zero-filling when the
// witness has no Init.
func (w *Witness) InitValue(mem mvsruntime.Memory, addr uint32) error {
	if w.Init != nil {
		return w.Init(mem, addr)
	}
	return ZeroFill(mem, addr, w.Size)
}

// DropValue destroys one instance at addr. A nil Drop is a no-op.
func (w *Witness) DropValue(mem mvsruntime.Memory, addr uint32) error {
	if w.Drop == nil {
		return nil
	}
	return w.Drop(mem, addr)
}

// CopyValue copies one instance from src to dst, bitwise when the
// witness has no Copy.
func (w *Witness) CopyValue(mem mvsruntime.Memory, dst, src uint32) error {
	if w.Copy != nil {
		return w.Copy(mem, dst, src)
	}
	return BitwiseCopy(mem, dst, src, w.Size)
}

// EqualValues compares two instances through the witness's Equal.
func (w *Witness) EqualValues(mem mvsruntime.Memory, a, b uint32) (bool, error) {
	return w.Equal(mem, a, b)
}

// ZeroFill writes size zero bytes at addr.
func ZeroFill(mem mvsruntime.Memory, addr, size uint32) error {
	if size == 0 {
		return nil
	}
	return mem.Write(addr, make([]byte, size))
}

// BitwiseCopy copies size bytes from src to dst.
func BitwiseCopy(mem mvsruntime.Memory, dst, src, size uint32) error {
	if size == 0 {
		return nil
	}
	data, err := mem.Read(src, size)
	if err != nil {
		return err
	}
	return mem.Write(dst, data)
}

// BitwiseEqual compares size bytes at a and b.
func BitwiseEqual(mem mvsruntime.Memory, a, b, size uint32) (bool, error) {
	if size == 0 {
		return true, nil
	}
	lhs, err := mem.Read(a, size)
	if err != nil {
		return false, err
	}
	rhs, err := mem.Read(b, size)
	if err != nil {
		return false, err
	}
	for i := range lhs {
		if lhs[i] != rhs[i] {
			return false, nil
		}
	}
	return true, nil
}
