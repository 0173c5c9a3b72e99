package witness

import (
	"fmt"

	mvsruntime "github.com/mvslang/mvs-runtime"
)

// Builtin witnesses for the machine types of generated code. Each is a
// process-wide singleton so that identity comparison works for embedders
// that share witnesses across tables.

func bitwiseEqualFunc(size uint32) func(mvsruntime.Memory, uint32, uint32) (bool, error) {
	return func(mem mvsruntime.Memory, a, b uint32) (bool, error) {
		return BitwiseEqual(mem, a, b, size)
	}
}

func trivial(name string, size, align uint32) *Witness {
	return &Witness{
		Name:  name,
		Size:  size,
		Align: align,
		Equal: bitwiseEqualFunc(size),
	}
}

var (
	i8  = trivial("i8", 1, 1)
	i16 = trivial("i16", 2, 2)
	i32 = trivial("i32", 4, 4)
	i64 = trivial("i64", 8, 8)
	f32 = trivial("f32", 4, 4)
	f64 = trivial("f64", 8, 8)
)

// I8 returns the witness for 8-bit integers.
func I8() *Witness { return i8 }

// I16 returns the witness for 16-bit integers.
func I16() *Witness { return i16 }

// I32 returns the witness for 32-bit integers.
func I32() *Witness { return i32 }

// I64 returns the witness for 64-bit integers.
func I64() *Witness { return i64 }

// F32 returns the witness for 32-bit floats.
func F32() *Witness { return f32 }

// F64 returns the witness for 64-bit floats.
func F64() *Witness { return f64 }

// Word returns a fresh trivial witness for an opaque aggregate of the
// given byte size, compared bitwise. Generated code registers one per
// trivially-copyable source type.
func Word(size uint32) *Witness {
	align := uint32(8)
	for align > 1 && size%align != 0 {
		align >>= 1
	}
	return &Witness{
		Name:  fmt.Sprintf("word%d", size),
		Size:  size,
		Align: align,
		Equal: bitwiseEqualFunc(size),
	}
}
