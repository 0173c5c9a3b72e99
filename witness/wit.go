package witness

import (
	"go.bytecodealliance.org/wit"

	"github.com/mvslang/mvs-runtime/layout"
)

// FromWIT derives a trivial witness from a WIT type description. The
// toolchain uses this for element types that are plain data: the
// witness carries only the Canonical ABI size and alignment, with
// bitwise copy and comparison.
//
// Types whose values own storage (arrays, existentials) must not go
// through FromWIT; their witnesses come from the array and exist
// packages instead.
func FromWIT(name string, t wit.Type) *Witness {
	return FromWITWithCalculator(name, t, layout.NewCalculator())
}

// FromWITWithCalculator is FromWIT with a shared, memoizing calculator.
func FromWITWithCalculator(name string, t wit.Type, calc *layout.Calculator) *Witness {
	info := calc.Calculate(t)

	align := info.Align
	if align == 0 {
		align = 1
	}

	return &Witness{
		Name:  name,
		Size:  info.Size,
		Align: align,
		Equal: bitwiseEqualFunc(info.Size),
	}
}
