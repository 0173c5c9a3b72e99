package array

import (
	mvsruntime "github.com/mvslang/mvs-runtime"
	"github.com/mvslang/mvs-runtime/witness"
)

// ElemWitness returns a witness describing array-typed values with
// elements described by elem, so arrays nest inside other arrays and
// inside existential containers. The zero handle is the empty sentinel,
// so initialization is trivial; drop, copy, and equality delegate to
// the array operations.
func (o *Ops) ElemWitness(elem *witness.Witness) *witness.Witness {
	return &witness.Witness{
		Name:  "array<" + elem.Name + ">",
		Size:  HandleSize,
		Align: 4,
		Drop: func(_ mvsruntime.Memory, addr uint32) error {
			return o.Drop(addr, elem)
		},
		Copy: func(_ mvsruntime.Memory, dst, src uint32) error {
			return o.Copy(dst, src)
		},
		Equal: func(_ mvsruntime.Memory, a, b uint32) (bool, error) {
			return o.Equal(a, b, elem)
		},
	}
}
