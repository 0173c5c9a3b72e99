package exist

import (
	mvsruntime "github.com/mvslang/mvs-runtime"
	"github.com/mvslang/mvs-runtime/witness"
)

// ElemWitness returns a witness describing existential-typed values, so
// containers can live inside arrays and inside other existentials. A
// zeroed container is the cleared state, so initialization is trivial.
func (o *Ops) ElemWitness() *witness.Witness {
	return &witness.Witness{
		Name:  "any",
		Size:  ContainerSize,
		Align: 8,
		Drop: func(_ mvsruntime.Memory, addr uint32) error {
			return o.Drop(addr)
		},
		Copy: func(_ mvsruntime.Memory, dst, src uint32) error {
			return o.Copy(dst, src)
		},
		Equal: func(_ mvsruntime.Memory, a, b uint32) (bool, error) {
			return o.Equal(a, b)
		},
	}
}
