// Package exist implements the existential container of the MVS
// runtime: a fixed-size box holding a value of statically-unknown,
// witness-described type.
//
// A container is 32 bytes of linear memory:
//
//	{ storage: 3 × u64 } { witness: u32 id } { pad: u32 }
//
// A payload whose size is at most InlineSize (24 bytes) lives directly
// in the inline storage; a larger payload lives in a single owned heap
// block of exactly the witness's size, whose address occupies the first
// inline word. Every operation branches on the witness's size to know
// which representation is in play; the container never mixes both.
//
// Unlike the shared array, existentials never share storage: Copy
// produces a fully independent instance, so containers carry no
// reference count and need no synchronization.
//
// The inline small-buffer split keeps the container's own size fixed
// regardless of payload size, which lets it be embedded in fixed-layout
// aggregates, including array elements and other existentials.
package exist
