// Package witness implements type witnesses: type-erased descriptors of
// how to initialize, destroy, copy, and compare instances of a concrete
// MVS type stored in linear memory.
//
// A witness operation that is nil marks the operation as trivial:
//
//   - nil Init: bitwise zero is a valid instance (zero-fill suffices)
//   - nil Drop: no cleanup beyond memory reclamation
//   - nil Copy: a bitwise copy is a correct copy
//
// Equal has no trivial fallback and is required by any caller that
// compares values. The four operations of a witness must be mutually
// consistent: a copied instance must drop cleanly and compare equal to
// its source immediately after the copy.
//
// Witnesses are immutable once registered and compared by identity. The
// Table assigns each registered witness a dense uint32 id; generated
// code refers to witnesses by id where the native runtime would pass a
// descriptor pointer. Id 0 is reserved and always invalid.
package witness
