// Package array implements the shared copy-on-write array of the MVS
// runtime.
//
// An array value in generated code is a single 4-byte handle slot
// holding the address of the array's payload, or 0 for an array of
// zero capacity, which owns no storage at all. A non-empty array has
// one contiguous allocation:
//
//	{ header: refc u64, count u64, capacity u64 } { payload: count × stride bytes }
//
// The handle points at the payload base; the header sits immediately
// before it. Every handle produced by Copy shares the same storage and
// participates in the reference count. Uniq is the sole mutation gate:
// a caller that wants to write through a handle must uniquify it first,
// which deep-copies the payload only when the storage is shared.
//
// The reference count is the only cross-handle synchronization:
// increments are relaxed, decrements acquire-release, so the handle
// whose decrement reaches zero observes all prior writes before it
// runs element destructors and frees the storage.
package array
