// Package engine hosts compiled guest modules under wazero and binds
// them to the value runtime.
//
// The engine instantiates one host module, named "mvs", into a wazero
// runtime. Guest modules import the runtime entry points from it:
//
//	mvs_malloc, mvs_free                    raw heap access
//	mvs_array_init/drop/copy/uniq/equal     shared arrays
//	mvs_exist_drop/copy/equal               existential containers
//	mvs_witness_trivial/array/exist         witness registration
//	mvs_sqrt, mvs_uptime_nanoseconds        utilities
//	mvs_print_i64, mvs_print_f64
//
// Pointers cross the boundary as i32 offsets into the guest's linear
// memory; witnesses cross as table ids handed out by the registration
// entry points. Each guest instance gets its own witness table and its
// own arena, laid out above the guest's static data (the exported
// __heap_base global when present, the initial memory size otherwise).
//
// The engine provides three types:
//
//	Engine   - owns the wazero runtime and the host module
//	Module   - a compiled guest, can create instances
//	Instance - a running guest with exports
//
// Engine and Module are safe for concurrent use. Instance is NOT
// thread-safe and should be driven by a single goroutine.
package engine
