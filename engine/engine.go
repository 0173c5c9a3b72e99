package engine

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	mvsruntime "github.com/mvslang/mvs-runtime"
	"github.com/mvslang/mvs-runtime/array"
	"github.com/mvslang/mvs-runtime/errors"
	"github.com/mvslang/mvs-runtime/exist"
	"github.com/mvslang/mvs-runtime/memory"
	"github.com/mvslang/mvs-runtime/witness"
)

// HostModule is the import namespace guest modules bind the runtime
// entry points from.
const HostModule = "mvs"

// heapBaseGlobal is the conventional export marking the end of a
// guest's static data. The arena starts there when present.
const heapBaseGlobal = "__heap_base"

// Config holds configuration for engine creation.
type Config struct {
	// Stdout receives the output of the print entry points.
	// Defaults to os.Stdout.
	Stdout io.Writer

	// MemoryLimitPages sets the maximum memory per instance in pages
	// (64KB each). 0 means the wazero default.
	MemoryLimitPages uint32
}

// Engine owns a wazero runtime with the "mvs" host module instantiated
// into it. One engine can host many guest modules and instances.
type Engine struct {
	runtime wazero.Runtime
	out     io.Writer
	epoch   time.Time
	states  sync.Map // api.Module -> *guestState
}

// New creates an engine with default configuration.
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	out := io.Writer(os.Stdout)

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.Stdout != nil {
			out = cfg.Stdout
		}
	}

	e := &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		out:     out,
		epoch:   time.Now(),
	}

	if err := e.instantiateHost(ctx); err != nil {
		e.runtime.Close(ctx)
		return nil, err
	}
	return e, nil
}

// Runtime exposes the underlying wazero runtime for embedders that
// need to instantiate additional host modules alongside "mvs".
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// LoadModule compiles a guest module.
func (e *Engine) LoadModule(ctx context.Context, wasmBytes []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.New(errors.PhaseRun, errors.KindInstantiation).
			Detail("compile module").Cause(err).Build()
	}
	return &Module{engine: e, compiled: compiled}, nil
}

// Module is a compiled guest module.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
}

// InstanceConfig holds configuration for module instantiation.
type InstanceConfig struct {
	Name string
}

func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// ExportedFunctions describes the module's exports, keyed by name.
func (m *Module) ExportedFunctions() map[string]api.FunctionDefinition {
	return m.compiled.ExportedFunctions()
}

func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	return m.InstantiateWithConfig(ctx, nil)
}

// InstantiateWithConfig creates a running instance. Instances are
// anonymous by default so one module can be instantiated in parallel.
func (m *Module) InstantiateWithConfig(ctx context.Context, cfg *InstanceConfig) (*Instance, error) {
	modConfig := wazero.NewModuleConfig().WithName("")
	if cfg != nil && cfg.Name != "" {
		modConfig = modConfig.WithName(cfg.Name)
	}

	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.New(errors.PhaseRun, errors.KindInstantiation).
			Detail("instantiate module").Cause(err).Build()
	}

	inst := &Instance{engine: m.engine, mod: mod}

	// Bind the runtime state up front so introspection works before the
	// first host call. Modules without a memory can still run pure code.
	if mod.Memory() != nil {
		if _, err := m.engine.state(mod); err != nil {
			mod.Close(ctx)
			return nil, err
		}
	}

	debugf("instantiated %q", mod.Name())
	return inst, nil
}

// Instance is a running guest module bound to the value runtime.
// It is NOT safe for concurrent use from multiple goroutines.
type Instance struct {
	engine *Engine
	mod    api.Module
}

// Call invokes an exported function by name.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	fn := i.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRun, "export "+name)
	}
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, errors.New(errors.PhaseRun, errors.KindInvalidInput).
			Detail("call %s", name).Cause(err).Build()
	}
	return results, nil
}

// ExportedFunction returns an exported function by name, nil if absent.
func (i *Instance) ExportedFunction(name string) api.Function {
	return i.mod.ExportedFunction(name)
}

// Memory returns the guest's linear memory, nil when the module
// declares none.
func (i *Instance) Memory() mvsruntime.Memory {
	s, ok := i.engine.states.Load(i.mod)
	if !ok {
		return nil
	}
	return s.(*guestState).mem
}

// Witnesses returns the instance's witness table, nil when the module
// declares no memory.
func (i *Instance) Witnesses() *witness.Table {
	s, ok := i.engine.states.Load(i.mod)
	if !ok {
		return nil
	}
	return s.(*guestState).table
}

// HeapStats reports arena counters for the instance's heap.
func (i *Instance) HeapStats() memory.Stats {
	s, ok := i.engine.states.Load(i.mod)
	if !ok {
		return memory.Stats{}
	}
	return s.(*guestState).heap.Stats()
}

// Arrays returns the array operations bound to the instance's memory.
func (i *Instance) Arrays() *array.Ops {
	s, ok := i.engine.states.Load(i.mod)
	if !ok {
		return nil
	}
	return s.(*guestState).arrays
}

// Exists returns the container operations bound to the instance's memory.
func (i *Instance) Exists() *exist.Ops {
	s, ok := i.engine.states.Load(i.mod)
	if !ok {
		return nil
	}
	return s.(*guestState).exists
}

func (i *Instance) Close(ctx context.Context) error {
	i.engine.states.Delete(i.mod)
	return i.mod.Close(ctx)
}

// guestState is the runtime state the host functions operate on, one
// per guest instance, keyed by the calling module.
type guestState struct {
	mem    *guestMemory
	heap   *memory.Arena
	table  *witness.Table
	arrays *array.Ops
	exists *exist.Ops

	mu       sync.Mutex
	wordIDs  map[uint32]witness.ID     // size -> trivial witness id
	arrayIDs map[witness.ID]witness.ID // element id -> array witness id
	existID  witness.ID
	mallocs  map[uint32]uint32 // raw malloc ptr -> size
}

// state returns the runtime state for a guest, creating it on first
// use. The arena starts at __heap_base when the guest exports it and
// at the initial memory size otherwise.
func (e *Engine) state(mod api.Module) (*guestState, error) {
	if s, ok := e.states.Load(mod); ok {
		return s.(*guestState), nil
	}

	apiMem := mod.Memory()
	if apiMem == nil {
		return nil, errors.New(errors.PhaseHost, errors.KindUnsupported).
			Detail("module %q exports no memory", mod.Name()).Build()
	}

	mem := &guestMemory{mem: apiMem}

	base := uint32(0)
	if g := mod.ExportedGlobal(heapBaseGlobal); g != nil {
		base = uint32(g.Get())
	}
	if base == 0 {
		base = mem.Size()
	}
	if base < memory.ArenaBase {
		base = memory.ArenaBase
	}

	heap := memory.NewArenaAt(mem, base)
	table := witness.NewTable()

	s := &guestState{
		mem:      mem,
		heap:     heap,
		table:    table,
		arrays:   array.New(mem, heap),
		wordIDs:  make(map[uint32]witness.ID),
		arrayIDs: make(map[witness.ID]witness.ID),
		mallocs:  make(map[uint32]uint32),
	}
	s.exists = exist.New(mem, heap, table)

	actual, loaded := e.states.LoadOrStore(mod, s)
	if !loaded {
		Logger().Debug("bound runtime state",
			zap.String("module", mod.Name()),
			zap.Uint32("heap_base", base))
	}
	return actual.(*guestState), nil
}
