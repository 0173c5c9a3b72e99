package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"golang.org/x/term"

	"github.com/mvslang/mvs-runtime/engine"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to guest wasm file")
		funcName    = flag.String("func", "", "Function to call (optional)")
		argList     = flag.String("args", "", "Integer arguments (comma-separated)")
		pages       = flag.Uint("pages", 0, "Memory limit in 64KB pages (0 = default)")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: mvsrun -wasm <file.wasm> [-func name] [-args 1,2,...]")
		fmt.Fprintln(os.Stderr, "       mvsrun -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       mvsrun -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, uint32(*pages)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *funcName, *argList, uint32(*pages), *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, funcName, argList string, pages uint32, listOnly bool) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	e, err := engine.NewWithConfig(ctx, &engine.Config{MemoryLimitPages: pages})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer e.Close(ctx)

	module, err := e.LoadModule(ctx, data)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}

	fmt.Printf("Module: %s\n", wasmFile)

	exports := module.ExportedFunctions()
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("\nExported functions:\n")
	for _, name := range names {
		fmt.Printf("  %s\n", formatSignature(name, exports[name]))
	}

	if listOnly {
		return nil
	}

	instance, err := module.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer instance.Close(ctx)

	if funcName == "" {
		funcName = pickEntryPoint(names)
		if funcName == "" {
			fmt.Printf("\nNo function specified and no common entry point found.\n")
			fmt.Printf("Use -func to specify a function to call.\n")
			return nil
		}
	}

	args, err := parseArgs(argList)
	if err != nil {
		return err
	}

	fmt.Printf("\nCalling %s(%s)...\n", funcName, argList)
	results, err := instance.Call(ctx, funcName, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}

	if def, ok := exports[funcName]; ok && len(results) > 0 {
		fmt.Printf("Result: %s\n", formatResults(results, def.ResultTypes()))
	}

	printRuntimeSummary(instance)
	return nil
}

// pickEntryPoint tries common entry points, then a sole export.
func pickEntryPoint(names []string) string {
	for _, candidate := range []string{"_start", "run", "main"} {
		for _, name := range names {
			if name == candidate {
				return candidate
			}
		}
	}
	if len(names) == 1 {
		return names[0]
	}
	return ""
}

func parseArgs(argList string) ([]uint64, error) {
	if argList == "" {
		return nil, nil
	}
	parts := strings.Split(argList, ",")
	args := make([]uint64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse argument %q: %w", p, err)
		}
		args = append(args, uint64(v))
	}
	return args, nil
}

func formatSignature(name string, def api.FunctionDefinition) string {
	var params []string
	for _, t := range def.ParamTypes() {
		params = append(params, api.ValueTypeName(t))
	}
	sig := name + "(" + strings.Join(params, ", ") + ")"
	if results := def.ResultTypes(); len(results) > 0 {
		var rs []string
		for _, t := range results {
			rs = append(rs, api.ValueTypeName(t))
		}
		sig += " -> " + strings.Join(rs, ", ")
	}
	return sig
}

func formatResults(results []uint64, types []api.ValueType) string {
	var parts []string
	for i, r := range results {
		t := api.ValueTypeI64
		if i < len(types) {
			t = types[i]
		}
		switch t {
		case api.ValueTypeF32:
			parts = append(parts, fmt.Sprintf("%v", api.DecodeF32(r)))
		case api.ValueTypeF64:
			parts = append(parts, fmt.Sprintf("%v", api.DecodeF64(r)))
		case api.ValueTypeI32:
			parts = append(parts, fmt.Sprintf("%d", int32(r)))
		default:
			parts = append(parts, fmt.Sprintf("%d", int64(r)))
		}
	}
	return strings.Join(parts, ", ")
}

func printRuntimeSummary(instance *engine.Instance) {
	stats := instance.HeapStats()
	fmt.Printf("\nHeap: %d allocs, %d frees, %d live blocks (%d bytes)\n",
		stats.Allocs, stats.Frees, stats.LiveBlocks, stats.LiveBytes)
	if table := instance.Witnesses(); table != nil && table.Len() > 0 {
		fmt.Printf("Witnesses: %d registered\n", table.Len())
	}
}
