package memory

import (
	"fmt"
	"os"
	"sync/atomic"

	mvsruntime "github.com/mvslang/mvs-runtime"
)

// FatalHandler receives unrecoverable allocation failures.
type FatalHandler func(format string, args ...any)

var fatalHandler atomic.Value // FatalHandler

func init() {
	fatalHandler.Store(FatalHandler(func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
		os.Exit(1)
	}))
}

// Fatalf reports an unrecoverable condition. The default handler writes
// the diagnostic to stderr and terminates the process.
func Fatalf(format string, args ...any) {
	fatalHandler.Load().(FatalHandler)(format, args...)
}

// SetFatalHandler replaces the fatal handler. Tests install a handler
// that panics so the failure can be observed with recover.
func SetFatalHandler(fn FatalHandler) {
	fatalHandler.Store(fn)
}

// MustAlloc allocates through a and treats failure as fatal, per the
// runtime's out-of-memory policy.
func MustAlloc(a mvsruntime.Allocator, size, align uint32) uint32 {
	ptr, err := a.Alloc(size, align)
	if err != nil {
		Fatalf("mvs: failed to allocate %d bytes: %v", size, err)
	}
	return ptr
}
