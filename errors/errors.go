package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which runtime layer the error occurred in
type Phase string

const (
	PhaseMemory  Phase = "memory"  // linear memory access
	PhaseAlloc   Phase = "alloc"   // arena allocation
	PhaseArray   Phase = "array"   // shared array operations
	PhaseExist   Phase = "exist"   // existential container operations
	PhaseWitness Phase = "witness" // witness registration and lookup
	PhaseHost    Phase = "host"    // host function dispatch
	PhaseRun     Phase = "run"     // module loading and execution
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfBounds     Kind = "out_of_bounds"
	KindInvalidHandle   Kind = "invalid_handle"
	KindWitnessMismatch Kind = "witness_mismatch"
	KindInvalidInput    Kind = "invalid_input"
	KindNotFound        Kind = "not_found"
	KindUnsupported     Kind = "unsupported"
	KindInstantiation   Kind = "instantiation"
	KindMisaligned      Kind = "misaligned"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	Witness string
	Detail  string
	Addr    uint32
	HasAddr bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.HasAddr {
		fmt.Fprintf(&b, " at 0x%x", e.Addr)
	}
	if e.Witness != "" {
		b.WriteString(" (witness ")
		b.WriteString(e.Witness)
		b.WriteByte(')')
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by phase and kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Addr records the linear-memory address involved
func (b *Builder) Addr(addr uint32) *Builder {
	b.err.Addr = addr
	b.err.HasAddr = true
	return b
}

// Witness records the witness involved, by name or id
func (b *Builder) Witness(w string) *Builder {
	b.err.Witness = w
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfBounds creates an out-of-bounds memory access error
func OutOfBounds(phase Phase, addr, length, size uint32) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOutOfBounds,
		Addr:    addr,
		HasAddr: true,
		Detail:  fmt.Sprintf("access of %d bytes past memory of %d bytes", length, size),
	}
}

// Misaligned creates a misaligned atomic access error
func Misaligned(phase Phase, addr, align uint32) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindMisaligned,
		Addr:    addr,
		HasAddr: true,
		Detail:  fmt.Sprintf("address is not %d-aligned", align),
	}
}

// InvalidHandle creates an error for an unknown witness id
func InvalidHandle(phase Phase, id uint32) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindInvalidHandle,
		Witness: fmt.Sprintf("#%d", id),
		Detail:  "no witness registered under this id",
	}
}

// WitnessMismatch creates an error for inconsistent witness use
func WitnessMismatch(phase Phase, want, got string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindWitnessMismatch,
		Detail:  fmt.Sprintf("expected witness %s, got %s", want, got),
		Witness: got,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a missing export/function error
func NotFound(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: what,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}
