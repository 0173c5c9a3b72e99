// Package errors provides structured error types for the MVS runtime.
//
// Errors are categorized by Phase (which runtime layer failed) and Kind
// (error category). The Error type carries the linear-memory address and
// witness involved, plus a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseArray, errors.KindOutOfBounds).
//		Addr(ptr).
//		Detail("header read past end of memory").
//		Build()
//
// Or the convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseExist, ptr, 32, memSize)
//	err := errors.InvalidHandle(errors.PhaseWitness, id)
//
// All errors implement the standard error interface and support
// errors.Is/As. Allocation exhaustion is not represented here: it is
// fatal by policy (see package memory).
package errors
