// Package errors provides structured error types for the zenoh-bridge library.
//
// Errors are categorized by Phase (which stage of a boundary call failed) and
// Kind (error category). The Kind determines the coarse status code surfaced
// across the boundary; the rendered message lands in the per-thread error
// channel for diagnostics.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDeclare, errors.KindDeclareFailed).
//		Key("demo/sensor/**").
//		Detail("engine rejected registration").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NullPointer(errors.PhasePublish, "publisher")
//	err := errors.InvalidUTF8(errors.PhaseDeclare, "key expression", raw)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
