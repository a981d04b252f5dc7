// Package errors provides structured error types for the pefile library.
//
// Errors are categorized by Phase (where in the parse pipeline the error
// occurred) and Kind (error category). The Error type includes the
// directory region name, the file offset where the failure was detected,
// and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDirectory, errors.KindInvalidRecord).
//		Region("import").
//		Offset(0x4a0).
//		Detail("library name %q is not printable", name).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotMapped(rva)
//	err := errors.LimitExceeded("tls", "callback list", cap)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
