package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the parse pipeline the error occurred
type Phase string

const (
	PhaseHeader    Phase = "header"    // DOS/NT/optional header parsing
	PhaseSections  Phase = "sections"  // section table parsing
	PhaseDirectory Phase = "directory" // data-directory region parsing
	PhaseTranslate Phase = "translate" // RVA to file-offset translation
	PhaseVerify    Phase = "verify"    // post-parse strict validation
)

// Kind categorizes the error
type Kind string

const (
	KindStreamBounds   Kind = "stream_bounds"   // read outside the image buffer
	KindNotMapped      Kind = "not_mapped"      // RVA has no covering section
	KindInvalidRecord  Kind = "invalid_record"  // value fails a validity predicate
	KindUnknownVersion Kind = "unknown_version" // no size-table entry fits
	KindLimitExceeded  Kind = "limit_exceeded"  // walk would exceed a hard cap
	KindTruncated      Kind = "truncated"       // record extends past available bytes
	KindInvalidInput   Kind = "invalid_input"
	KindNotFound       Kind = "not_found"
)

// Error is the structured error type used throughout the parser
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Region string // directory region name, e.g. "import", "tls"
	Detail string
	Offset int64 // file offset where the error was detected, -1 if unknown
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Region != "" {
		b.WriteString(" in ")
		b.WriteString(e.Region)
	}
	if e.Offset > 0 {
		fmt.Fprintf(&b, " at %#x", e.Offset)
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

// Is reports whether target matches this error
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
			Phase:  phase,
			Kind:   kind,
			Offset: -1,
		},
	}
}

// Region sets the directory region name
func (b *Builder) Region(name string) *Builder {
	b.err.Region = name
	return b
}

// Offset sets the file offset where the error was detected
func (b *Builder) Offset(off int64) *Builder {
	b.err.Offset = off
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
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

// StreamBounds creates a read-outside-buffer error
func StreamBounds(phase Phase, region string, off int64, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStreamBounds,
		Region: region,
		Offset: off,
		Cause:  cause,
	}
}

// NotMapped creates an address-translation failure for an RVA with no
// covering section
func NotMapped(rva uint64) *Error {
	return &Error{
		Phase:  PhaseTranslate,
		Kind:   KindNotMapped,
		Offset: -1,
		Detail: fmt.Sprintf("rva %#x not covered by any section", rva),
		Value:  rva,
	}
}

// InvalidRecord creates a validity-predicate failure
func InvalidRecord(region string, off int64, detail string) *Error {
	return &Error{
		Phase:  PhaseDirectory,
		Kind:   KindInvalidRecord,
		Region: region,
		Offset: off,
		Detail: detail,
	}
}

// UnknownVersion creates a no-matching-schema error
func UnknownVersion(region string, observed uint32) *Error {
	return &Error{
		Phase:  PhaseDirectory,
		Kind:   KindUnknownVersion,
		Region: region,
		Offset: -1,
		Detail: fmt.Sprintf("observed size %#x below smallest known layout", observed),
		Value:  observed,
	}
}

// LimitExceeded creates a hard-cap violation
func LimitExceeded(region string, what string, limit int) *Error {
	return &Error{
		Phase:  PhaseDirectory,
		Kind:   KindLimitExceeded,
		Region: region,
		Offset: -1,
		Detail: fmt.Sprintf("%s exceeds cap %d", what, limit),
	}
}

// Truncated creates a record-past-end error
func Truncated(phase Phase, region string, off int64, need int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Region: region,
		Offset: off,
		Detail: fmt.Sprintf("need %d bytes", need),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Offset: -1,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Offset: -1,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: -1,
		Detail: detail,
		Cause:  cause,
	}
}
