package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which stage of a boundary call the error occurred in
type Phase string

const (
	PhaseValidate Phase = "validate" // input validation before any engine work
	PhaseConfig   Phase = "config"   // session configuration parsing
	PhaseOpen     Phase = "open"     // session open/close
	PhaseDeclare  Phase = "declare"  // publisher/subscriber/queryable/querier/token declaration
	PhasePublish  Phase = "publish"  // put and delete operations
	PhaseQuery    Phase = "query"    // get, reply and drop operations
	PhaseBridge   Phase = "bridge"   // blocking bridge and execution context
	PhaseInternal Phase = "internal" // caught faults inside the boundary layer
)

// Kind categorizes the error
type Kind string

const (
	KindNullPointer   Kind = "null_pointer"
	KindInvalidUTF8   Kind = "invalid_utf8"
	KindInvalidConfig Kind = "invalid_config"
	KindInvalidKey    Kind = "invalid_key_expr"
	KindSessionClosed Kind = "session_closed"
	KindOpenFailed    Kind = "open_failed"
	KindPutFailed     Kind = "put_failed"
	KindDeclareFailed Kind = "declare_failed"
	KindQueryFailed   Kind = "query_failed"
	KindReplyFailed   Kind = "reply_failed"
	KindInternalFault Kind = "internal_fault"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Key    string // key expression or selector involved, if any
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Key != "" {
		b.WriteString(" at ")
		b.WriteString(e.Key)
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
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Key sets the key expression or selector involved
func (b *Builder) Key(key string) *Builder {
	b.err.Key = key
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

// NullPointer creates a null-pointer error for a missing required argument
func NullPointer(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullPointer,
		Detail: fmt.Sprintf("%s pointer is null", what),
	}
}

// InvalidUTF8 creates an invalid UTF-8 error for inbound string bytes
func InvalidUTF8(phase Phase, what string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Detail: fmt.Sprintf("invalid UTF-8 in %s: %x", what, preview),
	}
}

// InvalidConfig creates a config parse error
func InvalidConfig(cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidConfig,
		Detail: "config parse error",
		Cause:  cause,
	}
}

// InvalidKey creates an invalid key expression error
func InvalidKey(phase Phase, key string, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindInvalidKey,
		Key:   key,
		Cause: cause,
	}
}

// SessionClosed creates a session-closed error
func SessionClosed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSessionClosed,
		Detail: "session is closed",
	}
}

// OpenFailed wraps an engine failure while opening a session
func OpenFailed(cause error) *Error {
	return &Error{
		Phase:  PhaseOpen,
		Kind:   KindOpenFailed,
		Detail: "failed to open session",
		Cause:  cause,
	}
}

// PutFailed wraps an engine put failure
func PutFailed(key string, cause error) *Error {
	return &Error{
		Phase: PhasePublish,
		Kind:  KindPutFailed,
		Key:   key,
		Cause: cause,
	}
}

// DeclareFailed wraps an engine declare failure
func DeclareFailed(what, key string, cause error) *Error {
	return &Error{
		Phase:  PhaseDeclare,
		Kind:   KindDeclareFailed,
		Key:    key,
		Detail: fmt.Sprintf("failed to declare %s", what),
		Cause:  cause,
	}
}

// QueryFailed wraps an engine query failure
func QueryFailed(selector string, cause error) *Error {
	return &Error{
		Phase: PhaseQuery,
		Kind:  KindQueryFailed,
		Key:   selector,
		Cause: cause,
	}
}

// ReplyFailed wraps an engine reply failure
func ReplyFailed(key string, cause error) *Error {
	return &Error{
		Phase: PhaseQuery,
		Kind:  KindReplyFailed,
		Key:   key,
		Cause: cause,
	}
}

// InternalFault creates an internal-fault error from a recovered panic value
func InternalFault(where string, recovered any) *Error {
	return &Error{
		Phase:  PhaseInternal,
		Kind:   KindInternalFault,
		Detail: fmt.Sprintf("panic in %s: %v", where, recovered),
	}
}

// Wrap wraps an existing error with phase and kind context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
