package capi

import (
	stderrors "errors"

	"github.com/konnta0/zenoh-bridge/errors"
)

// Code is the status returned by code-returning boundary operations. The
// set is closed and stable: foreign glue branches on these values.
type Code int32

const (
	CodeOK             Code = 0
	CodeInvalidConfig  Code = 1
	CodeSessionClosed  Code = 2
	CodeInvalidKeyExpr Code = 3
	CodePutFailed      Code = 4
	CodeNullPointer    Code = 5
	CodeInternalFault  Code = 254
	CodeUnknown        Code = 255
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidConfig:
		return "invalid config"
	case CodeSessionClosed:
		return "session closed"
	case CodeInvalidKeyExpr:
		return "invalid key expression"
	case CodePutFailed:
		return "put failed"
	case CodeNullPointer:
		return "null pointer"
	case CodeInternalFault:
		return "internal fault"
	default:
		return "unknown"
	}
}

// codeFromError collapses the structured error taxonomy into the coarse
// status code foreign callers branch on; the detailed message travels
// through the error channel instead.
func codeFromError(err error) Code {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return CodeUnknown
	}
	switch e.Kind {
	case errors.KindNullPointer:
		return CodeNullPointer
	case errors.KindInvalidConfig, errors.KindOpenFailed:
		return CodeInvalidConfig
	case errors.KindSessionClosed:
		return CodeSessionClosed
	case errors.KindInvalidKey, errors.KindInvalidUTF8:
		return CodeInvalidKeyExpr
	case errors.KindPutFailed, errors.KindReplyFailed:
		return CodePutFailed
	case errors.KindInternalFault:
		return CodeInternalFault
	default:
		return CodeUnknown
	}
}
