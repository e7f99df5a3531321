package capi

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/konnta0/zenoh-bridge/bridge"
	"github.com/konnta0/zenoh-bridge/errors"
)

// The guards wrap every boundary entry point: the calling goroutine is
// pinned to its OS thread for the duration of the call (the error channel
// and the reentrancy detector key off the thread id), the thread's error
// slot is cleared before real work starts, and an internal panic is caught
// and converted into a documented failure instead of unwinding into
// foreign code.

func guardCode(op string, fn func() error) (code Code) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	clearLastError()
	defer func() {
		if r := recover(); r != nil {
			fault := errors.InternalFault(op, r)
			bridge.Logger().Error("panic at boundary",
				zap.String("op", op), zap.Any("recovered", r))
			setLastError(fault.Error())
			code = CodeInternalFault
		}
	}()
	if err := fn(); err != nil {
		setLastError(err.Error())
		return codeFromError(err)
	}
	return CodeOK
}

func guardHandle(op string, fn func() (Handle, error)) (h Handle) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	clearLastError()
	defer func() {
		if r := recover(); r != nil {
			fault := errors.InternalFault(op, r)
			bridge.Logger().Error("panic at boundary",
				zap.String("op", op), zap.Any("recovered", r))
			setLastError(fault.Error())
			h = NullHandle
		}
	}()
	v, err := fn()
	if err != nil {
		setLastError(err.Error())
		return NullHandle
	}
	return v
}

func guardVoid(op string, fn func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	clearLastError()
	defer func() {
		if r := recover(); r != nil {
			fault := errors.InternalFault(op, r)
			bridge.Logger().Error("panic at boundary",
				zap.String("op", op), zap.Any("recovered", r))
			setLastError(fault.Error())
		}
	}()
	fn()
}
