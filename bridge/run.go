package bridge

import (
	"runtime"
)

// Run presents an asynchronous operation as a synchronous call and returns
// only after the operation has fully completed. This is the detached shape:
// op and its result may freely cross a thread boundary.
//
// If the calling thread is not driving the execution context, op runs on the
// calling thread directly. If it is (a foreign callback issued a new
// boundary call), op is handed to a fresh OS thread and the caller blocks on
// its completion, so a constrained scheduler never awaits itself.
func Run[T any](c *Context, op func() (T, error)) (T, error) {
	if !c.Inside() {
		return op()
	}

	Logger().Debug("reentrant boundary call, running detached")

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		v, err := op()
		done <- outcome{val: v, err: err}
	}()
	out := <-done
	return out.val, out.err
}

// RunScoped is the borrowing shape of Run: op may capture state whose
// lifetime is bounded by the calling frame (a callback closure under
// registration, a reply loop feeding a caller-held view). The spawned worker
// is joined before RunScoped returns, so everything op borrows outlives it.
func RunScoped[T any](c *Context, op func() (T, error)) (T, error) {
	if !c.Inside() {
		return op()
	}

	Logger().Debug("reentrant boundary call, running scoped")

	var (
		val T
		err error
	)
	join := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(join)
		val, err = op()
	}()
	<-join
	return val, err
}

// RunVoid is Run for operations with no result value.
func RunVoid(c *Context, op func() error) error {
	_, err := Run(c, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
