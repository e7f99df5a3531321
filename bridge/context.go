package bridge

import (
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// Context is the process-wide execution context. It tracks which OS threads
// are currently driving asynchronous event delivery so that a boundary call
// arriving on one of them can be recognized as reentrant.
//
// There is exactly one Context per process, created on first use and never
// torn down; the process owns it for its lifetime.
type Context struct {
	mu      sync.Mutex
	threads map[int]int // tid -> nesting depth
}

var (
	global     *Context
	globalOnce sync.Once
)

// Get returns the process-wide execution context, creating it on first use.
func Get() *Context {
	globalOnce.Do(func() {
		global = &Context{threads: make(map[int]int)}
	})
	return global
}

// ThreadID returns the identity of the calling OS thread. Callers that need
// a stable identity across two calls must be locked to their thread.
func ThreadID() int {
	return unix.Gettid()
}

// Enter marks the calling OS thread as driving the execution context.
// The caller must be locked to its thread. Enter nests: a thread that
// re-enters stays inside until the matching number of Leave calls.
func (c *Context) Enter() {
	tid := ThreadID()
	c.mu.Lock()
	c.threads[tid]++
	c.mu.Unlock()
}

// Leave undoes one Enter on the calling OS thread.
func (c *Context) Leave() {
	tid := ThreadID()
	c.mu.Lock()
	if depth, ok := c.threads[tid]; ok {
		if depth <= 1 {
			delete(c.threads, tid)
		} else {
			c.threads[tid] = depth - 1
		}
	}
	c.mu.Unlock()
}

// Inside reports whether the calling OS thread is currently driving the
// execution context, that is, whether the current call arrived from within
// one of our own callbacks.
func (c *Context) Inside() bool {
	tid := ThreadID()
	c.mu.Lock()
	_, ok := c.threads[tid]
	c.mu.Unlock()
	return ok
}

// Invoke runs fn as a callback invocation: the calling goroutine is pinned
// to its OS thread and the thread is registered with the context for the
// duration of fn, so boundary calls made from inside fn take the reentrant
// path of the blocking bridge.
func (c *Context) Invoke(fn func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	c.Enter()
	defer c.Leave()
	fn()
}
