package capi

import (
	"sync"

	"github.com/konnta0/zenoh-bridge/bridge"
)

// Per-OS-thread diagnostic slots. Each boundary entry point clears the
// calling thread's slot before doing real work and writes into it on any
// failure path; concurrent callers on different threads never race.
var errSlots sync.Map // tid -> string

func clearLastError() {
	errSlots.Delete(bridge.ThreadID())
}

func setLastError(msg string) {
	errSlots.Store(bridge.ThreadID(), msg)
}

// LastError returns the diagnostic message from the most recent failing
// boundary call on the calling thread, or the empty string. The message is
// valid until the next boundary call on the same thread; callers that need
// a stable thread identity across two calls must be locked to their OS
// thread.
func LastError() string {
	if v, ok := errSlots.Load(bridge.ThreadID()); ok {
		return v.(string)
	}
	return ""
}
