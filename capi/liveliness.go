package capi

import (
	"context"

	"github.com/konnta0/zenoh-bridge/bridge"
	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
)

// LivelinessDeclareToken announces presence on keyExpr until the token is
// undeclared or its session is torn down. Returns the token handle, or
// NullHandle on failure.
func LivelinessDeclareToken(session Handle, keyExpr []byte) Handle {
	return guardHandle("liveliness_declare_token", func() (Handle, error) {
		ss, err := sessionFromHandle(session, errors.PhaseDeclare)
		if err != nil {
			return NullHandle, err
		}
		key, err := decodeString(errors.PhaseDeclare, "key expression", keyExpr)
		if err != nil {
			return NullHandle, err
		}
		reg, err := bridge.Run(bridge.Get(), func() (engine.Registration, error) {
			return ss.eng.DeclareLivelinessToken(context.Background(), key)
		})
		if err != nil {
			return NullHandle, err
		}
		ss.retain()
		return registry.Insert(typeToken, &registrationState{sess: ss, reg: reg}), nil
	})
}

// LivelinessUndeclareToken retracts the announcement and destroys the
// handle. Idempotent; a null or unknown handle is a no-op.
func LivelinessUndeclareToken(token Handle) {
	guardVoid("liveliness_undeclare_token", func() {
		undeclareRegistration(token, typeToken)
	})
}

// LivelinessDeclareSubscriber registers callback for presence changes on
// key expressions intersecting keyExpr. The callback runs synchronously on
// the delivering thread with the key borrowed for the duration of the
// call.
func LivelinessDeclareSubscriber(session Handle, keyExpr []byte, callback LivelinessCallback, ctx uintptr) Handle {
	return guardHandle("liveliness_declare_subscriber", func() (Handle, error) {
		if callback == nil {
			return NullHandle, errors.NullPointer(errors.PhaseDeclare, "callback")
		}
		ss, err := sessionFromHandle(session, errors.PhaseDeclare)
		if err != nil {
			return NullHandle, err
		}
		key, err := decodeString(errors.PhaseDeclare, "key expression", keyExpr)
		if err != nil {
			return NullHandle, err
		}
		handler := func(changedKey string, alive bool) {
			bridge.Get().Invoke(func() {
				callback([]byte(changedKey), alive, ctx)
			})
		}
		reg, err := bridge.Run(bridge.Get(), func() (engine.Registration, error) {
			return ss.eng.DeclareLivelinessSubscriber(context.Background(), key, handler)
		})
		if err != nil {
			return NullHandle, err
		}
		ss.retain()
		return registry.Insert(typeLivelinessSub, &registrationState{sess: ss, reg: reg}), nil
	})
}

// LivelinessUndeclareSubscriber retracts the registration and destroys
// the handle. Idempotent; a null or unknown handle is a no-op.
func LivelinessUndeclareSubscriber(subscriber Handle) {
	guardVoid("liveliness_undeclare_subscriber", func() {
		undeclareRegistration(subscriber, typeLivelinessSub)
	})
}
