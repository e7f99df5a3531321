package capi

import (
	"context"

	"github.com/konnta0/zenoh-bridge/bridge"
	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
)

// DeclareSubscriber registers callback for every sample whose key
// intersects keyExpr. The callback runs synchronously on the delivering
// thread; boundary calls it issues take the reentrant bridge path. ctx is
// an opaque word passed through to every invocation.
func DeclareSubscriber(session Handle, keyExpr []byte, callback SampleCallback, ctx uintptr) Handle {
	return guardHandle("declare_subscriber", func() (Handle, error) {
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
		handler := func(s *engine.Sample) {
			bridge.Get().Invoke(func() {
				callback(sampleView(s), ctx)
			})
		}
		reg, err := bridge.Run(bridge.Get(), func() (engine.Registration, error) {
			return ss.eng.DeclareSubscriber(context.Background(), key, handler)
		})
		if err != nil {
			return NullHandle, err
		}
		ss.retain()
		return registry.Insert(typeSubscriber, &registrationState{sess: ss, reg: reg}), nil
	})
}

// UndeclareSubscriber retracts the registration and destroys its handle.
// Idempotent; a null or unknown handle is a no-op.
func UndeclareSubscriber(subscriber Handle) {
	guardVoid("undeclare_subscriber", func() {
		undeclareRegistration(subscriber, typeSubscriber)
	})
}

func undeclareRegistration(h Handle, typeID uint32) {
	v, ok := registry.RemoveTyped(h, typeID)
	if !ok {
		return
	}
	rs := v.(*registrationState)
	_ = bridge.RunVoid(bridge.Get(), func() error {
		err := rs.reg.Undeclare()
		rs.sess.release()
		return err
	})
}
