package capi

import (
	"context"

	"github.com/konnta0/zenoh-bridge/bridge"
	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
)

// DeclareQuerier registers a long-lived query issuer bound to selector.
// Returns the querier handle, or NullHandle on failure.
func DeclareQuerier(session Handle, selector []byte) Handle {
	return guardHandle("declare_querier", func() (Handle, error) {
		ss, err := sessionFromHandle(session, errors.PhaseDeclare)
		if err != nil {
			return NullHandle, err
		}
		sel, err := decodeString(errors.PhaseDeclare, "selector", selector)
		if err != nil {
			return NullHandle, err
		}
		qr, err := bridge.Run(bridge.Get(), func() (engine.Querier, error) {
			return ss.eng.DeclareQuerier(context.Background(), sel)
		})
		if err != nil {
			return NullHandle, err
		}
		ss.retain()
		return registry.Insert(typeQuerier, &querierState{sess: ss, qr: qr}), nil
	})
}

// QuerierGet issues one query on the querier's selector, blocking like
// Get: callback runs once per reply, synchronously, before the call
// returns.
func QuerierGet(querier Handle, callback SampleCallback, ctx uintptr) Code {
	return guardCode("querier_get", func() error {
		if callback == nil {
			return errors.NullPointer(errors.PhaseQuery, "callback")
		}
		if querier == NullHandle {
			return errors.NullPointer(errors.PhaseQuery, "querier")
		}
		v, ok := registry.GetTyped(querier, typeQuerier)
		if !ok {
			return errors.SessionClosed(errors.PhaseQuery)
		}
		qs := v.(*querierState)
		_, err := bridge.RunScoped(bridge.Get(), func() (struct{}, error) {
			err := qs.qr.Get(context.Background(), func(s *engine.Sample) {
				bridge.Get().Invoke(func() {
					callback(sampleView(s), ctx)
				})
			})
			return struct{}{}, err
		})
		return err
	})
}

// UndeclareQuerier retracts the querier and destroys its handle.
// Idempotent; a null or unknown handle is a no-op.
func UndeclareQuerier(querier Handle) {
	guardVoid("undeclare_querier", func() {
		v, ok := registry.RemoveTyped(querier, typeQuerier)
		if !ok {
			return
		}
		qs := v.(*querierState)
		_ = bridge.RunVoid(bridge.Get(), func() error {
			err := qs.qr.Undeclare()
			qs.sess.release()
			return err
		})
	})
}
