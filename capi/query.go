package capi

import (
	"context"

	"github.com/konnta0/zenoh-bridge/bridge"
	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
)

// DeclareQueryable registers callback for incoming queries whose selector
// intersects keyExpr. The callback receives an owned query handle and must
// resolve it with exactly one QueryReply or QueryDrop; an unresolved query
// holds the requester's wait open until the engine's query timeout.
func DeclareQueryable(session Handle, keyExpr []byte, callback QueryCallback, ctx uintptr) Handle {
	return guardHandle("declare_queryable", func() (Handle, error) {
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
		handler := func(q engine.Query) {
			qh := registry.Insert(typeQuery, &queryState{q: q})
			bridge.Get().Invoke(func() {
				callback(qh, ctx)
			})
		}
		reg, err := bridge.Run(bridge.Get(), func() (engine.Registration, error) {
			return ss.eng.DeclareQueryable(context.Background(), key, handler)
		})
		if err != nil {
			return NullHandle, err
		}
		ss.retain()
		return registry.Insert(typeQueryable, &registrationState{sess: ss, reg: reg}), nil
	})
}

// UndeclareQueryable retracts the registration and destroys its handle.
// Idempotent; a null or unknown handle is a no-op.
func UndeclareQueryable(queryable Handle) {
	guardVoid("undeclare_queryable", func() {
		undeclareRegistration(queryable, typeQueryable)
	})
}

// QueryReply sends payload back to the requester and consumes the query
// handle. payload must be non-nil (an empty slice is a valid empty reply).
// The handle is consumed even when the reply fails, and a failed reply
// resolves the query as a drop so the requester's wait still terminates.
// A consumed or null handle reports a null-pointer failure.
func QueryReply(query Handle, keyExpr, payload []byte) Code {
	return guardCode("query_reply", func() error {
		v, ok := registry.RemoveTyped(query, typeQuery)
		if !ok {
			return errors.NullPointer(errors.PhaseQuery, "query")
		}
		qs := v.(*queryState)
		if payload == nil {
			qs.q.Drop()
			return errors.NullPointer(errors.PhaseQuery, "payload")
		}
		key, err := decodeString(errors.PhaseQuery, "key expression", keyExpr)
		if err != nil {
			// Consumed regardless: resolve as a drop so the requester's
			// wait terminates.
			qs.q.Drop()
			return err
		}
		if err := bridge.RunVoid(bridge.Get(), func() error {
			return qs.q.Reply(context.Background(), key, payload)
		}); err != nil {
			// The handle is gone, so nothing can resolve the query after
			// this point. Drop is a no-op if the reply already resolved it.
			qs.q.Drop()
			return err
		}
		return nil
	})
}

// QueryDrop resolves the query without replying and consumes the handle.
// A consumed, null or unknown handle is a no-op.
func QueryDrop(query Handle) {
	guardVoid("query_drop", func() {
		v, ok := registry.RemoveTyped(query, typeQuery)
		if !ok {
			return
		}
		qs := v.(*queryState)
		_ = bridge.RunVoid(bridge.Get(), func() error {
			qs.q.Drop()
			return nil
		})
	})
}

// QuerySelector returns a freshly allocated string holding the query's
// selector. Release it with FreeString. The query handle is not consumed.
func QuerySelector(query Handle) Handle {
	return guardHandle("query_selector", func() (Handle, error) {
		if query == NullHandle {
			return NullHandle, errors.NullPointer(errors.PhaseQuery, "query")
		}
		v, ok := registry.GetTyped(query, typeQuery)
		if !ok {
			return NullHandle, errors.NullPointer(errors.PhaseQuery, "query")
		}
		return newString(v.(*queryState).q.Selector()), nil
	})
}
