package capi

import (
	"context"

	"github.com/konnta0/zenoh-bridge/bridge"
	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
)

// DeclarePublisher registers a long-lived publication on keyExpr with
// default options. Returns the publisher handle, or NullHandle on failure.
func DeclarePublisher(session Handle, keyExpr []byte) Handle {
	opts := PublisherOptionsDefault()
	return declarePublisher("declare_publisher", session, keyExpr, opts)
}

// DeclarePublisherWithOptions is DeclarePublisher with explicit
// quality-of-service options. A nil opts selects the defaults.
func DeclarePublisherWithOptions(session Handle, keyExpr []byte, opts *PublisherOptions) Handle {
	resolved := PublisherOptionsDefault()
	if opts != nil {
		resolved = *opts
	}
	return declarePublisher("declare_publisher_with_options", session, keyExpr, resolved)
}

func declarePublisher(op string, session Handle, keyExpr []byte, opts PublisherOptions) Handle {
	return guardHandle(op, func() (Handle, error) {
		ss, err := sessionFromHandle(session, errors.PhaseDeclare)
		if err != nil {
			return NullHandle, err
		}
		key, err := decodeString(errors.PhaseDeclare, "key expression", keyExpr)
		if err != nil {
			return NullHandle, err
		}
		engOpts := publisherOptionsToEngine(opts)
		pub, err := bridge.Run(bridge.Get(), func() (engine.Publisher, error) {
			return ss.eng.DeclarePublisher(context.Background(), key, &engOpts)
		})
		if err != nil {
			return NullHandle, err
		}
		ss.retain()
		return registry.Insert(typePublisher, &publisherState{sess: ss, pub: pub}), nil
	})
}

func publisherFromHandle(h Handle) (*publisherState, error) {
	if h == NullHandle {
		return nil, errors.NullPointer(errors.PhasePublish, "publisher")
	}
	v, ok := registry.GetTyped(h, typePublisher)
	if !ok {
		return nil, errors.SessionClosed(errors.PhasePublish)
	}
	return v.(*publisherState), nil
}

// PublisherPut publishes payload on the publisher's key expression.
// payload may be empty.
func PublisherPut(publisher Handle, payload []byte) Code {
	return guardCode("publisher_put", func() error {
		ps, err := publisherFromHandle(publisher)
		if err != nil {
			return err
		}
		return bridge.RunVoid(bridge.Get(), func() error {
			return ps.pub.Put(context.Background(), payload, "")
		})
	})
}

// PublisherPutWithEncoding is PublisherPut with an explicit payload
// encoding.
func PublisherPutWithEncoding(publisher Handle, payload []byte, encoding EncodingID) Code {
	return guardCode("publisher_put_with_encoding", func() error {
		ps, err := publisherFromHandle(publisher)
		if err != nil {
			return err
		}
		return bridge.RunVoid(bridge.Get(), func() error {
			return ps.pub.Put(context.Background(), payload, encoding.MIME())
		})
	})
}

// PublisherDelete publishes a deletion on the publisher's key expression.
func PublisherDelete(publisher Handle) Code {
	return guardCode("publisher_delete", func() error {
		ps, err := publisherFromHandle(publisher)
		if err != nil {
			return err
		}
		return bridge.RunVoid(bridge.Get(), func() error {
			return ps.pub.Delete(context.Background())
		})
	})
}

// UndeclarePublisher retracts the publication and destroys its handle.
// Idempotent; a null or unknown handle is a no-op.
func UndeclarePublisher(publisher Handle) {
	guardVoid("undeclare_publisher", func() {
		v, ok := registry.RemoveTyped(publisher, typePublisher)
		if !ok {
			return
		}
		ps := v.(*publisherState)
		_ = bridge.RunVoid(bridge.Get(), func() error {
			err := ps.pub.Undeclare()
			ps.sess.release()
			return err
		})
	})
}
