package capi

import (
	"context"
	"encoding/hex"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/konnta0/zenoh-bridge/bridge"
	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/engine/mesh"
	"github.com/konnta0/zenoh-bridge/errors"
)

// Open establishes a session and returns its handle, or NullHandle on
// failure with the diagnostic in the error channel. configText is a JSON
// configuration document; nil or empty selects the defaults.
func Open(configText []byte) Handle {
	return guardHandle("open_session", func() (Handle, error) {
		cfg := engine.DefaultConfig()
		if len(configText) > 0 {
			if !utf8.Valid(configText) {
				return NullHandle, errors.InvalidUTF8(errors.PhaseConfig, "config", configText)
			}
			parsed, err := engine.ParseConfig(configText)
			if err != nil {
				return NullHandle, err
			}
			cfg = parsed
		}
		eng, err := bridge.Run(bridge.Get(), func() (engine.Session, error) {
			return mesh.Open(context.Background(), cfg, mesh.WithLogger(bridge.Logger()))
		})
		if err != nil {
			return NullHandle, errors.OpenFailed(err)
		}
		h := registry.Insert(typeSession, newSessionState(eng))
		bridge.Logger().Debug("session opened", zap.Uint64("handle", uint64(h)))
		return h, nil
	})
}

// Close destroys a session handle. The underlying connection is torn down
// once every dependent resource has also been destroyed. Idempotent; a
// null or unknown handle is a no-op.
func Close(session Handle) {
	guardVoid("close_session", func() {
		v, ok := registry.RemoveTyped(session, typeSession)
		if !ok {
			return
		}
		ss := v.(*sessionState)
		_ = bridge.RunVoid(bridge.Get(), func() error {
			ss.release()
			return nil
		})
		bridge.Logger().Debug("session closed", zap.Uint64("handle", uint64(session)))
	})
}

func sessionPut(session Handle, keyExpr, payload []byte, opts *engine.PutOptions) error {
	ss, err := sessionFromHandle(session, errors.PhasePublish)
	if err != nil {
		return err
	}
	key, err := decodeString(errors.PhasePublish, "key expression", keyExpr)
	if err != nil {
		return err
	}
	return bridge.RunVoid(bridge.Get(), func() error {
		return ss.eng.Put(context.Background(), key, payload, opts)
	})
}

// Put publishes payload on a key expression through the session.
func Put(session Handle, keyExpr, payload []byte) Code {
	return guardCode("put", func() error {
		return sessionPut(session, keyExpr, payload, nil)
	})
}

// PutWithEncoding is Put with an explicit payload encoding.
func PutWithEncoding(session Handle, keyExpr, payload []byte, encoding EncodingID) Code {
	return guardCode("put_with_encoding", func() error {
		return sessionPut(session, keyExpr, payload, &engine.PutOptions{Encoding: encoding.MIME()})
	})
}

// PutWithAttachment is Put with a key/value attachment list. Entries with
// a nil or invalid-UTF-8 key are skipped, not fatal.
func PutWithAttachment(session Handle, keyExpr, payload []byte, items []AttachmentItem) Code {
	return guardCode("put_with_attachment", func() error {
		return sessionPut(session, keyExpr, payload, &engine.PutOptions{
			Attachment: EncodeAttachment(items),
		})
	})
}

// Delete publishes a deletion on a key expression through the session.
func Delete(session Handle, keyExpr []byte) Code {
	return guardCode("delete", func() error {
		ss, err := sessionFromHandle(session, errors.PhasePublish)
		if err != nil {
			return err
		}
		key, err := decodeString(errors.PhasePublish, "key expression", keyExpr)
		if err != nil {
			return err
		}
		return bridge.RunVoid(bridge.Get(), func() error {
			return ss.eng.Delete(context.Background(), key)
		})
	})
}

// Get issues a blocking query on selector. callback is invoked once per
// matching reply, synchronously, before Get returns; the sample view it
// receives is valid only for the duration of each invocation.
func Get(session Handle, selector []byte, callback SampleCallback, ctx uintptr) Code {
	return guardCode("get", func() error {
		if callback == nil {
			return errors.NullPointer(errors.PhaseQuery, "callback")
		}
		ss, err := sessionFromHandle(session, errors.PhaseQuery)
		if err != nil {
			return err
		}
		sel, err := decodeString(errors.PhaseQuery, "selector", selector)
		if err != nil {
			return err
		}
		// Borrowing shape: the reply loop captures callback and ctx for
		// the scope of this call only.
		return runGet(ss, sel, callback, ctx)
	})
}

func runGet(ss *sessionState, selector string, callback SampleCallback, ctx uintptr) error {
	_, err := bridge.RunScoped(bridge.Get(), func() (struct{}, error) {
		err := ss.eng.Get(context.Background(), selector, func(s *engine.Sample) {
			bridge.Get().Invoke(func() {
				callback(sampleView(s), ctx)
			})
		})
		return struct{}{}, err
	})
	return err
}

// SessionZid returns a freshly allocated lowercase-hex string identifying
// the session's endpoint. Release it with FreeString.
func SessionZid(session Handle) Handle {
	return guardHandle("session_zid", func() (Handle, error) {
		ss, err := sessionFromHandle(session, errors.PhaseBridge)
		if err != nil {
			return NullHandle, err
		}
		zid := ss.eng.ZID()
		return newString(hex.EncodeToString(zid[:])), nil
	})
}
