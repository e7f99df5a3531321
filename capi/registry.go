package capi

import (
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/konnta0/zenoh-bridge/bridge"
	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
	"github.com/konnta0/zenoh-bridge/resource"
)

// Handle is the opaque address a foreign caller holds for a boundary
// resource. NullHandle is never a live resource; destroying a null,
// unknown or already-destroyed handle is a safe no-op.
type Handle = resource.Handle

// NullHandle is the zero handle.
const NullHandle Handle = 0

// Resource kind identifiers within the registry.
const (
	typeSession uint32 = iota + 1
	typePublisher
	typeSubscriber
	typeQueryable
	typeQuery
	typeQuerier
	typeToken
	typeLivelinessSub
	typeString
)

var registry = resource.NewTable()

// sessionState wraps the engine connection behind a session handle. Every
// dependent resource retains it at creation and releases it at destroy
// time, so the connection outlives early session-handle destruction until
// the last dependent is gone.
type sessionState struct {
	eng  engine.Session
	refs atomic.Int64
}

func newSessionState(eng engine.Session) *sessionState {
	ss := &sessionState{eng: eng}
	ss.refs.Store(1)
	return ss
}

func (ss *sessionState) retain() {
	ss.refs.Add(1)
}

func (ss *sessionState) release() {
	if ss.refs.Add(-1) != 0 {
		return
	}
	if err := ss.eng.Close(); err != nil {
		bridge.Logger().Debug("engine close on last release", zap.Error(err))
	}
}

type publisherState struct {
	sess *sessionState
	pub  engine.Publisher
}

// registrationState backs subscriber, queryable and liveliness handles.
type registrationState struct {
	sess *sessionState
	reg  engine.Registration
}

type queryState struct {
	q engine.Query
}

type querierState struct {
	sess *sessionState
	qr   engine.Querier
}

func sessionFromHandle(h Handle, phase errors.Phase) (*sessionState, error) {
	if h == NullHandle {
		return nil, errors.NullPointer(phase, "session")
	}
	v, ok := registry.GetTyped(h, typeSession)
	if !ok {
		return nil, errors.SessionClosed(phase)
	}
	return v.(*sessionState), nil
}

// decodeString validates an inbound foreign string: non-nil and UTF-8.
func decodeString(phase errors.Phase, what string, raw []byte) (string, error) {
	if raw == nil {
		return "", errors.NullPointer(phase, what)
	}
	if !utf8.Valid(raw) {
		return "", errors.InvalidUTF8(phase, what, raw)
	}
	return string(raw), nil
}

func newString(s string) Handle {
	return registry.Insert(typeString, s)
}

// StringValue reads a string previously returned by this layer (query
// selector, session zid). Unknown or freed handles read as empty.
func StringValue(h Handle) string {
	v, ok := registry.GetTyped(h, typeString)
	if !ok {
		return ""
	}
	return v.(string)
}

// FreeString releases a string previously returned by this layer. Freeing
// a null, unknown or already-freed handle is a no-op.
func FreeString(h Handle) {
	guardVoid("free_string", func() {
		registry.RemoveTyped(h, typeString)
	})
}

// SetLogger installs a logger for boundary and bridge diagnostics. The
// default is a no-op logger.
func SetLogger(l *zap.Logger) {
	bridge.SetLogger(l)
}

// ResourceCounts reports the number of live handles per resource kind.
// Diagnostic surface only; the counts are a snapshot.
func ResourceCounts() map[string]int {
	kinds := map[string]uint32{
		"session":    typeSession,
		"publisher":  typePublisher,
		"subscriber": typeSubscriber,
		"queryable":  typeQueryable,
		"query":      typeQuery,
		"querier":    typeQuerier,
		"token":      typeToken,
		"liveliness": typeLivelinessSub,
		"string":     typeString,
	}
	out := make(map[string]int, len(kinds))
	for name, id := range kinds {
		out[name] = registry.LenTyped(id)
	}
	return out
}

// SubscribeResources registers an observer for handle lifecycle events.
func SubscribeResources(o resource.Observer) {
	registry.Subscribe(o)
}

// UnsubscribeResources removes a previously registered observer.
func UnsubscribeResources(o resource.Observer) {
	registry.Unsubscribe(o)
}
