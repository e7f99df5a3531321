package capi

import (
	"github.com/konnta0/zenoh-bridge/engine"
)

// Timestamp is the logical timestamp attached to a sample: an NTP64 time
// value plus the stable 16-byte identifier of the originating endpoint.
type Timestamp struct {
	NTP64 uint64
	ID    [16]byte
}

// Sample is the flat view handed to sample callbacks. It is borrowed: the
// struct and the byte slices it references are valid only for the duration
// of the callback invocation and must not be retained past its return.
//
// TimestampValid distinguishes a real timestamp from absent data; when it
// is false the Timestamp field carries no meaning.
type Sample struct {
	KeyExpr        []byte
	Payload        []byte
	Kind           SampleKind
	Encoding       EncodingID
	TimestampValid bool
	Timestamp      Timestamp
}

// SampleCallback receives one delivered sample together with the opaque
// context word supplied at registration.
type SampleCallback func(sample *Sample, ctx uintptr)

// QueryCallback receives one in-flight query. Ownership of the query
// handle transfers to the callback's consumer: it must be resolved by
// exactly one QueryReply or QueryDrop, on pain of leaking the requester's
// wait until the engine's query timeout.
type QueryCallback func(query Handle, ctx uintptr)

// LivelinessCallback receives one presence change: alive is true when a
// token appears on keyExpr, false when it is retracted. keyExpr is
// borrowed for the duration of the call.
type LivelinessCallback func(keyExpr []byte, alive bool, ctx uintptr)

func sampleView(s *engine.Sample) *Sample {
	view := &Sample{
		KeyExpr:  []byte(s.KeyExpr),
		Payload:  s.Payload,
		Kind:     SampleKind(s.Kind),
		Encoding: EncodingFromMIME(s.Encoding),
	}
	if s.HasTimestamp {
		view.TimestampValid = true
		view.Timestamp = Timestamp{NTP64: s.Timestamp.NTP64, ID: s.Timestamp.ID}
	}
	return view
}
