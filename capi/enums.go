package capi

import (
	"github.com/konnta0/zenoh-bridge/engine"
)

// CongestionControl selects the publisher's behavior when the send buffer
// is full.
type CongestionControl int32

const (
	CongestionBlock CongestionControl = 0
	CongestionDrop  CongestionControl = 1
)

// Priority orders messages; seven levels, lower is more urgent.
type Priority int32

const (
	PriorityRealTime        Priority = 1
	PriorityInteractiveHigh Priority = 2
	PriorityInteractiveLow  Priority = 3
	PriorityDataHigh        Priority = 4
	PriorityData            Priority = 5
	PriorityDataLow         Priority = 6
	PriorityBackground      Priority = 7
)

// SampleKind distinguishes publications from deletions in delivered
// samples.
type SampleKind int32

const (
	SampleKindPut    SampleKind = 0
	SampleKindDelete SampleKind = 1
)

// PublisherOptions carries the quality-of-service settings accepted by
// DeclarePublisherWithOptions.
type PublisherOptions struct {
	CongestionControl CongestionControl
	Priority          Priority
	IsExpress         bool
}

// PublisherOptionsDefault returns the default publisher options: drop on
// congestion, data priority, express off.
func PublisherOptionsDefault() PublisherOptions {
	return PublisherOptions{
		CongestionControl: CongestionDrop,
		Priority:          PriorityData,
		IsExpress:         false,
	}
}

// EncodingID identifies the payload encoding as one of a closed set of
// common MIME types. Unrecognized encodings map to AppOctetStream, never
// to an error.
type EncodingID int32

const (
	EncodingEmpty          EncodingID = 0
	EncodingAppOctetStream EncodingID = 1
	EncodingTextPlain      EncodingID = 2
	EncodingAppJSON        EncodingID = 3
	EncodingTextJSON       EncodingID = 4
	EncodingAppCBOR        EncodingID = 5
	EncodingAppYAML        EncodingID = 6
	EncodingTextYAML       EncodingID = 7
	EncodingTextXML        EncodingID = 8
	EncodingAppXML         EncodingID = 9
	EncodingTextCSV        EncodingID = 10
	EncodingAppProtobuf    EncodingID = 11
	EncodingTextHTML       EncodingID = 12
)

// MIME returns the wire name of the encoding. Unrecognized ids render as
// the octet-stream fallback.
func (id EncodingID) MIME() string {
	switch id {
	case EncodingEmpty:
		return ""
	case EncodingAppOctetStream:
		return "application/octet-stream"
	case EncodingTextPlain:
		return "text/plain"
	case EncodingAppJSON:
		return "application/json"
	case EncodingTextJSON:
		return "text/json"
	case EncodingAppCBOR:
		return "application/cbor"
	case EncodingAppYAML:
		return "application/yaml"
	case EncodingTextYAML:
		return "text/yaml"
	case EncodingTextXML:
		return "text/xml"
	case EncodingAppXML:
		return "application/xml"
	case EncodingTextCSV:
		return "text/csv"
	case EncodingAppProtobuf:
		return "application/protobuf"
	case EncodingTextHTML:
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

// EncodingFromMIME maps a wire encoding name back to its identifier.
// Deterministic and total: the empty name is EncodingEmpty, anything
// unrecognized is EncodingAppOctetStream.
func EncodingFromMIME(name string) EncodingID {
	switch name {
	case "":
		return EncodingEmpty
	case "application/octet-stream":
		return EncodingAppOctetStream
	case "text/plain":
		return EncodingTextPlain
	case "application/json":
		return EncodingAppJSON
	case "text/json":
		return EncodingTextJSON
	case "application/cbor":
		return EncodingAppCBOR
	case "application/yaml":
		return EncodingAppYAML
	case "text/yaml":
		return EncodingTextYAML
	case "text/xml":
		return EncodingTextXML
	case "application/xml":
		return EncodingAppXML
	case "text/csv":
		return EncodingTextCSV
	case "application/protobuf":
		return EncodingAppProtobuf
	case "text/html":
		return EncodingTextHTML
	default:
		return EncodingAppOctetStream
	}
}

func publisherOptionsToEngine(opts PublisherOptions) engine.PublisherOptions {
	out := engine.PublisherOptions{
		Congestion: engine.CongestionDrop,
		Priority:   engine.PriorityData,
		Express:    opts.IsExpress,
	}
	if opts.CongestionControl == CongestionBlock {
		out.Congestion = engine.CongestionBlock
	}
	if opts.Priority >= PriorityRealTime && opts.Priority <= PriorityBackground {
		out.Priority = engine.Priority(opts.Priority)
	}
	return out
}
