package engine

// SampleKind distinguishes data publications from deletions.
type SampleKind uint8

const (
	SampleKindPut SampleKind = iota
	SampleKindDelete
)

func (k SampleKind) String() string {
	switch k {
	case SampleKindPut:
		return "put"
	case SampleKindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// CongestionControl selects the behavior when the send buffer is full.
type CongestionControl uint8

const (
	// CongestionBlock blocks the publisher until the buffer drains.
	CongestionBlock CongestionControl = iota
	// CongestionDrop drops the message.
	CongestionDrop
)

// Priority orders messages relative to each other. Lower value is more
// urgent; the engine offers seven levels.
type Priority uint8

const (
	PriorityRealTime Priority = iota + 1
	PriorityInteractiveHigh
	PriorityInteractiveLow
	PriorityDataHigh
	PriorityData
	PriorityDataLow
	PriorityBackground
)

// Timestamp is a logical timestamp: an NTP64 time value (seconds since the
// Unix epoch in the upper 32 bits, fraction in the lower 32) plus the stable
// identifier of the originating endpoint.
type Timestamp struct {
	NTP64 uint64
	ID    [16]byte
}

// Sample is one delivered event: a publication or deletion observed on a
// key expression. HasTimestamp distinguishes a real timestamp from absent
// data; a zero Timestamp with HasTimestamp false carries no meaning.
type Sample struct {
	KeyExpr      string
	Payload      []byte
	Attachment   []byte
	Encoding     string // MIME-style name, empty if unspecified
	Timestamp    Timestamp
	Kind         SampleKind
	HasTimestamp bool
}

// PublisherOptions carries quality-of-service settings for a declared
// publisher.
type PublisherOptions struct {
	Congestion CongestionControl
	Priority   Priority
	Express    bool
}

// PutOptions carries per-put settings for session-level puts.
type PutOptions struct {
	Encoding   string
	Attachment []byte
}
