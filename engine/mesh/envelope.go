package mesh

import (
	"encoding/json"

	"github.com/konnta0/zenoh-bridge/engine"
)

// Wire envelopes. All session traffic flows over four namespace-scoped
// gossip topics; the envelope carries the key expression so receivers do
// their own intersection matching.

const (
	topicData     = "data"
	topicQuery    = "query"
	topicReply    = "reply"
	topicPresence = "presence"
)

type dataEnvelope struct {
	Key        string `json:"key"`
	Payload    []byte `json:"payload,omitempty"`
	Attachment []byte `json:"attachment,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	TsNTP64    uint64 `json:"ts,omitempty"`
	TsID       []byte `json:"tsid,omitempty"`
	Kind       uint8  `json:"kind"`
}

type queryEnvelope struct {
	ID       string `json:"id"`
	Selector string `json:"selector"`
	From     string `json:"from"`
}

// replyEnvelope resolves one responder's share of a query: a reply carries
// the sample and Done together, a drop carries Done alone. One envelope per
// responder keeps reply/done ordering trivial.
type replyEnvelope struct {
	QueryID   string        `json:"query_id"`
	Responder string        `json:"responder"`
	Sample    *dataEnvelope `json:"sample,omitempty"`
	Done      bool          `json:"done"`
}

const (
	presenceQueryable = "queryable"
	presenceToken     = "token"
)

type presenceEnvelope struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Key   string `json:"key"`
	Peer  string `json:"peer"`
	Alive bool   `json:"alive"`
}

func encodeEnvelope(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decodeEnvelope(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func sampleFromEnvelope(env *dataEnvelope) *engine.Sample {
	s := &engine.Sample{
		KeyExpr:    env.Key,
		Payload:    env.Payload,
		Attachment: env.Attachment,
		Encoding:   env.Encoding,
		Kind:       engine.SampleKind(env.Kind),
	}
	if env.TsNTP64 != 0 && len(env.TsID) == 16 {
		s.HasTimestamp = true
		s.Timestamp.NTP64 = env.TsNTP64
		copy(s.Timestamp.ID[:], env.TsID)
	}
	return s
}

func envelopeFromSample(keyExpr string, payload []byte, kind engine.SampleKind, encoding string, attachment []byte, ts engine.Timestamp) *dataEnvelope {
	return &dataEnvelope{
		Key:        keyExpr,
		Payload:    payload,
		Attachment: attachment,
		Encoding:   encoding,
		Kind:       uint8(kind),
		TsNTP64:    ts.NTP64,
		TsID:       ts.ID[:],
	}
}
