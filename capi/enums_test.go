package capi

import (
	"testing"
)

func TestEncodingRoundTrip(t *testing.T) {
	for id := EncodingEmpty; id <= EncodingTextHTML; id++ {
		if got := EncodingFromMIME(id.MIME()); got != id {
			t.Errorf("id %d round-tripped to %d via %q", id, got, id.MIME())
		}
	}
}

func TestEncodingFallback(t *testing.T) {
	if got := EncodingFromMIME("application/x-custom"); got != EncodingAppOctetStream {
		t.Errorf("unrecognized name mapped to %v, want octet-stream", got)
	}
	if got := EncodingID(200).MIME(); got != "application/octet-stream" {
		t.Errorf("out-of-range id rendered as %q, want octet-stream", got)
	}
	if got := EncodingFromMIME(""); got != EncodingEmpty {
		t.Errorf("empty name mapped to %v, want empty", got)
	}
}

func TestPublisherOptionsDefault(t *testing.T) {
	opts := PublisherOptionsDefault()
	if opts.CongestionControl != CongestionDrop {
		t.Errorf("default congestion = %v, want drop", opts.CongestionControl)
	}
	if opts.Priority != PriorityData {
		t.Errorf("default priority = %v, want data", opts.Priority)
	}
	if opts.IsExpress {
		t.Error("default is express")
	}
}

func TestCodeStrings(t *testing.T) {
	cases := map[Code]string{
		CodeOK:             "ok",
		CodeInvalidConfig:  "invalid config",
		CodeSessionClosed:  "session closed",
		CodeInvalidKeyExpr: "invalid key expression",
		CodePutFailed:      "put failed",
		CodeNullPointer:    "null pointer",
		CodeInternalFault:  "internal fault",
		Code(42):           "unknown",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", code, got, want)
		}
	}
}
