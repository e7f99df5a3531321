package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(PhaseDeclare, KindDeclareFailed).
		Key("demo/test").
		Detail("engine rejected registration").
		Build()

	s := err.Error()
	if !strings.Contains(s, "[declare]") {
		t.Errorf("missing phase in %q", s)
	}
	if !strings.Contains(s, "declare_failed") {
		t.Errorf("missing kind in %q", s)
	}
	if !strings.Contains(s, "demo/test") {
		t.Errorf("missing key in %q", s)
	}
}

func TestErrorIs(t *testing.T) {
	err := NullPointer(PhasePublish, "publisher")
	target := &Error{Phase: PhasePublish, Kind: KindNullPointer}

	if !stderrors.Is(err, target) {
		t.Error("expected errors.Is match on phase+kind")
	}

	other := &Error{Phase: PhaseQuery, Kind: KindNullPointer}
	if stderrors.Is(err, other) {
		t.Error("unexpected match across phases")
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("socket closed")
	err := PutFailed("demo/test", cause)

	if !stderrors.Is(err, cause) {
		t.Error("cause not reachable via Unwrap chain")
	}
	if !strings.Contains(err.Error(), "socket closed") {
		t.Errorf("cause missing from message: %q", err.Error())
	}
}

func TestInvalidUTF8Preview(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = 0xff
	}
	err := InvalidUTF8(PhaseValidate, "key expression", data)

	// Preview is truncated, not the full payload.
	if len(err.Error()) > 200 {
		t.Errorf("preview too long: %d bytes", len(err.Error()))
	}
}

func TestInternalFault(t *testing.T) {
	err := InternalFault("Put", "index out of range")
	if err.Kind != KindInternalFault {
		t.Errorf("kind = %s, want %s", err.Kind, KindInternalFault)
	}
	if !strings.Contains(err.Error(), "panic in Put") {
		t.Errorf("message missing location: %q", err.Error())
	}
}

func TestOpenFailed(t *testing.T) {
	cause := stderrors.New("dial refused")
	err := OpenFailed(cause)
	if err.Phase != PhaseOpen {
		t.Errorf("phase = %v, want %v", err.Phase, PhaseOpen)
	}
	if err.Kind != KindOpenFailed {
		t.Errorf("kind = %v, want %v", err.Kind, KindOpenFailed)
	}
	if !stderrors.Is(err, cause) {
		t.Error("cause not wrapped")
	}
	if !strings.Contains(err.Error(), "failed to open session") {
		t.Errorf("message %q lacks detail", err.Error())
	}
}
