package capi

import (
	"bytes"
	"fmt"
	"runtime"
	"testing"
	"time"
)

func openDefault(t *testing.T) Handle {
	t.Helper()
	session := Open(nil)
	if session == NullHandle {
		t.Fatalf("open failed: %s", LastError())
	}
	t.Cleanup(func() { Close(session) })
	return session
}

func waitSample(t *testing.T, ch <-chan Sample, what string) Sample {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestOpenPutSubscribe(t *testing.T) {
	session := openDefault(t)

	got := make(chan Sample, 1)
	sub := DeclareSubscriber(session, []byte("demo/test"), func(sample *Sample, _ uintptr) {
		// The view is borrowed; copy what outlives the callback.
		copied := *sample
		copied.KeyExpr = append([]byte(nil), sample.KeyExpr...)
		copied.Payload = append([]byte(nil), sample.Payload...)
		got <- copied
	}, 0)
	if sub == NullHandle {
		t.Fatalf("declare subscriber failed: %s", LastError())
	}
	defer UndeclareSubscriber(sub)

	pub := DeclarePublisher(session, []byte("demo/test"))
	if pub == NullHandle {
		t.Fatalf("declare publisher failed: %s", LastError())
	}
	defer UndeclarePublisher(pub)

	if code := PublisherPut(pub, []byte("hello")); code != CodeOK {
		t.Fatalf("put = %v: %s", code, LastError())
	}

	sample := waitSample(t, got, "sample")
	if string(sample.KeyExpr) != "demo/test" {
		t.Errorf("key = %q, want demo/test", sample.KeyExpr)
	}
	if string(sample.Payload) != "hello" {
		t.Errorf("payload = %q, want hello", sample.Payload)
	}
	if sample.Kind != SampleKindPut {
		t.Errorf("kind = %v, want put", sample.Kind)
	}
}

func TestSubscriberReceivesPutsInOrder(t *testing.T) {
	session := openDefault(t)

	const n = 10
	got := make(chan string, n)
	sub := DeclareSubscriber(session, []byte("order/capi"), func(sample *Sample, _ uintptr) {
		got <- string(sample.Payload)
	}, 0)
	if sub == NullHandle {
		t.Fatalf("declare subscriber failed: %s", LastError())
	}
	defer UndeclareSubscriber(sub)

	for i := 0; i < n; i++ {
		payload := []byte(fmt.Sprintf("m%d", i))
		if code := Put(session, []byte("order/capi"), payload); code != CodeOK {
			t.Fatalf("put %d = %v: %s", i, code, LastError())
		}
	}
	for i := 0; i < n; i++ {
		select {
		case p := <-got:
			if want := fmt.Sprintf("m%d", i); p != want {
				t.Fatalf("sample %d = %q, want %q", i, p, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out at sample %d", i)
		}
	}
}

func TestEmptyPayloadPut(t *testing.T) {
	session := openDefault(t)

	got := make(chan Sample, 1)
	sub := DeclareSubscriber(session, []byte("demo/empty"), func(sample *Sample, _ uintptr) {
		got <- *sample
	}, 0)
	defer UndeclareSubscriber(sub)

	pub := DeclarePublisher(session, []byte("demo/empty"))
	defer UndeclarePublisher(pub)
	if code := PublisherPut(pub, []byte{}); code != CodeOK {
		t.Fatalf("empty put = %v: %s", code, LastError())
	}
	sample := waitSample(t, got, "empty sample")
	if len(sample.Payload) != 0 {
		t.Errorf("payload = %q, want empty", sample.Payload)
	}
}

func TestEncodingCrossesBoundary(t *testing.T) {
	session := openDefault(t)

	got := make(chan Sample, 2)
	sub := DeclareSubscriber(session, []byte("demo/enc"), func(sample *Sample, _ uintptr) {
		got <- *sample
	}, 0)
	defer UndeclareSubscriber(sub)

	if code := PutWithEncoding(session, []byte("demo/enc"), []byte("{}"), EncodingAppJSON); code != CodeOK {
		t.Fatalf("put = %v: %s", code, LastError())
	}
	sample := waitSample(t, got, "json sample")
	if sample.Encoding != EncodingAppJSON {
		t.Errorf("encoding = %v, want app/json id", sample.Encoding)
	}

	// An out-of-range id degrades to the octet-stream fallback.
	if code := PutWithEncoding(session, []byte("demo/enc"), []byte("x"), EncodingID(99)); code != CodeOK {
		t.Fatalf("put = %v: %s", code, LastError())
	}
	sample = waitSample(t, got, "fallback sample")
	if sample.Encoding != EncodingAppOctetStream {
		t.Errorf("encoding = %v, want octet-stream fallback", sample.Encoding)
	}
}

func TestSessionClosedBeforePublisher(t *testing.T) {
	session := Open(nil)
	if session == NullHandle {
		t.Fatalf("open failed: %s", LastError())
	}
	pub := DeclarePublisher(session, []byte("demo/orphan"))
	if pub == NullHandle {
		t.Fatalf("declare publisher failed: %s", LastError())
	}

	// The publisher's counted reference keeps the connection alive past
	// session-handle destruction.
	Close(session)
	if code := PublisherPut(pub, []byte("still alive")); code != CodeOK {
		t.Errorf("put after session close = %v: %s", code, LastError())
	}
	UndeclarePublisher(pub)

	if code := Put(session, []byte("demo/orphan"), []byte("x")); code != CodeSessionClosed {
		t.Errorf("put on closed session handle = %v, want session closed", code)
	}
}

func TestDestroyTwiceIsNoOp(t *testing.T) {
	session := openDefault(t)

	pub := DeclarePublisher(session, []byte("demo/twice"))
	UndeclarePublisher(pub)
	UndeclarePublisher(pub)
	UndeclarePublisher(NullHandle)

	sub := DeclareSubscriber(session, []byte("demo/twice"), func(*Sample, uintptr) {}, 0)
	UndeclareSubscriber(sub)
	UndeclareSubscriber(sub)

	Close(NullHandle)
	FreeString(NullHandle)
	zid := SessionZid(session)
	FreeString(zid)
	FreeString(zid)

	extra := Open(nil)
	Close(extra)
	Close(extra)
}

func TestQueryReplyReachesGet(t *testing.T) {
	session := openDefault(t)

	qable := DeclareQueryable(session, []byte("svc/capi/**"), func(query Handle, _ uintptr) {
		selHandle := QuerySelector(query)
		sel := StringValue(selHandle)
		FreeString(selHandle)
		if sel != "svc/capi/ping" {
			t.Errorf("selector = %q, want svc/capi/ping", sel)
		}
		if code := QueryReply(query, []byte("svc/capi/pong"), []byte("pong")); code != CodeOK {
			t.Errorf("reply = %v: %s", code, LastError())
		}
		// The handle is consumed: a second resolution is rejected.
		if code := QueryReply(query, []byte("svc/capi/pong"), []byte("again")); code != CodeNullPointer {
			t.Errorf("second reply = %v, want null pointer", code)
		}
	}, 0)
	if qable == NullHandle {
		t.Fatalf("declare queryable failed: %s", LastError())
	}
	defer UndeclareQueryable(qable)

	var replies [][]byte
	code := Get(session, []byte("svc/capi/ping"), func(sample *Sample, _ uintptr) {
		replies = append(replies, append([]byte(nil), sample.Payload...))
	}, 0)
	if code != CodeOK {
		t.Fatalf("get = %v: %s", code, LastError())
	}
	if len(replies) != 1 || !bytes.Equal(replies[0], []byte("pong")) {
		t.Fatalf("replies = %q, want [pong]", replies)
	}
}

func TestQueryDropDoesNotLeak(t *testing.T) {
	session := openDefault(t)

	qable := DeclareQueryable(session, []byte("svc/drop"), func(query Handle, _ uintptr) {
		QueryDrop(query)
		QueryDrop(query)
	}, 0)
	defer UndeclareQueryable(qable)

	for i := 0; i < 10; i++ {
		calls := 0
		code := Get(session, []byte("svc/drop"), func(*Sample, uintptr) { calls++ }, 0)
		if code != CodeOK {
			t.Fatalf("get %d = %v: %s", i, code, LastError())
		}
		if calls != 0 {
			t.Fatalf("get %d delivered %d replies after drop", i, calls)
		}
	}
	if n := ResourceCounts()["query"]; n != 0 {
		t.Errorf("%d query handles live after drop cycles", n)
	}
}

func TestQuerierGet(t *testing.T) {
	session := openDefault(t)

	qable := DeclareQueryable(session, []byte("svc/querier"), func(query Handle, _ uintptr) {
		QueryReply(query, []byte("svc/querier"), []byte("ok"))
	}, 0)
	defer UndeclareQueryable(qable)

	querier := DeclareQuerier(session, []byte("svc/querier"))
	if querier == NullHandle {
		t.Fatalf("declare querier failed: %s", LastError())
	}
	count := 0
	if code := QuerierGet(querier, func(*Sample, uintptr) { count++ }, 0); code != CodeOK {
		t.Fatalf("querier get = %v: %s", code, LastError())
	}
	if count != 1 {
		t.Errorf("got %d replies, want 1", count)
	}
	UndeclareQuerier(querier)
	UndeclareQuerier(querier)
}

func TestReentrantPutFromCallback(t *testing.T) {
	session := openDefault(t)

	relayed := make(chan string, 1)
	sub2 := DeclareSubscriber(session, []byte("relay/out"), func(sample *Sample, _ uintptr) {
		relayed <- string(sample.Payload)
	}, 0)
	defer UndeclareSubscriber(sub2)

	reentrantDone := make(chan Code, 1)
	sub1 := DeclareSubscriber(session, []byte("relay/in"), func(sample *Sample, _ uintptr) {
		// A boundary call from inside a callback must complete, not
		// deadlock, before this callback returns.
		code := Put(session, []byte("relay/out"), sample.Payload)
		reentrantDone <- code
	}, 0)
	defer UndeclareSubscriber(sub1)

	if code := Put(session, []byte("relay/in"), []byte("ping")); code != CodeOK {
		t.Fatalf("put = %v: %s", code, LastError())
	}

	select {
	case code := <-reentrantDone:
		if code != CodeOK {
			t.Fatalf("reentrant put = %v", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reentrant put deadlocked")
	}
	select {
	case payload := <-relayed:
		if payload != "ping" {
			t.Errorf("relayed payload = %q, want ping", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("relayed sample never arrived")
	}
}

func TestLivelinessThroughBoundary(t *testing.T) {
	session := openDefault(t)

	type change struct {
		key   string
		alive bool
	}
	got := make(chan change, 2)
	lsub := LivelinessDeclareSubscriber(session, []byte("alive/**"), func(keyExpr []byte, alive bool, _ uintptr) {
		got <- change{string(keyExpr), alive}
	}, 0)
	if lsub == NullHandle {
		t.Fatalf("declare liveliness subscriber failed: %s", LastError())
	}
	defer LivelinessUndeclareSubscriber(lsub)

	token := LivelinessDeclareToken(session, []byte("alive/capi"))
	if token == NullHandle {
		t.Fatalf("declare token failed: %s", LastError())
	}
	select {
	case c := <-got:
		if c.key != "alive/capi" || !c.alive {
			t.Errorf("appearance = %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("token appearance never arrived")
	}
	LivelinessUndeclareToken(token)
	select {
	case c := <-got:
		if c.key != "alive/capi" || c.alive {
			t.Errorf("retraction = %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("token retraction never arrived")
	}
	LivelinessUndeclareToken(token)
}

func TestErrorChannelPerThread(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	session := openDefault(t)

	if code := Put(session, []byte("/bad/key"), []byte("x")); code != CodeInvalidKeyExpr {
		t.Fatalf("put = %v, want invalid key expression", code)
	}
	if LastError() == "" {
		t.Error("no diagnostic after failing call")
	}
	if code := Put(session, []byte("good/key"), []byte("x")); code != CodeOK {
		t.Fatalf("put = %v: %s", code, LastError())
	}
	if msg := LastError(); msg != "" {
		t.Errorf("diagnostic %q survived a successful call", msg)
	}
}

func TestNullArgumentValidation(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	session := openDefault(t)

	if code := Put(NullHandle, []byte("demo/x"), []byte("x")); code != CodeNullPointer {
		t.Errorf("put on null session = %v, want null pointer", code)
	}
	if code := Put(session, nil, []byte("x")); code != CodeNullPointer {
		t.Errorf("put with nil key = %v, want null pointer", code)
	}
	if code := Put(session, []byte{0xff, 0xfe}, []byte("x")); code != CodeInvalidKeyExpr {
		t.Errorf("put with invalid utf-8 key = %v, want invalid key expression", code)
	}
	if h := DeclareSubscriber(session, []byte("demo/x"), nil, 0); h != NullHandle {
		t.Error("declare subscriber with nil callback returned a handle")
	}
	if LastError() == "" {
		t.Error("no diagnostic after nil-callback declare")
	}
	if code := Get(session, []byte("demo/x"), nil, 0); code != CodeNullPointer {
		t.Errorf("get with nil callback = %v, want null pointer", code)
	}
}

func TestSessionZid(t *testing.T) {
	session := openDefault(t)

	zid := SessionZid(session)
	if zid == NullHandle {
		t.Fatalf("zid failed: %s", LastError())
	}
	defer FreeString(zid)
	hexID := StringValue(zid)
	if len(hexID) != 32 {
		t.Fatalf("zid = %q, want 32 hex chars", hexID)
	}
	for _, c := range hexID {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("zid %q contains non-hex rune %q", hexID, c)
		}
	}
}

func TestPutWithAttachmentDelivers(t *testing.T) {
	session := openDefault(t)

	got := make(chan Sample, 1)
	sub := DeclareSubscriber(session, []byte("demo/att"), func(sample *Sample, _ uintptr) {
		got <- *sample
	}, 0)
	defer UndeclareSubscriber(sub)

	items := []AttachmentItem{
		{Key: []byte("k1"), Value: []byte("v1")},
		{Key: nil, Value: []byte("skipped")},
		{Key: []byte{0xff}, Value: []byte("skipped")},
		{Key: []byte("k2"), Value: []byte("v2")},
	}
	if code := PutWithAttachment(session, []byte("demo/att"), []byte("body"), items); code != CodeOK {
		t.Fatalf("put = %v: %s", code, LastError())
	}
	sample := waitSample(t, got, "attachment sample")
	if string(sample.Payload) != "body" {
		t.Errorf("payload = %q, want body", sample.Payload)
	}
}

func TestFailedReplyEndsGet(t *testing.T) {
	session := openDefault(t)

	qry := DeclareQueryable(session, []byte("faulty/**"), func(query Handle, _ uintptr) {
		if code := QueryReply(query, []byte("/faulty/bad"), []byte("x")); code == CodeOK {
			t.Error("reply with malformed key expression succeeded")
		}
		// The failed reply consumed the handle; a drop here is a no-op.
		QueryDrop(query)
	}, 0)
	if qry == NullHandle {
		t.Fatalf("declare queryable failed: %s", LastError())
	}
	defer UndeclareQueryable(qry)

	start := time.Now()
	code := Get(session, []byte("faulty/item"), func(*Sample, uintptr) {
		t.Error("unexpected reply sample")
	}, 0)
	if code != CodeOK {
		t.Fatalf("get = %v: %s", code, LastError())
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("get returned after %v, want prompt termination on failed reply", elapsed)
	}
}

func TestQueryReplyNilPayload(t *testing.T) {
	session := openDefault(t)

	qry := DeclareQueryable(session, []byte("nilpay/**"), func(query Handle, _ uintptr) {
		if code := QueryReply(query, []byte("nilpay/item"), nil); code != CodeNullPointer {
			t.Errorf("reply with nil payload = %v, want %v", code, CodeNullPointer)
		}
	}, 0)
	if qry == NullHandle {
		t.Fatalf("declare queryable failed: %s", LastError())
	}
	defer UndeclareQueryable(qry)

	start := time.Now()
	code := Get(session, []byte("nilpay/item"), func(*Sample, uintptr) {
		t.Error("unexpected reply sample")
	}, 0)
	if code != CodeOK {
		t.Fatalf("get = %v: %s", code, LastError())
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("get returned after %v, want prompt termination on rejected reply", elapsed)
	}
}
