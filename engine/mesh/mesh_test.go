package mesh

import (
	"context"
	"fmt"
	"testing"
	"time"

	stderrors "errors"

	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
)

func testConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.QueryTimeoutMS = 2000
	return cfg
}

func openSession(t *testing.T) engine.Session {
	t.Helper()
	s, err := Open(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestPutDeliversToSubscriber(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	got := make(chan engine.Sample, 1)
	sub, err := s.DeclareSubscriber(ctx, "demo/**", func(sample *engine.Sample) {
		got <- *sample
	})
	if err != nil {
		t.Fatalf("declare subscriber: %v", err)
	}
	defer sub.Undeclare()

	err = s.Put(ctx, "demo/test", []byte("hello"), &engine.PutOptions{Encoding: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	sample := waitFor(t, got, "sample")
	if sample.KeyExpr != "demo/test" {
		t.Errorf("key = %q, want demo/test", sample.KeyExpr)
	}
	if string(sample.Payload) != "hello" {
		t.Errorf("payload = %q, want hello", sample.Payload)
	}
	if sample.Encoding != "text/plain" {
		t.Errorf("encoding = %q, want text/plain", sample.Encoding)
	}
	if sample.Kind != engine.SampleKindPut {
		t.Errorf("kind = %v, want put", sample.Kind)
	}
	if !sample.HasTimestamp {
		t.Error("sample has no timestamp")
	}
	if sample.Timestamp.ID != s.ZID() {
		t.Error("timestamp id does not match session zid")
	}
}

func TestDeleteDeliversDeletion(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	got := make(chan engine.Sample, 1)
	sub, err := s.DeclareSubscriber(ctx, "demo/del", func(sample *engine.Sample) {
		got <- *sample
	})
	if err != nil {
		t.Fatalf("declare subscriber: %v", err)
	}
	defer sub.Undeclare()

	if err := s.Delete(ctx, "demo/del"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	sample := waitFor(t, got, "deletion")
	if sample.Kind != engine.SampleKindDelete {
		t.Errorf("kind = %v, want delete", sample.Kind)
	}
	if len(sample.Payload) != 0 {
		t.Errorf("deletion carries payload %q", sample.Payload)
	}
}

func TestSubscriberDeliveryOrder(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	const n = 20
	got := make(chan string, n)
	sub, err := s.DeclareSubscriber(ctx, "order/seq", func(sample *engine.Sample) {
		got <- string(sample.Payload)
	})
	if err != nil {
		t.Fatalf("declare subscriber: %v", err)
	}
	defer sub.Undeclare()

	pub, err := s.DeclarePublisher(ctx, "order/seq", nil)
	if err != nil {
		t.Fatalf("declare publisher: %v", err)
	}
	defer pub.Undeclare()

	for i := 0; i < n; i++ {
		if err := pub.Put(ctx, []byte(fmt.Sprintf("msg-%02d", i)), ""); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		payload := waitFor(t, got, "ordered sample")
		want := fmt.Sprintf("msg-%02d", i)
		if payload != want {
			t.Fatalf("sample %d = %q, want %q", i, payload, want)
		}
	}
}

func TestNonIntersectingKeyNotDelivered(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	other := make(chan struct{}, 1)
	marker := make(chan struct{}, 1)
	sub, err := s.DeclareSubscriber(ctx, "a/only", func(*engine.Sample) {
		other <- struct{}{}
	})
	if err != nil {
		t.Fatalf("declare subscriber: %v", err)
	}
	defer sub.Undeclare()
	msub, err := s.DeclareSubscriber(ctx, "b/marker", func(*engine.Sample) {
		marker <- struct{}{}
	})
	if err != nil {
		t.Fatalf("declare marker subscriber: %v", err)
	}
	defer msub.Undeclare()

	if err := s.Put(ctx, "b/marker", []byte("x"), nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	waitFor(t, marker, "marker sample")
	select {
	case <-other:
		t.Fatal("sample delivered to non-intersecting subscriber")
	default:
	}
}

func TestQueryReply(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	qr, err := s.DeclareQueryable(ctx, "svc/echo/**", func(q engine.Query) {
		if err := q.Reply(ctx, "svc/echo/answer", []byte("pong")); err != nil {
			t.Errorf("reply: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("declare queryable: %v", err)
	}
	defer qr.Undeclare()

	var replies []engine.Sample
	err = s.Get(ctx, "svc/echo/ping", func(sample *engine.Sample) {
		replies = append(replies, *sample)
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	if string(replies[0].Payload) != "pong" {
		t.Errorf("reply payload = %q, want pong", replies[0].Payload)
	}
	if replies[0].KeyExpr != "svc/echo/answer" {
		t.Errorf("reply key = %q, want svc/echo/answer", replies[0].KeyExpr)
	}
}

func TestQueryDropEndsStream(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	qr, err := s.DeclareQueryable(ctx, "svc/mute/**", func(q engine.Query) {
		q.Drop()
	})
	if err != nil {
		t.Fatalf("declare queryable: %v", err)
	}
	defer qr.Undeclare()

	start := time.Now()
	calls := 0
	err = s.Get(ctx, "svc/mute/ping", func(*engine.Sample) { calls++ })
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if calls != 0 {
		t.Errorf("handler called %d times after drop", calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("drop took %v, expected prompt termination", elapsed)
	}
}

func TestQueryNoResponders(t *testing.T) {
	s := openSession(t)
	start := time.Now()
	err := s.Get(context.Background(), "nobody/home", func(*engine.Sample) {
		t.Error("unexpected reply")
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("empty query took %v", elapsed)
	}
}

func TestQuerySecondReplyFails(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	replyErrs := make(chan error, 1)
	qr, err := s.DeclareQueryable(ctx, "svc/twice", func(q engine.Query) {
		if err := q.Reply(ctx, "svc/twice", []byte("first")); err != nil {
			t.Errorf("first reply: %v", err)
		}
		replyErrs <- q.Reply(ctx, "svc/twice", []byte("second"))
	})
	if err != nil {
		t.Fatalf("declare queryable: %v", err)
	}
	defer qr.Undeclare()

	if err := s.Get(ctx, "svc/twice", func(*engine.Sample) {}); err != nil {
		t.Fatalf("get: %v", err)
	}
	rerr := waitFor(t, replyErrs, "second reply error")
	var e *errors.Error
	if !stderrors.As(rerr, &e) || e.Kind != errors.KindReplyFailed {
		t.Errorf("second reply error = %v, want reply failure", rerr)
	}
}

func TestQuerierGet(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	qr, err := s.DeclareQueryable(ctx, "svc/fixed", func(q engine.Query) {
		q.Reply(ctx, "svc/fixed", []byte("ok"))
	})
	if err != nil {
		t.Fatalf("declare queryable: %v", err)
	}
	defer qr.Undeclare()

	querier, err := s.DeclareQuerier(ctx, "svc/fixed")
	if err != nil {
		t.Fatalf("declare querier: %v", err)
	}
	count := 0
	if err := querier.Get(ctx, func(*engine.Sample) { count++ }); err != nil {
		t.Fatalf("querier get: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d replies, want 1", count)
	}

	if err := querier.Undeclare(); err != nil {
		t.Fatalf("undeclare: %v", err)
	}
	if err := querier.Get(ctx, func(*engine.Sample) {}); err == nil {
		t.Error("get after undeclare succeeded")
	}
}

func TestLivelinessChanges(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	type change struct {
		key   string
		alive bool
	}
	got := make(chan change, 2)
	ls, err := s.DeclareLivelinessSubscriber(ctx, "alive/**", func(key string, alive bool) {
		got <- change{key, alive}
	})
	if err != nil {
		t.Fatalf("declare liveliness subscriber: %v", err)
	}
	defer ls.Undeclare()

	tok, err := s.DeclareLivelinessToken(ctx, "alive/node1")
	if err != nil {
		t.Fatalf("declare token: %v", err)
	}
	up := waitFor(t, got, "token appearance")
	if up.key != "alive/node1" || !up.alive {
		t.Errorf("appearance = %+v, want alive/node1 alive", up)
	}

	if err := tok.Undeclare(); err != nil {
		t.Fatalf("undeclare token: %v", err)
	}
	down := waitFor(t, got, "token retraction")
	if down.key != "alive/node1" || down.alive {
		t.Errorf("retraction = %+v, want alive/node1 gone", down)
	}
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	s, err := Open(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	ctx := context.Background()
	err = s.Put(ctx, "demo/x", []byte("x"), nil)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindSessionClosed {
		t.Errorf("put after close = %v, want session closed", err)
	}
	if _, err := s.DeclareSubscriber(ctx, "demo/x", func(*engine.Sample) {}); err == nil {
		t.Error("declare after close succeeded")
	}
}

func TestPublisherUndeclareStopsPuts(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	pub, err := s.DeclarePublisher(ctx, "demo/pub", nil)
	if err != nil {
		t.Fatalf("declare publisher: %v", err)
	}
	if err := pub.Undeclare(); err != nil {
		t.Fatalf("undeclare: %v", err)
	}
	if err := pub.Undeclare(); err != nil {
		t.Errorf("second undeclare: %v", err)
	}
	if err := pub.Put(ctx, []byte("x"), ""); err == nil {
		t.Error("put after undeclare succeeded")
	}
}

func TestInvalidKeyRejected(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	err := s.Put(ctx, "/leading/slash", []byte("x"), nil)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindInvalidKey {
		t.Errorf("put on invalid key = %v, want invalid key", err)
	}
	if _, err := s.DeclarePublisher(ctx, "", nil); err == nil {
		t.Error("declare on empty key succeeded")
	}
}

func TestPublisherConcurrentUndeclare(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	pub, err := s.DeclarePublisher(ctx, "race/pub", nil)
	if err != nil {
		t.Fatalf("declare publisher: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if err := pub.Put(ctx, []byte("x"), ""); err != nil {
				return
			}
		}
	}()
	if err := pub.Undeclare(); err != nil {
		t.Fatalf("undeclare: %v", err)
	}
	<-done
	if err := pub.Put(ctx, []byte("x"), ""); err == nil {
		t.Error("put after undeclare succeeded")
	}
}

func TestQuerierConcurrentUndeclare(t *testing.T) {
	s := openSession(t)
	ctx := context.Background()

	qr, err := s.DeclareQuerier(ctx, "race/qr/**")
	if err != nil {
		t.Fatalf("declare querier: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if err := qr.Get(ctx, func(*engine.Sample) {}); err != nil {
				return
			}
		}
	}()
	if err := qr.Undeclare(); err != nil {
		t.Fatalf("undeclare: %v", err)
	}
	<-done
	if err := qr.Get(ctx, func(*engine.Sample) {}); err == nil {
		t.Error("get after undeclare succeeded")
	}
}
