package mesh

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"go.uber.org/zap"

	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
)

type queryable struct {
	s     *session
	id    string
	key   string
	queue *deliveryQueue[*meshQuery]
}

// DeclareQueryable registers handler for queries whose selector intersects
// keyExpr. The registration is announced on the presence topic so
// requesters can track the live responder set.
func (s *session) DeclareQueryable(ctx context.Context, keyExpr string, handler engine.QueryHandler) (engine.Registration, error) {
	if err := s.checkOpen(errors.PhaseDeclare); err != nil {
		return nil, err
	}
	if err := engine.ValidateKeyExpr(keyExpr); err != nil {
		return nil, err
	}
	q := &queryable{
		s:   s,
		id:  uuid.NewString(),
		key: keyExpr,
	}
	q.queue = newDeliveryQueue(func(mq *meshQuery) {
		handler(mq)
	})
	s.mu.Lock()
	s.queryables[q.id] = q
	s.mu.Unlock()

	env := &presenceEnvelope{
		Kind:  presenceQueryable,
		ID:    q.id,
		Key:   keyExpr,
		Peer:  s.host.ID().String(),
		Alive: true,
	}
	if err := s.publish(s.presence, env); err != nil {
		s.mu.Lock()
		delete(s.queryables, q.id)
		s.mu.Unlock()
		q.queue.stop()
		return nil, errors.DeclareFailed("queryable", keyExpr, err)
	}
	return q, nil
}

func (q *queryable) stopQueue() { q.queue.stop() }

func (q *queryable) Undeclare() error {
	q.s.mu.Lock()
	_, live := q.s.queryables[q.id]
	delete(q.s.queryables, q.id)
	closed := q.s.closed
	q.s.mu.Unlock()
	if !live {
		return nil
	}
	q.queue.stop()
	if closed {
		return nil
	}
	env := &presenceEnvelope{
		Kind: presenceQueryable,
		ID:   q.id,
		Key:  q.key,
		Peer: q.s.host.ID().String(),
	}
	if err := q.s.publish(q.s.presence, env); err != nil {
		q.s.log.Debug("queryable retraction failed", zap.Error(err))
	}
	return nil
}

var errQueryResolved = stderrors.New("query already resolved")

// meshQuery is one in-flight request delivered to a local queryable.
// Exactly one Reply or Drop resolves it; each publishes a single
// terminating envelope for this responder.
type meshQuery struct {
	s         *session
	queryID   string
	selector  string
	responder string
	resolved  atomic.Bool
}

func (q *meshQuery) Selector() string {
	return q.selector
}

func (q *meshQuery) Reply(ctx context.Context, keyExpr string, payload []byte) error {
	if err := engine.ValidateKeyExpr(keyExpr); err != nil {
		return err
	}
	if !q.resolved.CompareAndSwap(false, true) {
		return errors.ReplyFailed(keyExpr, errQueryResolved)
	}
	ts := engine.NewTimestamp(time.Now(), q.s.zid)
	env := &replyEnvelope{
		QueryID:   q.queryID,
		Responder: q.responder,
		Sample:    envelopeFromSample(keyExpr, payload, engine.SampleKindPut, "", nil, ts),
		Done:      true,
	}
	if err := q.s.publish(q.s.reply, env); err != nil {
		return errors.ReplyFailed(keyExpr, err)
	}
	return nil
}

func (q *meshQuery) Drop() {
	if !q.resolved.CompareAndSwap(false, true) {
		return
	}
	env := &replyEnvelope{
		QueryID:   q.queryID,
		Responder: q.responder,
		Done:      true,
	}
	if err := q.s.publish(q.s.reply, env); err != nil {
		q.s.log.Debug("query drop notification failed", zap.Error(err))
	}
}

// pendingQuery tracks one in-flight Get: the set of responders still
// expected and the channel their envelopes arrive on.
type pendingQuery struct {
	expected map[string]struct{}
	replies  chan *replyEnvelope
}

// Get issues one query on selector and blocks until every responder known
// at issue time has replied or dropped, or the query timeout fires. handler
// runs on the calling goroutine, once per reply.
func (s *session) Get(ctx context.Context, selector string, handler engine.SampleHandler) error {
	if err := s.checkOpen(errors.PhaseQuery); err != nil {
		return err
	}
	key, _ := engine.SplitSelector(selector)
	if err := engine.ValidateKeyExpr(key); err != nil {
		return err
	}

	id := uuid.NewString()
	pq := &pendingQuery{
		expected: make(map[string]struct{}),
		replies:  make(chan *replyEnvelope, 64),
	}

	// Snapshot the responder set before the query goes out; responders
	// declared later answer the next query, not this one.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.SessionClosed(errors.PhaseQuery)
	}
	for _, q := range s.queryables {
		if engine.Intersects(q.key, key) {
			pq.expected[q.id] = struct{}{}
		}
	}
	for rid, rkey := range s.remoteQrys {
		if engine.Intersects(rkey, key) {
			pq.expected[rid] = struct{}{}
		}
	}
	s.pending[id] = pq
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if len(pq.expected) == 0 {
		return nil
	}

	env := &queryEnvelope{ID: id, Selector: selector, From: s.host.ID().String()}
	if err := s.publish(s.query, env); err != nil {
		return errors.QueryFailed(selector, err)
	}

	timer := time.NewTimer(s.cfg.QueryTimeout())
	defer timer.Stop()

	for {
		select {
		case renv := <-pq.replies:
			if renv.Sample != nil {
				handler(sampleFromEnvelope(renv.Sample))
			}
			if renv.Done {
				delete(pq.expected, renv.Responder)
				if len(pq.expected) == 0 {
					return nil
				}
			}
		case <-timer.C:
			// Unresolved responders past the deadline end the stream.
			return nil
		case <-s.ctx.Done():
			return errors.SessionClosed(errors.PhaseQuery)
		}
	}
}

type querier struct {
	s        *session
	selector string
	dead     atomic.Bool
}

// DeclareQuerier prepares a long-lived query issuer bound to one selector.
func (s *session) DeclareQuerier(ctx context.Context, selector string) (engine.Querier, error) {
	if err := s.checkOpen(errors.PhaseDeclare); err != nil {
		return nil, err
	}
	key, _ := engine.SplitSelector(selector)
	if err := engine.ValidateKeyExpr(key); err != nil {
		return nil, err
	}
	return &querier{s: s, selector: selector}, nil
}

func (q *querier) Get(ctx context.Context, handler engine.SampleHandler) error {
	if q.dead.Load() {
		return errors.SessionClosed(errors.PhaseQuery)
	}
	return q.s.Get(ctx, q.selector, handler)
}

func (q *querier) Undeclare() error {
	q.dead.Store(true)
	return nil
}

func (s *session) onQuery(msg *pubsub.Message) {
	var env queryEnvelope
	if err := decodeEnvelope(msg.Data, &env); err != nil {
		s.log.Debug("dropping malformed query envelope", zap.Error(err))
		return
	}
	key, _ := engine.SplitSelector(env.Selector)

	s.mu.RLock()
	var targets []*queryable
	for _, q := range s.queryables {
		if engine.Intersects(q.key, key) {
			targets = append(targets, q)
		}
	}
	s.mu.RUnlock()

	for _, q := range targets {
		q.queue.push(&meshQuery{
			s:         s,
			queryID:   env.ID,
			selector:  env.Selector,
			responder: q.id,
		})
	}
}

func (s *session) onReply(msg *pubsub.Message) {
	var env replyEnvelope
	if err := decodeEnvelope(msg.Data, &env); err != nil {
		s.log.Debug("dropping malformed reply envelope", zap.Error(err))
		return
	}
	s.mu.RLock()
	pq := s.pending[env.QueryID]
	s.mu.RUnlock()
	if pq == nil {
		return // not ours, or already completed
	}
	select {
	case pq.replies <- &env:
	default:
		s.log.Debug("reply buffer full, dropping", zap.String("query", env.QueryID))
	}
}
