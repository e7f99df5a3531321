package mesh

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"go.uber.org/zap"

	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
)

func (s *session) putSample(key string, payload []byte, opts *engine.PutOptions, kind engine.SampleKind) error {
	ts := engine.NewTimestamp(time.Now(), s.zid)
	var encoding string
	var attachment []byte
	if opts != nil {
		encoding = opts.Encoding
		attachment = opts.Attachment
	}
	env := envelopeFromSample(key, payload, kind, encoding, attachment, ts)
	if err := s.publish(s.data, env); err != nil {
		return errors.PutFailed(key, err)
	}
	return nil
}

// Put publishes payload under keyExpr as an ad-hoc write.
func (s *session) Put(ctx context.Context, keyExpr string, payload []byte, opts *engine.PutOptions) error {
	if err := s.checkOpen(errors.PhasePublish); err != nil {
		return err
	}
	if err := engine.ValidateKeyExpr(keyExpr); err != nil {
		return err
	}
	return s.putSample(keyExpr, payload, opts, engine.SampleKindPut)
}

// Delete publishes a deletion marker under keyExpr.
func (s *session) Delete(ctx context.Context, keyExpr string) error {
	if err := s.checkOpen(errors.PhasePublish); err != nil {
		return err
	}
	if err := engine.ValidateKeyExpr(keyExpr); err != nil {
		return err
	}
	return s.putSample(keyExpr, nil, nil, engine.SampleKindDelete)
}

type publisher struct {
	s    *session
	key  string
	opts engine.PublisherOptions
	dead atomic.Bool
}

// DeclarePublisher prepares a writer bound to keyExpr with fixed QoS
// options.
func (s *session) DeclarePublisher(ctx context.Context, keyExpr string, opts *engine.PublisherOptions) (engine.Publisher, error) {
	if err := s.checkOpen(errors.PhaseDeclare); err != nil {
		return nil, err
	}
	if err := engine.ValidateKeyExpr(keyExpr); err != nil {
		return nil, err
	}
	p := &publisher{s: s, key: keyExpr}
	if opts != nil {
		p.opts = *opts
	}
	return p, nil
}

func (p *publisher) Put(ctx context.Context, payload []byte, encoding string) error {
	if p.dead.Load() {
		return errors.SessionClosed(errors.PhasePublish)
	}
	if err := p.s.checkOpen(errors.PhasePublish); err != nil {
		return err
	}
	return p.s.putSample(p.key, payload, &engine.PutOptions{Encoding: encoding}, engine.SampleKindPut)
}

func (p *publisher) Delete(ctx context.Context) error {
	if p.dead.Load() {
		return errors.SessionClosed(errors.PhasePublish)
	}
	if err := p.s.checkOpen(errors.PhasePublish); err != nil {
		return err
	}
	return p.s.putSample(p.key, nil, nil, engine.SampleKindDelete)
}

func (p *publisher) Undeclare() error {
	p.dead.Store(true)
	return nil
}

type subscription struct {
	s     *session
	id    string
	key   string
	queue *deliveryQueue[*engine.Sample]
}

// DeclareSubscriber registers handler for every sample whose key
// intersects keyExpr. Samples for one subscriber arrive serially, in
// publication order.
func (s *session) DeclareSubscriber(ctx context.Context, keyExpr string, handler engine.SampleHandler) (engine.Registration, error) {
	if err := s.checkOpen(errors.PhaseDeclare); err != nil {
		return nil, err
	}
	if err := engine.ValidateKeyExpr(keyExpr); err != nil {
		return nil, err
	}
	sub := &subscription{
		s:   s,
		id:  uuid.NewString(),
		key: keyExpr,
	}
	sub.queue = newDeliveryQueue(func(sample *engine.Sample) {
		handler(sample)
	})
	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()
	return sub, nil
}

func (sub *subscription) stopQueue() { sub.queue.stop() }

func (sub *subscription) Undeclare() error {
	sub.s.mu.Lock()
	_, live := sub.s.subs[sub.id]
	delete(sub.s.subs, sub.id)
	sub.s.mu.Unlock()
	if live {
		sub.queue.stop()
	}
	return nil
}

func (s *session) onData(msg *pubsub.Message) {
	var env dataEnvelope
	if err := decodeEnvelope(msg.Data, &env); err != nil {
		s.log.Debug("dropping malformed data envelope", zap.Error(err))
		return
	}
	sample := sampleFromEnvelope(&env)

	s.mu.RLock()
	var targets []*subscription
	for _, sub := range s.subs {
		if engine.Intersects(sub.key, env.Key) {
			targets = append(targets, sub)
		}
	}
	s.mu.RUnlock()

	for _, sub := range targets {
		// Each subscriber gets its own view of the sample.
		copied := *sample
		sub.queue.push(&copied)
	}
}
