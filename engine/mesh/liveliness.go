package mesh

import (
	"context"

	"github.com/google/uuid"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"go.uber.org/zap"

	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
)

type livelinessToken struct {
	s   *session
	id  string
	key string
}

// DeclareLivelinessToken announces presence on keyExpr until the token is
// undeclared or the session closes.
func (s *session) DeclareLivelinessToken(ctx context.Context, keyExpr string) (engine.Registration, error) {
	if err := s.checkOpen(errors.PhaseDeclare); err != nil {
		return nil, err
	}
	if err := engine.ValidateKeyExpr(keyExpr); err != nil {
		return nil, err
	}
	tok := &livelinessToken{s: s, id: uuid.NewString(), key: keyExpr}
	s.mu.Lock()
	s.tokens[tok.id] = keyExpr
	s.mu.Unlock()

	env := &presenceEnvelope{
		Kind:  presenceToken,
		ID:    tok.id,
		Key:   keyExpr,
		Peer:  s.host.ID().String(),
		Alive: true,
	}
	if err := s.publish(s.presence, env); err != nil {
		s.mu.Lock()
		delete(s.tokens, tok.id)
		s.mu.Unlock()
		return nil, errors.DeclareFailed("liveliness token", keyExpr, err)
	}
	return tok, nil
}

func (t *livelinessToken) Undeclare() error {
	t.s.mu.Lock()
	_, live := t.s.tokens[t.id]
	delete(t.s.tokens, t.id)
	closed := t.s.closed
	t.s.mu.Unlock()
	if !live || closed {
		return nil
	}
	env := &presenceEnvelope{
		Kind: presenceToken,
		ID:   t.id,
		Key:  t.key,
		Peer: t.s.host.ID().String(),
	}
	if err := t.s.publish(t.s.presence, env); err != nil {
		t.s.log.Debug("token retraction failed", zap.Error(err))
	}
	return nil
}

type presenceChange struct {
	key   string
	alive bool
}

type livelinessSub struct {
	s     *session
	id    string
	key   string
	queue *deliveryQueue[presenceChange]
}

// DeclareLivelinessSubscriber registers handler for presence changes on key
// expressions intersecting keyExpr. Only changes after registration are
// delivered; tokens already alive are not replayed.
func (s *session) DeclareLivelinessSubscriber(ctx context.Context, keyExpr string, handler engine.LivelinessHandler) (engine.Registration, error) {
	if err := s.checkOpen(errors.PhaseDeclare); err != nil {
		return nil, err
	}
	if err := engine.ValidateKeyExpr(keyExpr); err != nil {
		return nil, err
	}
	ls := &livelinessSub{
		s:   s,
		id:  uuid.NewString(),
		key: keyExpr,
	}
	ls.queue = newDeliveryQueue(func(ch presenceChange) {
		handler(ch.key, ch.alive)
	})
	s.mu.Lock()
	s.liveSubs[ls.id] = ls
	s.mu.Unlock()
	return ls, nil
}

func (ls *livelinessSub) stopQueue() { ls.queue.stop() }

func (ls *livelinessSub) Undeclare() error {
	ls.s.mu.Lock()
	_, live := ls.s.liveSubs[ls.id]
	delete(ls.s.liveSubs, ls.id)
	ls.s.mu.Unlock()
	if live {
		ls.queue.stop()
	}
	return nil
}

func (s *session) onPresence(msg *pubsub.Message) {
	var env presenceEnvelope
	if err := decodeEnvelope(msg.Data, &env); err != nil {
		s.log.Debug("dropping malformed presence envelope", zap.Error(err))
		return
	}
	switch env.Kind {
	case presenceQueryable:
		// Local queryables are matched directly; only remote ones need
		// tracking for the responder snapshot.
		if env.Peer == s.host.ID().String() {
			return
		}
		s.mu.Lock()
		if env.Alive {
			s.remoteQrys[env.ID] = env.Key
		} else {
			delete(s.remoteQrys, env.ID)
		}
		s.mu.Unlock()
	case presenceToken:
		s.mu.RLock()
		var targets []*livelinessSub
		for _, ls := range s.liveSubs {
			if engine.Intersects(ls.key, env.Key) {
				targets = append(targets, ls)
			}
		}
		s.mu.RUnlock()
		for _, ls := range targets {
			ls.queue.push(presenceChange{key: env.Key, alive: env.Alive})
		}
	default:
		s.log.Debug("unknown presence kind", zap.String("kind", env.Kind))
	}
}
