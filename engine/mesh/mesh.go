package mesh

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"

	"github.com/konnta0/zenoh-bridge/engine"
	"github.com/konnta0/zenoh-bridge/errors"
)

// Option configures an opened session.
type Option func(*session)

// WithLogger installs a logger for engine diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *session) {
		s.log = l
	}
}

type session struct {
	log    *zap.Logger
	host   host.Host
	ps     *pubsub.PubSub
	ctx    context.Context
	cancel context.CancelFunc
	cfg    engine.Config
	zid    [16]byte

	data     *pubsub.Topic
	query    *pubsub.Topic
	reply    *pubsub.Topic
	presence *pubsub.Topic

	mu         sync.RWMutex
	closed     bool
	subs       map[string]*subscription
	queryables map[string]*queryable
	liveSubs   map[string]*livelinessSub
	tokens     map[string]string        // token id -> key expression
	remoteQrys map[string]string        // remote queryable id -> key expression
	pending    map[string]*pendingQuery // query id -> in-flight get

	wg sync.WaitGroup
}

// Open connects a new session to the mesh described by cfg.
func Open(ctx context.Context, cfg engine.Config, opts ...Option) (engine.Session, error) {
	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		log:        zap.NewNop(),
		ctx:        sctx,
		cancel:     cancel,
		cfg:        cfg,
		subs:       make(map[string]*subscription),
		queryables: make(map[string]*queryable),
		liveSubs:   make(map[string]*livelinessSub),
		tokens:     make(map[string]string),
		remoteQrys: make(map[string]string),
		pending:    make(map[string]*pendingQuery),
	}
	for _, opt := range opts {
		opt(s)
	}

	h, err := libp2p.New(libp2p.ListenAddrStrings(cfg.Listen...))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create host: %w", err)
	}
	s.host = h
	s.zid = zidFromPeer(h.ID())

	ps, err := pubsub.NewGossipSub(sctx, h,
		pubsub.WithPeerExchange(true),
		pubsub.WithFloodPublish(true),
	)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("create pubsub: %w", err)
	}
	s.ps = ps

	for _, addr := range cfg.Connect {
		info, err := peer.AddrInfoFromString(addr)
		if err != nil {
			s.log.Warn("invalid connect address", zap.String("addr", addr), zap.Error(err))
			continue
		}
		if err := h.Connect(ctx, *info); err != nil {
			s.log.Warn("connect failed", zap.String("addr", addr), zap.Error(err))
		}
	}

	if err := s.joinTopics(); err != nil {
		h.Close()
		cancel()
		return nil, err
	}

	s.log.Debug("session opened",
		zap.String("peer", h.ID().String()),
		zap.String("namespace", cfg.Namespace))
	return s, nil
}

func (s *session) joinTopics() error {
	join := func(name string) (*pubsub.Topic, *pubsub.Subscription, error) {
		t, err := s.ps.Join(s.cfg.Namespace + "." + name)
		if err != nil {
			return nil, nil, fmt.Errorf("join %s: %w", name, err)
		}
		sub, err := t.Subscribe()
		if err != nil {
			return nil, nil, fmt.Errorf("subscribe %s: %w", name, err)
		}
		return t, sub, nil
	}

	var (
		subs [4]*pubsub.Subscription
		err  error
	)
	if s.data, subs[0], err = join(topicData); err != nil {
		return err
	}
	if s.query, subs[1], err = join(topicQuery); err != nil {
		return err
	}
	if s.reply, subs[2], err = join(topicReply); err != nil {
		return err
	}
	if s.presence, subs[3], err = join(topicPresence); err != nil {
		return err
	}

	loops := []func(*pubsub.Message){s.onData, s.onQuery, s.onReply, s.onPresence}
	for i, sub := range subs {
		s.wg.Add(1)
		go s.readLoop(sub, loops[i])
	}
	return nil
}

func (s *session) readLoop(sub *pubsub.Subscription, handle func(*pubsub.Message)) {
	defer s.wg.Done()
	defer sub.Cancel()
	for {
		msg, err := sub.Next(s.ctx)
		if err != nil {
			return // context cancelled or subscription torn down
		}
		handle(msg)
	}
}

func (s *session) publish(t *pubsub.Topic, env any) error {
	data, err := encodeEnvelope(env)
	if err != nil {
		return err
	}
	return t.Publish(s.ctx, data)
}

func (s *session) checkOpen(phase errors.Phase) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.SessionClosed(phase)
	}
	return nil
}

// ZID returns the stable 16-byte identifier of this session's endpoint.
func (s *session) ZID() [16]byte {
	return s.zid
}

// Close tears down the connection: local tokens are retracted, delivery
// stops, and the host is released. Registrations held by callers remain
// safe to undeclare afterwards.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	tokens := make(map[string]string, len(s.tokens))
	for id, key := range s.tokens {
		tokens[id] = key
	}
	s.mu.Unlock()

	// Best-effort presence retraction before delivery stops.
	for id, key := range tokens {
		env := &presenceEnvelope{
			Kind: presenceToken,
			ID:   id,
			Key:  key,
			Peer: s.host.ID().String(),
		}
		if err := s.publish(s.presence, env); err != nil {
			s.log.Debug("token retraction failed on close", zap.Error(err))
		}
	}

	s.cancel()
	err := s.host.Close()
	s.wg.Wait()

	s.mu.Lock()
	for _, sub := range s.subs {
		sub.stopQueue()
	}
	for _, q := range s.queryables {
		q.stopQueue()
	}
	for _, ls := range s.liveSubs {
		ls.stopQueue()
	}
	s.subs = make(map[string]*subscription)
	s.queryables = make(map[string]*queryable)
	s.liveSubs = make(map[string]*livelinessSub)
	s.mu.Unlock()

	s.log.Debug("session closed")
	return err
}

func zidFromPeer(id peer.ID) [16]byte {
	sum := sha256.Sum256([]byte(id))
	var zid [16]byte
	copy(zid[:], sum[:16])
	return zid
}
