package engine

import (
	"context"
)

// SampleHandler receives one delivered sample. Handlers for a single
// registration are invoked serially and in delivery order; the sample and
// its payload are only valid for the duration of the call.
type SampleHandler func(*Sample)

// QueryHandler receives one in-flight query. Ownership of the query
// transfers to the handler's consumer: every query must be resolved by
// exactly one Reply or Drop call.
type QueryHandler func(Query)

// LivelinessHandler receives presence changes: alive is true when a
// liveliness token appears on the key expression, false when it is
// retracted.
type LivelinessHandler func(keyExpr string, alive bool)

// Session is an open connection to the messaging engine. All methods are
// safe for concurrent use; lifetime of dependent resources is managed by
// the caller through reference counting, not by the engine.
type Session interface {
	// Put publishes payload on a key expression. opts may be nil.
	Put(ctx context.Context, keyExpr string, payload []byte, opts *PutOptions) error

	// Delete publishes a deletion on a key expression.
	Delete(ctx context.Context, keyExpr string) error

	// DeclarePublisher registers a long-lived publication on one key
	// expression. opts may be nil for defaults.
	DeclarePublisher(ctx context.Context, keyExpr string, opts *PublisherOptions) (Publisher, error)

	// DeclareSubscriber registers handler for every sample whose key
	// intersects keyExpr. Delivery is serial per registration.
	DeclareSubscriber(ctx context.Context, keyExpr string, handler SampleHandler) (Registration, error)

	// DeclareQueryable registers handler for incoming queries whose
	// selector intersects keyExpr.
	DeclareQueryable(ctx context.Context, keyExpr string, handler QueryHandler) (Registration, error)

	// DeclareQuerier registers a long-lived query issuer on one selector.
	DeclareQuerier(ctx context.Context, selector string) (Querier, error)

	// Get issues one query and blocks until the reply stream is exhausted,
	// invoking handler once per reply. There is no cancellation at this
	// layer; stream termination is the engine's concern.
	Get(ctx context.Context, selector string, handler SampleHandler) error

	// DeclareLivelinessToken announces presence on a key expression until
	// the registration is undeclared.
	DeclareLivelinessToken(ctx context.Context, keyExpr string) (Registration, error)

	// DeclareLivelinessSubscriber registers handler for presence changes on
	// key expressions intersecting keyExpr.
	DeclareLivelinessSubscriber(ctx context.Context, keyExpr string, handler LivelinessHandler) (Registration, error)

	// ZID returns the stable identifier of this session's endpoint.
	ZID() [16]byte

	// Close tears down the connection. Resources declared on the session
	// stop delivering; their registrations remain safe to undeclare.
	Close() error
}

// Publisher is a long-lived publication bound to one key expression.
type Publisher interface {
	// Put publishes payload; encoding may be empty.
	Put(ctx context.Context, payload []byte, encoding string) error

	// Delete publishes a deletion on the publisher's key expression.
	Delete(ctx context.Context) error

	// Undeclare retracts the publication. Idempotent.
	Undeclare() error
}

// Registration is a live subscriber, queryable or liveliness registration.
type Registration interface {
	// Undeclare retracts the registration. Idempotent.
	Undeclare() error
}

// Querier is a long-lived query issuer bound to one selector.
type Querier interface {
	// Get issues one query, blocking like Session.Get.
	Get(ctx context.Context, handler SampleHandler) error

	// Undeclare retracts the querier. Idempotent.
	Undeclare() error
}

// Query is one in-flight request delivered to a queryable. It must be
// resolved by exactly one Reply or Drop; an unresolved query holds the
// requester's wait open until the engine's query timeout fires.
type Query interface {
	// Selector returns the key expression the query was issued on.
	Selector() string

	// Reply sends payload back to the requester and resolves the query.
	Reply(ctx context.Context, keyExpr string, payload []byte) error

	// Drop resolves the query without replying.
	Drop()
}
