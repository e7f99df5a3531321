// Package capi is the synchronous boundary surface of the bridge: the
// complete set of operations a foreign caller uses to drive an
// asynchronous pub/sub session through opaque handles, status codes and a
// per-thread error channel.
//
// The contract is C-shaped by design, intended to sit under generated
// per-language glue:
//
//   - Resources (session, publisher, subscriber, queryable, query,
//     querier, liveliness token and subscriber) cross the boundary as
//     opaque handles with one create and one destroy operation each.
//     Destroying a null or already-destroyed handle is a safe no-op.
//   - Every entry point is panic-guarded: an internal fault becomes
//     CodeInternalFault (or a null handle) plus a diagnostic in the error
//     channel, never an unwind into foreign code.
//   - The error channel is per OS thread: cleared when an entry point
//     starts, written on failure, read with LastError.
//   - Callbacks are invoked synchronously on the delivering thread with
//     borrowed views; a callback may issue new boundary calls, which take
//     the blocking bridge's reentrant path.
//
// Inbound strings are UTF-8 validated byte slices; outbound allocated
// strings (QuerySelector, SessionZid) are string handles read with
// StringValue and released with FreeString.
//
// Queries are the one non-idempotent resource: a query handle is consumed
// by exactly one QueryReply or QueryDrop. A query that is never resolved
// leaks the requester's wait until the engine's query timeout; that is a
// caller obligation, not a guarded condition.
package capi
