// Package zenohbridge exposes an asynchronous pub/sub messaging session
// through a synchronous, crash-safe boundary callable from foreign code.
//
// The module is layered bottom-up:
//
//   - resource: the handle table backing every opaque resource the
//     boundary hands out.
//   - errors: the structured error taxonomy the boundary collapses into
//     status codes and diagnostic messages.
//   - bridge: the process-wide execution context and the blocking bridge
//     that runs asynchronous operations to completion for synchronous
//     callers, including reentrant calls made from inside callbacks.
//   - engine: the interface of the messaging engine the boundary drives,
//     with engine/mesh as its in-process gossipsub implementation.
//   - capi: the boundary surface itself: handles, status codes, the
//     per-thread error channel, and every session, publisher, subscriber,
//     query and liveliness operation.
//
// cmd/zbprobe is an interactive probe that drives the boundary end to end.
package zenohbridge
