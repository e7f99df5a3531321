// Package bridge converts asynchronous engine operations into synchronous
// boundary calls.
//
// From the foreign caller's perspective every boundary call is fully
// blocking; the only suspension points in the system live here and inside
// the messaging engine. The bridge's job is the one hazard that makes this
// non-trivial: a foreign callback, which runs on a thread driving event
// delivery, may itself issue a new boundary call. Blocking that thread on
// work scheduled behind it would deadlock.
//
// The process-wide Context tracks which OS threads are delivering events.
// Run and RunScoped check it on entry:
//
//   - outside the context, the operation runs on the calling thread and
//     blocks it directly;
//   - inside the context, the operation is handed to a fresh OS thread and
//     the caller blocks on its completion.
//
// Run is for detached operations whose results transfer freely across
// threads (open, put, delete). RunScoped is for operations that capture
// caller-scoped state (registering callbacks, reply loops); its worker is
// joined before return so the captured state is never outlived.
//
// Both shapes guarantee completion before returning; there is no
// fire-and-forget path through this package.
package bridge
