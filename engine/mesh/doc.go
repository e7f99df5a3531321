// Package mesh implements the engine.Session contract on a libp2p
// gossipsub mesh.
//
// One session owns a libp2p host and four namespace-scoped topics: data
// for publications and deletions, query and reply for the request side,
// and presence for queryable and liveliness announcements. Envelopes carry
// the key expression, so every receiver does its own intersection
// matching; gossipsub's delivery to local subscribers makes a single
// session self-contained.
//
// Query termination is presence-driven: a Get snapshots the responders
// alive when the query is issued and completes when each has sent its
// single reply-or-drop envelope, falling back to the configured query
// timeout for responders that never resolve.
package mesh
