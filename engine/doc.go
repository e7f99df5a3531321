// Package engine defines the contract the boundary layer consumes from the
// messaging engine: sessions, publications, subscriptions, queries and
// liveliness, together with the domain types that cross that contract.
//
// The engine is an opaque collaborator. The boundary never reaches past
// these interfaces: routing, wire encoding, discovery and the pub/sub
// protocol itself belong to the implementation behind them. The in-process
// implementation lives in engine/mesh.
//
// Key expressions are hierarchical addresses ("demo/sensor/temp") with
// single-chunk ("*") and multi-chunk ("**") wildcards; Intersects decides
// whether two expressions can meet. Selectors extend key expressions with
// optional "?parameters".
package engine
