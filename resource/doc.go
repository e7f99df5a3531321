// Package resource provides opaque handle tables for boundary resources.
//
// Foreign code never sees the layout of a session, publisher, subscriber or
// any other long-lived resource; it holds an integer Handle drawn from a
// Table. The table maps handles back to live Go values on every boundary
// call and reclaims them on the matching destroy call.
//
// # Handle Lifecycle
//
//	table := resource.NewTable()
//
//	// Create: store a value, hand the opaque handle out.
//	h := table.Insert(typeID, myValue)
//
//	// Use: resolve the handle on each call.
//	v, ok := table.GetTyped(h, typeID)
//
//	// Destroy: removes the entry and runs the value's Drop, if any.
//	table.Remove(h)
//
// Handles are never reused. Removing a handle twice, or resolving one that
// was never issued, fails cleanly with ok == false; the table is what turns
// a foreign double-free into a no-op instead of a fault.
//
// # Type Safety
//
// Each resource kind gets a distinct type ID. GetTyped and RemoveTyped
// reject handles of the wrong kind, so a publisher handle passed to a
// subscriber operation misses instead of corrupting state.
//
// # Observers
//
// Observers receive create/drop events and exist for diagnostics; the
// boundary exposes subscription alongside its live handle counts.
package resource
