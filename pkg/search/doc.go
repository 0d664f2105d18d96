// Package search implements the two query modes over a user's figure
// collection: word-wheel (autocomplete) prefix search and partial substring
// search.
//
// # Components
//
//   - Validate: turns raw query/limit/offset parameters into a bounded,
//     typed Query, or one of the sentinel validation errors.
//   - Index: an in-memory, per-owner prefix index over figure names and
//     manufacturers. It is a derived, rebuildable cache; the store remains
//     the source of truth and the index can be reconstructed from it at any
//     time with identical results.
//   - Engine: executes WordWheel and Partial queries against the index and
//     the store, returning ranked, bounded, owner-scoped result sets.
//
// # Consistency
//
// Every figure mutation pairs a store write with the matching Index.Upsert
// or Index.Remove. If the pairing is ever broken the engine detects it when
// a candidate id no longer resolves against the store: the stale id is
// dropped from the result set and a background rebuild of that owner's
// section is scheduled. Callers never observe the inconsistency beyond a
// transient omission.
//
// # Concurrency
//
// Index sections are independent per owner; mutations and reads of one
// section are serialized by that section's lock and never contend with
// other owners. Both search modes are read-only, so an abandoned call has
// nothing to unwind.
package search
