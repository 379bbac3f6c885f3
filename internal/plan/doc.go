// Package plan builds load plans: the immutable tree of references and query
// spaces that the SQL layer turns into joins and result-set readers.
//
// A build walks the mapping metamodel depth-first from a root entity or
// collection. At each association it asks the fetch resolver for the
// effective strategy and the query space registry for a space, then records a
// fetch reference under its owner.
//
// Cycle closure: visited targets are tracked by descriptor key, not by path.
// When an association leads to a descriptor that already has a space in this
// build (a self reference, the inverse side of a bidirectional association,
// or a second path to a shared entity), the existing space is reused, the new
// join edge is recorded, and the fetch is marked Reused and not expanded.
// This bounds every build by the number of descriptors.
//
// Expansion: only join-fetched associations are expanded inline. Select,
// subselect and batch fetches get their own query space and reference but
// their sub-graphs are left to the separate load plans built when those
// queries execute.
//
// Builds share no mutable state. A LoadPlan is immutable once returned and
// may be read from many goroutines.
package plan
