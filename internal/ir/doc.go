// Package ir provides the foundational value types for load-plan construction.
//
// This package contains type definitions only: property paths, fetch
// strategies, the mapping metamodel (the descriptor arena that persisters are
// compiled into), and canonical serialization for plan signatures. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - PropertyPath and FetchStrategy are immutable values, compared with ==
//   - Descriptors are addressed by a stable string key (entity name or
//     collection role), never by pointer identity
//   - All JSON tags use snake_case
//   - Attribute order is the declared mapping order and is never re-sorted
package ir
