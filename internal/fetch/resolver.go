// Package fetch resolves the effective fetch strategy of each association in
// a load plan build.
package fetch

import "github.com/roach88/loadplan/internal/ir"

// DefaultBatchSize is used for batch fetching when neither the caller nor the
// mapping declares a size.
const DefaultBatchSize = 16

// Options are the caller-supplied load options for one build.
type Options struct {
	// Overrides maps an exact property path to the requested strategy.
	Overrides map[ir.PropertyPath]ir.FetchStrategy

	// MaxJoinDepth limits how deep join fetching may go; 0 means unlimited.
	// A join resolved for a path deeper than the limit is demoted to select.
	// Explicit overrides are never demoted.
	MaxJoinDepth int
}

// Override returns a copy of o with the override for path set.
func (o Options) Override(path ir.PropertyPath, strategy ir.FetchStrategy) Options {
	overrides := make(map[ir.PropertyPath]ir.FetchStrategy, len(o.Overrides)+1)
	for p, s := range o.Overrides {
		overrides[p] = s
	}
	overrides[path] = strategy
	o.Overrides = overrides
	return o
}

// Resolver computes effective fetch strategies.
//
// Resolution order:
//  1. exact-path override from Options
//  2. the style declared on the association mapping
//  3. the global default (select)
//
// Collection elements and map indexes are part of the collection row, so
// their implicit default is join rather than select.
//
// Resolver has no state beyond its configuration and is safe for concurrent use.
type Resolver struct {
	defaultBatchSize int
}

// NewResolver creates a resolver. A non-positive batch size selects DefaultBatchSize.
func NewResolver(defaultBatchSize int) Resolver {
	if defaultBatchSize <= 0 {
		defaultBatchSize = DefaultBatchSize
	}
	return Resolver{defaultBatchSize: defaultBatchSize}
}

// DefaultBatchSize returns the batch size used when nothing else declares one.
func (r Resolver) DefaultBatchSize() int {
	if r.defaultBatchSize <= 0 {
		return DefaultBatchSize
	}
	return r.defaultBatchSize
}

// Resolve returns the effective strategy for attr reached at path.
func (r Resolver) Resolve(attr ir.Attribute, path ir.PropertyPath, opts Options) ir.FetchStrategy {
	strategy, overridden := opts.Overrides[path]
	if !overridden {
		strategy = ir.FetchStrategy{Style: attr.Fetch}
	}
	if strategy.Style == ir.FetchUnset {
		strategy.Style = implicitStyle(attr)
	}

	if strategy.Style == ir.FetchBatch {
		strategy.BatchSize = r.batchSize(strategy, attr, overridden)
	} else {
		strategy.BatchSize = 0
	}

	if strategy.IsJoin() && opts.MaxJoinDepth > 0 && path.Depth() > opts.MaxJoinDepth && !overridden {
		return ir.SelectFetch()
	}
	return strategy
}

func (r Resolver) batchSize(strategy ir.FetchStrategy, attr ir.Attribute, overridden bool) int {
	if overridden && strategy.BatchSize > 0 {
		return strategy.BatchSize
	}
	if attr.BatchSize > 0 {
		return attr.BatchSize
	}
	return r.DefaultBatchSize()
}

func implicitStyle(attr ir.Attribute) ir.FetchStyle {
	switch attr.Kind {
	case ir.AttributeElement, ir.AttributeIndex:
		return ir.FetchJoin
	default:
		return ir.FetchSelect
	}
}
