package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/loadplan/internal/ir"
)

func path(s string) ir.PropertyPath {
	return ir.ParsePropertyPath(s)
}

func TestResolve(t *testing.T) {
	r := NewResolver(0)

	tests := []struct {
		name string
		attr ir.Attribute
		path string
		opts Options
		want ir.FetchStrategy
	}{
		{
			name: "declared join",
			attr: ir.Attribute{Name: "customer", Kind: ir.AttributeManyToOne, Fetch: ir.FetchJoin},
			path: "customer",
			want: ir.JoinFetch(),
		},
		{
			name: "undeclared association defaults to select",
			attr: ir.Attribute{Name: "product", Kind: ir.AttributeManyToOne},
			path: "product",
			want: ir.SelectFetch(),
		},
		{
			name: "undeclared collection defaults to select",
			attr: ir.Attribute{Name: "orders", Kind: ir.AttributeCollection},
			path: "[Customer.orders]",
			want: ir.SelectFetch(),
		},
		{
			name: "collection elements default to join",
			attr: ir.Attribute{Name: ir.ElementAttributeName, Kind: ir.AttributeElement},
			path: "[Order.lineItems].<elements>",
			want: ir.JoinFetch(),
		},
		{
			name: "map index defaults to join",
			attr: ir.Attribute{Name: ir.IndexAttributeName, Kind: ir.AttributeIndex},
			path: "[Order.byProduct].<index>",
			want: ir.JoinFetch(),
		},
		{
			name: "declared batch takes declared size",
			attr: ir.Attribute{Name: "lines", Kind: ir.AttributeCollection, Fetch: ir.FetchBatch, BatchSize: 25},
			path: "[Invoice.lines]",
			want: ir.BatchFetch(25),
		},
		{
			name: "declared batch without size takes default",
			attr: ir.Attribute{Name: "lines", Kind: ir.AttributeCollection, Fetch: ir.FetchBatch},
			path: "[Invoice.lines]",
			want: ir.BatchFetch(DefaultBatchSize),
		},
		{
			name: "override beats declaration",
			attr: ir.Attribute{Name: "customer", Kind: ir.AttributeManyToOne, Fetch: ir.FetchSelect},
			path: "customer",
			opts: Options{}.Override(path("customer"), ir.JoinFetch()),
			want: ir.JoinFetch(),
		},
		{
			name: "override matches exact path only",
			attr: ir.Attribute{Name: "customer", Kind: ir.AttributeManyToOne, Fetch: ir.FetchSelect},
			path: "[Order.lineItems].<elements>.order.customer",
			opts: Options{}.Override(path("customer"), ir.JoinFetch()),
			want: ir.SelectFetch(),
		},
		{
			name: "batch override with size",
			attr: ir.Attribute{Name: "lineItems", Kind: ir.AttributeCollection, Fetch: ir.FetchJoin},
			path: "[Order.lineItems]",
			opts: Options{}.Override(path("[Order.lineItems]"), ir.BatchFetch(40)),
			want: ir.BatchFetch(40),
		},
		{
			name: "batch override without size falls back to declared size",
			attr: ir.Attribute{Name: "lines", Kind: ir.AttributeCollection, Fetch: ir.FetchSelect, BatchSize: 12},
			path: "[Invoice.lines]",
			opts: Options{}.Override(path("[Invoice.lines]"), ir.FetchStrategy{Style: ir.FetchBatch}),
			want: ir.BatchFetch(12),
		},
		{
			name: "non-batch strategy drops batch size",
			attr: ir.Attribute{Name: "lines", Kind: ir.AttributeCollection, Fetch: ir.FetchSubselect, BatchSize: 12},
			path: "[Invoice.lines]",
			want: ir.SubselectFetch(),
		},
		{
			name: "join beyond max depth demoted",
			attr: ir.Attribute{Name: "product", Kind: ir.AttributeManyToOne, Fetch: ir.FetchJoin},
			path: "[Order.lineItems].<elements>.product",
			opts: Options{MaxJoinDepth: 2},
			want: ir.SelectFetch(),
		},
		{
			name: "join at max depth kept",
			attr: ir.Attribute{Name: ir.ElementAttributeName, Kind: ir.AttributeElement},
			path: "[Order.lineItems].<elements>",
			opts: Options{MaxJoinDepth: 2},
			want: ir.JoinFetch(),
		},
		{
			name: "explicit join override never demoted",
			attr: ir.Attribute{Name: "product", Kind: ir.AttributeManyToOne},
			path: "[Order.lineItems].<elements>.product",
			opts: Options{MaxJoinDepth: 1}.Override(path("[Order.lineItems].<elements>.product"), ir.JoinFetch()),
			want: ir.JoinFetch(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.attr, path(tt.path), tt.opts))
		})
	}
}

func TestNewResolverDefaultBatchSize(t *testing.T) {
	assert.Equal(t, DefaultBatchSize, NewResolver(0).DefaultBatchSize())
	assert.Equal(t, DefaultBatchSize, NewResolver(-3).DefaultBatchSize())
	assert.Equal(t, DefaultBatchSize, Resolver{}.DefaultBatchSize(), "zero value is usable")
	assert.Equal(t, 50, NewResolver(50).DefaultBatchSize())

	attr := ir.Attribute{Name: "lines", Kind: ir.AttributeCollection, Fetch: ir.FetchBatch}
	assert.Equal(t, ir.BatchFetch(50), NewResolver(50).Resolve(attr, path("[Invoice.lines]"), Options{}))
}

func TestOptionsOverrideCopies(t *testing.T) {
	base := Options{MaxJoinDepth: 3}.Override(path("customer"), ir.JoinFetch())
	derived := base.Override(path("[Order.lineItems]"), ir.SelectFetch())

	assert.Len(t, base.Overrides, 1, "Override never mutates the receiver")
	assert.Len(t, derived.Overrides, 2)
	assert.Equal(t, 3, derived.MaxJoinDepth)
}
