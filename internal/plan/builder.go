package plan

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/loadplan/internal/fetch"
	"github.com/roach88/loadplan/internal/ir"
	"github.com/roach88/loadplan/internal/spaces"
)

// Persisters is the metadata the builder consumes: descriptor lookup by key
// and the ordered (inheritance-resolved) attributes of a descriptor.
// *ir.Metamodel implements it.
type Persisters interface {
	Lookup(key string) (*ir.Descriptor, bool)
	Attributes(key string) ([]ir.Attribute, error)
}

// Builder builds load plans over a fixed metamodel.
//
// A Builder holds configuration only; every Build call creates fresh
// build-scoped state, so one Builder may serve concurrent builds.
type Builder struct {
	persisters Persisters
	resolver   fetch.Resolver
	uidPrefix  string
	logger     *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithResolver sets the fetch strategy resolver.
func WithResolver(r fetch.Resolver) BuilderOption {
	return func(b *Builder) { b.resolver = r }
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithUIDPrefix sets the namespace of generated query space uids.
func WithUIDPrefix(prefix string) BuilderOption {
	return func(b *Builder) { b.uidPrefix = prefix }
}

// NewBuilder creates a builder over persisters.
func NewBuilder(persisters Persisters, opts ...BuilderOption) *Builder {
	b := &Builder{
		persisters: persisters,
		resolver:   fetch.NewResolver(fetch.DefaultBatchSize),
		uidPrefix:  spaces.DefaultUIDPrefix,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// buildContext is the state of one build. It is passed by pointer through
// the traversal and discarded when the build returns.
type buildContext struct {
	registry   *spaces.Registry
	visited    map[string]*spaces.QuerySpace // descriptor key -> space
	opts       LoadOptions
	resolver   fetch.Resolver
	persisters Persisters
	logger     *slog.Logger
}

// frame is one entry of the explicit traversal stack: the attributes of an
// expanded reference and the position of the next one to visit.
type frame struct {
	owner Reference
	key   string
	attrs []ir.Attribute
	next  int
}

// Build builds the load plan rooted at the descriptor under rootKey.
//
// The root may be an entity or a collection role. On failure no plan is
// returned: errors are *UnresolvableAssociationError for dangling mapping
// references, ErrUnknownRoot (wrapped) for an unknown root, and
// *InvariantError for internal invariant violations.
func (b *Builder) Build(ctx context.Context, rootKey string, opts LoadOptions) (*LoadPlan, error) {
	ctx, span := tracer.Start(ctx, "plan.Build",
		trace.WithAttributes(attribute.String("loadplan.root", rootKey)))
	defer span.End()

	p, err := b.build(rootKey, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordBuild(ctx, rootKey, 0, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("loadplan.query_spaces", len(p.spaces)),
		attribute.Int("loadplan.fetches", len(p.Fetches())),
	)
	recordBuild(ctx, rootKey, len(p.spaces), nil)
	return p, nil
}

func (b *Builder) build(rootKey string, opts LoadOptions) (*LoadPlan, error) {
	bc := &buildContext{
		registry:   spaces.NewRegistryWithPrefix(b.uidPrefix),
		visited:    make(map[string]*spaces.QuerySpace),
		opts:       copyOptions(opts),
		resolver:   b.resolver,
		persisters: b.persisters,
		logger:     b.logger.With("root", rootKey),
	}
	for _, uid := range bc.opts.UIDs {
		bc.registry.Reserve(uid)
	}

	root, err := bc.makeRoot(rootKey)
	if err != nil {
		return nil, err
	}

	if err := bc.expand(root, rootKey); err != nil {
		return nil, err
	}

	all := bc.registry.Spaces()
	byUID := make(map[string]*spaces.QuerySpace, len(all))
	for _, s := range all {
		byUID[s.UID()] = s
	}
	if orphans := verifyReachable(root.QuerySpace(), all, byUID); len(orphans) > 0 {
		return nil, &InvariantError{Message: fmt.Sprintf("query spaces unreachable from root: %v", orphans)}
	}

	bc.logger.Debug("load plan built", "query_spaces", len(all))
	return &LoadPlan{
		root:    root,
		spaces:  all,
		byUID:   byUID,
		options: bc.opts,
	}, nil
}

// makeRoot allocates the root space and wraps it as the root reference.
func (bc *buildContext) makeRoot(rootKey string) (Return, error) {
	d, ok := bc.persisters.Lookup(rootKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoot, rootKey)
	}

	path := ir.RootPath()
	if d.IsCollection() {
		path = ir.CollectionRootPath(d.Role())
	}

	space, err := bc.allocate(d, path)
	if err != nil {
		return nil, err
	}

	if d.IsCollection() {
		return &CollectionReturn{node: node{space: space, path: path}}, nil
	}
	return &EntityReturn{node: node{space: space, path: path}}, nil
}

// expand walks the associations reachable from root with an explicit stack.
//
// The visited check happens before a target is expanded, so each descriptor
// is expanded at most once and the walk terminates on cyclic metadata.
func (bc *buildContext) expand(root Reference, rootKey string) error {
	attrs, err := bc.persisters.Attributes(rootKey)
	if err != nil {
		return &UnresolvableAssociationError{
			Path: root.PropertyPath(), Owner: rootKey, Target: rootKey, Reason: err.Error(),
		}
	}
	stack := []*frame{{owner: root, key: rootKey, attrs: attrs}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.attrs) {
			stack = stack[:len(stack)-1]
			continue
		}
		attr := top.attrs[top.next]
		top.next++

		if !attr.IsAssociation() {
			continue
		}

		child, expandKey, err := bc.visit(top.owner, top.key, attr)
		if err != nil {
			return err
		}
		if expandKey == "" {
			continue
		}

		childAttrs, err := bc.persisters.Attributes(expandKey)
		if err != nil {
			return &UnresolvableAssociationError{
				Path: child.PropertyPath(), Owner: top.key, Attribute: attr.Name,
				Target: expandKey, Reason: err.Error(),
			}
		}
		stack = append(stack, &frame{owner: child, key: expandKey, attrs: childAttrs})
	}
	return nil
}

// visit handles one association of owner. It returns the new fetch and, when
// the fetch must be expanded inline, the key of the target descriptor.
func (bc *buildContext) visit(owner Reference, ownerKey string, attr ir.Attribute) (Fetch, string, error) {
	path := childPath(owner.PropertyPath(), attr)
	strategy := bc.resolver.Resolve(attr, path, bc.opts.Fetch)

	target, err := bc.resolveTarget(ownerKey, attr, path)
	if err != nil {
		return nil, "", err
	}

	if space, seen := bc.visited[target.Key]; seen {
		if _, err := bc.registry.AddJoin(owner.QuerySpace().UID(), space.UID(), attr.Name, path, strategy.Style); err != nil {
			return nil, "", &InvariantError{Message: "record closing join", Err: err}
		}
		f := newFetch(owner, space, path, attr, strategy, true)
		parentNode(owner).addFetch(f)
		bc.logger.Debug("query space reused",
			"uid", space.UID(), "descriptor", target.Key, "path", path.String())
		return f, "", nil
	}

	space, err := bc.allocate(target, path)
	if err != nil {
		return nil, "", err
	}
	if _, err := bc.registry.AddJoin(owner.QuerySpace().UID(), space.UID(), attr.Name, path, strategy.Style); err != nil {
		return nil, "", &InvariantError{Message: "record join", Err: err}
	}
	f := newFetch(owner, space, path, attr, strategy, false)
	parentNode(owner).addFetch(f)

	if !strategy.IsJoin() {
		return f, "", nil
	}
	return f, target.Key, nil
}

// resolveTarget looks up the association's target and checks that its kind
// matches the attribute kind.
func (bc *buildContext) resolveTarget(ownerKey string, attr ir.Attribute, path ir.PropertyPath) (*ir.Descriptor, error) {
	unresolvable := func(reason string) error {
		return &UnresolvableAssociationError{
			Path: path, Owner: ownerKey, Attribute: attr.Name, Target: attr.Target, Reason: reason,
		}
	}

	if attr.Target == "" {
		return nil, unresolvable("is not declared")
	}
	target, ok := bc.persisters.Lookup(attr.Target)
	if !ok {
		return nil, unresolvable("does not exist")
	}
	if attr.IsCollection() != target.IsCollection() {
		return nil, unresolvable(fmt.Sprintf("is a %s, expected by %s attribute", target.Kind, attr.Kind))
	}
	return target, nil
}

// allocate creates the space for d, marks d visited and returns the space.
func (bc *buildContext) allocate(d *ir.Descriptor, path ir.PropertyPath) (*spaces.QuerySpace, error) {
	uid, pinned := bc.opts.UIDs[path]
	if !pinned {
		uid = bc.registry.GenerateImplicitUID()
	}

	var (
		space *spaces.QuerySpace
		err   error
	)
	if d.IsCollection() {
		space, err = bc.registry.MakeCollectionQuerySpace(uid, d)
	} else {
		space, err = bc.registry.MakeEntityQuerySpace(uid, d)
	}
	if err != nil {
		return nil, &InvariantError{Message: fmt.Sprintf("allocate query space for %s at %q", d.Key, path.String()), Err: err}
	}

	bc.visited[d.Key] = space
	bc.logger.Debug("query space allocated",
		"uid", uid, "descriptor", d.Key, "kind", string(space.Kind()), "path", path.String())
	return space, nil
}

// childPath computes the path of the node reached through attr.
// Collections append their bracketed role; collection elements and map
// indexes append "<elements>" and "<index>".
func childPath(parent ir.PropertyPath, attr ir.Attribute) ir.PropertyPath {
	switch attr.Kind {
	case ir.AttributeCollection:
		return parent.Append(ir.RoleSegment(attr.Target))
	case ir.AttributeElement:
		return parent.Append(ir.ElementSegment)
	case ir.AttributeIndex:
		return parent.Append(ir.IndexSegment)
	default:
		return parent.Append(attr.Name)
	}
}

func newFetch(owner Reference, space *spaces.QuerySpace, path ir.PropertyPath, attr ir.Attribute, strategy ir.FetchStrategy, reused bool) Fetch {
	base := fetchBase{
		node:     node{space: space, path: path},
		parent:   owner,
		attr:     attr,
		strategy: strategy,
		reused:   reused,
	}
	if space.Kind() == spaces.KindCollection {
		return &CollectionFetch{fetchBase: base}
	}
	return &EntityFetch{fetchBase: base}
}

// copyOptions detaches the plan from caller-owned maps.
func copyOptions(opts LoadOptions) LoadOptions {
	out := LoadOptions{Fetch: fetch.Options{MaxJoinDepth: opts.Fetch.MaxJoinDepth}}
	if len(opts.Fetch.Overrides) > 0 {
		out.Fetch.Overrides = make(map[ir.PropertyPath]ir.FetchStrategy, len(opts.Fetch.Overrides))
		for p, s := range opts.Fetch.Overrides {
			out.Fetch.Overrides[p] = s
		}
	}
	if len(opts.UIDs) > 0 {
		out.UIDs = make(map[ir.PropertyPath]string, len(opts.UIDs))
		for p, uid := range opts.UIDs {
			out.UIDs[p] = uid
		}
	}
	return out
}
