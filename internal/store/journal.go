package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/loadplan/internal/ir"
	"github.com/roach88/loadplan/internal/plan"
	"github.com/roach88/loadplan/internal/querysql"
)

// IDGenerator generates build ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 build ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so build ids sort
// by creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock supplies the informational recorded_at timestamp.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Journal turns completed load plans into journal records.
type Journal struct {
	store *Store
	ids   IDGenerator
	clock Clock
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithIDGenerator replaces the UUIDv7 build id generator.
func WithIDGenerator(g IDGenerator) JournalOption {
	return func(j *Journal) { j.ids = g }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) JournalOption {
	return func(j *Journal) { j.clock = c }
}

// NewJournal creates a journal writing to s.
func NewJournal(s *Store, opts ...JournalOption) *Journal {
	j := &Journal{store: s, ids: UUIDv7Generator{}, clock: systemClock{}}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Record stores p under a fresh build id and returns the stored record.
// metamodelSig identifies the mapping metadata the plan was built from.
func (j *Journal) Record(ctx context.Context, p *plan.LoadPlan, metamodelSig string) (BuildRecord, error) {
	rec, err := NewBuildRecord(j.ids.Generate(), p, metamodelSig, j.clock.Now())
	if err != nil {
		return BuildRecord{}, err
	}
	if err := j.store.RecordBuild(ctx, rec); err != nil {
		return BuildRecord{}, err
	}
	return j.store.GetBuild(ctx, rec.ID)
}

// NewBuildRecord describes p as a journal record. Spaces carry the aliases
// assigned by querysql.AssignAliases.
func NewBuildRecord(id string, p *plan.LoadPlan, metamodelSig string, at time.Time) (BuildRecord, error) {
	aliases := querysql.AssignAliases(p)

	view, err := p.View(aliases.Map())
	if err != nil {
		return BuildRecord{}, fmt.Errorf("build record: %w", err)
	}
	viewJSON, err := json.Marshal(view)
	if err != nil {
		return BuildRecord{}, fmt.Errorf("build record: marshal view: %w", err)
	}
	options, err := marshalOptions(p.Options())
	if err != nil {
		return BuildRecord{}, fmt.Errorf("build record: %w", err)
	}

	rec := BuildRecord{
		ID:                 id,
		Root:               view.Root,
		Signature:          view.Signature,
		MetamodelSignature: metamodelSig,
		SpaceCount:         len(view.Spaces),
		Options:            options,
		PlanText:           p.String(),
		PlanView:           string(viewJSON),
		RecordedAt:         at.UTC(),
	}
	for i, s := range view.Spaces {
		rec.Spaces = append(rec.Spaces, SpaceRecord{
			Ordinal:    i,
			UID:        s.UID,
			Kind:       s.Kind,
			Descriptor: s.Descriptor,
			Alias:      s.Alias,
		})
	}
	return rec, nil
}

// marshalOptions converts load options to canonical JSON TEXT for storage.
func marshalOptions(opts plan.LoadOptions) (string, error) {
	overrides := make(map[string]any, len(opts.Fetch.Overrides))
	for path, strategy := range opts.Fetch.Overrides {
		overrides[path.String()] = strategy.String()
	}

	uids := make(map[string]any, len(opts.UIDs))
	for path, uid := range opts.UIDs {
		uids[path.String()] = uid
	}

	data, err := ir.MarshalCanonical(map[string]any{
		"overrides":      overrides,
		"max_join_depth": opts.Fetch.MaxJoinDepth,
		"uids":           uids,
	})
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(data), nil
}
