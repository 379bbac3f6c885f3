package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/loadplan/internal/compiler"
	"github.com/roach88/loadplan/internal/fetch"
	"github.com/roach88/loadplan/internal/plan"
	"github.com/roach88/loadplan/internal/querysql"
	"github.com/roach88/loadplan/internal/store"
	"github.com/roach88/loadplan/internal/testutil"
)

// Harness is the test execution engine for one scenario.
// It runs with a deterministic clock and build id generator so journal
// records are reproducible.
type Harness struct {
	store     *store.Store
	journal   *store.Journal
	builder   *plan.Builder
	signature string // metamodel signature of the loaded mappings
	logger    *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal for isolation.
//
// Execution flow:
// 1. Load and compile the scenario's mappings
// 2. Build the load plan for the scenario's root and options
// 3. Record a successful plan in the journal
// 4. Evaluate assertions and return the result
//
// An error is returned only when the scenario cannot be executed at all
// (unloadable mappings, journal failure). A failed build is part of the
// result and is checked by error assertions.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with an explicit context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	loaded, err := compiler.LoadMappings(scenario.Mappings)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}

	opts, err := scenario.LoadOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid load options: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store: st,
		journal: store.NewJournal(st,
			store.WithIDGenerator(testutil.NewSequenceIDGenerator(scenario.Name)),
			store.WithClock(testutil.NewDeterministicClock()),
		),
		builder: plan.NewBuilder(loaded.Metamodel,
			plan.WithResolver(fetch.NewResolver(scenario.BatchSize)),
			plan.WithLogger(logger),
		),
		signature: loaded.Signature,
		logger:    logger,
	}

	result, err := h.execute(ctx, scenario.Root, opts)
	if err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	if result.BuildErr != nil && !scenario.ExpectsError() {
		result.AddError(fmt.Sprintf("build failed: %v", result.BuildErr))
	}

	return result, nil
}

// execute builds the plan and, on success, records it.
func (h *Harness) execute(ctx context.Context, root string, opts plan.LoadOptions) (*Result, error) {
	result := NewResult()

	p, err := h.builder.Build(ctx, root, opts)
	if err != nil {
		h.logger.Debug("build failed", "root", root, "error", err)
		result.BuildErr = err
		return result, nil
	}

	result.Plan = p
	result.Aliases = querysql.AssignAliases(p)

	rec, err := h.journal.Record(ctx, p, h.signature)
	if err != nil {
		return nil, fmt.Errorf("failed to record build: %w", err)
	}
	result.Record = rec
	return result, nil
}
