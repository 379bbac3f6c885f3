package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loadplan/internal/fetch"
	"github.com/roach88/loadplan/internal/plan"
	"github.com/roach88/loadplan/internal/querysql"
	"github.com/roach88/loadplan/internal/store"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Root      string
	Overrides []string // path=style[:size]
	UIDs      []string // path=uid
	MaxDepth  int      // -1 means use config
	BatchSize int      // 0 means use config
	Record    bool
	Journal   string
}

// BuildResult is the JSON payload of the build command.
type BuildResult struct {
	Plan               plan.View `json:"plan"`
	MetamodelSignature string    `json:"metamodel_signature"`
	BuildID            string    `json:"build_id,omitempty"`
	RecordedAt         string    `json:"recorded_at,omitempty"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <mappings-dir>",
		Short: "Build the load plan for a root entity or collection role",
		Long: `Build the load plan for a root descriptor from a directory of CUE mappings.

The root is an entity name (Order) or a collection role (Order.lineItems).
Fetch strategies come from the mappings unless overridden per property path.

Exit codes:
  0 - Plan built
  1 - Mapping metadata references an unresolvable association
  2 - Command error (mappings not loadable, unknown root, bad flags)

Examples:
  loadplan build ./mappings --root Order
  loadplan build ./mappings --root Order --override customer=join
  loadplan build ./mappings --root Order --override "[Order.lineItems]=batch:25"
  loadplan build ./mappings --root Order --max-depth 2 --record
  loadplan build ./mappings --root Order --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", "", "root entity name or collection role (required)")
	cmd.Flags().StringArrayVar(&opts.Overrides, "override", nil, "fetch override path=style[:size] (repeatable)")
	cmd.Flags().StringArrayVar(&opts.UIDs, "uid", nil, "pin a query space uid path=uid (repeatable; \"=uid\" pins the root)")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", -1, "maximum join depth, 0 for unlimited (default from config)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "default batch size (default from config)")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the plan in the journal")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path (default from config)")

	return cmd
}

func runBuild(opts *BuildOptions, mappingsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	cfg, err := opts.Settings()
	if err != nil {
		return formatter.Fail(ErrCodeConfig, err.Error(), nil, ExitCommandError)
	}

	if opts.Root == "" {
		return formatter.Fail(ErrCodeInvalidFlag, "--root is required", nil, ExitCommandError)
	}
	if opts.BatchSize < 0 {
		return formatter.Fail(ErrCodeInvalidFlag, "--batch-size must be non-negative", nil, ExitCommandError)
	}

	loadOpts, err := opts.loadOptions(cfg)
	if err != nil {
		return formatter.Fail(ErrCodeInvalidFlag, err.Error(), nil, ExitCommandError)
	}

	loaded, loadErr := loadMappings(mappingsDir)
	if loadErr != nil {
		return formatter.Fail(loadErr.Code, loadErr.Message, nil, ExitCommandError)
	}
	formatter.VerboseLog("Loaded %d descriptor(s) from %d file(s) in %s",
		loaded.Metamodel.Len(), loaded.FileCount, mappingsDir)

	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = cfg.Fetch.DefaultBatchSize
	}
	builder := plan.NewBuilder(loaded.Metamodel,
		plan.WithResolver(fetch.NewResolver(batchSize)),
		plan.WithLogger(opts.Logger(formatter.GetErrWriter())),
	)

	p, err := builder.Build(ctx, opts.Root, loadOpts)
	if err != nil {
		exitCode := ExitFailure
		if errors.Is(err, plan.ErrUnknownRoot) {
			exitCode = ExitCommandError
		}
		return formatter.Fail(ErrCodePlanFailed, err.Error(), nil, exitCode)
	}

	aliases := querysql.AssignAliases(p)
	signature, err := p.Signature()
	if err != nil {
		return formatter.Fail(ErrCodePlanFailed, err.Error(), nil, ExitFailure)
	}

	var rec store.BuildRecord
	if opts.Record {
		rec, err = recordPlan(cmd, cfg.ResolvedJournalPath(opts.Journal), p, loaded.Signature)
		if err != nil {
			return formatter.Fail(ErrCodeJournal, err.Error(), nil, ExitCommandError)
		}
		formatter.VerboseLog("Recorded build %s", rec.ID)
	}

	if formatter.JSON() {
		view, err := p.View(aliases.Map())
		if err != nil {
			return formatter.Fail(ErrCodePlanFailed, err.Error(), nil, ExitFailure)
		}
		result := BuildResult{
			Plan:               view,
			MetamodelSignature: loaded.Signature,
			BuildID:            rec.ID,
		}
		if rec.ID != "" {
			result.RecordedAt = rec.RecordedAt.UTC().Format(time.RFC3339)
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	if err := p.Render(w); err != nil {
		return err
	}
	writeAliases(w, aliases)
	fmt.Fprintf(w, "signature: %s\n", signature)
	if rec.ID != "" {
		fmt.Fprintf(w, "recorded: %s\n", rec.ID)
	}
	return nil
}

// loadOptions converts the command's flags into builder load options,
// falling back to config for the join depth limit.
func (o *BuildOptions) loadOptions(cfg *Config) (plan.LoadOptions, error) {
	depth := o.MaxDepth
	if depth < 0 {
		depth = cfg.Fetch.MaxJoinDepth
	}

	fetchOpts, err := parseOverrides(o.Overrides, fetch.Options{MaxJoinDepth: depth})
	if err != nil {
		return plan.LoadOptions{}, err
	}
	uids, err := parseUIDs(o.UIDs)
	if err != nil {
		return plan.LoadOptions{}, err
	}
	return plan.LoadOptions{Fetch: fetchOpts, UIDs: uids}, nil
}

// recordPlan writes p to the journal at path.
func recordPlan(cmd *cobra.Command, path string, p *plan.LoadPlan, metamodelSig string) (store.BuildRecord, error) {
	st, err := store.Open(path)
	if err != nil {
		return store.BuildRecord{}, fmt.Errorf("opening journal: %w", err)
	}
	defer st.Close()

	return store.NewJournal(st).Record(commandContext(cmd), p, metamodelSig)
}

// writeAliases writes the alias section of a text plan.
func writeAliases(w io.Writer, aliases querysql.AliasMap) {
	fmt.Fprintln(w, "aliases:")
	for _, uid := range aliases.UIDs() {
		alias, _ := aliases.Alias(uid)
		fmt.Fprintf(w, "  %s %s\n", uid, alias)
	}
}
