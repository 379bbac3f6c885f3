package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loadplan/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal   string
	Limit     int
	Root      string
	Signature string
}

// HistoryResult is the JSON payload of the history command.
type HistoryResult struct {
	Journal string              `json:"journal"`
	Builds  []store.BuildRecord `json:"builds"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded load plans",
		Long: `List load plans recorded with "build --record" in recording order.
With --limit only the most recent builds are listed.

Examples:
  loadplan history
  loadplan history --root Order --limit 5
  loadplan history --journal ./plans.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path (default from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of builds to list, 0 for all")
	cmd.Flags().StringVar(&opts.Root, "root", "", "only builds of this root")
	cmd.Flags().StringVar(&opts.Signature, "signature", "", "only builds with this plan signature")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.Settings()
	if err != nil {
		return formatter.Fail(ErrCodeConfig, err.Error(), nil, ExitCommandError)
	}
	if opts.Limit < 0 {
		return formatter.Fail(ErrCodeInvalidFlag, "--limit must be non-negative", nil, ExitCommandError)
	}

	path := cfg.ResolvedJournalPath(opts.Journal)
	st, err := openExistingJournal(path)
	if err != nil {
		return formatter.Fail(ErrCodeJournal, err.Error(), nil, ExitCommandError)
	}
	defer st.Close()

	builds, err := st.ListBuilds(commandContext(cmd), store.ListOptions{
		Limit:     opts.Limit,
		Root:      opts.Root,
		Signature: opts.Signature,
	})
	if err != nil {
		return formatter.Fail(ErrCodeJournal, err.Error(), nil, ExitCommandError)
	}
	formatter.VerboseLog("Read %d build(s) from %s", len(builds), path)

	// Listing omits the rendered plans; show has them.
	for i := range builds {
		builds[i].PlanView = ""
		builds[i].PlanText = ""
	}

	return formatter.Result(HistoryResult{Journal: path, Builds: builds}, func(w io.Writer) {
		if len(builds) == 0 {
			fmt.Fprintln(w, "No builds recorded.")
			return
		}
		writeHistoryTable(w, builds)
	})
}

func writeHistoryTable(w io.Writer, builds []store.BuildRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROOT\tSPACES\tSIGNATURE\tRECORDED")
	for _, b := range builds {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			b.ID, b.Root, b.SpaceCount, shortSignature(b.Signature),
			b.RecordedAt.UTC().Format(time.RFC3339))
	}
	_ = tw.Flush()
}

// shortSignature abbreviates a signature for tabular output.
func shortSignature(sig string) string {
	if len(sig) > 12 {
		return sig[:12]
	}
	return sig
}
