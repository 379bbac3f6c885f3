package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loadplan/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Journal string
}

// ShowResult is the JSON payload of the show command.
type ShowResult struct {
	ID                 string              `json:"id"`
	Seq                int64               `json:"seq"`
	Root               string              `json:"root"`
	Signature          string              `json:"signature"`
	MetamodelSignature string              `json:"metamodel_signature"`
	Options            json.RawMessage     `json:"options"`
	RecordedAt         string              `json:"recorded_at"`
	Spaces             []store.SpaceRecord `json:"spaces"`
	Plan               json.RawMessage     `json:"plan"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <build-id>",
		Short: "Show a recorded load plan",
		Long: `Show a load plan recorded with "build --record": its options, signatures,
query spaces with their SQL aliases, and the rendered plan.

Examples:
  loadplan show 01928f6e-8c1a-7b3e-9d4f-2a6b8c0e1f3a
  loadplan show 01928f6e-8c1a-7b3e-9d4f-2a6b8c0e1f3a --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path (default from config)")

	return cmd
}

func runShow(opts *ShowOptions, buildID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.Settings()
	if err != nil {
		return formatter.Fail(ErrCodeConfig, err.Error(), nil, ExitCommandError)
	}

	st, err := openExistingJournal(cfg.ResolvedJournalPath(opts.Journal))
	if err != nil {
		return formatter.Fail(ErrCodeJournal, err.Error(), nil, ExitCommandError)
	}
	defer st.Close()

	rec, err := st.GetBuild(commandContext(cmd), buildID)
	if store.IsBuildNotFound(err) {
		return formatter.Fail(ErrCodeBuildNotFound, fmt.Sprintf("build not found: %s", buildID), nil, ExitCommandError)
	}
	if err != nil {
		return formatter.Fail(ErrCodeJournal, err.Error(), nil, ExitCommandError)
	}

	result := ShowResult{
		ID:                 rec.ID,
		Seq:                rec.Seq,
		Root:               rec.Root,
		Signature:          rec.Signature,
		MetamodelSignature: rec.MetamodelSignature,
		Options:            json.RawMessage(rec.Options),
		RecordedAt:         rec.RecordedAt.UTC().Format(time.RFC3339),
		Spaces:             rec.Spaces,
		Plan:               json.RawMessage(rec.PlanView),
	}

	return formatter.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "build %s (#%d)\n", rec.ID, rec.Seq)
		fmt.Fprintf(w, "  root:      %s\n", rec.Root)
		fmt.Fprintf(w, "  recorded:  %s\n", result.RecordedAt)
		fmt.Fprintf(w, "  signature: %s\n", rec.Signature)
		fmt.Fprintf(w, "  metamodel: %s\n", rec.MetamodelSignature)
		fmt.Fprintf(w, "  options:   %s\n", rec.Options)
		fmt.Fprintln(w)
		fmt.Fprint(w, rec.PlanText)
		fmt.Fprintln(w, "aliases:")
		for _, sp := range rec.Spaces {
			fmt.Fprintf(w, "  %s %s\n", sp.UID, sp.Alias)
		}
	})
}
