package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/loadplan/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Entities int                        `json:"descriptors"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Cycles   []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <mappings-dir>",
		Short: "Validate mappings without building a plan",
		Long: `Validate CUE entity mappings without building a load plan.

Compiles every entity and collection role, then checks for dangling
association targets, inheritance problems and inconsistent fetch
declarations. Association cycles are reported for information; they are
legal and closed by the plan builder.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, mappingsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, loadErr := loadMappings(mappingsDir)
	if loadErr != nil {
		// Unloadable mappings are command-level errors (exit code 2)
		return formatter.Fail(loadErr.Code, loadErr.Message, nil, ExitCommandError)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, mappingsDir)

	m := loaded.Metamodel
	for _, d := range m.Descriptors() {
		formatter.VerboseLog("Validating %s: %s", d.Kind, d.Key)
	}

	result := ValidationResult{
		Valid:    true,
		Entities: m.Len(),
		Errors:   compiler.Validate(m),
		Cycles:   compiler.AnalyzeCycles(m),
	}

	if len(result.Errors) > 0 {
		result.Valid = false
		return outputValidationErrors(formatter, result)
	}

	return formatter.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ All mappings valid (%d descriptors)\n", result.Entities)
		writeCycles(w, result.Cycles)
	})
}

// outputValidationErrors outputs multiple validation errors.
// Validation failures = exit code 1.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	first := result.Errors[0]
	err := formatter.ErrorWithData(first.Code, first.Message, result, func(w io.Writer) {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
		}
		writeCycles(w, result.Cycles)
	})
	if err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}

func writeCycles(w io.Writer, cycles []compiler.CycleWarning) {
	for _, c := range cycles {
		fmt.Fprintf(w, "  %s: %s\n", c.Level, c.Message)
	}
}
