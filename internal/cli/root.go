package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string // explicit --config file; empty means discover

	config     *Config
	configFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the loadplan CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "loadplan",
		Short: "loadplan - ORM load plan builder",
		Long: `Build deterministic load plans from entity mapping metadata.

Mappings are CUE files declaring entities, their associations and fetch
styles. A load plan resolves every association reachable from a root into
query spaces, joins and fetch references, closing cycles instead of
recursing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Settings()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %v\n", ErrCodeConfig, err)
				return WrapExitError(ExitCommandError, "loading config", err)
			}
			// Config supplies the format unless the flag was given
			if f := cmd.Flag("format"); f != nil && !f.Changed && cfg.Output.Format != "" {
				opts.Format = cfg.Output.Format
			}
			if !isValidFormat(opts.Format) {
				msg := fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %s\n", ErrCodeInvalidFlag, msg)
				return NewExitError(ExitCommandError, msg)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: loadplan.yaml discovered from the working directory)")

	// Add subcommands
	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Settings returns the loaded configuration, loading it on first use.
// Commands constructed without the root command still get defaults,
// environment and any discovered config file.
func (o *RootOptions) Settings() (*Config, error) {
	if o.config != nil {
		return o.config, nil
	}
	cfg, path, err := LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	o.config, o.configFile = cfg, path
	return cfg, nil
}

// ConfigFile returns the config file in use; empty when running on defaults.
func (o *RootOptions) ConfigFile() string {
	return o.configFile
}

// Logger returns the diagnostic logger for a command: a text handler on w,
// at debug level with --verbose and warn level otherwise.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// commandContext returns cmd's context, or Background when it was executed
// without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
