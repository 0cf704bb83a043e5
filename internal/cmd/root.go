package cmd

import (
	"github.com/spf13/cobra"

	"github.com/harrison/modbuild/internal/build"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for modbuild.
// Running it without a subcommand performs the full build.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modbuild",
		Short: "Build, resolve and test a modular source tree",
		Long: `modbuild cleans the module output, downloads the fixed artifact list into
deps/, compiles the main, test and user module groups, and runs the test
platform against the test and user outputs.

Phases run strictly in order and the first failure aborts the run.

Configuration is loaded from .modbuild/config.yaml (or config.toml) if
present. CLI flags override configuration file settings.

Examples:
  modbuild                        # Full build: clean, resolve, compile, test
  modbuild compile                # Compile main, test and user modules only
  modbuild --verbose              # Show per-phase timings
  modbuild history --limit 5      # Show the last five runs`,
		Version: Version,
		Args:    cobra.NoArgs,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhases(cmd, build.AllPhases)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: .modbuild/config.yaml)")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.Bool("verbose", false, "Shorthand for --log-level debug")
	flags.String("log-dir", "", "Directory for run log files")
	flags.String("history-db", "", "Run history database (empty string disables history)")
	flags.Duration("lock-timeout", 0, "How long to wait for another build in this tree (0 = wait indefinitely)")

	cmd.AddCommand(newPhaseCommand("clean", "Remove all compiled module output", build.PhaseClean))
	cmd.AddCommand(newPhaseCommand("resolve", "Download dependency artifacts into deps", build.PhaseResolve))
	cmd.AddCommand(newPhaseCommand("compile", "Compile the main, test and user module groups", build.CompilePhases...))
	cmd.AddCommand(newPhaseCommand("test", "Run the test platform against compiled test and user modules", build.PhaseTest))
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}

func newPhaseCommand(use, short string, phases ...build.Phase) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhases(cmd, phases)
		},
	}
}
