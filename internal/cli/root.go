// Package cli wires the batch engine to a cobra command tree: listing
// available actions, applying an action over a selection, resuming
// suspended runs and managing the session store.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root cobra command for the massbatch CLI and
// wires up logging and subcommands (actions, apply, resume, sessions).
func NewRootCmd(ver string) *cobra.Command {
	var closeLog func()

	cmd := &cobra.Command{
		Use:     "massbatch",
		Short:   "Batch actions over an inventory, resumable across invocations",
		Long:    "massbatch: apply one action to many items at once, suspending long runs into a session store and resuming them later",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			closeLog, err = setupLogging(cmd)
			return err
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if closeLog != nil {
				closeLog()
			}
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "path to the configuration file")
	cmd.PersistentFlags().String("inventory", "inventory.yaml", "path to the inventory document")
	cmd.AddCommand(NewActionsCmd(), NewApplyCmd(), NewResumeCmd(), newSessionsCmd())

	return cmd
}

const rootCmdExample = `  # List the actions available for two devices
  massbatch actions --select device=1,2

  # Soft-delete them
  massbatch apply --select device=1,2 --action core:delete

  # Update one field across a mixed selection
  massbatch apply --select device=1,2 --select printer=7 \
    --action core:update --field location --value loc3

  # Purge from the trash view
  massbatch apply --select device=1,2 --action core:purge --deleted

  # Run a single pass and resume the suspended run later
  massbatch apply --select device=1,2 --action core:delete --single-pass
  massbatch resume 01JF8Z3GV0Q4N5T6W7X8Y9Z0AB

  # Inspect and clean the session store
  massbatch sessions list
  massbatch sessions evict`

// newSessionsCmd creates the sessions command group for inspecting and
// cleaning the resumable-session store.
func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Session store management commands"}
	cmd.AddCommand(NewSessionsListCmd(), NewSessionsEvictCmd())
	return cmd
}
