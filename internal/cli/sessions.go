package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSessionsListCmd creates the sessions list command.
func NewSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List suspended runs in the session store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := sessionStore(cmd)
			if err != nil {
				return err
			}

			ids, err := store.List()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no suspended runs")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

// NewSessionsEvictCmd creates the sessions evict command, which removes
// runs whose retention window has lapsed.
func NewSessionsEvictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evict",
		Short: "Remove expired suspended runs from the session store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := sessionStore(cmd)
			if err != nil {
				return err
			}

			evicted, err := store.CleanupExpired()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "evicted %d expired runs\n", evicted)
			return nil
		},
	}
}
