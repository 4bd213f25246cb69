package cli

import (
	"github.com/spf13/cobra"
)

// NewResumeCmd creates the resume command, which continues a suspended
// run by its id.
func NewResumeCmd() *cobra.Command {
	var (
		singlePass bool
		noSave     bool
	)

	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Continue a suspended batch run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			res, err := rt.ctrl.Resume(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err = resumeUntilDone(cmd.Context(), cmd, rt, res, singlePass)
			if err != nil {
				return err
			}

			if res.Done {
				renderResult(cmd.OutOrStdout(), res)
			}
			if noSave {
				return nil
			}
			return rt.inv.Save()
		},
	}

	cmd.Flags().BoolVar(&singlePass, "single-pass", false,
		"stop after one pass instead of resuming until done")
	cmd.Flags().BoolVar(&noSave, "no-save", false,
		"do not write the mutated inventory back to disk")

	return cmd
}
