package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/massbatch/internal/engine"
)

// NewActionsCmd creates the actions command, which runs the initial stage
// over a selection and prints the composed action catalog.
func NewActionsCmd() *cobra.Command {
	var (
		selects []string
		deleted bool
		probe   string
	)

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the batch actions available for a selection",
		Long: "Compose the action catalog for the selected items: the union of " +
			"standard, contributed and type-specific actions across the selected " +
			"resource types, minus each type's forbidden actions.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			checked, err := parseSelection(selects)
			if err != nil {
				return err
			}
			probeType, probeID := parseProbe(probe)

			state, err := rt.ctrl.Initial(cmd.Context(), engine.InitialInput{
				Checked:      checked,
				DeletedScope: deleted,
				ProbeType:    probeType,
				ProbeID:      probeID,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d items selected, %d actions available\n\n",
				state.Selection.Len(), len(state.Actions))
			for _, id := range sortedActionIDs(state.Actions) {
				fmt.Fprintf(out, "  %-40s %s\n", id, state.Actions[id])
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&selects, "select", nil,
		"items to select, as type=id1,id2 (repeatable)")
	cmd.Flags().BoolVar(&deleted, "deleted", false,
		"compose the trash-view action set")
	cmd.Flags().StringVar(&probe, "probe", "",
		"evaluate rights against one representative item, as type/id")
	_ = cmd.MarkFlagRequired("select")

	return cmd
}
