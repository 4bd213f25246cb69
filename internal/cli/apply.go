package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/engine"
)

// NewApplyCmd creates the apply command, which runs the full lifecycle
// over a selection: initial, specialize, then process passes until the
// run completes or, with --single-pass, until the first suspend.
func NewApplyCmd() *cobra.Command {
	var (
		selects    []string
		actionID   string
		deleted    bool
		probe      string
		narrowType string
		executor   string
		referer    string
		field      string
		value      string
		document   string
		contract   string
		parent     string
		singlePass bool
		noSave     bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply one batch action to the selected items",
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

			ctx := cmd.Context()
			state, err := rt.ctrl.Initial(ctx, engine.InitialInput{
				Checked:      checked,
				DeletedScope: deleted,
				ProbeType:    probeType,
				ProbeID:      probeID,
			})
			if err != nil {
				return err
			}

			setup, err := rt.ctrl.Specialize(ctx, state, engine.SpecializeInput{
				Action:           actionID,
				NarrowType:       narrowType,
				ExecutorOverride: executor,
				Fields: buildFields(fieldFlags{
					field:    field,
					value:    value,
					document: document,
					contract: contract,
					parent:   parent,
				}),
			})
			if err != nil {
				return err
			}
			if setup == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no action chosen, nothing to do")
				return nil
			}

			res, err := rt.ctrl.Process(ctx, setup, engine.ProcessOptions{Referer: referer})
			if err != nil {
				return err
			}
			res, err = resumeUntilDone(ctx, cmd, rt, res, singlePass)
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

	cmd.Flags().StringArrayVar(&selects, "select", nil,
		"items to select, as type=id1,id2 (repeatable)")
	cmd.Flags().StringVar(&actionID, "action", "",
		"composite action id, as executor:action (see 'massbatch actions')")
	cmd.Flags().BoolVar(&deleted, "deleted", false,
		"act on the trash view")
	cmd.Flags().StringVar(&probe, "probe", "",
		"evaluate rights against one representative item, as type/id")
	cmd.Flags().StringVar(&narrowType, "narrow-type", "",
		"collapse the selection to this one resource type")
	cmd.Flags().StringVar(&executor, "executor", "",
		"override the executor reference split out of the action id")
	cmd.Flags().StringVar(&referer, "referer", "",
		"page to redirect to once the run completes")
	cmd.Flags().StringVar(&field, "field", "", "field to update (core:update)")
	cmd.Flags().StringVar(&value, "value", "", "value to set (core:update)")
	cmd.Flags().StringVar(&document, "document", "", "document id (core:add_document)")
	cmd.Flags().StringVar(&contract, "contract", "", "contract id (core:add_contract)")
	cmd.Flags().StringVar(&parent, "parent", "", "new parent id (core:change_parent)")
	cmd.Flags().BoolVar(&singlePass, "single-pass", false,
		"stop after one pass instead of resuming until done")
	cmd.Flags().BoolVar(&noSave, "no-save", false,
		"do not write the mutated inventory back to disk")
	_ = cmd.MarkFlagRequired("select")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

// fieldFlags groups the action-parameter flags of the apply command.
type fieldFlags struct {
	field    string
	value    string
	document string
	contract string
	parent   string
}

// buildFields maps the set flags onto the engine's parameter keys. The
// value flag rides along whenever a field name was given, so an empty
// string remains a settable value.
func buildFields(f fieldFlags) map[string]string {
	fields := make(map[string]string)
	if f.field != "" {
		fields[action.InputField] = f.field
		fields[action.InputValue] = f.value
	}
	if f.document != "" {
		fields[action.InputDocument] = f.document
	}
	if f.contract != "" {
		fields[action.InputContract] = f.contract
	}
	if f.parent != "" {
		fields[action.InputParent] = f.parent
	}
	return fields
}

// resumeUntilDone reissues suspended runs until completion, rendering
// progress between passes. With singlePass set it returns the suspended
// result immediately so the caller can resume in a later invocation.
func resumeUntilDone(
	ctx context.Context,
	cmd *cobra.Command,
	rt *runtime,
	res *engine.Result,
	singlePass bool,
) (*engine.Result, error) {
	for !res.Done {
		if singlePass {
			renderSuspended(cmd.OutOrStdout(), res)
			return res, nil
		}
		renderProgress(cmd.OutOrStdout(), res)

		next, err := rt.ctrl.Resume(ctx, res.RunID)
		if err != nil {
			return nil, err
		}
		res = next
	}
	return res, nil
}
