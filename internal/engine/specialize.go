package engine

import (
	"context"
	"fmt"

	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/logging"
)

// NoActionChosen is the wire value a caller submits when the action
// dropdown was left on its empty entry. Specialization then terminates the
// flow without error and without producing further state.
const NoActionChosen = "-1"

// SpecializeInput carries the chosen action and its parameters.
type SpecializeInput struct {
	// Action is the chosen composite action id.
	Action string

	// NarrowType, when set, collapses the selection to that one resource
	// type (or to empty if the type is absent). Used by actions that work
	// on a single type.
	NarrowType string

	// ExecutorOverride, when set, wins over the executor reference split
	// out of the composite action id.
	ExecutorOverride string

	// Fields are action-specific parameters (update field and value,
	// document id, ...). Specialization is re-enterable: successive calls
	// may grow this map before processing begins.
	Fields map[string]string
}

// RunSetup is the narrowed state specialization hands to the process
// stage.
type RunSetup struct {
	Selection        Selection
	InitialSelection Selection
	Action           string
	ExecutorRef      string
	ActionLabel      string
	TotalItems       int
	Fields           map[string]string
	DeletedScope     bool
}

// Specialize runs the second lifecycle stage: it resolves the chosen
// action, narrows the selection to the types the action applies to, and
// splits the composite action id into its executor reference and bare id.
// It re-derives everything from the initial state, so it may be invoked
// again with more parameters before processing begins.
//
// A (nil, nil) return means the caller chose no action: the flow simply
// ends.
func (c *Controller) Specialize(
	ctx context.Context,
	state *InitialState,
	in SpecializeInput,
) (*RunSetup, error) {
	log := logging.FromContext(ctx)

	if in.Action == NoActionChosen {
		return nil, nil
	}
	label, ok := state.Actions[in.Action]
	if !ok {
		return nil, fmt.Errorf("%w: action %q not in offered set", ErrImplementation, in.Action)
	}

	selection := state.Selection.Clone()

	// Restrict to the types that contributed this action, unless the
	// action came in through the explicit-restriction path.
	if !state.DontFilter[in.Action] {
		if contributors, filtered := state.ActionFilter[in.Action]; filtered {
			keep := make(map[string]bool, len(contributors))
			for _, typeName := range contributors {
				keep[typeName] = true
			}
			for _, typeName := range selection.Types() {
				if !keep[typeName] {
					selection.RemoveType(typeName)
				}
			}
		}
	}

	// Independent of contribution filtering, drop every type that
	// declares this action forbidden. Types that no longer resolve are
	// dropped too.
	for _, typeName := range selection.Types() {
		h, resolved := c.resolver.Resolve(typeName)
		if !resolved {
			selection.RemoveType(typeName)
			continue
		}
		for _, forbidden := range h.ForbiddenActions() {
			if forbidden == in.Action {
				selection.RemoveType(typeName)
				break
			}
		}
	}

	if in.NarrowType != "" {
		for _, typeName := range selection.Types() {
			if typeName != in.NarrowType {
				selection.RemoveType(typeName)
			}
		}
	}

	executorRef, bare := action.Split(in.Action)
	if in.ExecutorOverride != "" {
		executorRef = in.ExecutorOverride
	}

	fields := make(map[string]string, len(in.Fields))
	for k, v := range in.Fields {
		fields[k] = v
	}

	setup := &RunSetup{
		Selection:        selection,
		InitialSelection: state.InitialSelection.Clone(),
		Action:           bare,
		ExecutorRef:      executorRef,
		ActionLabel:      label,
		TotalItems:       selection.Len(),
		Fields:           fields,
		DeletedScope:     state.DeletedScope,
	}

	log.Debug().
		Str("component", "engine").
		Str("operation", "specialize").
		Str("action", bare).
		Str("executor", executorRef).
		Int("total_items", setup.TotalItems).
		Msg("specialize stage complete")

	return setup, nil
}
