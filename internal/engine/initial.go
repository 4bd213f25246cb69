package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/rshade/massbatch/internal/logging"
	"github.com/rshade/massbatch/internal/resource"
)

// InitialInput is the raw selection payload of the initial stage.
type InitialInput struct {
	// Checked maps resource-type name to item id to its raw checked
	// flag. Only true flags count.
	Checked map[string]map[string]bool

	// SpecificActions, when non-empty, is used verbatim as the available
	// actions: the caller has already decided item applicability, so no
	// catalog is computed and no item filtering happens for these
	// actions.
	SpecificActions map[string]string

	// AddActions are extra caller-supplied actions merged on top of the
	// computed catalogs, also exempt from item filtering.
	AddActions map[string]string

	// DeletedScope selects the trash-view action set.
	DeletedScope bool

	// ProbeType and ProbeID optionally name one representative item that
	// rights are evaluated against instead of blanket type permissions.
	ProbeType string
	ProbeID   string
}

// InitialState is what the initial stage hands to specialization.
type InitialState struct {
	// Selection is the normalized working selection.
	Selection Selection

	// InitialSelection is the immutable snapshot of the selection at
	// this moment, retained for session bookkeeping even as the working
	// selection narrows later.
	InitialSelection Selection

	// Actions maps available composite action ids to display labels.
	Actions map[string]string

	// ActionFilter records, per action, which resource types contributed
	// it; specialization restricts the selection to those types.
	ActionFilter map[string][]string

	// DontFilter holds actions exempt from that restriction.
	DontFilter map[string]bool

	// DeletedScope carries the trash-view flag forward.
	DeletedScope bool
}

// Initial runs the first lifecycle stage: it normalizes the checked flags
// into the selection and computes the union of available actions across
// the selected types.
func (c *Controller) Initial(ctx context.Context, in InitialInput) (*InitialState, error) {
	log := logging.FromContext(ctx)

	state := &InitialState{
		Selection:    NewSelection(),
		Actions:      make(map[string]string),
		ActionFilter: make(map[string][]string),
		DontFilter:   make(map[string]bool),
		DeletedScope: in.DeletedScope,
	}

	// Normalize checked flags. Payload maps have no order, so types and
	// ids are sorted to keep processing order stable.
	typeNames := make([]string, 0, len(in.Checked))
	for typeName := range in.Checked {
		typeNames = append(typeNames, typeName)
	}
	sort.Strings(typeNames)
	for _, typeName := range typeNames {
		ids := make([]string, 0, len(in.Checked[typeName]))
		for id, checked := range in.Checked[typeName] {
			if checked {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			state.Selection.Add(typeName, id)
		}
	}

	if state.Selection.IsEmpty() {
		return nil, ErrNoItemsSelected
	}

	switch {
	case len(in.SpecificActions) > 0:
		// Explicit restriction: use verbatim, compute nothing.
		for id, label := range in.SpecificActions {
			state.Actions[id] = label
			state.DontFilter[id] = true
		}
	default:
		for id, label := range in.AddActions {
			state.Actions[id] = label
			state.DontFilter[id] = true
		}

		probe, err := c.resolveProbe(in.ProbeType, in.ProbeID)
		if err != nil {
			return nil, err
		}

		for _, typeName := range state.Selection.Types() {
			computed := c.catalog.Compute(typeName, in.DeletedScope, probe)
			for id, label := range computed {
				state.ActionFilter[id] = append(state.ActionFilter[id], typeName)
				state.Actions[id] = label
			}
		}
	}

	if len(state.Actions) == 0 {
		return nil, ErrNoActionAvailable
	}

	state.InitialSelection = state.Selection.Clone()

	log.Debug().
		Str("component", "engine").
		Str("operation", "initial").
		Int("selected_items", state.Selection.Len()).
		Int("available_actions", len(state.Actions)).
		Bool("deleted_scope", in.DeletedScope).
		Msg("initial stage complete")

	return state, nil
}

// resolveProbe turns an optional probe descriptor into instance-evaluated
// capabilities. A descriptor naming an unknown type or item is an internal
// contract violation: the caller built it from its own rendered page.
func (c *Controller) resolveProbe(probeType, probeID string) (resource.Capabilities, error) {
	if probeType == "" {
		return nil, nil
	}

	h, ok := c.resolver.Resolve(probeType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown probe type %q", ErrImplementation, probeType)
	}
	if probeID == "" {
		return h, nil
	}

	provider, ok := h.(resource.ProbeProvider)
	if !ok {
		return h, nil
	}
	caps, ok := provider.Probe(probeID)
	if !ok {
		return nil, fmt.Errorf("%w: probe item %s/%s not found", ErrImplementation, probeType, probeID)
	}
	return caps, nil
}
