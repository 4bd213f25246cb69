package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/extension"
	"github.com/rshade/massbatch/internal/inventory"
	"github.com/rshade/massbatch/internal/ledger"
	"github.com/rshade/massbatch/internal/resource"
	"github.com/rshade/massbatch/internal/session"
)

const engineFixture = `
entities:
  - name: root
  - name: paris
    parent: root
  - name: lyon
    parent: root
financial:
  can_update: true
  covers: [device]
  denied: [device/3]
types:
  - name: device
    label: Devices
    maybe_deleted: true
    detachable_components: true
    can_update: true
    can_delete: true
    can_purge: true
    attach_documents: true
    unlockable: true
    fields:
      - name: location
        label: Location
        ref: location
        entity_scoped: true
      - name: warranty
        label: Warranty duration
        financial: true
    invalid_values:
      location: [bad]
    specific_actions:
      reset: Reset the device
    legacy_actions: [reset]
    items:
      - id: "1"
        entity: paris
        fields: {location: l1}
        components: [disk-1]
      - id: "2"
        entity: paris
      - id: "3"
        entity: paris
        denied: [delete, purge]
  - name: location
    label: Locations
    can_update: true
    items:
      - id: l1
        entity: paris
      - id: l2
        entity: lyon
      - id: lr
        entity: root
        entity_recursive: true
  - name: printer
    label: Printers
    maybe_deleted: true
    can_update: true
    can_delete: true
    can_purge: true
    items:
      - id: p1
      - id: p2
  - name: softlock
    label: Discovered software
    maybe_deleted: true
    use_deleted_to_lock: true
    can_update: true
    can_purge: true
    items:
      - id: s1
        dynamic: true
  - name: restricted
    label: Restricted things
    can_update: true
    forbidden_actions: ["core:update"]
    items:
      - id: r1
`

func fixtureInventory(t *testing.T) *inventory.Store {
	t.Helper()
	inv, err := inventory.Parse([]byte(engineFixture), "")
	require.NoError(t, err)
	return inv
}

func testController(t *testing.T, inv *inventory.Store, store session.Store, opts ...Option) *Controller {
	t.Helper()
	base := []Option{
		WithEntityTree(inv.EntityTree()),
		WithBudget(time.Minute),
	}
	if fin := inv.Financials(); fin != nil {
		base = append(base, WithFinancials(fin))
	}
	return NewController(inv, store, append(base, opts...)...)
}

func checked(pairs ...string) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for i := 0; i+1 < len(pairs); i += 2 {
		typeName, id := pairs[i], pairs[i+1]
		if out[typeName] == nil {
			out[typeName] = make(map[string]bool)
		}
		out[typeName][id] = true
	}
	return out
}

// runAction drives the full lifecycle for one action and returns the final
// result of the first process pass.
func runAction(
	t *testing.T,
	c *Controller,
	sel map[string]map[string]bool,
	actionID string,
	fields map[string]string,
	deleted bool,
) *Result {
	t.Helper()
	ctx := context.Background()

	state, err := c.Initial(ctx, InitialInput{Checked: sel, DeletedScope: deleted})
	require.NoError(t, err)

	setup, err := c.Specialize(ctx, state, SpecializeInput{Action: actionID, Fields: fields})
	require.NoError(t, err)
	require.NotNil(t, setup)

	res, err := c.Process(ctx, setup, ProcessOptions{})
	require.NoError(t, err)
	return res
}

func TestInitialStage(t *testing.T) {
	inv := fixtureInventory(t)
	c := testController(t, inv, session.NewMemStore(0))
	ctx := context.Background()

	t.Run("empty selection rejected", func(t *testing.T) {
		_, err := c.Initial(ctx, InitialInput{})
		assert.ErrorIs(t, err, ErrNoItemsSelected)

		_, err = c.Initial(ctx, InitialInput{
			Checked: map[string]map[string]bool{"device": {"1": false}},
		})
		assert.ErrorIs(t, err, ErrNoItemsSelected)
	})

	t.Run("actions are the union across selected types", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1", "printer", "p1")})
		require.NoError(t, err)

		assert.Contains(t, state.Actions, "core:update")
		assert.Contains(t, state.Actions, "core:delete")
		assert.Contains(t, state.Actions, "reset")
		assert.ElementsMatch(t, []string{"device", "printer"}, state.ActionFilter["core:update"])
		assert.Equal(t, []string{"device"}, state.ActionFilter["reset"])
		assert.Equal(t, 2, state.Selection.Len())
	})

	t.Run("specific actions are used verbatim", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{
			Checked:         checked("device", "1"),
			SpecificActions: map[string]string{"x:y": "Custom"},
		})
		require.NoError(t, err)

		assert.Equal(t, map[string]string{"x:y": "Custom"}, state.Actions)
		assert.True(t, state.DontFilter["x:y"])
		assert.Empty(t, state.ActionFilter)
	})

	t.Run("add actions merge on top of the catalog", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{
			Checked:    checked("device", "1"),
			AddActions: map[string]string{"x:y": "Custom"},
		})
		require.NoError(t, err)

		assert.Contains(t, state.Actions, "x:y")
		assert.Contains(t, state.Actions, "core:update")
		assert.True(t, state.DontFilter["x:y"])
		assert.False(t, state.DontFilter["core:update"])
	})

	t.Run("no available action rejected", func(t *testing.T) {
		_, err := c.Initial(ctx, InitialInput{Checked: checked("unknown", "1")})
		assert.ErrorIs(t, err, ErrNoActionAvailable)
	})

	t.Run("unknown probe rejected", func(t *testing.T) {
		_, err := c.Initial(ctx, InitialInput{
			Checked:   checked("device", "1"),
			ProbeType: "unknown",
		})
		assert.ErrorIs(t, err, ErrImplementation)

		_, err = c.Initial(ctx, InitialInput{
			Checked:   checked("device", "1"),
			ProbeType: "device",
			ProbeID:   "99",
		})
		assert.ErrorIs(t, err, ErrImplementation)
	})

	t.Run("probe narrows the offered actions", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{
			Checked:   checked("device", "3"),
			ProbeType: "device",
			ProbeID:   "3",
		})
		require.NoError(t, err)
		assert.NotContains(t, state.Actions, "core:delete")
		assert.Contains(t, state.Actions, "core:update")
	})
}

func TestSpecializeStage(t *testing.T) {
	inv := fixtureInventory(t)
	c := testController(t, inv, session.NewMemStore(0))
	ctx := context.Background()

	t.Run("no action chosen ends the flow", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1")})
		require.NoError(t, err)

		setup, err := c.Specialize(ctx, state, SpecializeInput{Action: NoActionChosen})
		require.NoError(t, err)
		assert.Nil(t, setup)
	})

	t.Run("action outside the offered set rejected", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1")})
		require.NoError(t, err)

		_, err = c.Specialize(ctx, state, SpecializeInput{Action: "core:bogus"})
		assert.ErrorIs(t, err, ErrImplementation)
	})

	t.Run("selection narrows to contributing types", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1", "location", "l1")})
		require.NoError(t, err)

		setup, err := c.Specialize(ctx, state, SpecializeInput{Action: "reset"})
		require.NoError(t, err)
		require.NotNil(t, setup)

		assert.Equal(t, []string{"device"}, setup.Selection.Types())
		assert.Equal(t, 1, setup.TotalItems)
		assert.Equal(t, "reset", setup.Action)
		assert.Equal(t, "", setup.ExecutorRef)
		assert.Equal(t, "Reset the device", setup.ActionLabel)
		// The initial snapshot keeps the full selection.
		assert.Equal(t, 2, setup.InitialSelection.Len())
	})

	t.Run("composite id splits into executor and bare action", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1")})
		require.NoError(t, err)

		setup, err := c.Specialize(ctx, state, SpecializeInput{Action: "core:delete"})
		require.NoError(t, err)
		require.NotNil(t, setup)
		assert.Equal(t, "core", setup.ExecutorRef)
		assert.Equal(t, "delete", setup.Action)
	})

	t.Run("executor override wins", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1")})
		require.NoError(t, err)

		setup, err := c.Specialize(ctx, state, SpecializeInput{
			Action:           "core:delete",
			ExecutorOverride: "other",
		})
		require.NoError(t, err)
		require.NotNil(t, setup)
		assert.Equal(t, "other", setup.ExecutorRef)
	})

	t.Run("forbidden types dropped even without contribution filter", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{
			Checked:    checked("device", "1", "restricted", "r1"),
			AddActions: map[string]string{"core:update": "Update"},
		})
		require.NoError(t, err)

		setup, err := c.Specialize(ctx, state, SpecializeInput{Action: "core:update"})
		require.NoError(t, err)
		require.NotNil(t, setup)
		assert.NotContains(t, setup.Selection.Types(), "restricted")
		assert.Contains(t, setup.Selection.Types(), "device")
	})

	t.Run("narrow type collapses the selection", func(t *testing.T) {
		state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1", "printer", "p1")})
		require.NoError(t, err)

		setup, err := c.Specialize(ctx, state, SpecializeInput{
			Action:     "core:delete",
			NarrowType: "printer",
		})
		require.NoError(t, err)
		require.NotNil(t, setup)
		assert.Equal(t, []string{"printer"}, setup.Selection.Types())
	})
}

func TestProcessDelete(t *testing.T) {
	inv := fixtureInventory(t)
	c := testController(t, inv, session.NewMemStore(0))

	res := runAction(t, c, checked("device", "1", "device", "2", "printer", "p1"), "core:delete", nil, false)

	assert.True(t, res.Done)
	assert.Equal(t, 3, res.OK)
	assert.Zero(t, res.KO)
	assert.Zero(t, res.NoRight)
	assert.Empty(t, res.RunID)
	assert.Equal(t, "/central", res.Redirect)

	// All three were moved to the trash, none removed.
	h, _ := inv.Resolve("device")
	assert.True(t, h.Exists("1"))
	assert.True(t, h.Exists("2"))
}

func TestProcessReferer(t *testing.T) {
	inv := fixtureInventory(t)
	c := testController(t, inv, session.NewMemStore(0))
	ctx := context.Background()

	state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1")})
	require.NoError(t, err)
	setup, err := c.Specialize(ctx, state, SpecializeInput{Action: "core:delete"})
	require.NoError(t, err)

	res, err := c.Process(ctx, setup, ProcessOptions{Referer: "/list/devices"})
	require.NoError(t, err)
	assert.Equal(t, "/list/devices", res.Redirect)
}

func TestProcessDeleteNoRight(t *testing.T) {
	inv := fixtureInventory(t)
	c := testController(t, inv, session.NewMemStore(0))

	res := runAction(t, c, checked("device", "3"), "core:delete", nil, false)

	assert.True(t, res.Done)
	assert.Zero(t, res.OK)
	assert.Equal(t, 1, res.NoRight)
	assert.NotEmpty(t, res.Messages)
}

func TestProcessDeletedScope(t *testing.T) {
	t.Run("restore gated by the purge right", func(t *testing.T) {
		inv := fixtureInventory(t)
		h, _ := inv.Resolve("device")
		require.True(t, h.Delete("1", false, false))
		require.True(t, h.Delete("3", false, false))

		c := testController(t, inv, session.NewMemStore(0))
		res := runAction(t, c, checked("device", "1", "device", "3"), "core:restore", nil, true)

		assert.Equal(t, 1, res.OK)
		assert.Equal(t, 1, res.NoRight)
	})

	t.Run("purge keeping components", func(t *testing.T) {
		inv := fixtureInventory(t)
		c := testController(t, inv, session.NewMemStore(0))

		res := runAction(t, c, checked("device", "1"), "core:purge_but_keep_components", nil, true)
		assert.Equal(t, 1, res.OK)

		h, _ := inv.Resolve("device")
		assert.False(t, h.Exists("1"))
	})

	t.Run("purging a discovered dynamic item degrades to soft delete", func(t *testing.T) {
		inv := fixtureInventory(t)
		c := testController(t, inv, session.NewMemStore(0))

		res := runAction(t, c, checked("softlock", "s1"), "core:purge", nil, true)
		assert.Equal(t, 1, res.OK)

		h, _ := inv.Resolve("softlock")
		assert.True(t, h.Exists("s1"))
	})
}

func TestProcessUpdate(t *testing.T) {
	fields := func(name, value string) map[string]string {
		return map[string]string{action.InputField: name, action.InputValue: value}
	}

	t.Run("unit-compatible reference applies", func(t *testing.T) {
		inv := fixtureInventory(t)
		c := testController(t, inv, session.NewMemStore(0))

		res := runAction(t, c, checked("device", "1", "device", "2"), "core:update", fields("location", "lr"), false)
		assert.Equal(t, 2, res.OK)
	})

	t.Run("unit-incompatible reference fails", func(t *testing.T) {
		inv := fixtureInventory(t)
		c := testController(t, inv, session.NewMemStore(0))

		res := runAction(t, c, checked("device", "1"), "core:update", fields("location", "l2"), false)
		assert.Equal(t, 1, res.KO)
		assert.NotEmpty(t, res.Messages)
	})

	t.Run("illegal value refused", func(t *testing.T) {
		inv := fixtureInventory(t)
		c := testController(t, inv, session.NewMemStore(0))

		res := runAction(t, c, checked("device", "1"), "core:update", fields("location", "bad"), false)
		assert.Equal(t, 1, res.NoRight)
	})

	t.Run("unknown field fails every item without stalling", func(t *testing.T) {
		inv := fixtureInventory(t)
		c := testController(t, inv, session.NewMemStore(0))

		res := runAction(t, c, checked("device", "1", "device", "2"), "core:update", fields("nonsense", "x"), false)
		assert.True(t, res.Done)
		assert.Equal(t, 2, res.KO)
	})

	t.Run("financial field goes to the side record", func(t *testing.T) {
		inv := fixtureInventory(t)
		c := testController(t, inv, session.NewMemStore(0))

		res := runAction(t, c,
			checked("device", "1", "device", "2", "device", "3"),
			"core:update", fields("warranty", "36"), false)

		assert.Equal(t, 2, res.OK)
		// Item 3 is refused financial authorization.
		assert.Equal(t, 1, res.NoRight)
	})
}

func TestProcessTransferList(t *testing.T) {
	inv := fixtureInventory(t)
	c := testController(t, inv, session.NewMemStore(0),
		WithTransferAllowed(func() bool { return true }))

	res := runAction(t, c, checked("device", "1", "printer", "p1"), "core:add_transfer_list", nil, false)

	assert.Equal(t, 2, res.OK)
	assert.Equal(t, "/transfer", res.Redirect)
	pending := c.Transfers().Pending()
	assert.Equal(t, []string{"1"}, pending["device"])
	assert.Equal(t, []string{"p1"}, pending["printer"])
}

func TestTransferRedirectSurvivesSuspend(t *testing.T) {
	inv := fixtureInventory(t)
	store := session.NewMemStore(0)
	ctx := context.Background()

	// A zero budget suspends right after the only item, so the pass ends
	// with an empty working set and the resume completes immediately. The
	// transfer redirect has to be part of the persisted run by then.
	impatient := testController(t, inv, store, WithBudget(0),
		WithTransferAllowed(func() bool { return true }))

	state, err := impatient.Initial(ctx, InitialInput{Checked: checked("device", "1")})
	require.NoError(t, err)
	setup, err := impatient.Specialize(ctx, state, SpecializeInput{Action: "core:add_transfer_list"})
	require.NoError(t, err)
	require.NotNil(t, setup)

	res, err := impatient.Process(ctx, setup, ProcessOptions{})
	require.NoError(t, err)
	require.False(t, res.Done)
	assert.Equal(t, "/transfer", res.Redirect)

	patient := testController(t, inv, store,
		WithTransferAllowed(func() bool { return true }))
	final, err := patient.Resume(ctx, res.RunID)
	require.NoError(t, err)

	assert.True(t, final.Done)
	assert.Equal(t, 1, final.OK)
	assert.Equal(t, "/transfer", final.Redirect)
}

func TestProcessLegacyPath(t *testing.T) {
	inv := fixtureInventory(t)
	c := testController(t, inv, session.NewMemStore(0))

	res := runAction(t, c, checked("device", "1", "device", "2"), "reset", nil, false)

	assert.True(t, res.Done)
	assert.Equal(t, 2, res.OK)
	assert.Zero(t, res.KO)
}

func TestProcessImplementationErrors(t *testing.T) {
	inv := fixtureInventory(t)
	c := testController(t, inv, session.NewMemStore(0))
	ctx := context.Background()

	sel := NewSelection()
	sel.Add("device", "1")

	t.Run("unhandled core action", func(t *testing.T) {
		_, err := c.Process(ctx, &RunSetup{
			Selection:   sel.Clone(),
			Action:      "bogus",
			ExecutorRef: "core",
			TotalItems:  1,
		}, ProcessOptions{})
		assert.ErrorIs(t, err, ErrImplementation)
	})

	t.Run("unknown executor reference", func(t *testing.T) {
		_, err := c.Process(ctx, &RunSetup{
			Selection:   sel.Clone(),
			Action:      "delete",
			ExecutorRef: "nope",
			TotalItems:  1,
		}, ProcessOptions{})
		assert.ErrorIs(t, err, ErrImplementation)
	})

	t.Run("legacy action without a handler", func(t *testing.T) {
		locSel := NewSelection()
		locSel.Add("location", "l1")
		_, err := c.Process(ctx, &RunSetup{
			Selection:  locSel,
			Action:     "reset",
			TotalItems: 1,
		}, ProcessOptions{})
		assert.ErrorIs(t, err, ErrImplementation)
	})

	t.Run("empty setup", func(t *testing.T) {
		_, err := c.Process(ctx, &RunSetup{Selection: NewSelection()}, ProcessOptions{})
		assert.ErrorIs(t, err, ErrNoItemsSelected)
	})
}

func TestSuspendAndResume(t *testing.T) {
	inv := fixtureInventory(t)
	store := session.NewMemStore(0)
	ctx := context.Background()

	// A zero budget suspends after every recorded item.
	impatient := testController(t, inv, store, WithBudget(0))

	state, err := impatient.Initial(ctx, InitialInput{
		Checked: checked("device", "1", "device", "2", "printer", "p1"),
	})
	require.NoError(t, err)
	setup, err := impatient.Specialize(ctx, state, SpecializeInput{Action: "core:delete"})
	require.NoError(t, err)

	res, err := impatient.Process(ctx, setup, ProcessOptions{})
	require.NoError(t, err)

	require.False(t, res.Done)
	require.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.OK)

	// The suspended run landed in the store.
	_, err = store.Load(res.RunID)
	require.NoError(t, err)

	// A fresh controller over the same store picks the run back up.
	patient := testController(t, inv, store)
	final, err := patient.Resume(ctx, res.RunID)
	require.NoError(t, err)

	assert.True(t, final.Done)
	assert.Equal(t, 3, final.OK)
	assert.Zero(t, final.KO)
	assert.Zero(t, final.NoRight)
	assert.Empty(t, final.RunID)

	t.Run("consumed run cannot resume again", func(t *testing.T) {
		_, err := patient.Resume(ctx, res.RunID)
		assert.ErrorIs(t, err, ErrImplementation)
	})
}

func TestResumeValidation(t *testing.T) {
	inv := fixtureInventory(t)
	store := session.NewMemStore(0)
	c := testController(t, inv, store)
	ctx := context.Background()

	t.Run("unknown run id", func(t *testing.T) {
		_, err := c.Resume(ctx, "never-existed")
		assert.ErrorIs(t, err, ErrImplementation)
	})

	t.Run("corrupt state", func(t *testing.T) {
		require.NoError(t, store.Save("corrupt", json.RawMessage("{not json")))
		_, err := c.Resume(ctx, "corrupt")
		assert.ErrorIs(t, err, ErrImplementation)
	})

	t.Run("identifier mismatch", func(t *testing.T) {
		sel := NewSelection()
		sel.Add("device", "1")
		raw, err := json.Marshal(&Run{
			ID:         "someone-else",
			ActionID:   "delete",
			Items:      sel.Clone(),
			Remaining:  sel.Clone(),
			Ledger:     ledger.New(),
			TotalItems: 1,
		})
		require.NoError(t, err)
		require.NoError(t, store.Save("stolen", raw))

		_, err = c.Resume(ctx, "stolen")
		assert.ErrorIs(t, err, ErrInvalidProcess)
	})
}

// okExecutor marks every item ok; used to exercise extension dispatch.
type okExecutor struct{}

func (okExecutor) Execute(_ context.Context, ma action.Batch, h resource.Handle, ids []string) error {
	for _, id := range ids {
		if err := ma.ItemDone(h.TypeName(), []string{id}, action.OutcomeOK); err != nil {
			return err
		}
	}
	return nil
}

// frobExtension contributes one action backed by okExecutor.
type frobExtension struct{}

func (frobExtension) Name() string    { return "ext" }
func (frobExtension) Version() string { return "1.0.0" }

func (frobExtension) ContributeActions(resource.Handle) map[string]string {
	return map[string]string{"ext:frob": "Frob the item"}
}

func (frobExtension) ContributeExecutor(_, actionID string) (action.Executor, bool) {
	if actionID != "frob" {
		return nil, false
	}
	return okExecutor{}, true
}

func TestExtensionDispatch(t *testing.T) {
	inv := fixtureInventory(t)
	reg := extension.NewRegistry()
	require.NoError(t, reg.Register(frobExtension{}))

	c := testController(t, inv, session.NewMemStore(0), WithExtensions(reg))
	ctx := context.Background()

	state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1", "device", "2")})
	require.NoError(t, err)
	require.Contains(t, state.Actions, "ext:frob")

	setup, err := c.Specialize(ctx, state, SpecializeInput{Action: "ext:frob"})
	require.NoError(t, err)
	require.Equal(t, "ext", setup.ExecutorRef)

	res, err := c.Process(ctx, setup, ProcessOptions{})
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 2, res.OK)
}

func TestLastSelectedSnapshot(t *testing.T) {
	inv := fixtureInventory(t)
	c := testController(t, inv, session.NewMemStore(0))
	ctx := context.Background()

	state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1", "location", "l1")})
	require.NoError(t, err)

	// The reset action narrows the working set to devices.
	setup, err := c.Specialize(ctx, state, SpecializeInput{Action: "reset"})
	require.NoError(t, err)

	_, err = c.Process(ctx, setup, ProcessOptions{})
	require.NoError(t, err)

	// The snapshot keeps the full pre-narrowing selection.
	last := c.LastSelected()
	assert.Equal(t, 2, last.Len())
	assert.True(t, last.Has("location"))
}

func TestProcessCancellation(t *testing.T) {
	inv := fixtureInventory(t)
	c := testController(t, inv, session.NewMemStore(0))

	ctx, cancel := context.WithCancel(context.Background())
	state, err := c.Initial(ctx, InitialInput{Checked: checked("device", "1")})
	require.NoError(t, err)
	setup, err := c.Specialize(ctx, state, SpecializeInput{Action: "core:delete"})
	require.NoError(t, err)

	cancel()
	_, err = c.Process(ctx, setup, ProcessOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
