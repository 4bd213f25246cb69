package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/ledger"
	"github.com/rshade/massbatch/internal/logging"
	"github.com/rshade/massbatch/internal/resource"
	"github.com/rshade/massbatch/internal/session"
)

// ProcessOptions carries per-request context into the process stage.
type ProcessOptions struct {
	// Referer is the page the caller came from; completed runs redirect
	// there unless an executor overrode the target. Empty falls back to
	// the configured landing page.
	Referer string
}

// Result is the machine-readable outcome of one process pass.
type Result struct {
	// OK, KO and NoRight are the outcome counters so far.
	OK      int `json:"ok"`
	KO      int `json:"ko"`
	NoRight int `json:"noright"`

	// Messages are the accumulated diagnostics.
	Messages []string `json:"messages,omitempty"`

	// Redirect is where to send the caller once Done.
	Redirect string `json:"redirect"`

	// Done reports run completion. When false the caller must reissue
	// the request carrying only RunID.
	Done bool `json:"done"`

	// RunID identifies the suspended run; empty once Done.
	RunID string `json:"run_id,omitempty"`

	// ShowProgress reports whether progress is worth surfacing; fast
	// batches finish with it off.
	ShowProgress bool `json:"show_progress"`

	// Percent is the overall completion percentage.
	Percent float64 `json:"percent"`

	// CurrentType and CurrentTypePercent drive the per-type sub-bar.
	CurrentType        string  `json:"current_type,omitempty"`
	CurrentTypePercent float64 `json:"current_type_percent,omitempty"`
}

// Process runs the first pass of the process stage over a specialized
// setup: it creates the run, snapshots the initial selection for
// collaborators, and drives executors until the run completes or the time
// budget forces a suspend.
func (c *Controller) Process(ctx context.Context, setup *RunSetup, opts ProcessOptions) (*Result, error) {
	if setup.Selection.IsEmpty() {
		return nil, ErrNoItemsSelected
	}

	redirect := opts.Referer
	if redirect == "" {
		redirect = c.landingPage
	}

	run := &Run{
		ID:           ulid.Make().String(),
		ActionID:     setup.Action,
		ExecutorRef:  setup.ExecutorRef,
		ActionLabel:  setup.ActionLabel,
		Items:        setup.Selection.Clone(),
		Remaining:    setup.Selection.Clone(),
		Ledger:       ledger.New(),
		TotalItems:   setup.TotalItems,
		Redirect:     redirect,
		Fields:       setup.Fields,
		DeletedScope: setup.DeletedScope,
	}
	c.lastSelected = setup.InitialSelection.Clone()

	log := logging.FromContext(ctx)
	log.Info().
		Str("component", "engine").
		Str("operation", "process").
		Str("run_id", run.ID).
		Str("action", run.ActionID).
		Str("executor", run.ExecutorRef).
		Int("total_items", run.TotalItems).
		Msg("starting batch run")

	run.start(c.budget)
	return c.drive(ctx, run)
}

// Resume continues a suspended run. The persisted record is deleted as
// soon as it is restored: from then on the in-memory run is the sole
// authority, so a crash mid-pass cannot replay the same state twice and a
// racing second resume finds nothing instead of double-processing.
func (c *Controller) Resume(ctx context.Context, runID string) (*Result, error) {
	log := logging.FromContext(ctx)

	raw, err := c.store.Load(runID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			log.Error().
				Str("component", "engine").
				Str("run_id", runID).
				Msg("resume requested for unknown run")
			return nil, fmt.Errorf("%w: no suspended run %q", ErrImplementation, runID)
		}
		return nil, fmt.Errorf("loading suspended run: %w", err)
	}

	run := &Run{}
	if unmarshalErr := json.Unmarshal(raw, run); unmarshalErr != nil {
		return nil, fmt.Errorf("%w: corrupt run state: %w", ErrImplementation, unmarshalErr)
	}
	if run.ID != runID {
		return nil, fmt.Errorf("%w: stored run %q does not match %q", ErrInvalidProcess, run.ID, runID)
	}
	if deleteErr := c.store.Delete(runID); deleteErr != nil {
		return nil, fmt.Errorf("deleting suspended run: %w", deleteErr)
	}

	log.Info().
		Str("component", "engine").
		Str("operation", "resume").
		Str("run_id", runID).
		Int("done_count", run.DoneCount).
		Int("remaining", run.Remaining.Len()).
		Msg("resuming batch run")

	run.start(c.budget)
	return c.drive(ctx, run)
}

// drive is the execution loop shared by Process and Resume. The only
// suspend point is between executor calls, signalled by action.ErrSuspend
// bubbling up from Run.ItemDone.
func (c *Controller) drive(ctx context.Context, run *Run) (*Result, error) {
	for !run.Remaining.IsEmpty() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		typeName := run.Remaining.Types()[0]
		ids := run.Remaining.IDs(typeName)

		var err error
		if run.ExecutorRef == "" {
			err = c.processLegacy(ctx, run, typeName, ids)
		} else {
			err = c.processStandard(ctx, run, typeName, ids)
		}

		if errors.Is(err, action.ErrSuspend) {
			return c.suspend(ctx, run)
		}
		if err != nil {
			return nil, err
		}
	}
	return c.complete(ctx, run)
}

// processStandard dispatches one type's pending identifiers to the
// resolved executor. A type that no longer resolves is fatal per item, not
// per run: every pending identifier gets the forbidden outcome.
func (c *Controller) processStandard(ctx context.Context, run *Run, typeName string, ids []string) error {
	exec, ok := c.executorFor(run.ExecutorRef, typeName, run.ActionID)
	if !ok {
		return fmt.Errorf("%w: no executor %q for action %q", ErrImplementation, run.ExecutorRef, run.ActionID)
	}

	h, resolved := c.resolver.Resolve(typeName)
	if !resolved {
		run.AddMessage(fmt.Sprintf("resource type %s is not available", typeName))
		return run.ItemDone(typeName, ids, action.OutcomeNoRight)
	}
	return exec.Execute(ctx, run, h, ids)
}

// processLegacy is the single-type compatibility path: the resource type's
// own handler performs the whole action and reports merged counts; every
// pending identifier is then marked done with the neutral outcome, the
// handler having judged success internally.
func (c *Controller) processLegacy(ctx context.Context, run *Run, typeName string, ids []string) error {
	h, resolved := c.resolver.Resolve(typeName)
	if !resolved {
		run.AddMessage(fmt.Sprintf("resource type %s is not available", typeName))
		return run.ItemDone(typeName, ids, action.OutcomeNoRight)
	}

	handler, ok := h.(resource.BatchActionHandler)
	if !ok {
		return fmt.Errorf("%w: type %s has no handler for legacy action %q",
			ErrImplementation, typeName, run.ActionID)
	}
	res, handled := handler.ProcessBatchAction(run.ActionID, ids, run.Fields)
	if !handled {
		return fmt.Errorf("%w: type %s rejected legacy action %q",
			ErrImplementation, typeName, run.ActionID)
	}

	run.Ledger.OK += res.OK
	run.Ledger.KO += res.KO
	run.Ledger.NoRight += res.NoRight
	for _, msg := range res.Messages {
		run.AddMessage(msg)
	}
	if res.Redirect != "" {
		run.SetRedirect(res.Redirect)
	}

	log := logging.FromContext(ctx)
	log.Debug().
		Str("component", "engine").
		Str("operation", "legacy").
		Str("type", typeName).
		Int("ok", res.OK).
		Int("ko", res.KO).
		Int("noright", res.NoRight).
		Msg("legacy handler finished")

	return run.ItemDone(typeName, ids, action.OutcomeNone)
}

// suspend persists the run and tells the caller to reissue the request
// with the run id.
func (c *Controller) suspend(ctx context.Context, run *Run) (*Result, error) {
	raw, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("marshaling run state: %w", err)
	}
	if saveErr := c.store.Save(run.ID, raw); saveErr != nil {
		return nil, fmt.Errorf("persisting suspended run: %w", saveErr)
	}

	log := logging.FromContext(ctx)
	log.Info().
		Str("component", "engine").
		Str("operation", "suspend").
		Str("run_id", run.ID).
		Int("done_count", run.DoneCount).
		Int("total_items", run.TotalItems).
		Msg("time budget spent, run suspended")

	return c.result(run, false), nil
}

// complete clears the run identifier so no resume attempt can find the
// run, and returns the final ledger.
func (c *Controller) complete(ctx context.Context, run *Run) (*Result, error) {
	log := logging.FromContext(ctx)
	log.Info().
		Str("component", "engine").
		Str("operation", "complete").
		Str("run_id", run.ID).
		Int("ok", run.Ledger.OK).
		Int("ko", run.Ledger.KO).
		Int("noright", run.Ledger.NoRight).
		Msg("batch run complete")

	run.ID = ""
	return c.result(run, true), nil
}

// result assembles the caller-facing record for the pass.
func (c *Controller) result(run *Run, done bool) *Result {
	res := &Result{
		OK:           run.Ledger.OK,
		KO:           run.Ledger.KO,
		NoRight:      run.Ledger.NoRight,
		Messages:     append([]string(nil), run.Ledger.Messages...),
		Redirect:     run.Redirect,
		Done:         done,
		RunID:        run.ID,
		ShowProgress: run.ShowProgress,
		Percent:      run.Progress().Percent(run.Ledger),
		CurrentType:  run.CurrentType,
	}
	if run.CurrentType != "" {
		res.CurrentTypePercent = run.Progress().PercentFor(run.Ledger, run.CurrentType)
	}
	return res
}
