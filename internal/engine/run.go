package engine

import (
	"time"

	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/ledger"
)

// Run is the unit of work carried across process passes and suspend/resume
// boundaries. Exported fields are serialized as a unit into the session
// store; the timer and budget are runtime-only and restart on every resume
// (the wall-clock budget is per invocation, cumulative progress is not).
//
// Invariants, held at every observation point:
//
//	DoneCount == sum over Ledger.Done of len(ids)
//	TotalItems - DoneCount == Remaining.Len()
//	Ledger.OK + Ledger.KO + Ledger.NoRight == DoneCount (standard path)
type Run struct {
	// ID is the opaque run identifier, generated once at process entry
	// and cleared at completion so no resume can find the run again.
	ID string `json:"id"`

	// ActionID is the bare action id.
	ActionID string `json:"action"`

	// ExecutorRef is the resolved executor reference; empty selects the
	// legacy single-type path.
	ExecutorRef string `json:"executor"`

	// ActionLabel is the human-readable action name, frozen at
	// specialization.
	ActionLabel string `json:"action_label"`

	// Items is the full narrowed selection, fixed at process entry.
	Items Selection `json:"items"`

	// Remaining is the working set of still-unprocessed identifiers.
	// It shrinks monotonically; a type's entry disappears when empty.
	Remaining Selection `json:"remaining"`

	// Ledger accumulates per-outcome counters, done lists and messages.
	Ledger *ledger.Ledger `json:"ledger"`

	// TotalItems is fixed once processing begins.
	TotalItems int `json:"total_items"`

	// DoneCount never decreases and never exceeds TotalItems.
	DoneCount int `json:"done_count"`

	// Redirect is where the caller is sent once the run completes.
	Redirect string `json:"redirect"`

	// Fields carries the action-specific parameters from specialization.
	Fields map[string]string `json:"fields,omitempty"`

	// DeletedScope marks a run operating on the trash view.
	DeletedScope bool `json:"deleted_scope"`

	// CurrentType is the type being processed, for progress display.
	CurrentType string `json:"current_type,omitempty"`

	// ShowProgress persists the progress display latch across resumes.
	ShowProgress bool `json:"show_progress"`

	budget   time.Duration
	progress *ledger.Progress
}

// start arms the timer and budget for one process pass. Called at process
// entry and again on every resume.
func (r *Run) start(budget time.Duration) {
	r.budget = budget
	r.progress = ledger.NewProgress(r.TotalItems, r.Items.PerTypeCounts())
	r.progress.SetDisplayed(r.ShowProgress)
}

// Action implements action.Batch.
func (r *Run) Action() string { return r.ActionID }

// Input implements action.Batch.
func (r *Run) Input() map[string]string { return r.Fields }

// IncludeDeleted implements action.Batch.
func (r *Run) IncludeDeleted() bool { return r.DeletedScope }

// AddMessage implements action.Batch.
func (r *Run) AddMessage(msg string) { r.Ledger.AddMessage(msg) }

// SetRedirect implements action.Batch.
func (r *Run) SetRedirect(target string) { r.Redirect = target }

// ItemDone implements action.Batch: it moves the identifiers from the
// working set into the done list, bumps the matching outcome counter,
// records the type as current for progress display, then checks the time
// budget. It returns action.ErrSuspend once the budget is spent; the
// identifiers passed in are recorded either way, so an item is never half
// processed.
func (r *Run) ItemDone(typeName string, ids []string, out action.Outcome) error {
	r.CurrentType = typeName
	r.Remaining.Remove(typeName, ids...)
	r.DoneCount += r.Ledger.Record(typeName, ids, out)
	r.ShowProgress = r.progress.ShouldDisplay()

	if r.progress.Elapsed() > r.budget {
		return action.ErrSuspend
	}
	return nil
}

// Progress returns the tracker of the current pass.
func (r *Run) Progress() *ledger.Progress {
	return r.progress
}
