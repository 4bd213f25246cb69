package ledger

import (
	"time"
)

// displayThreshold is how long a run must have been executing before
// progress is surfaced at all: fast batches finish silently.
const displayThreshold = time.Second

// percentMultiplier converts a ratio to a percentage (0-100).
const percentMultiplier = 100

// Progress derives a completion percentage from the ledger and elapsed
// wall time, and decides whether progress should be surfaced to the caller.
type Progress struct {
	// TotalItems is the fixed item count of the run.
	TotalItems int

	// TotalPerType maps each resource type to its item count at the
	// start of processing, for the per-type sub-progress.
	TotalPerType map[string]int

	startedAt time.Time
	display   bool
}

// NewProgress creates a progress tracker for a run of totalItems items,
// with perType holding each type's share.
func NewProgress(totalItems int, perType map[string]int) *Progress {
	return &Progress{
		TotalItems:   totalItems,
		TotalPerType: perType,
		startedAt:    time.Now(),
	}
}

// RestartTimer resets the wall-clock origin. Called on every resume: the
// budget is per invocation, not cumulative.
func (p *Progress) RestartTimer() {
	p.startedAt = time.Now()
}

// Elapsed returns the wall time spent in the current invocation.
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.startedAt)
}

// SetDisplayed restores the display latch from a persisted run.
func (p *Progress) SetDisplayed(v bool) {
	p.display = v
}

// Displayed returns the raw display latch without consulting the clock.
func (p *Progress) Displayed() bool {
	return p.display
}

// ShouldDisplay reports whether progress is worth surfacing. It latches:
// once a pass has run longer than the threshold, progress stays visible for
// the rest of the run.
func (p *Progress) ShouldDisplay() bool {
	if !p.display && p.Elapsed() > displayThreshold {
		p.display = true
	}
	return p.display
}

// Percent returns the overall completion percentage given the ledger.
func (p *Progress) Percent(l *Ledger) float64 {
	if p.TotalItems == 0 {
		return 0
	}
	return float64(l.DoneCount()) / float64(p.TotalItems) * percentMultiplier
}

// PercentFor returns the completion percentage of one resource type.
func (p *Progress) PercentFor(l *Ledger, typeName string) float64 {
	total := p.TotalPerType[typeName]
	if total == 0 {
		return 0
	}
	return float64(l.DoneFor(typeName)) / float64(total) * percentMultiplier
}
