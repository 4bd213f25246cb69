// Package ledger holds the per-outcome bookkeeping of a batch run: the
// ok/ko/noright counters, the accumulated diagnostic messages and the
// per-type lists of processed identifiers. It is pure data, mutated only by
// the batch controller.
package ledger

import (
	"github.com/rshade/massbatch/internal/action"
)

// Ledger accumulates the outcomes of a batch run.
type Ledger struct {
	// OK counts items the action succeeded for.
	OK int `json:"ok"`

	// KO counts items the action failed for.
	KO int `json:"ko"`

	// NoRight counts items the principal had no right to act on.
	NoRight int `json:"noright"`

	// Messages is the ordered, append-only list of diagnostics.
	Messages []string `json:"messages,omitempty"`

	// Done maps each resource type to the identifiers processed for it,
	// in processing order. It drives the per-type sub-progress.
	Done map[string][]string `json:"done,omitempty"`
}

// New returns a zeroed ledger.
func New() *Ledger {
	return &Ledger{Done: make(map[string][]string)}
}

// Record marks ids of the given type as processed with the outcome,
// returning how many identifiers were recorded.
func (l *Ledger) Record(typeName string, ids []string, out action.Outcome) int {
	if l.Done == nil {
		l.Done = make(map[string][]string)
	}
	l.Done[typeName] = append(l.Done[typeName], ids...)

	n := len(ids)
	switch out {
	case action.OutcomeOK:
		l.OK += n
	case action.OutcomeKO:
		l.KO += n
	case action.OutcomeNoRight:
		l.NoRight += n
	case action.OutcomeNone:
		// Counted as done but in no bucket: the legacy handler already
		// merged its own counts.
	}
	return n
}

// AddMessage appends a diagnostic message.
func (l *Ledger) AddMessage(msg string) {
	l.Messages = append(l.Messages, msg)
}

// DoneCount returns the number of identifiers processed across all types.
func (l *Ledger) DoneCount() int {
	total := 0
	for _, ids := range l.Done {
		total += len(ids)
	}
	return total
}

// DoneFor returns how many identifiers of one type were processed.
func (l *Ledger) DoneFor(typeName string) int {
	return len(l.Done[typeName])
}
