// Package action defines the contracts shared between the batch engine,
// the action catalog and extension-contributed executors. It is a leaf
// package: executors and catalogs depend on it, never the other way around.
package action

import (
	"context"
	"strings"

	"github.com/rshade/massbatch/internal/resource"
)

// Separator joins an executor reference and a bare action id into the
// wire-level composite form "<executor>:<action>". The composite form only
// exists at the serialization boundary; inside the engine the two halves are
// carried as separate fields.
const Separator = ":"

// CoreExecutor is the executor reference of the engine's built-in
// standard dispatch.
const CoreExecutor = "core"

// Bare action ids understood by the core executor.
const (
	ActionDelete          = "delete"
	ActionRestore         = "restore"
	ActionPurge           = "purge"
	ActionPurgeKeepComps  = "purge_but_keep_components"
	ActionUpdate          = "update"
	ActionAddTransfer     = "add_transfer_list"
	ActionUnlock          = "unlock"
	ActionAddDocument     = "add_document"
	ActionAddContract     = "add_contract"
	ActionChangeParent    = "change_parent"
	ActionEnableFinancial = "enable_financial"
)

// Input keys the core executor reads from the specialize-stage parameters.
const (
	InputField    = "field"
	InputValue    = "value"
	InputDocument = "document"
	InputContract = "contract"
	InputParent   = "parent"
)

// Outcome classifies the result of processing a single item.
type Outcome int

const (
	// OutcomeNone records an item as done without touching the counters.
	// Used by the legacy single-type path where the handler already judged
	// success or failure internally.
	OutcomeNone Outcome = iota

	// OutcomeOK means the action succeeded for the item.
	OutcomeOK

	// OutcomeKO means the action failed for the item (storage rejection,
	// compatibility violation, target not found).
	OutcomeKO

	// OutcomeNoRight means the acting principal lacked the right to
	// perform the action on the item.
	OutcomeNoRight
)

// String returns the ledger bucket name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeKO:
		return "ko"
	case OutcomeNoRight:
		return "noright"
	default:
		return "none"
	}
}

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrSuspend is returned by Batch.ItemDone when the elapsed time of the
// current process pass exceeded the configured budget. Executors must stop
// and propagate it unchanged; the engine persists the run and asks the
// caller to reissue the request.
const ErrSuspend = constError("time budget exceeded, suspend run")

// Batch is the view of a running batch that executors are allowed to touch.
// It is implemented by the engine's Run.
type Batch interface {
	// Action returns the bare action id being processed.
	Action() string

	// Input returns the action-specific parameters gathered during the
	// specialize stage (for example the field name and value of an update).
	Input() map[string]string

	// IncludeDeleted reports whether the run operates on the trash view.
	IncludeDeleted() bool

	// ItemDone marks ids of the given resource type as processed with the
	// given outcome. It returns ErrSuspend when the time budget is spent.
	ItemDone(typeName string, ids []string, out Outcome) error

	// AddMessage appends a diagnostic message to the run.
	AddMessage(msg string)

	// SetRedirect overrides where the caller is sent once the run completes.
	SetRedirect(target string)
}

// Executor performs one action kind against a batch of items of a single
// resource type, reporting per-item outcomes through the Batch.
type Executor interface {
	Execute(ctx context.Context, ma Batch, h resource.Handle, ids []string) error
}

// Split decomposes a composite action id into its executor reference and
// bare action id. Ids containing exactly one separator split in two; any
// other shape yields an empty executor reference and the id unchanged.
func Split(id string) (executor, bare string) {
	if strings.Count(id, Separator) == 1 {
		parts := strings.SplitN(id, Separator, 2)
		return parts[0], parts[1]
	}
	return "", id
}

// Compose builds the wire-level composite id from an executor reference and
// a bare action id.
func Compose(executor, bare string) string {
	if executor == "" {
		return bare
	}
	return executor + Separator + bare
}
