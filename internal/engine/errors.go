package engine

import "errors"

// Stage-fatal errors. All four abort the current stage before any item is
// touched; per-item outcomes are recorded in the ledger instead and never
// surface as errors.
var (
	// ErrNoActionAvailable means no action applies to any selected
	// resource type at the initial stage.
	ErrNoActionAvailable = errors.New("no action available")

	// ErrNoItemsSelected means the selection normalized to empty.
	ErrNoItemsSelected = errors.New("no selected items")

	// ErrImplementation signals an internal contract violation: an action
	// chosen outside the offered set, a resume with an unknown run id, or
	// an unhandled action at dispatch. Logged and surfaced generically,
	// never swallowed.
	ErrImplementation = errors.New("implementation error")

	// ErrInvalidProcess means the restored state's own identifier does
	// not match the requested one.
	ErrInvalidProcess = errors.New("invalid process")
)
