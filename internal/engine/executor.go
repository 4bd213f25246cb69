package engine

import (
	"context"
	"fmt"

	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/resource"
)

// coreExecutor is the built-in standard dispatch over the bare action id.
// Per-item failures are routine outcomes recorded in the ledger; only an
// unhandled action id is an error, so a run can never silently stall.
type coreExecutor struct {
	c *Controller
}

// Execute implements action.Executor.
func (e *coreExecutor) Execute(ctx context.Context, ma action.Batch, h resource.Handle, ids []string) error {
	switch ma.Action() {
	case action.ActionDelete:
		return e.executeDelete(ma, h, ids)
	case action.ActionRestore:
		return e.executeRestore(ma, h, ids)
	case action.ActionPurge, action.ActionPurgeKeepComps:
		return e.executePurge(ma, h, ids)
	case action.ActionUpdate:
		return e.executeUpdate(ma, h, ids)
	case action.ActionAddTransfer:
		return e.executeAddTransfer(ma, h, ids)
	case action.ActionUnlock:
		return e.executeUnlock(ma, h, ids)
	case action.ActionAddDocument:
		return e.executeAddDocument(ma, h, ids)
	case action.ActionAddContract:
		return e.executeAddContract(ma, h, ids)
	case action.ActionChangeParent:
		return e.executeChangeParent(ma, h, ids)
	case action.ActionEnableFinancial:
		return e.executeEnableFinancial(ma, h, ids)
	default:
		return fmt.Errorf("%w: unhandled action %q", ErrImplementation, ma.Action())
	}
}

// done records one item and propagates a suspend signal.
func done(ma action.Batch, h resource.Handle, id string, out action.Outcome) error {
	return ma.ItemDone(h.TypeName(), []string{id}, out)
}

// fail records a non-ok outcome together with the type's canned
// diagnostic.
func fail(ma action.Batch, h resource.Handle, id string, out action.Outcome, kind resource.ErrorKind) error {
	ma.AddMessage(h.ErrorMessage(kind))
	return done(ma, h, id, out)
}

func (e *coreExecutor) executeDelete(ma action.Batch, h resource.Handle, ids []string) error {
	for _, id := range ids {
		var err error
		switch {
		case !h.Can(id, resource.PermDelete):
			err = fail(ma, h, id, action.OutcomeNoRight, resource.ErrRight)
		case h.Delete(id, false, false):
			err = done(ma, h, id, action.OutcomeOK)
		default:
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrOnAction)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// executeRestore gates restore on the purge right: restoring is the
// inverse of purging the trash.
func (e *coreExecutor) executeRestore(ma action.Batch, h resource.Handle, ids []string) error {
	for _, id := range ids {
		var err error
		switch {
		case !h.Can(id, resource.PermPurge):
			err = fail(ma, h, id, action.OutcomeNoRight, resource.ErrRight)
		case h.Restore(id):
			err = done(ma, h, id, action.OutcomeOK)
		default:
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrOnAction)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *coreExecutor) executePurge(ma action.Batch, h resource.Handle, ids []string) error {
	keepComponents := ma.Action() == action.ActionPurgeKeepComps
	for _, id := range ids {
		if !h.Can(id, resource.PermPurge) {
			if err := fail(ma, h, id, action.OutcomeNoRight, resource.ErrRight); err != nil {
				return err
			}
			continue
		}

		// A dynamic item of a type whose soft-delete flag doubles as a
		// lock signal is only marked deleted, never removed.
		force := true
		if h.MaybeDeleted() && h.UseDeletedToLock() && h.IsDynamic(id) {
			force = false
		}

		var err error
		if h.Delete(id, force, keepComponents) {
			err = done(ma, h, id, action.OutcomeOK)
		} else {
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrOnAction)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *coreExecutor) executeAddTransfer(ma action.Batch, h resource.Handle, ids []string) error {
	// The redirect must be on the run before any item is recorded; a
	// suspend on the last identifier persists it with the run state.
	ma.SetRedirect(e.c.transferPage)
	for _, id := range ids {
		e.c.transfers.Add(h.TypeName(), id)
		if err := done(ma, h, id, action.OutcomeOK); err != nil {
			return err
		}
	}
	return nil
}

func (e *coreExecutor) executeUnlock(ma action.Batch, h resource.Handle, ids []string) error {
	lockable, ok := h.(resource.Lockable)
	for _, id := range ids {
		var err error
		switch {
		case !ok || !lockable.CanUnlock():
			err = fail(ma, h, id, action.OutcomeNoRight, resource.ErrRight)
		case lockable.Unlock(id):
			err = done(ma, h, id, action.OutcomeOK)
		default:
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrOnAction)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *coreExecutor) executeAddDocument(ma action.Batch, h resource.Handle, ids []string) error {
	attachable, ok := h.(resource.DocumentAttachable)
	documentID := ma.Input()[action.InputDocument]
	for _, id := range ids {
		var err error
		switch {
		case !ok || !attachable.CanAttachDocuments() || !h.CanEdit(id):
			err = fail(ma, h, id, action.OutcomeNoRight, resource.ErrRight)
		case attachable.AttachDocument(id, documentID):
			err = done(ma, h, id, action.OutcomeOK)
		default:
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrOnAction)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *coreExecutor) executeAddContract(ma action.Batch, h resource.Handle, ids []string) error {
	attachable, ok := h.(resource.ContractAttachable)
	contractID := ma.Input()[action.InputContract]
	for _, id := range ids {
		var err error
		switch {
		case !ok || !attachable.CanAttachContracts() || !h.CanEdit(id):
			err = fail(ma, h, id, action.OutcomeNoRight, resource.ErrRight)
		case attachable.AttachContract(id, contractID):
			err = done(ma, h, id, action.OutcomeOK)
		default:
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrOnAction)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *coreExecutor) executeChangeParent(ma action.Batch, h resource.Handle, ids []string) error {
	parentAware, ok := h.(resource.ParentAware)
	parentID := ma.Input()[action.InputParent]
	for _, id := range ids {
		var err error
		switch {
		case !ok || !parentAware.CanChangeParent() || !h.CanEdit(id):
			err = fail(ma, h, id, action.OutcomeNoRight, resource.ErrRight)
		case parentAware.SetParent(id, parentID):
			err = done(ma, h, id, action.OutcomeOK)
		default:
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrOnAction)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *coreExecutor) executeEnableFinancial(ma action.Batch, h resource.Handle, ids []string) error {
	fin := e.c.financials
	typeName := h.TypeName()
	for _, id := range ids {
		var err error
		switch {
		case fin == nil || !fin.Covers(typeName) || !fin.Authorize(typeName, id):
			err = fail(ma, h, id, action.OutcomeNoRight, resource.ErrRight)
		case fin.Enable(typeName, id):
			err = done(ma, h, id, action.OutcomeOK)
		default:
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrOnAction)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
