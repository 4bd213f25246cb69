package catalog

import (
	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/resource"
)

// Contributor is one independent source of catalog actions. Each feature
// area may add zero or more actions for a given resource type.
type Contributor interface {
	Name() string
	Actions(h resource.Handle, includeDeleted bool, caps resource.Capabilities) map[string]string
}

// financialContributor offers financial-tracking activation for
// participating types.
type financialContributor struct {
	fin resource.Financials
}

func (financialContributor) Name() string { return "financial" }

func (c financialContributor) Actions(
	h resource.Handle,
	includeDeleted bool,
	_ resource.Capabilities,
) map[string]string {
	if includeDeleted || c.fin == nil {
		return nil
	}
	if !c.fin.Covers(h.TypeName()) || !c.fin.CanUpdate() {
		return nil
	}
	return map[string]string{
		action.Compose(action.CoreExecutor, action.ActionEnableFinancial): "Enable financial and administrative information",
	}
}

// connexityContributor offers reparenting for hierarchical types.
type connexityContributor struct{}

func (connexityContributor) Name() string { return "connexity" }

func (connexityContributor) Actions(
	h resource.Handle,
	includeDeleted bool,
	caps resource.Capabilities,
) map[string]string {
	if includeDeleted || !caps.CanUpdate() {
		return nil
	}
	if parentAware, ok := h.(resource.ParentAware); !ok || !parentAware.CanChangeParent() {
		return nil
	}
	return map[string]string{
		action.Compose(action.CoreExecutor, action.ActionChangeParent): "Move under another item",
	}
}

// documentContributor offers document attachment.
type documentContributor struct{}

func (documentContributor) Name() string { return "document" }

func (documentContributor) Actions(
	h resource.Handle,
	includeDeleted bool,
	caps resource.Capabilities,
) map[string]string {
	if includeDeleted || !caps.CanUpdate() {
		return nil
	}
	if attachable, ok := h.(resource.DocumentAttachable); !ok || !attachable.CanAttachDocuments() {
		return nil
	}
	return map[string]string{
		action.Compose(action.CoreExecutor, action.ActionAddDocument): "Add a document",
	}
}

// contractContributor offers contract attachment.
type contractContributor struct{}

func (contractContributor) Name() string { return "contract" }

func (contractContributor) Actions(
	h resource.Handle,
	includeDeleted bool,
	caps resource.Capabilities,
) map[string]string {
	if includeDeleted || !caps.CanUpdate() {
		return nil
	}
	if attachable, ok := h.(resource.ContractAttachable); !ok || !attachable.CanAttachContracts() {
		return nil
	}
	return map[string]string{
		action.Compose(action.CoreExecutor, action.ActionAddContract): "Add a contract",
	}
}

// lockContributor offers unlocking; unlike the feature areas above it is
// merged in both scopes.
type lockContributor struct{}

func (lockContributor) Name() string { return "lock" }

func (lockContributor) Actions(
	h resource.Handle,
	_ bool,
	_ resource.Capabilities,
) map[string]string {
	if lockable, ok := h.(resource.Lockable); !ok || !lockable.CanUnlock() {
		return nil
	}
	return map[string]string{
		action.Compose(action.CoreExecutor, action.ActionUnlock): "Unlock",
	}
}
