package inventory

import (
	"fmt"

	"github.com/rshade/massbatch/internal/resource"
)

// typeHandle adapts one declared type to the resource interfaces. All
// optional capability interfaces are implemented; the type's flags decide
// at runtime whether each capability is actually granted.
type typeHandle struct {
	store *Store
	spec  *typeSpec
}

var (
	_ resource.Handle             = (*typeHandle)(nil)
	_ resource.FieldCatalog       = (*typeHandle)(nil)
	_ resource.UpdateValidator    = (*typeHandle)(nil)
	_ resource.ActionProvider     = (*typeHandle)(nil)
	_ resource.ProbeProvider      = (*typeHandle)(nil)
	_ resource.ComponentCarrier   = (*typeHandle)(nil)
	_ resource.EntityAssigned     = (*typeHandle)(nil)
	_ resource.DocumentAttachable = (*typeHandle)(nil)
	_ resource.ContractAttachable = (*typeHandle)(nil)
	_ resource.ParentAware        = (*typeHandle)(nil)
	_ resource.Lockable           = (*typeHandle)(nil)
	_ resource.BatchActionHandler = (*typeHandle)(nil)
)

// TypeName implements resource.Handle.
func (h *typeHandle) TypeName() string { return h.spec.Name }

// Label implements resource.Handle.
func (h *typeHandle) Label() string {
	if h.spec.LabelText != "" {
		return h.spec.LabelText
	}
	return h.spec.Name
}

// MaybeDeleted implements resource.Handle.
func (h *typeHandle) MaybeDeleted() bool { return h.spec.MaybeDeletedFlag }

// UseDeletedToLock implements resource.Handle.
func (h *typeHandle) UseDeletedToLock() bool { return h.spec.UseDeletedToLockFlag }

// CanUpdate implements resource.Capabilities.
func (h *typeHandle) CanUpdate() bool { return h.spec.CanUpdateFlag }

// CanDelete implements resource.Capabilities.
func (h *typeHandle) CanDelete() bool { return h.spec.CanDeleteFlag }

// CanPurge implements resource.Capabilities.
func (h *typeHandle) CanPurge() bool { return h.spec.CanPurgeFlag }

// ForbiddenActions implements resource.Handle.
func (h *typeHandle) ForbiddenActions() []string {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return append([]string(nil), h.spec.Forbidden...)
}

// IsDynamic implements resource.Handle.
func (h *typeHandle) IsDynamic(id string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	return item != nil && item.Dynamic
}

// Exists implements resource.Handle.
func (h *typeHandle) Exists(id string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.store.findItem(h.spec, id) != nil
}

// Can implements resource.Handle. The type-level right must be granted and
// the item must not carry a per-item denial.
func (h *typeHandle) Can(id string, p resource.Permission) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	if item == nil {
		return false
	}

	var typeLevel bool
	switch p {
	case resource.PermRead, resource.PermCreate:
		typeLevel = true
	case resource.PermUpdate:
		typeLevel = h.spec.CanUpdateFlag
	case resource.PermDelete:
		typeLevel = h.spec.CanDeleteFlag
	case resource.PermPurge:
		typeLevel = h.spec.CanPurgeFlag
	}
	if !typeLevel {
		return false
	}
	for _, denied := range item.Denied {
		if denied == p.String() {
			return false
		}
	}
	return true
}

// CanEdit implements resource.Handle.
func (h *typeHandle) CanEdit(id string) bool {
	return h.Can(id, resource.PermUpdate)
}

// Delete implements resource.Handle. A forced delete removes the item; a
// plain delete marks it for the trash view.
func (h *typeHandle) Delete(id string, force, keepComponents bool) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	if item == nil {
		return false
	}
	if !force {
		if !h.spec.MaybeDeletedFlag {
			return false
		}
		item.Deleted = true
		return true
	}
	if keepComponents {
		h.spec.DetachedComponentsLog = append(h.spec.DetachedComponentsLog, item.Components...)
	}
	h.store.removeItem(h.spec, id)
	return true
}

// Restore implements resource.Handle.
func (h *typeHandle) Restore(id string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	if item == nil {
		return false
	}
	item.Deleted = false
	return true
}

// Update implements resource.Handle.
func (h *typeHandle) Update(id, field, value string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	if item == nil {
		return false
	}
	if item.Fields == nil {
		item.Fields = make(map[string]string)
	}
	item.Fields[field] = value
	return true
}

// ErrorMessage implements resource.Handle.
func (h *typeHandle) ErrorMessage(kind resource.ErrorKind) string {
	label := h.Label()
	switch kind {
	case resource.ErrRight:
		return fmt.Sprintf("%s: missing right for the requested action", label)
	case resource.ErrCompat:
		return fmt.Sprintf("%s: target is not visible from the item's unit", label)
	case resource.ErrNotFound:
		return fmt.Sprintf("%s: item not found", label)
	default:
		return fmt.Sprintf("%s: action failed", label)
	}
}

// Fields implements resource.FieldCatalog.
func (h *typeHandle) Fields() []resource.Field {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return append([]resource.Field(nil), h.spec.FieldSpecs...)
}

// CanApply implements resource.UpdateValidator: a value is legal unless
// the document lists it as invalid for the field.
func (h *typeHandle) CanApply(_, field, value string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	for _, invalid := range h.spec.InvalidValues[field] {
		if invalid == value {
			return false
		}
	}
	return true
}

// SpecificActions implements resource.ActionProvider.
func (h *typeHandle) SpecificActions(resource.Capabilities) map[string]string {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	actions := make(map[string]string, len(h.spec.ExtraActions))
	for id, label := range h.spec.ExtraActions {
		actions[id] = label
	}
	return actions
}

// Probe implements resource.ProbeProvider: rights are evaluated against
// the representative item, so per-item denials narrow the offered actions.
func (h *typeHandle) Probe(id string) (resource.Capabilities, bool) {
	if !h.Exists(id) {
		return nil, false
	}
	return &itemCaps{handle: h, id: id}, true
}

// HasDetachableComponents implements resource.ComponentCarrier.
func (h *typeHandle) HasDetachableComponents() bool { return h.spec.DetachableComponents }

// EntityOf implements resource.EntityAssigned.
func (h *typeHandle) EntityOf(id string) (string, bool) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	if item == nil || item.Entity == "" {
		return "", false
	}
	return item.Entity, true
}

// EntityIsRecursive implements resource.EntityAssigned.
func (h *typeHandle) EntityIsRecursive(id string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	return item != nil && item.EntityRecursive
}

// CanAttachDocuments implements resource.DocumentAttachable.
func (h *typeHandle) CanAttachDocuments() bool { return h.spec.AttachDocuments }

// AttachDocument implements resource.DocumentAttachable.
func (h *typeHandle) AttachDocument(id, documentID string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	if item == nil || documentID == "" {
		return false
	}
	for _, existing := range item.Documents {
		if existing == documentID {
			return true
		}
	}
	item.Documents = append(item.Documents, documentID)
	return true
}

// CanAttachContracts implements resource.ContractAttachable.
func (h *typeHandle) CanAttachContracts() bool { return h.spec.AttachContracts }

// AttachContract implements resource.ContractAttachable.
func (h *typeHandle) AttachContract(id, contractID string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	if item == nil || contractID == "" {
		return false
	}
	for _, existing := range item.Contracts {
		if existing == contractID {
			return true
		}
	}
	item.Contracts = append(item.Contracts, contractID)
	return true
}

// CanChangeParent implements resource.ParentAware.
func (h *typeHandle) CanChangeParent() bool { return h.spec.ParentAwareFlag }

// SetParent implements resource.ParentAware.
func (h *typeHandle) SetParent(id, parentID string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	if item == nil || parentID == id {
		return false
	}
	item.Parent = parentID
	return true
}

// CanUnlock implements resource.Lockable.
func (h *typeHandle) CanUnlock() bool { return h.spec.UnlockableFlag }

// Unlock implements resource.Lockable.
func (h *typeHandle) Unlock(id string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	item := h.store.findItem(h.spec, id)
	if item == nil {
		return false
	}
	item.Locked = false
	return true
}

// ProcessBatchAction implements resource.BatchActionHandler for actions the
// document lists under legacy_actions. The whole batch is reported as one
// merged result.
func (h *typeHandle) ProcessBatchAction(actionID string, ids []string, _ map[string]string) (resource.BatchResult, bool) {
	h.store.mu.Lock()
	handled := false
	for _, legacy := range h.spec.LegacyActions {
		if legacy == actionID {
			handled = true
			break
		}
	}
	h.store.mu.Unlock()
	if !handled {
		return resource.BatchResult{}, false
	}

	res := resource.BatchResult{}
	for _, id := range ids {
		if h.Exists(id) {
			res.OK++
		} else {
			res.KO++
			res.Messages = append(res.Messages, h.ErrorMessage(resource.ErrNotFound))
		}
	}
	return res, true
}

// itemCaps evaluates type-level rights against one representative item.
type itemCaps struct {
	handle *typeHandle
	id     string
}

// CanUpdate implements resource.Capabilities.
func (c *itemCaps) CanUpdate() bool { return c.handle.Can(c.id, resource.PermUpdate) }

// CanDelete implements resource.Capabilities.
func (c *itemCaps) CanDelete() bool { return c.handle.Can(c.id, resource.PermDelete) }

// CanPurge implements resource.Capabilities.
func (c *itemCaps) CanPurge() bool { return c.handle.Can(c.id, resource.PermPurge) }
