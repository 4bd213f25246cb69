// Package resource defines the capability-bearing handle that every
// resource type participating in batch actions must implement, plus the
// registry that resolves type names to handles.
//
// The engine and the action catalog depend only on these interfaces, never
// on concrete type identity. Optional capabilities (field updates, legacy
// action handlers, attachments) are expressed as separate interfaces that
// callers discover with type assertions.
package resource

// Permission identifies a right checked at the type or instance level.
type Permission int

const (
	// PermRead allows reading an item.
	PermRead Permission = iota

	// PermCreate allows creating an item or side record.
	PermCreate

	// PermUpdate allows updating an item.
	PermUpdate

	// PermDelete allows soft-deleting an item.
	PermDelete

	// PermPurge allows permanently removing an item. Restore is gated by
	// the same right: restoring is the inverse of purging the trash.
	PermPurge
)

// String returns a short name for the permission, used in logs.
func (p Permission) String() string {
	switch p {
	case PermRead:
		return "read"
	case PermCreate:
		return "create"
	case PermUpdate:
		return "update"
	case PermDelete:
		return "delete"
	case PermPurge:
		return "purge"
	default:
		return "unknown"
	}
}

// ErrorKind selects one of the canned diagnostic messages a resource type
// provides for batch results.
type ErrorKind int

const (
	// ErrOnAction is the diagnostic for a mutation that failed.
	ErrOnAction ErrorKind = iota

	// ErrRight is the diagnostic for an authorization failure.
	ErrRight

	// ErrCompat is the diagnostic for an organizational-unit
	// compatibility violation.
	ErrCompat

	// ErrNotFound is the diagnostic for a missing target item.
	ErrNotFound
)

// Capabilities exposes the blanket (type-level) rights of a resource type.
// A capability probe evaluated against one representative item implements
// the same interface.
type Capabilities interface {
	CanUpdate() bool
	CanDelete() bool
	CanPurge() bool
}

// Handle is the resolved, capability-bearing object for one resource type.
// All mutation operations report success as a bare bool; the engine maps
// failure to the ko outcome and fetches a diagnostic via ErrorMessage.
type Handle interface {
	Capabilities

	// TypeName returns the registered name of the resource type.
	TypeName() string

	// Label returns the human-readable plural name of the type.
	Label() string

	// MaybeDeleted reports whether the type supports soft deletion.
	MaybeDeleted() bool

	// UseDeletedToLock reports whether the soft-delete flag doubles as a
	// lock signal for dynamically-discovered items. Such types never offer
	// soft delete from the active view, and purging a dynamic item
	// degrades to a soft delete.
	UseDeletedToLock() bool

	// IsDynamic reports whether the item was dynamically discovered.
	IsDynamic(id string) bool

	// ForbiddenActions lists composite action ids the type refuses,
	// regardless of which source contributed them.
	ForbiddenActions() []string

	// Exists reports whether the item is present in storage.
	Exists(id string) bool

	// Can checks an instance-level right.
	Can(id string, p Permission) bool

	// CanEdit checks the instance-level update right.
	CanEdit(id string) bool

	// Delete soft-deletes the item, or removes it permanently when force
	// is set. keepComponents preserves attached sub-components on a purge.
	Delete(id string, force, keepComponents bool) bool

	// Restore brings a soft-deleted item back to the active view.
	Restore(id string) bool

	// Update sets one field of the item.
	Update(id, field, value string) bool

	// ErrorMessage returns the canned diagnostic for the given kind.
	ErrorMessage(kind ErrorKind) string
}

// Field describes one entry of a type's editable-field catalog.
type Field struct {
	// Name is the field identifier used in update payloads.
	Name string `yaml:"name" json:"name"`

	// Label is the human-readable field name.
	Label string `yaml:"label" json:"label"`

	// Ref names the resource type the field references, or "" for a
	// plain value field.
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`

	// EntityScoped marks a reference field whose target items are
	// assigned to organizational units; updates must verify that the
	// item's unit is compatible with the referenced value's unit.
	EntityScoped bool `yaml:"entity_scoped,omitempty" json:"entity_scoped,omitempty"`

	// Financial marks a field that belongs to the financial-tracking
	// extension. Updates go to the financial side record, not the item.
	Financial bool `yaml:"financial,omitempty" json:"financial,omitempty"`
}

// FieldCatalog is implemented by handles whose items carry editable fields
// reachable from the bulk update action.
type FieldCatalog interface {
	Fields() []Field
}

// UpdateValidator is implemented by handles that restrict which values an
// item may legally receive for a field.
type UpdateValidator interface {
	CanApply(actionID, field, value string) bool
}

// ActionProvider is implemented by handles that declare their own extra
// batch actions beyond the standard set.
type ActionProvider interface {
	SpecificActions(caps Capabilities) map[string]string
}

// ProbeProvider is implemented by handles that can evaluate rights against
// one representative item instead of the type's blanket permissions.
type ProbeProvider interface {
	Probe(id string) (Capabilities, bool)
}

// ComponentCarrier is implemented by types whose items carry detachable
// sub-components, enabling the purge variant that preserves them.
type ComponentCarrier interface {
	HasDetachableComponents() bool
}

// EntityAssigned is implemented by types whose items belong to an
// organizational unit.
type EntityAssigned interface {
	// EntityOf returns the unit of the item, if assigned.
	EntityOf(id string) (string, bool)

	// EntityIsRecursive reports whether the item is visible to the
	// sub-units of its unit.
	EntityIsRecursive(id string) bool
}

// DocumentAttachable marks types whose items accept document attachments.
type DocumentAttachable interface {
	CanAttachDocuments() bool
	AttachDocument(id, documentID string) bool
}

// ContractAttachable marks types whose items accept contract attachments.
type ContractAttachable interface {
	CanAttachContracts() bool
	AttachContract(id, contractID string) bool
}

// ParentAware marks types whose items form a hierarchy and support
// reparenting through batch actions.
type ParentAware interface {
	CanChangeParent() bool
	SetParent(id, parentID string) bool
}

// Lockable marks types whose items can be locked and unlocked.
type Lockable interface {
	CanUnlock() bool
	Unlock(id string) bool
}

// BatchResult is the merged outcome a legacy action handler reports for a
// whole batch.
type BatchResult struct {
	OK       int
	KO       int
	NoRight  int
	Messages []string
	Redirect string
}

// BatchActionHandler is the legacy single-type path: the handle performs
// the whole action itself and reports merged counts. The second return
// value is false when the handle does not implement the given action.
type BatchActionHandler interface {
	ProcessBatchAction(actionID string, ids []string, input map[string]string) (BatchResult, bool)
}

// Financials manages the financial side records attached to items. Update
// actions on financial fields go through this interface instead of the
// item itself.
type Financials interface {
	// CanUpdate is the blanket right over financial records.
	CanUpdate() bool

	// Covers reports whether the type participates in financial tracking.
	Covers(typeName string) bool

	// Authorize checks the create-or-update right on the side record tied
	// to the item.
	Authorize(typeName, id string) bool

	// Apply locates (or creates) the side record tied to the item and
	// sets one of its fields.
	Apply(typeName, id, field, value string) bool

	// Enable creates the side record for the item if missing.
	Enable(typeName, id string) bool
}
