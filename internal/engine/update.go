package engine

import (
	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/resource"
)

// refTarget describes the organizational unit implied by the new value of
// an entity-scoped reference field.
type refTarget struct {
	check     bool
	entity    string
	recursive bool
}

// executeUpdate applies a single-field update across the batch. Financial
// fields go to the side record tied to each item; ordinary fields go to
// the item itself. Either way, a value referencing an entity-scoped table
// must be compatible with the item's organizational unit.
func (e *coreExecutor) executeUpdate(ma action.Batch, h resource.Handle, ids []string) error {
	input := ma.Input()
	fieldName := input[action.InputField]
	value := input[action.InputValue]

	field, ok := lookupField(h, fieldName)
	if !ok {
		// An unknown field cannot stall the run: every pending item is
		// accounted as failed.
		for _, id := range ids {
			if err := fail(ma, h, id, action.OutcomeKO, resource.ErrNotFound); err != nil {
				return err
			}
		}
		return nil
	}

	target := e.resolveRefTarget(h, field, value)

	if field.Financial && e.c.financials != nil && e.c.financials.Covers(h.TypeName()) {
		return e.updateFinancial(ma, h, ids, field, value, target)
	}
	return e.updateOrdinary(ma, h, ids, field, value, target)
}

// updateOrdinary updates the field on the item itself.
func (e *coreExecutor) updateOrdinary(
	ma action.Batch,
	h resource.Handle,
	ids []string,
	field resource.Field,
	value string,
	target refTarget,
) error {
	for _, id := range ids {
		var err error
		switch {
		case !h.CanEdit(id) || !canApplyValue(h, field.Name, value):
			err = fail(ma, h, id, action.OutcomeNoRight, resource.ErrRight)
		case target.check && !e.compatibleWithItem(h, id, target):
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrCompat)
		case h.Update(id, field.Name, value):
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

// updateFinancial updates the financial side record tied to each item,
// creating it on first use. Rights are checked against the side record,
// not the item.
func (e *coreExecutor) updateFinancial(
	ma action.Batch,
	h resource.Handle,
	ids []string,
	field resource.Field,
	value string,
	target refTarget,
) error {
	fin := e.c.financials
	typeName := h.TypeName()
	for _, id := range ids {
		var err error
		switch {
		case !h.Exists(id):
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrNotFound)
		case target.check && !e.compatibleWithItem(h, id, target):
			err = fail(ma, h, id, action.OutcomeKO, resource.ErrCompat)
		case !fin.Authorize(typeName, id):
			err = fail(ma, h, id, action.OutcomeNoRight, resource.ErrRight)
		case fin.Apply(typeName, id, field.Name, value):
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

// resolveRefTarget resolves the unit implied by the new value when the
// field links to an entity-scoped table. The check only applies when both
// the referenced type and the updated type are entity-assigned.
func (e *coreExecutor) resolveRefTarget(h resource.Handle, field resource.Field, value string) refTarget {
	if field.Ref == "" || !field.EntityScoped || e.c.tree == nil {
		return refTarget{}
	}
	if _, itemAssigned := h.(resource.EntityAssigned); !itemAssigned {
		return refTarget{}
	}

	refHandle, ok := e.c.resolver.Resolve(field.Ref)
	if !ok {
		return refTarget{}
	}
	assigned, ok := refHandle.(resource.EntityAssigned)
	if !ok {
		return refTarget{}
	}
	entity, hasEntity := assigned.EntityOf(value)
	if !hasEntity {
		return refTarget{}
	}
	return refTarget{
		check:     true,
		entity:    entity,
		recursive: assigned.EntityIsRecursive(value),
	}
}

// compatibleWithItem checks the item's unit against the reference target.
func (e *coreExecutor) compatibleWithItem(h resource.Handle, id string, target refTarget) bool {
	assigned, ok := h.(resource.EntityAssigned)
	if !ok {
		return true
	}
	itemEntity, hasEntity := assigned.EntityOf(id)
	if !hasEntity {
		return true
	}
	return resource.Compatible(e.c.tree, itemEntity, target.entity, target.recursive)
}

// lookupField finds a field in the type's editable-field catalog.
func lookupField(h resource.Handle, name string) (resource.Field, bool) {
	fieldCatalog, ok := h.(resource.FieldCatalog)
	if !ok || name == "" {
		return resource.Field{}, false
	}
	for _, field := range fieldCatalog.Fields() {
		if field.Name == name {
			return field, true
		}
	}
	return resource.Field{}, false
}

// canApplyValue consults the type's value-legality predicate when it
// declares one.
func canApplyValue(h resource.Handle, field, value string) bool {
	validator, ok := h.(resource.UpdateValidator)
	if !ok {
		return true
	}
	return validator.CanApply(action.ActionUpdate, field, value)
}
