package resource

// EntityTree exposes the organizational-unit hierarchy used for
// compatibility checks on entity-scoped reference fields.
type EntityTree interface {
	// SonsOf returns the unit and all units below it.
	SonsOf(entity string) []string
}

// Compatible reports whether an item assigned to itemEntity may reference
// a value assigned to refEntity. A recursive reference is visible to the
// whole subtree below its unit; a non-recursive one only to its own unit.
// A nil tree or an unassigned reference disables the check.
func Compatible(tree EntityTree, itemEntity, refEntity string, refRecursive bool) bool {
	if tree == nil || refEntity == "" {
		return true
	}
	if itemEntity == refEntity {
		return true
	}
	if !refRecursive {
		return false
	}
	for _, son := range tree.SonsOf(refEntity) {
		if son == itemEntity {
			return true
		}
	}
	return false
}
