// Package catalog computes the mapping of available batch actions for a
// resource type by composing contributions from independent sources:
// standard CRUD actions, pluggable feature areas, the type's own declared
// actions and registered extensions. Actions the type declares forbidden
// are removed last, regardless of where they came from.
package catalog

import (
	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/extension"
	"github.com/rshade/massbatch/internal/resource"
)

// Builder composes action catalogs. Construct with NewBuilder.
type Builder struct {
	resolver      resource.Resolver
	financials    resource.Financials
	extensions    *extension.Registry
	contributors  []Contributor
	lock          Contributor
	transferAllow func() bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithFinancials wires the financial-tracking side-record store into the
// standard update eligibility check and the financial contributor.
func WithFinancials(fin resource.Financials) Option {
	return func(b *Builder) { b.financials = fin }
}

// WithExtensions wires the extension registry whose contributions are
// merged into every active-scope catalog.
func WithExtensions(reg *extension.Registry) Option {
	return func(b *Builder) { b.extensions = reg }
}

// WithContributors replaces the default feature-area contributor list.
func WithContributors(contributors ...Contributor) Option {
	return func(b *Builder) { b.contributors = contributors }
}

// WithTransferAllowed gates the add-to-transfer-list action. The gate is
// consulted on every compute so a changed session (rights, multi-unit
// mode) takes effect immediately.
func WithTransferAllowed(allow func() bool) Option {
	return func(b *Builder) { b.transferAllow = allow }
}

// NewBuilder creates a catalog builder over the resource resolver.
func NewBuilder(resolver resource.Resolver, opts ...Option) *Builder {
	b := &Builder{
		resolver: resolver,
		lock:     lockContributor{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.contributors == nil {
		b.contributors = []Contributor{
			financialContributor{fin: b.financials},
			connexityContributor{},
			documentContributor{},
			contractContributor{},
		}
	}
	return b
}

// Compute returns the available actions for the resource type, keyed by
// composite action id. includeDeleted selects the trash-view action set.
// probe, when non-nil, supplies rights evaluated against one representative
// item instead of the type's blanket permissions. An unknown type or an
// empty result yields an empty mapping, never an error.
func (b *Builder) Compute(
	typeName string,
	includeDeleted bool,
	probe resource.Capabilities,
) map[string]string {
	actions := make(map[string]string)

	h, ok := b.resolver.Resolve(typeName)
	if !ok {
		return actions
	}

	caps := resource.Capabilities(h)
	if probe != nil {
		caps = probe
	}

	if includeDeleted {
		b.deletedScopeActions(h, caps, actions)
	} else {
		b.activeScopeActions(h, caps, actions)
	}

	// Lock actions apply to both scopes.
	merge(actions, b.lock.Actions(h, includeDeleted, caps))

	if b.transferAllow != nil && b.transferAllow() {
		actions[action.Compose(action.CoreExecutor, action.ActionAddTransfer)] = "Add to transfer list"
	}

	for _, forbidden := range h.ForbiddenActions() {
		delete(actions, forbidden)
	}
	return actions
}

// deletedScopeActions fills the trash-view action set: purge (with the
// keep-components variant when the type carries detachable components) and
// restore, both gated by the purge right.
func (b *Builder) deletedScopeActions(
	h resource.Handle,
	caps resource.Capabilities,
	actions map[string]string,
) {
	if !caps.CanPurge() {
		return
	}

	purgeID := action.Compose(action.CoreExecutor, action.ActionPurge)
	if carrier, ok := h.(resource.ComponentCarrier); ok && carrier.HasDetachableComponents() {
		keepID := action.Compose(action.CoreExecutor, action.ActionPurgeKeepComps)
		actions[keepID] = "Delete permanently but keep components"
		actions[purgeID] = "Delete permanently and remove components"
	} else {
		actions[purgeID] = "Delete permanently"
	}
	actions[action.Compose(action.CoreExecutor, action.ActionRestore)] = "Restore"
}

// activeScopeActions fills the active-view action set.
func (b *Builder) activeScopeActions(
	h resource.Handle,
	caps resource.Capabilities,
	actions map[string]string,
) {
	canUpdate := caps.CanUpdate()
	if !canUpdate && b.financials != nil {
		// Financial-tracking participants may update financial fields
		// without a blanket update right on the type itself.
		canUpdate = b.financials.Covers(h.TypeName()) && b.financials.CanUpdate()
	}
	if canUpdate {
		actions[action.Compose(action.CoreExecutor, action.ActionUpdate)] = "Update"
	}

	for _, contributor := range b.contributors {
		merge(actions, contributor.Actions(h, false, caps))
	}

	// Types whose soft-delete flag doubles as a lock signal never offer
	// soft delete from the active view.
	if h.MaybeDeleted() && !h.UseDeletedToLock() {
		if caps.CanDelete() {
			actions[action.Compose(action.CoreExecutor, action.ActionDelete)] = "Move to trash"
		}
	} else if caps.CanPurge() {
		actions[action.Compose(action.CoreExecutor, action.ActionPurge)] = "Delete permanently"
	}

	if provider, ok := h.(resource.ActionProvider); ok {
		merge(actions, provider.SpecificActions(caps))
	}

	if b.extensions != nil {
		mergeKeep(actions, b.extensions.ContributeActions(h))
	}
}

// merge copies src into dst, overwriting existing ids.
func merge(dst, src map[string]string) {
	for id, label := range src {
		dst[id] = label
	}
}

// mergeKeep copies src into dst without overwriting: actions already
// offered by the core or an earlier source keep their label.
func mergeKeep(dst, src map[string]string) {
	for id, label := range src {
		if _, exists := dst[id]; !exists {
			dst[id] = label
		}
	}
}
