package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/catalog"
	"github.com/rshade/massbatch/internal/config"
	"github.com/rshade/massbatch/internal/extension"
	"github.com/rshade/massbatch/internal/resource"
	"github.com/rshade/massbatch/internal/session"
)

// Controller owns the three-stage batch lifecycle: it computes available
// actions at the initial stage, narrows the selection at specialization,
// and drives executors over the working set at the process stage,
// suspending into the session store whenever a pass runs out of budget.
//
// A controller serves one caller at a time per run: the engine has a single
// logical thread of control per invocation and no internal parallelism.
type Controller struct {
	resolver      resource.Resolver
	store         session.Store
	extensions    *extension.Registry
	catalog       *catalog.Builder
	financials    resource.Financials
	tree          resource.EntityTree
	transfers     *TransferList
	budget        time.Duration
	landingPage   string
	transferPage  string
	log           zerolog.Logger
	core          action.Executor
	transferAllow func() bool

	lastSelected Selection
}

// Option configures a Controller.
type Option func(*Controller)

// WithExtensions wires the extension registry polled for contributed
// actions and executors.
func WithExtensions(reg *extension.Registry) Option {
	return func(c *Controller) { c.extensions = reg }
}

// WithFinancials wires the financial side-record store used by the update
// executor and the catalog.
func WithFinancials(fin resource.Financials) Option {
	return func(c *Controller) { c.financials = fin }
}

// WithEntityTree wires the organizational-unit hierarchy used for
// compatibility checks on entity-scoped reference fields.
func WithEntityTree(tree resource.EntityTree) Option {
	return func(c *Controller) { c.tree = tree }
}

// WithBudget overrides the per-pass time budget.
func WithBudget(budget time.Duration) Option {
	return func(c *Controller) { c.budget = budget }
}

// WithPages sets the default landing page for completed runs and the
// transfer-review page.
func WithPages(landing, transfer string) Option {
	return func(c *Controller) {
		c.landingPage = landing
		c.transferPage = transfer
	}
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithTransferAllowed gates the add-to-transfer-list action in computed
// catalogs.
func WithTransferAllowed(allow func() bool) Option {
	return func(c *Controller) { c.transferAllow = allow }
}

// NewController creates a controller over a resource resolver and a
// resumable-session store.
func NewController(resolver resource.Resolver, store session.Store, opts ...Option) *Controller {
	c := &Controller{
		resolver:     resolver,
		store:        store,
		transfers:    NewTransferList(),
		budget:       config.New().Budget(),
		landingPage:  config.DefaultLandingPage,
		transferPage: config.DefaultTransferPage,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	builderOpts := []catalog.Option{
		catalog.WithFinancials(c.financials),
	}
	if c.extensions != nil {
		builderOpts = append(builderOpts, catalog.WithExtensions(c.extensions))
	}
	if c.transferAllow != nil {
		builderOpts = append(builderOpts, catalog.WithTransferAllowed(c.transferAllow))
	}
	c.catalog = catalog.NewBuilder(resolver, builderOpts...)
	c.core = &coreExecutor{c: c}
	return c
}

// Catalog exposes the action catalog builder, for callers that render
// per-type action lists outside a batch flow.
func (c *Controller) Catalog() *catalog.Builder {
	return c.catalog
}

// Transfers returns the pending-transfer list.
func (c *Controller) Transfers() *TransferList {
	return c.transfers
}

// LastSelected returns the snapshot of the initial selection taken at
// process entry, so collaborators can restore the selection across the
// redirect at run completion.
func (c *Controller) LastSelected() Selection {
	return c.lastSelected.Clone()
}

// executorFor resolves the executor behind a non-empty reference: the
// built-in core dispatch, or an extension contribution.
func (c *Controller) executorFor(ref, typeName, actionID string) (action.Executor, bool) {
	if ref == action.CoreExecutor {
		return c.core, true
	}
	if c.extensions == nil {
		return nil, false
	}
	return c.extensions.ExecutorFor(ref, typeName, actionID)
}
