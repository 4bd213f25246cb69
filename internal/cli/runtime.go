package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/massbatch/internal/config"
	"github.com/rshade/massbatch/internal/engine"
	"github.com/rshade/massbatch/internal/inventory"
	"github.com/rshade/massbatch/internal/session"
)

// runtime bundles the wired collaborators every subcommand needs: the
// loaded configuration, the inventory, the session store and the engine
// controller built over them.
type runtime struct {
	cfg   *config.Config
	inv   *inventory.Store
	store *session.FileStore
	ctrl  *engine.Controller
}

// newRuntime loads the inventory and session store named by the flags and
// builds a controller over them.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	invPath, _ := cmd.Flags().GetString("inventory")
	inv, err := inventory.Load(invPath)
	if err != nil {
		return nil, err
	}

	store, err := session.NewFileStore(
		cfg.SessionDir,
		time.Duration(cfg.SessionTTLSeconds)*time.Second,
	)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	opts := []engine.Option{
		engine.WithBudget(cfg.Budget()),
		engine.WithPages(cfg.LandingPage, cfg.TransferPage),
		engine.WithLogger(logger),
		engine.WithEntityTree(inv.EntityTree()),
	}
	if fin := inv.Financials(); fin != nil {
		opts = append(opts, engine.WithFinancials(fin))
	}

	return &runtime{
		cfg:   cfg,
		inv:   inv,
		store: store,
		ctrl:  engine.NewController(inv, store, opts...),
	}, nil
}

// sessionStore opens the session store alone, for subcommands that never
// touch the inventory.
func sessionStore(cmd *cobra.Command) (*session.FileStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return session.NewFileStore(
		cfg.SessionDir,
		time.Duration(cfg.SessionTTLSeconds)*time.Second,
	)
}

// parseSelection turns repeated "type=id1,id2" flag values into the
// checked-flag payload of the initial stage.
func parseSelection(selects []string) (map[string]map[string]bool, error) {
	checked := make(map[string]map[string]bool, len(selects))
	for _, sel := range selects {
		typeName, rawIDs, found := strings.Cut(sel, "=")
		if !found || typeName == "" {
			return nil, fmt.Errorf("invalid --select value %q, want type=id1,id2", sel)
		}
		if checked[typeName] == nil {
			checked[typeName] = make(map[string]bool)
		}
		for _, id := range strings.Split(rawIDs, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				checked[typeName][id] = true
			}
		}
	}
	return checked, nil
}

// parseProbe splits an optional "type/id" probe descriptor. The id part
// may be omitted to probe blanket type rights.
func parseProbe(probe string) (string, string) {
	if probe == "" {
		return "", ""
	}
	typeName, id, _ := strings.Cut(probe, "/")
	return typeName, id
}

// sortedActionIDs returns the composite action ids in stable order.
func sortedActionIDs(actions map[string]string) []string {
	ids := make([]string, 0, len(actions))
	for id := range actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
