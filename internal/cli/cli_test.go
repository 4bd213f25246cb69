package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/massbatch/internal/inventory"
)

const testInventory = `
entities:
  - name: root
types:
  - name: device
    label: Devices
    maybe_deleted: true
    can_update: true
    can_delete: true
    can_purge: true
    fields:
      - name: location
        label: Location
    items:
      - id: "1"
      - id: "2"
`

// testWorkspace writes an inventory and a config pointing the session
// store at a temp directory, returning both paths.
func testWorkspace(t *testing.T) (invPath, cfgPath string) {
	t.Helper()
	dir := t.TempDir()

	invPath = filepath.Join(dir, "inventory.yaml")
	require.NoError(t, os.WriteFile(invPath, []byte(testInventory), 0600))

	cfgPath = filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("session_dir: %s\nlogging:\n  level: error\n", filepath.Join(dir, "sessions"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0600))
	return invPath, cfgPath
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd(t *testing.T) {
	root := NewRootCmd("1.2.3")
	require.NotNil(t, root)
	assert.Equal(t, "massbatch", root.Use)
	assert.Equal(t, "1.2.3", root.Version)

	names := make([]string, 0)
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "actions")
	assert.Contains(t, names, "apply")
	assert.Contains(t, names, "resume")
	assert.Contains(t, names, "sessions")
}

func TestActionsCmd(t *testing.T) {
	invPath, cfgPath := testWorkspace(t)

	out, err := execute(t, "actions",
		"--inventory", invPath, "--config", cfgPath,
		"--select", "device=1,2")
	require.NoError(t, err)

	assert.Contains(t, out, "2 items selected")
	assert.Contains(t, out, "core:update")
	assert.Contains(t, out, "core:delete")
	assert.Contains(t, out, "Move to trash")
}

func TestApplyCmd(t *testing.T) {
	t.Run("delete completes and persists", func(t *testing.T) {
		invPath, cfgPath := testWorkspace(t)

		out, err := execute(t, "apply",
			"--inventory", invPath, "--config", cfgPath,
			"--select", "device=1,2", "--action", "core:delete")
		require.NoError(t, err)
		assert.Contains(t, out, "batch run complete")
		assert.Contains(t, out, "2")

		// The soft-deleted flags were written back to the inventory file.
		store, err := inventory.Load(invPath)
		require.NoError(t, err)
		h, ok := store.Resolve("device")
		require.True(t, ok)
		require.True(t, h.Exists("1"))
		assert.True(t, h.Restore("1"))
	})

	t.Run("no-save leaves the file untouched", func(t *testing.T) {
		invPath, cfgPath := testWorkspace(t)
		before, err := os.ReadFile(invPath)
		require.NoError(t, err)

		_, err = execute(t, "apply",
			"--inventory", invPath, "--config", cfgPath,
			"--select", "device=1", "--action", "core:delete", "--no-save")
		require.NoError(t, err)

		after, err := os.ReadFile(invPath)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("update with field and value", func(t *testing.T) {
		invPath, cfgPath := testWorkspace(t)

		out, err := execute(t, "apply",
			"--inventory", invPath, "--config", cfgPath,
			"--select", "device=1", "--action", "core:update",
			"--field", "location", "--value", "hq")
		require.NoError(t, err)
		assert.Contains(t, out, "batch run complete")
	})

	t.Run("malformed selection rejected", func(t *testing.T) {
		invPath, cfgPath := testWorkspace(t)

		_, err := execute(t, "apply",
			"--inventory", invPath, "--config", cfgPath,
			"--select", "garbage", "--action", "core:delete")
		require.Error(t, err)
	})
}

func TestResumeCmdUnknownRun(t *testing.T) {
	invPath, cfgPath := testWorkspace(t)

	_, err := execute(t, "resume", "no-such-run",
		"--inventory", invPath, "--config", cfgPath)
	require.Error(t, err)
}

func TestSessionsCmds(t *testing.T) {
	_, cfgPath := testWorkspace(t)

	t.Run("list empty store", func(t *testing.T) {
		out, err := execute(t, "sessions", "list", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "no suspended runs")
	})

	t.Run("evict empty store", func(t *testing.T) {
		out, err := execute(t, "sessions", "evict", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "evicted 0 expired runs")
	})
}
