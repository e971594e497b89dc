package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag back to its default so commands can be executed
// repeatedly in one process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the CLI with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	servePort = 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--user", "tester"))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// useTempStore points the CLI at a fresh SQLite database.
func useTempStore(t *testing.T) {
	t.Helper()
	t.Setenv("UNDERWRITE_STORE_DRIVER", "sqlite")
	t.Setenv("UNDERWRITE_STORE_DATABASE_URL", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("UNDERWRITE_LOG_LEVEL", "error")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "evaluate", "parity", "workspaces", "deals", "runs", "portfolio"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "underwrite", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("user"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestServe_InvalidConfig(t *testing.T) {
	useTempStore(t)
	t.Setenv("UNDERWRITE_METRICS_PATH", "metrics")

	_, err := execute(t, "serve", "--port", "9090")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.path must start with /")
}

func TestServe_InvalidParitySchedule(t *testing.T) {
	useTempStore(t)
	t.Setenv("UNDERWRITE_PARITY_SCHEDULE", "whenever")

	_, err := execute(t, "serve", "--port", "9090")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parity.schedule")
}

func TestInitStore_UnknownDriver(t *testing.T) {
	useTempStore(t)
	t.Setenv("UNDERWRITE_STORE_DRIVER", "mongo")

	_, err := execute(t, "workspaces", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestWorkflow(t *testing.T) {
	useTempStore(t)

	out, err := execute(t, "workspaces", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No workspaces found.")

	out, err = execute(t, "workspaces", "create", "Acquisitions")
	require.NoError(t, err)
	wsID := lastLine(out)
	require.NotEmpty(t, wsID)

	out, err = execute(t, "workspaces", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Acquisitions")
	assert.Contains(t, out, "tester")

	out, err = execute(t, "deals", "create", "12 Main St", "--workspace", wsID, "--asking-price", "10000000")
	require.NoError(t, err)
	dealID := lastLine(out)
	require.NotEmpty(t, dealID)

	out, err = execute(t, "deals", "list", "--workspace", wsID)
	require.NoError(t, err)
	assert.Contains(t, out, "12 Main St")
	assert.Contains(t, out, "$10,000,000")
	assert.Contains(t, out, "NO_RUN")

	out, err = execute(t, append([]string{"runs", "create", dealID}, canonicalSets()...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "(v1)")
	assert.Contains(t, out, "ADVANCE (7/7 pass)")
	assert.Contains(t, out, "$11,612,613")

	out, err = execute(t, append([]string{"runs", "create", dealID}, append(canonicalSets(), "--set", "y1_noi=416000")...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "(v2)")

	out, err = execute(t, "runs", "list", dealID)
	require.NoError(t, err)
	assert.Contains(t, out, "v1")
	assert.Contains(t, out, "v2")
	assert.Contains(t, out, "tester")

	out, err = execute(t, "runs", "stats", dealID)
	require.NoError(t, err)
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "Advance:")
	assert.Contains(t, out, "Mean pass count:")

	out, err = execute(t, "deals", "gate", dealID)
	require.NoError(t, err)
	assert.Contains(t, out, "12 Main St")
	assert.Contains(t, out, "Yield on Cost")

	_, err = execute(t, "deals", "override", dealID, "--status", "APPROVED")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comment is required")

	out, err = execute(t, "deals", "override", dealID, "--status", "APPROVED", "--comment", "IC exception")
	require.NoError(t, err)
	assert.Contains(t, out, "gate status: APPROVED")

	out, err = execute(t, "deals", "activity", dealID, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "GATE_OVERRIDE_SET")
	assert.Contains(t, out, "Gate override set to APPROVED")

	out, err = execute(t, "deals", "ic-packet", dealID)
	require.NoError(t, err)
	assert.Contains(t, out, `"audit_history"`)

	out, err = execute(t, "portfolio", "--workspace", wsID, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"deal_count": 1`)

	out, err = execute(t, "portfolio")
	require.NoError(t, err)
	assert.Contains(t, out, "Overrides:")

	_, err = execute(t, "runs", "show", dealID, "missing")
	require.Error(t, err)
}

func TestDealsCreate_RequiresWorkspace(t *testing.T) {
	useTempStore(t)

	_, err := execute(t, "deals", "create", "No Home")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace")
}
