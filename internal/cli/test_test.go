package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadplan/internal/compiler"
	"github.com/roach88/loadplan/internal/harness"
)

// writeShopScenario writes an Order scenario against the shop mappings into
// dir and returns its path.
func writeShopScenario(t *testing.T, dir, name string, spaceCount int) string {
	t.Helper()
	content := fmt.Sprintf(`name: %s
description: "Order plan"
mappings: %s
root: Order
assertions:
  - type: space_count
    count: %d
`, name, mappingsDir(t, "shop"), spaceCount)
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestTestCommandScenariosPass(t *testing.T) {
	dir := scenariosDir(t)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ order_lineitems (golden)\n")
	assert.Contains(t, out, "✓ pinned_uids\n")
	assert.Contains(t, out, "✓ All scenarios passed")
	assert.Contains(t, out, "0 failed")
}

func TestTestCommandScenariosJSON(t *testing.T) {
	dir := scenariosDir(t)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)

	var result TestResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, result.Total, result.Passed)
	assert.Zero(t, result.Failed)
	assert.NotZero(t, result.Total)
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenariosDir(t)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir, "--filter", "order_*")
	require.NoError(t, err)

	_, data := decodeResponse(t, out)
	var result TestResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "order_lineitems", result.Scenarios[0].Name)
	assert.Equal(t, "match", result.Scenarios[0].Golden)
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir(), "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeInvalidFlag)
}

func TestTestCommandSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeShopScenario(t, dir, "single", 5)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ single\n")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeShopScenario(t, dir, "good", 5)
	writeShopScenario(t, dir, "bad", 7)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 scenario(s) failed")
	assert.Contains(t, out, "✗ bad\n")
	assert.Contains(t, out, "✓ good\n")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
	assert.NotContains(t, out, "All scenarios passed")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	writeShopScenario(t, dir, "bad", 7)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)

	var result TestResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Scenarios, 1)
	assert.False(t, result.Scenarios[0].Pass)
	assert.NotEmpty(t, result.Scenarios[0].Errors)
}

func TestTestCommandUpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	path := writeShopScenario(t, dir, "order", 5)
	golden := harness.GoldenPath(path)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ order (golden updated)\n")
	require.FileExists(t, golden)

	content, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(content), "EntityReturn Order uid=<gen:0> path=-\n")

	out, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ order (golden)\n")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeShopScenario(t, dir, "order", 5)
	golden := harness.GoldenPath(path)
	require.NoError(t, os.MkdirAll(filepath.Dir(golden), 0755))
	require.NoError(t, os.WriteFile(golden, []byte("stale\n"), 0644))

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ order\n")
	assert.Contains(t, out, "  plan does not match golden file (run with --update to regenerate)\n")
}

func TestTestCommandUnloadableScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0644))

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml\n")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp, _ := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrCodeNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "scenario path not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)

	var result TestResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Zero(t, result.Total)
	assert.Empty(t, result.Scenarios)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "notes.txt", "sub/c.yaml", "golden/a.golden"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, nil, 0644))
	}

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"all", "", []string{"a.yaml", "b.yml", "sub/c.yaml"}},
		{"filtered", "a*", []string{"a.yaml"}},
		{"no match", "zzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := findScenarioFiles(dir, tt.filter)
			require.NoError(t, err)

			var got []string
			for _, f := range files {
				rel, err := filepath.Rel(dir, f)
				require.NoError(t, err)
				got = append(got, filepath.ToSlash(rel))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindScenarioFilesSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "order.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	files, err := findScenarioFiles(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)

	files, err = findScenarioFiles(path, "customer*")
	require.NoError(t, err)
	assert.Empty(t, files)
}
