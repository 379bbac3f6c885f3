package harness

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
)

// GoldenPath returns the golden file of a scenario file:
// <scenario dir>/golden/<scenario base name>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// Snapshot renders the deterministic part of a result for golden comparison:
// the plan render, the SQL aliases in space order and the journal entry, or
// the build error when the build failed.
//
// The plan signature is left out; it is covered by the plan package tests.
func Snapshot(result *Result) []byte {
	var buf bytes.Buffer

	if result.Plan == nil {
		fmt.Fprintf(&buf, "build error: %v\n", result.BuildErr)
		return buf.Bytes()
	}

	buf.WriteString(result.Plan.String())
	buf.WriteString("aliases:\n")
	for _, uid := range result.Aliases.UIDs() {
		alias, _ := result.Aliases.Alias(uid)
		fmt.Fprintf(&buf, "  %s %s\n", uid, alias)
	}
	if result.Record.ID != "" {
		fmt.Fprintf(&buf, "recorded: %s at %s\n",
			result.Record.ID, result.Record.RecordedAt.UTC().Format(time.RFC3339))
	}
	return buf.Bytes()
}

// RunWithGolden loads and executes the scenario in scenarioFile and compares
// its snapshot against GoldenPath(scenarioFile).
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot be loaded or executed.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenarioFile string) (*Result, error) {
	t.Helper()

	scenario, err := LoadScenario(scenarioFile)
	if err != nil {
		return nil, err
	}
	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenarioFile, result)
	return result, nil
}

// AssertGolden compares the given result's snapshot against the golden file
// of scenarioFile without re-running the scenario.
func AssertGolden(t *testing.T, scenarioFile string, result *Result) {
	t.Helper()

	golden := GoldenPath(scenarioFile)
	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Dir(golden)),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, strings.TrimSuffix(filepath.Base(golden), ".golden"), Snapshot(result))
}
