package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "save_and_reload.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ExpectedStepError(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_column
description: unknown columns are rejected and leave the query alone
steps:
  - select: rtable1.rcol11
  - select: nope.nope
    expect:
      error: unknown column
      sql: "SELECT rtable1.rcol11\nFROM rtable1"
  - load: query-9
    expect:
      error: saved query not found
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "SELECT rtable1.rcol11\nFROM rtable1", result.Trace[2].SQL)
}

func TestRun_ReportsFailures(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: failing
description: every check here is wrong
steps:
  - select: rtable1.rcol11
    expect:
      sql: "SELECT nothing"
      diagnostic: missing_join
      sql_contains: ["GROUP BY"]
      missing_joins: ["a and b"]
  - select: nope.nope
  - clear: true
    expect:
      error: boom
assertions:
  - type: sql_equals
    sql: "SELECT 1"
  - type: saved_count
    count: 3
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.False(t, result.Pass)

	joined := strings.Join(result.Errors, "\n")
	assert.Contains(t, joined, "steps[0] select: sql mismatch")
	assert.Contains(t, joined, "steps[0] select: diagnostic = none, expected missing_join")
	assert.Contains(t, joined, `steps[0] select: sql does not contain "GROUP BY"`)
	assert.Contains(t, joined, "steps[0] select: missing joins = [], expected [a and b]")
	assert.Contains(t, joined, "steps[1] select: unexpected error: unknown column: nope.nope")
	assert.Contains(t, joined, `steps[2] clear: expected error containing "boom", got none`)
	assert.Contains(t, joined, "Assertion failed: sql_equals")
	assert.Contains(t, joined, "Assertion failed: saved_count")
	assert.Len(t, result.Errors, 8)
}

func TestRun_CustomCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.cue"), []byte(`
category: Shop: table: {
	orders: column: ["id", "customer_id"]
	customers: column: ["id", "name"]
}
join: [{left: "orders", right: "customers", on: "orders.customer_id = customers.id"}]
`), 0o644))
	path := filepath.Join(dir, "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: shop
description: a catalog loaded from CUE drives joins
catalog: shop.cue
steps:
  - select: orders.id
  - select: customers.name
assertions:
  - type: sql_equals
    sql: "SELECT orders.id, customers.name\nFROM orders\nINNER JOIN customers ON orders.customer_id = customers.id"
`), 0o644))

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte("categories: ["), 0o644))

	_, err := Run(&Scenario{Name: "x", Description: "y", Catalog: path, Steps: []Step{{Clear: true}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog")
}
