// Package harness runs scripted editing scenarios against a blockql session.
//
// A scenario replays what a user does in the editor (check columns, drop
// aggregation and condition blocks, save and reload queries) and checks
// the SQL emitted after each step.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	catalog: catalog.cue          # optional, relative to the scenario file
//	steps:
//	  - select: rtable1.rcol11
//	  - select: ttable1.tcol11
//	    expect:
//	      diagnostic: none
//	      sql_contains: ["INNER JOIN ttable1"]
//	  - count: rtable2.rcol21     # or "*"
//	  - where: "'active'"
//	  - save: my query
//	assertions:
//	  - type: sql_equals
//	    sql: "SELECT ..."
//	  - type: saved_count
//	    count: 1
//
// Each step performs exactly one action: select, deselect, count, sum,
// where, group_by, save, load or clear.
//
// # Assertion Types
//
//   - sql_equals: The final SQL matches exactly
//   - sql_contains: The final SQL contains every listed fragment
//   - diagnostic: The final emission has the given diagnostic
//   - tables: The SELECT chain reads exactly these tables, in order
//   - saved_count: The repository holds N saved queries
//   - preview_rows: Previewing the final SQL yields N rows on the given page
//
// # Deterministic Testing
//
// The harness uses:
//   - Sequential saved-query IDs ("query-1", "query-2", ...)
//   - A deterministic clock (testutil.DeterministicClock)
//   - An in-memory SQLite store (isolated per run)
//   - A mock preview executor with no delay
//
// This ensures identical traces across runs for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/join.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
