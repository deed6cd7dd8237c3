package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted editing session.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is an optional CUE catalog file. Empty uses the built-in
	// catalog. Resolved relative to the scenario file by
	// LoadScenarioWithBasePath.
	Catalog string `yaml:"catalog,omitempty"`

	// Steps are the editor actions, applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the session after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one editor action. Exactly one action field must be set.
type Step struct {
	// Select checks a column ("table.column") in the schema tree.
	Select string `yaml:"select,omitempty"`

	// Deselect unchecks a column.
	Deselect string `yaml:"deselect,omitempty"`

	// Count appends COUNT(column) to the SELECT chain. "*" counts rows.
	Count string `yaml:"count,omitempty"`

	// Sum appends SUM(column) to the SELECT chain.
	Sum string `yaml:"sum,omitempty"`

	// Where sets a raw text block as the WHERE condition.
	Where string `yaml:"where,omitempty"`

	// GroupBy appends a column to GROUP BY.
	GroupBy string `yaml:"group_by,omitempty"`

	// Save stores the current graph under this name.
	Save string `yaml:"save,omitempty"`

	// Load replaces the graph with the saved query of this ID.
	Load string `yaml:"load,omitempty"`

	// Clear empties the workspace.
	Clear bool `yaml:"clear,omitempty"`

	// Expect checks the emission that follows this step.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected emission after a step.
// Only the fields that are set are checked.
type ExpectClause struct {
	SQL          string   `yaml:"sql,omitempty"`
	SQLContains  []string `yaml:"sql_contains,omitempty"`
	Diagnostic   string   `yaml:"diagnostic,omitempty"`
	MissingJoins []string `yaml:"missing_joins,omitempty"`

	// Error is a substring of the error the step must fail with.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final session state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "sql_equals": final SQL equals SQL
	// - "sql_contains": final SQL contains every entry of Contains
	// - "diagnostic": final diagnostic equals Diagnostic
	// - "tables": collected tables equal Tables
	// - "saved_count": repository holds Count queries
	// - "preview_rows": preview page Page holds Count rows
	Type string `yaml:"type"`

	SQL        string   `yaml:"sql,omitempty"`
	Contains   []string `yaml:"contains,omitempty"`
	Diagnostic string   `yaml:"diagnostic,omitempty"`
	Tables     []string `yaml:"tables,omitempty"`
	Count      int      `yaml:"count,omitempty"`
	Page       int      `yaml:"page,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLEquals   = "sql_equals"
	AssertSQLContains = "sql_contains"
	AssertDiagnostic  = "diagnostic"
	AssertTables      = "tables"
	AssertSavedCount  = "saved_count"
	AssertPreviewRows = "preview_rows"
)

// Action returns the name and argument of the step's action.
func (s Step) Action() (name, arg string) {
	switch {
	case s.Select != "":
		return "select", s.Select
	case s.Deselect != "":
		return "deselect", s.Deselect
	case s.Count != "":
		return "count", s.Count
	case s.Sum != "":
		return "sum", s.Sum
	case s.Where != "":
		return "where", s.Where
	case s.GroupBy != "":
		return "group_by", s.GroupBy
	case s.Save != "":
		return "save", s.Save
	case s.Load != "":
		return "load", s.Load
	case s.Clear:
		return "clear", ""
	}
	return "", ""
}

func (s Step) actionCount() int {
	n := 0
	for _, set := range []bool{
		s.Select != "", s.Deselect != "", s.Count != "", s.Sum != "",
		s.Where != "", s.GroupBy != "", s.Save != "", s.Load != "", s.Clear,
	} {
		if set {
			n++
		}
	}
	return n
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the catalog path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) && basePath != "" {
		scenario.Catalog = filepath.Join(basePath, scenario.Catalog)
	}
	if scenario.Catalog != "" {
		if _, err := os.Stat(scenario.Catalog); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: catalog file not found: %s", scenario.Catalog)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.actionCount() {
		case 0:
			return fmt.Errorf("steps[%d]: an action is required", i)
		case 1:
		default:
			return fmt.Errorf("steps[%d]: only one action per step", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSQLEquals:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for sql_equals", index)
		}
	case AssertSQLContains:
		if len(a.Contains) == 0 {
			return fmt.Errorf("assertions[%d]: contains list is required for sql_contains", index)
		}
	case AssertDiagnostic:
		if a.Diagnostic == "" {
			return fmt.Errorf("assertions[%d]: diagnostic is required for diagnostic", index)
		}
	case AssertTables:
		if a.Tables == nil {
			return fmt.Errorf("assertions[%d]: tables list is required for tables", index)
		}
	case AssertSavedCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for saved_count", index)
		}
	case AssertPreviewRows:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for preview_rows", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
