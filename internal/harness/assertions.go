package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/blockql/internal/session"
	"github.com/roach88/blockql/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Step, event.Action, event.Arg, event.Diagnostic)
		}
	}
	return buf.String()
}

// AssertionContext carries what assertions need beyond the trace.
type AssertionContext struct {
	Ctx     context.Context
	Session *session.Session
	Store   *store.Store
}

func assertSQLEquals(result *Result, assertion Assertion) error {
	actual := result.Last().SQL
	if actual == assertion.SQL {
		return nil
	}
	return &AssertionError{
		Type:     AssertSQLEquals,
		Expected: fmt.Sprintf("%q", assertion.SQL),
		Actual:   fmt.Sprintf("%q", actual),
		Trace:    result.Trace,
	}
}

func assertSQLContains(result *Result, assertion Assertion) error {
	actual := result.Last().SQL
	var missing []string
	for _, fragment := range assertion.Contains {
		if !strings.Contains(actual, fragment) {
			missing = append(missing, fragment)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertSQLContains,
		Expected: fmt.Sprintf("sql containing %q", missing),
		Actual:   fmt.Sprintf("%q", actual),
		Trace:    result.Trace,
	}
}

func assertDiagnostic(result *Result, assertion Assertion) error {
	actual := result.Last().Diagnostic
	if actual == assertion.Diagnostic {
		return nil
	}
	return &AssertionError{
		Type:     AssertDiagnostic,
		Expected: assertion.Diagnostic,
		Actual:   actual,
		Trace:    result.Trace,
	}
}

func assertTables(actx *AssertionContext, assertion Assertion) error {
	actual := actx.Session.Current().Result.Collection.Tables
	if slices.Equal(actual, assertion.Tables) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTables,
		Expected: fmt.Sprintf("%v", assertion.Tables),
		Actual:   fmt.Sprintf("%v", actual),
	}
}

func assertSavedCount(actx *AssertionContext, assertion Assertion) error {
	queries, err := actx.Store.List(actx.Ctx)
	if err != nil {
		return fmt.Errorf("saved_count: %w", err)
	}
	if len(queries) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertSavedCount,
		Expected: fmt.Sprintf("%d saved queries", assertion.Count),
		Actual:   fmt.Sprintf("%d saved queries", len(queries)),
	}
}

func assertPreviewRows(actx *AssertionContext, assertion Assertion) error {
	page := assertion.Page
	if page == 0 {
		page = 1
	}
	p, err := actx.Session.Preview(actx.Ctx, page)
	if err != nil {
		return &AssertionError{
			Type:     AssertPreviewRows,
			Expected: fmt.Sprintf("%d rows on page %d", assertion.Count, page),
			Actual:   err.Error(),
		}
	}
	if len(p.Rows) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertPreviewRows,
		Expected: fmt.Sprintf("%d rows on page %d", assertion.Count, page),
		Actual:   fmt.Sprintf("%d rows", len(p.Rows)),
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSQLEquals:
			err = assertSQLEquals(result, assertion)
		case AssertSQLContains:
			err = assertSQLContains(result, assertion)
		case AssertDiagnostic:
			err = assertDiagnostic(result, assertion)
		case AssertTables, AssertSavedCount, AssertPreviewRows:
			if actx == nil || actx.Session == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires session context", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertTables:
				err = assertTables(actx, assertion)
			case AssertSavedCount:
				err = assertSavedCount(actx, assertion)
			default:
				err = assertPreviewRows(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
