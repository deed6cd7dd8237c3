package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/blockql/internal/blockgraph"
	"github.com/roach88/blockql/internal/catalog"
	"github.com/roach88/blockql/internal/preview"
	"github.com/roach88/blockql/internal/session"
	"github.com/roach88/blockql/internal/store"
	"github.com/roach88/blockql/internal/testutil"
)

// Harness executes scenario steps against one session.
type Harness struct {
	store   *store.Store
	session *session.Session
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the catalog
// 3. Execute steps, checking expect clauses
// 4. Evaluate assertions against the final session
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cat := catalog.Default()
	if scenario.Catalog != "" {
		cat, err = catalog.LoadFile(scenario.Catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	clock := testutil.NewDeterministicClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	h := &Harness{
		store: st,
		session: session.New(session.Options{
			Catalog:    cat,
			Repository: st,
			Executor:   &preview.MockExecutor{Delay: -1, Now: clock.Peek, Logger: logger},
			IDs:        testutil.NewSequentialIDs("query"),
			Now:        clock.Now,
			Logger:     logger,
		}),
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Session: h.session,
		Store:   h.store,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep applies one step and records its emission. Step failures
// are recorded on result rather than aborting the run.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) {
	action, arg := step.Action()
	update, err := h.apply(ctx, step, result)

	event := TraceEvent{Step: i, Action: action, Arg: arg}
	if err == nil {
		event.SQL = update.Result.SQL
		event.Diagnostic = update.Result.Diagnostic.String()
		event.Missing = update.Result.MissingJoins
	} else {
		// Failed steps leave the graph unchanged.
		current := h.session.Current()
		event.SQL = current.Result.SQL
		event.Diagnostic = current.Result.Diagnostic.String()
		event.Missing = current.Result.MissingJoins
	}
	result.AddTrace(event)

	h.logger.Info("step executed", "step", i, "action", action, "arg", arg, "error", err)

	for _, msg := range checkExpect(i, step.Expect, event, err) {
		result.AddError(msg)
	}
}

func (h *Harness) apply(ctx context.Context, step Step, result *Result) (session.Update, error) {
	s := h.session
	switch {
	case step.Select != "":
		return s.SetColumnSelected(step.Select, true)
	case step.Deselect != "":
		return s.SetColumnSelected(step.Deselect, false)
	case step.Count != "":
		return h.aggregate(blockgraph.AggCount, step.Count)
	case step.Sum != "":
		return h.aggregate(blockgraph.AggSum, step.Sum)
	case step.Where != "":
		return s.Mutate(func(g *blockgraph.Graph) error {
			return g.SetWhere(g.AddText(step.Where))
		})
	case step.GroupBy != "":
		ref, ok := s.Catalog().Column(step.GroupBy)
		if !ok {
			return session.Update{}, fmt.Errorf("%w: %s", session.ErrUnknownColumn, step.GroupBy)
		}
		return s.Mutate(func(g *blockgraph.Graph) error {
			return g.AppendGroupBy(g.AddColumn(ref))
		})
	case step.Save != "":
		q, err := s.Save(ctx, step.Save)
		if err != nil {
			return session.Update{}, err
		}
		result.Saved = append(result.Saved, q.ID)
		return s.Current(), nil
	case step.Load != "":
		_, update, err := s.Load(ctx, step.Load)
		return update, err
	case step.Clear:
		return s.Replace(blockgraph.New()), nil
	}
	return session.Update{}, errors.New("step has no action")
}

func (h *Harness) aggregate(fn blockgraph.AggFunc, column string) (session.Update, error) {
	s := h.session
	return s.Mutate(func(g *blockgraph.Graph) error {
		arg := blockgraph.NoNode
		if column != "*" {
			ref, ok := s.Catalog().Column(column)
			if !ok {
				return fmt.Errorf("%w: %s", session.ErrUnknownColumn, column)
			}
			arg = g.AddColumn(ref)
		}
		agg, err := g.AddAggregation(fn, arg)
		if err != nil {
			return err
		}
		return g.AppendSelect(agg)
	})
}

// checkExpect compares a step's event against its expect clause.
func checkExpect(i int, expect *ExpectClause, event TraceEvent, err error) []string {
	if expect == nil {
		if err != nil {
			return []string{fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, event.Action, err)}
		}
		return nil
	}

	var errs []string
	if expect.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("steps[%d] %s: expected error containing %q, got none", i, event.Action, expect.Error)}
		}
		if !strings.Contains(err.Error(), expect.Error) {
			errs = append(errs, fmt.Sprintf("steps[%d] %s: expected error containing %q, got %q", i, event.Action, expect.Error, err.Error()))
		}
	} else if err != nil {
		return []string{fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, event.Action, err)}
	}

	if expect.SQL != "" && event.SQL != expect.SQL {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: sql mismatch\n  Expected: %q\n  Actual: %q", i, event.Action, expect.SQL, event.SQL))
	}
	for _, fragment := range expect.SQLContains {
		if !strings.Contains(event.SQL, fragment) {
			errs = append(errs, fmt.Sprintf("steps[%d] %s: sql does not contain %q", i, event.Action, fragment))
		}
	}
	if expect.Diagnostic != "" && event.Diagnostic != expect.Diagnostic {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: diagnostic = %s, expected %s", i, event.Action, event.Diagnostic, expect.Diagnostic))
	}
	if expect.MissingJoins != nil && !slices.Equal(event.Missing, expect.MissingJoins) {
		errs = append(errs, fmt.Sprintf("steps[%d] %s: missing joins = %v, expected %v", i, event.Action, event.Missing, expect.MissingJoins))
	}
	return errs
}
