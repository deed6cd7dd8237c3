package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/blockql/internal/blockgraph"
	"github.com/roach88/blockql/internal/sqlgen"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	Blocks       int      `json:"blocks"`
	Diagnostic   string   `json:"diagnostic"`
	Warnings     []string `json:"warnings,omitempty"`
	MissingJoins []string `json:"missingJoins,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph.json>",
		Short: "Check a serialized block graph",
		Long: `Check a serialized block graph without printing SQL.

Reports dangling block references, blocks of the wrong kind in a socket,
aggregations without a column and missing join rules. The emitter
tolerates the first three; validate makes them visible.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, graphFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	env, err := openEnvironment(opts, cmd, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	g, err := LoadGraph(env.session.Catalog(), graphFile, GraphFlags{})
	if err != nil {
		return failLoad(formatter, err)
	}
	formatter.VerboseLog("Loaded %d block(s) from %s", g.Len(), graphFile)

	checked := blockgraph.Validate(g)
	update := env.session.Evaluate(g)
	result := ValidationResult{
		Valid:        checked.Valid && update.JoinErr == nil,
		Blocks:       g.Len(),
		Diagnostic:   update.Result.Diagnostic.String(),
		Warnings:     checked.Warnings,
		MissingJoins: update.Result.MissingJoins,
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	msg := fmt.Sprintf("✓ Graph valid (%d block(s))", result.Blocks)
	if result.Diagnostic == sqlgen.DiagnosticEmptyQuery.String() {
		msg += ", nothing connected to SELECT"
	}
	fmt.Fprintln(formatter.Writer, msg)
	return nil
}

// outputValidationErrors outputs validation problems. Both warnings and
// missing joins are diagnostic failures (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	code := ErrCodeGraphWarnings
	if len(result.Warnings) == 0 {
		code = ErrCodeMissingJoin
	}
	problems := len(result.Warnings) + len(result.MissingJoins)
	message := fmt.Sprintf("validation failed with %d problem(s)", problems)

	if formatter.Format == "json" {
		return formatter.Fail(ExitFailure, code, message, result, nil)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", ErrCodeGraphWarnings, w)
	}
	for _, pair := range result.MissingJoins {
		fmt.Fprintf(formatter.Writer, "  %s: join not defined between tables: %s\n", ErrCodeMissingJoin, pair)
	}
	fmt.Fprintln(formatter.Writer)

	return WrapExitError(ExitFailure, message, nil).reported()
}
