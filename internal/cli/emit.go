package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/blockql/internal/blockgraph"
	"github.com/roach88/blockql/internal/session"
	"github.com/roach88/blockql/internal/sqlgen"
)

// EmitOptions holds flags for the emit command.
type EmitOptions struct {
	*RootOptions
	Graph  GraphFlags
	Output string // write the resulting graph here
}

// EmitResult is the JSON payload of emit, and the details of a failed one.
type EmitResult struct {
	SQL          string   `json:"sql"`
	Diagnostic   string   `json:"diagnostic"`
	Tables       []string `json:"tables"`
	MissingJoins []string `json:"missingJoins,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit [graph.json]",
		Short: "Generate SQL from a block graph",
		Long: `Generate SQL from a serialized block graph, from flags, or both.

Flags are applied on top of the graph file. An empty SELECT emits a
placeholder comment and succeeds; a missing join rule exits with code 1.

Examples:
  blockql emit --columns rtable1.rcol11,ttable1.tcol11
  blockql emit --count rtable1.rcol11 --group-by rtable1.rcol12
  blockql emit query.json --where "'active'" -o query.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(opts, optionalArg(args), cmd)
		},
	}

	opts.Graph.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the graph to this file")

	return cmd
}

func runEmit(opts *EmitOptions, graphFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	env, err := openEnvironment(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	g, err := LoadGraph(env.session.Catalog(), graphFile, opts.Graph)
	if err != nil {
		return failLoad(formatter, err)
	}

	if opts.Output != "" {
		if err := writeGraph(opts.Output, g); err != nil {
			return failLoad(formatter, err)
		}
		formatter.VerboseLog("Wrote graph to %s", opts.Output)
	}

	return outputEmission(formatter, env.session, g)
}

// outputEmission emits g and writes the result. A missing join fails
// with ExitFailure after the SQL (which carries the error comment) is
// shown.
func outputEmission(formatter *OutputFormatter, s *session.Session, g *blockgraph.Graph) error {
	update := s.Evaluate(g)
	result := newEmitResult(update.Result, blockgraph.Validate(g).Warnings)

	if update.JoinErr != nil {
		if formatter.Format != "json" {
			fmt.Fprintln(formatter.Writer, result.SQL)
		}
		return formatter.Fail(ExitFailure, ErrCodeMissingJoin, update.JoinErr.Error(), result, update.JoinErr)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.SQL)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %s\n", w)
	}
	return nil
}

func newEmitResult(r sqlgen.Result, warnings []string) EmitResult {
	tables := r.Collection.Tables
	if tables == nil {
		tables = []string{}
	}
	return EmitResult{
		SQL:          r.SQL,
		Diagnostic:   r.Diagnostic.String(),
		Tables:       tables,
		MissingJoins: r.MissingJoins,
		Warnings:     warnings,
	}
}

// failLoad reports an input error as a command error.
func failLoad(formatter *OutputFormatter, err error) error {
	return formatter.Fail(ExitCommandError, loadErrorCode(err), err.Error(), nil, err)
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
