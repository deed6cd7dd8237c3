package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/blockql/internal/ir"
	"github.com/roach88/blockql/internal/session"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	Graph GraphFlags
	Name  string
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save --name <name> [graph.json]",
		Short: "Save a query",
		Long: `Save a block graph, its SQL and its selected columns under a name.

Without --database (or database in the config file) saved queries only
live as long as the process.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(opts, optionalArg(args), cmd)
		},
	}

	opts.Graph.register(cmd.Flags())
	cmd.Flags().StringVar(&opts.Name, "name", "", "query name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runSave(opts *SaveOptions, graphFile string, cmd *cobra.Command) error {
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

	q, err := env.session.SaveGraph(cmd.Context(), opts.Name, g)
	if err != nil {
		if errors.Is(err, session.ErrEmptyName) {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil, err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(q)
	}
	fmt.Fprintf(formatter.Writer, "✓ Saved %q as %s\n", q.Name, q.ID)
	fmt.Fprintln(formatter.Writer, q.SQL)
	return nil
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List saved queries",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	env, err := openEnvironment(opts, cmd, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	queries, err := env.session.List(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
	}
	if queries == nil {
		queries = []ir.SavedQuery{}
	}

	if formatter.Format == "json" {
		return formatter.Success(queries)
	}
	if len(queries) == 0 {
		fmt.Fprintln(formatter.Writer, "No saved queries.")
		return nil
	}

	t := newTable(formatter.Writer)
	t.AppendHeader(table.Row{"ID", "Name", "Created", "Columns"})
	for _, q := range queries {
		t.AppendRow(table.Row{q.ID, q.Name, q.CreatedAt.UTC().Format("2006-01-02 15:04:05"), savedColumnList(q)})
	}
	t.Render()
	return nil
}

func savedColumnList(q ir.SavedQuery) string {
	ids := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		ids[i] = c.ID
	}
	return strings.Join(ids, ", ")
}

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Output string
}

// loadResult is the JSON payload of load.
type loadResult struct {
	Query ir.SavedQuery `json:"query"`
	EmitResult
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <id>",
		Short: "Rebuild a saved query",
		Long: `Rebuild the block graph of a saved query and print its SQL.

The graph is restored from the saved block data; queries saved without
block data are rebuilt from their column list.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the rebuilt graph to this file")

	return cmd
}

func runLoad(opts *LoadOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	env, err := openEnvironment(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	q, update, err := env.session.Load(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrQueryNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil, err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
	}

	g := env.session.Graph()
	if opts.Output != "" {
		if err := writeGraph(opts.Output, g); err != nil {
			return failLoad(formatter, err)
		}
		formatter.VerboseLog("Wrote graph to %s", opts.Output)
	}

	result := loadResult{Query: q, EmitResult: newEmitResult(update.Result, nil)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "%s (%s)\n", q.Name, q.ID)
	fmt.Fprintln(formatter.Writer, result.SQL)
	return nil
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a saved query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}
}

func runDelete(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	env, err := openEnvironment(opts, cmd, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.session.Delete(cmd.Context(), id); err != nil {
		if errors.Is(err, session.ErrQueryNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil, err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"id": id})
	}
	fmt.Fprintf(formatter.Writer, "✓ Deleted %s\n", id)
	return nil
}
