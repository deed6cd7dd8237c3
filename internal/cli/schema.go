package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/blockql/internal/catalog"
	"github.com/roach88/blockql/internal/joins"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the catalog tree",
		Long: `Show the categories, tables and columns available to column blocks.

--search keeps only columns whose name contains the term (case-insensitive),
with their tables and categories.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, search, cmd)
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "filter columns by name")

	return cmd
}

func runSchema(opts *RootOptions, search string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	env, err := openEnvironment(opts, cmd, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	nodes := env.session.Catalog().Filter(search)
	if nodes == nil {
		nodes = []catalog.SchemaNode{}
	}

	if formatter.Format == "json" {
		return formatter.Success(nodes)
	}
	if len(nodes) == 0 {
		fmt.Fprintf(formatter.Writer, "No columns match %q\n", search)
		return nil
	}
	writeTree(formatter.Writer, nodes, 0)
	return nil
}

// writeTree prints nodes indented two spaces per level.
func writeTree(w io.Writer, nodes []catalog.SchemaNode, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), n.Name)
		writeTree(w, n.Children, depth+1)
	}
}

// NewJoinsCommand creates the joins command.
func NewJoinsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "joins",
		Short:         "List the join rules",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoins(rootOpts, cmd)
		},
	}
}

func runJoins(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	env, err := openEnvironment(opts, cmd, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	rules := env.session.Catalog().Rules()
	if rules == nil {
		rules = []joins.Rule{}
	}
	if formatter.Format == "json" {
		return formatter.Success(rules)
	}

	t := newTable(formatter.Writer)
	t.AppendHeader(table.Row{"Left", "Right", "On"})
	for _, r := range rules {
		t.AppendRow(table.Row{r.Left, r.Right, r.On})
	}
	t.Render()
	return nil
}

// newTable returns a table writer rendering to w.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}
