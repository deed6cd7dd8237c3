package cli

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/blockql/internal/preview"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	Graph GraphFlags
	Page  int
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview [graph.json]",
		Short: "Show mocked rows for a query",
		Long: `Validate the generated SQL and show one page of mocked result rows.

No database is contacted: rows are generated deterministically from the
SQL text after a configurable delay (preview_delay_ms).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(opts, optionalArg(args), cmd)
		},
	}

	opts.Graph.register(cmd.Flags())
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().Int("page-size", preview.DefaultPageSize, "rows per page")
	cmd.Flags().Int("preview-delay-ms", 0, "simulated query latency in milliseconds")

	return cmd
}

func runPreview(opts *PreviewOptions, graphFile string, cmd *cobra.Command) error {
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

	page, err := env.session.PreviewGraph(cmd.Context(), g, opts.Page)
	if err != nil {
		var verr *preview.ValidationError
		switch {
		case errors.As(err, &verr):
			return formatter.Fail(ExitFailure, ErrCodePreview, verr.Reason, verr, err)
		case errors.Is(err, preview.ErrPageOutOfRange):
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil, err)
		default:
			return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil, err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(page)
	}
	renderPage(formatter, page)
	return nil
}

// renderPage prints a page as a table with a position footer.
func renderPage(formatter *OutputFormatter, page preview.Page) {
	t := newTable(formatter.Writer)

	header := make(table.Row, len(page.Columns))
	for i, col := range page.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range page.Rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		t.AppendRow(r)
	}
	t.Render()

	if page.TotalRows == 0 {
		fmt.Fprintln(formatter.Writer, "(0 rows)")
		return
	}
	fmt.Fprintf(formatter.Writer, "Page %d of %d (rows %d-%d of %d)\n",
		page.Number, page.TotalPages, page.Start+1, page.End, page.TotalRows)
}
