package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/roach88/blockql/internal/blockgraph"
	"github.com/roach88/blockql/internal/catalog"
)

// LoadError represents an error that occurred while loading command input.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// loadErrorCode returns the LoadError code of err, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	var graphErr *blockgraph.GraphError
	if errors.As(err, &graphErr) {
		return ErrCodeInvalidGraph
	}
	return ErrCodeGeneric
}

// GraphFlags builds a graph from the command line instead of, or on top
// of, a serialized graph file.
type GraphFlags struct {
	Columns []string // selected columns, "table.column"
	Count   []string // COUNT aggregations, a column ID or "*"
	Sum     []string // SUM aggregations
	Where   string   // WHERE text block
	GroupBy []string // GROUP BY columns
}

// register adds the graph flags to fs.
func (f *GraphFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVar(&f.Columns, "columns", nil, "columns to select (table.column,...)")
	fs.StringSliceVar(&f.Count, "count", nil, "COUNT aggregation over a column, or *")
	fs.StringSliceVar(&f.Sum, "sum", nil, "SUM aggregation over a column")
	fs.StringVar(&f.Where, "where", "", "WHERE condition text")
	fs.StringSliceVar(&f.GroupBy, "group-by", nil, "GROUP BY columns")
}

// LoadGraph reads the serialized graph at path (if any) and applies flags
// to it. With neither, the graph is empty.
func LoadGraph(cat *catalog.Catalog, path string, flags GraphFlags) (*blockgraph.Graph, error) {
	g := blockgraph.New()
	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("graph file not found: %s", path)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeReadFailed, Message: "reading graph file", Err: err}
		}
		g, err = blockgraph.Unmarshal(data)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeInvalidGraph, Message: fmt.Sprintf("invalid graph in %s", path), Err: err}
		}
	}

	if err := applyGraphFlags(cat, g, flags); err != nil {
		return nil, err
	}
	return g, nil
}

func applyGraphFlags(cat *catalog.Catalog, g *blockgraph.Graph, flags GraphFlags) error {
	column := func(id string) (blockgraph.NodeID, error) {
		ref, ok := cat.Column(strings.TrimSpace(id))
		if !ok {
			return blockgraph.NoNode, &LoadError{Code: ErrCodeUnknownColumn, Message: fmt.Sprintf("unknown column %q", id)}
		}
		return g.AddColumn(ref), nil
	}

	for _, id := range flags.Columns {
		ref, ok := cat.Column(strings.TrimSpace(id))
		if !ok {
			return &LoadError{Code: ErrCodeUnknownColumn, Message: fmt.Sprintf("unknown column %q", id)}
		}
		g.EnsureColumn(ref)
	}

	aggregate := func(fn blockgraph.AggFunc, ids []string) error {
		for _, id := range ids {
			arg := blockgraph.NoNode
			if strings.TrimSpace(id) != "*" {
				var err error
				if arg, err = column(id); err != nil {
					return err
				}
			}
			agg, err := g.AddAggregation(fn, arg)
			if err != nil {
				return err
			}
			if err := g.AppendSelect(agg); err != nil {
				return err
			}
		}
		return nil
	}
	if err := aggregate(blockgraph.AggCount, flags.Count); err != nil {
		return err
	}
	if err := aggregate(blockgraph.AggSum, flags.Sum); err != nil {
		return err
	}

	if flags.Where != "" {
		if err := g.SetWhere(g.AddText(flags.Where)); err != nil {
			return err
		}
	}

	for _, id := range flags.GroupBy {
		col, err := column(id)
		if err != nil {
			return err
		}
		if err := g.AppendGroupBy(col); err != nil {
			return err
		}
	}
	return nil
}

// loadCatalog loads the CUE catalog at path, or the built-in catalog when
// path is empty.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog file not found: %s", path)}
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeCatalog, Message: "invalid catalog", Err: err}
	}
	return cat, nil
}

// writeGraph writes the serialized graph to path.
func writeGraph(path string, g *blockgraph.Graph) error {
	data, err := g.Marshal()
	if err != nil {
		return &LoadError{Code: ErrCodeInvalidGraph, Message: "serializing graph", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing %s", path), Err: err}
	}
	return nil
}
