package catalog

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/blockql/internal/joins"
)

// LoadFile reads and compiles a CUE catalog file.
func LoadFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(src, path)
}

// Parse compiles CUE source into a Catalog. filename is used in error positions.
func Parse(src []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return Compile(v)
}

// Compile converts a CUE value into a Catalog.
//
// The value must have a "category" struct. The "join" list is optional; a
// catalog without joins can only emit single-table queries.
func Compile(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	catVal := v.LookupPath(cue.ParsePath("category"))
	if !catVal.Exists() {
		return nil, &CatalogError{
			Field:   "category",
			Message: "at least one category is required",
			Pos:     v.Pos(),
		}
	}

	roots, tables, err := parseCategories(catVal)
	if err != nil {
		return nil, err
	}

	var rules []joins.Rule
	joinVal := v.LookupPath(cue.ParsePath("join"))
	if joinVal.Exists() {
		rules, err = parseJoins(joinVal, tables)
		if err != nil {
			return nil, err
		}
	}

	return New(roots, rules), nil
}

func parseCategories(v cue.Value) ([]SchemaNode, map[string]bool, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}

	var roots []SchemaNode
	tables := make(map[string]bool)
	for iter.Next() {
		name := iter.Label()
		catVal := iter.Value()

		id := strings.ToLower(name)
		if idVal := catVal.LookupPath(cue.ParsePath("id")); idVal.Exists() {
			id, err = idVal.String()
			if err != nil {
				return nil, nil, formatCUEError(err)
			}
		}

		tableVal := catVal.LookupPath(cue.ParsePath("table"))
		if !tableVal.Exists() {
			return nil, nil, &CatalogError{
				Field:   "category." + name,
				Message: "at least one table is required",
				Pos:     catVal.Pos(),
			}
		}

		tableIter, err := tableVal.Fields()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}

		category := SchemaNode{ID: id, Name: name, Type: NodeCategory}
		for tableIter.Next() {
			tableName := tableIter.Label()
			if tables[tableName] {
				return nil, nil, &CatalogError{
					Field:   "table." + tableName,
					Message: "table declared more than once",
					Pos:     tableIter.Value().Pos(),
				}
			}
			tables[tableName] = true

			columns, err := parseColumns(tableName, tableIter.Value())
			if err != nil {
				return nil, nil, err
			}
			category.Children = append(category.Children, tableNode(tableName, columns...))
		}
		roots = append(roots, category)
	}

	if len(roots) == 0 {
		return nil, nil, &CatalogError{
			Field:   "category",
			Message: "at least one category is required",
			Pos:     v.Pos(),
		}
	}
	return roots, tables, nil
}

func parseColumns(table string, v cue.Value) ([]string, error) {
	colVal := v.LookupPath(cue.ParsePath("column"))
	if !colVal.Exists() {
		return nil, &CatalogError{
			Field:   "table." + table,
			Message: "column list is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := colVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var columns []string
	seen := make(map[string]bool)
	for iter.Next() {
		col, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if seen[col] {
			return nil, &CatalogError{
				Field:   "table." + table,
				Message: fmt.Sprintf("duplicate column %q", col),
				Pos:     iter.Value().Pos(),
			}
		}
		seen[col] = true
		columns = append(columns, col)
	}

	if len(columns) == 0 {
		return nil, &CatalogError{
			Field:   "table." + table,
			Message: "at least one column is required",
			Pos:     colVal.Pos(),
		}
	}
	return columns, nil
}

func parseJoins(v cue.Value, tables map[string]bool) ([]joins.Rule, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []joins.Rule
	for iter.Next() {
		var rule joins.Rule
		if err := iter.Value().Decode(&rule); err != nil {
			return nil, formatCUEError(err)
		}
		for _, table := range []string{rule.Left, rule.Right} {
			if !tables[table] {
				return nil, &CatalogError{
					Field:   "join",
					Message: fmt.Sprintf("unknown table %q", table),
					Pos:     iter.Value().Pos(),
				}
			}
		}
		if strings.TrimSpace(rule.On) == "" {
			return nil, &CatalogError{
				Field:   "join",
				Message: fmt.Sprintf("empty condition for %s and %s", rule.Left, rule.Right),
				Pos:     iter.Value().Pos(),
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// CatalogError is a catalog definition error with source position.
type CatalogError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CatalogError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CatalogError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
