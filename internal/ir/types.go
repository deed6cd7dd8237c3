package ir

import (
	"strings"
	"time"
)

// ColumnRef identifies one selectable column.
type ColumnRef struct {
	ColumnName string `json:"column"`
	TableName  string `json:"table"`
}

// NewColumnRef creates a ColumnRef from a column and table name.
func NewColumnRef(column, table string) ColumnRef {
	return ColumnRef{ColumnName: column, TableName: table}
}

// ParseColumnRef parses "table.column" into a ColumnRef.
// A value without a dot yields a ColumnRef with an empty table.
func ParseColumnRef(s string) ColumnRef {
	s = strings.TrimSpace(s)
	table, column, ok := strings.Cut(s, ".")
	if !ok {
		return ColumnRef{ColumnName: s}
	}
	return ColumnRef{ColumnName: column, TableName: table}
}

// ID returns the tree identifier "table.column".
func (c ColumnRef) ID() string {
	if c.TableName == "" {
		return c.ColumnName
	}
	return c.TableName + "." + c.ColumnName
}

// String implements fmt.Stringer.
func (c ColumnRef) String() string {
	return c.ID()
}

// SavedColumn is the persisted form of a selected column.
type SavedColumn struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Table string `json:"table"`
}

// NewSavedColumn converts a ColumnRef to its persisted form.
func NewSavedColumn(c ColumnRef) SavedColumn {
	return SavedColumn{ID: c.ID(), Name: c.ColumnName, Table: c.TableName}
}

// Ref converts the persisted column back to a ColumnRef.
func (c SavedColumn) Ref() ColumnRef {
	return ColumnRef{ColumnName: c.Name, TableName: c.Table}
}

// SavedQuery is a named query captured on explicit save.
//
// BlockData holds the serialized block graph. When it is empty the graph is
// reconstructed from Columns.
type SavedQuery struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	SQL       string        `json:"sql"`
	Columns   []SavedColumn `json:"columns"`
	BlockData string        `json:"blockData,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ColumnRefs returns the saved columns as ColumnRefs, in saved order.
func (q SavedQuery) ColumnRefs() []ColumnRef {
	refs := make([]ColumnRef, len(q.Columns))
	for i, c := range q.Columns {
		refs[i] = c.Ref()
	}
	return refs
}
