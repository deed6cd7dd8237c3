package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/blockql/internal/ir"
)

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// marshalColumns converts saved columns to canonical JSON TEXT for storage.
func marshalColumns(cols []ir.SavedColumn) (string, error) {
	arr := make([]any, len(cols))
	for i, c := range cols {
		arr[i] = map[string]any{
			"id":    c.ID,
			"name":  c.Name,
			"table": c.Table,
		}
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	return string(data), nil
}

// unmarshalColumns parses the columns TEXT column.
func unmarshalColumns(data string) ([]ir.SavedColumn, error) {
	if data == "" || data == "[]" {
		return []ir.SavedColumn{}, nil
	}
	var cols []ir.SavedColumn
	if err := json.Unmarshal([]byte(data), &cols); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}
	return cols, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at: %w", err)
	}
	return t, nil
}
