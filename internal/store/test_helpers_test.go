package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/blockql/internal/ir"
	"github.com/roach88/blockql/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestQuery creates a saved query selecting one column, created
// offset seconds after testutil.Epoch.
func createTestQuery(id, name string, offset int) ir.SavedQuery {
	return ir.SavedQuery{
		ID:   id,
		Name: name,
		SQL:  "SELECT rtable1.rcol11\nFROM rtable1",
		Columns: []ir.SavedColumn{
			ir.NewSavedColumn(ir.NewColumnRef("rcol11", "rtable1")),
		},
		BlockData: `{"nodes":[],"query":{"group_by":[],"select":[],"where":0},"version":1}`,
		CreatedAt: testutil.Epoch.Add(time.Duration(offset) * time.Second),
	}
}
