package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/blockql/internal/ir"
	"github.com/roach88/blockql/internal/session"
	"github.com/roach88/blockql/internal/testutil"
)

func TestSave_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestQuery("q-1", "risk columns", 0)
	want.Columns = append(want.Columns, ir.NewSavedColumn(ir.NewColumnRef("tcol12", "ttable1")))

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := s.Get(ctx, "q-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != want.Name || got.SQL != want.SQL || got.BlockData != want.BlockData {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if len(got.Columns) != 2 || got.Columns[1] != want.Columns[1] {
		t.Errorf("Columns = %+v, want %+v", got.Columns, want.Columns)
	}
}

func TestSave_StoresCanonicalColumns(t *testing.T) {
	s := createTestStore(t)

	if err := s.Save(context.Background(), createTestQuery("q-1", "a", 0)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	var raw string
	if err := s.db.QueryRow("SELECT columns FROM saved_queries WHERE id = 'q-1'").Scan(&raw); err != nil {
		t.Fatalf("select columns: %v", err)
	}
	want := `[{"id":"rtable1.rcol11","name":"rcol11","table":"rtable1"}]`
	if raw != want {
		t.Errorf("columns = %s, want %s", raw, want)
	}
}

func TestSave_ReplacesByIDAndKeepsCreatedAt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, createTestQuery("q-1", "first", 0)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := s.Save(ctx, createTestQuery("q-1", "renamed", 60)); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List() returned %d queries, want 1", len(list))
	}
	if list[0].Name != "renamed" {
		t.Errorf("Name = %q, want %q", list[0].Name, "renamed")
	}
	if !list[0].CreatedAt.Equal(testutil.Epoch) {
		t.Errorf("CreatedAt = %v, want %v", list[0].CreatedAt, testutil.Epoch)
	}
}

func TestSave_EmptyID(t *testing.T) {
	s := createTestStore(t)

	if err := s.Save(context.Background(), ir.SavedQuery{Name: "x"}); err == nil {
		t.Error("expected error for empty id, got nil")
	}
}

func TestSave_NoColumns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	q := createTestQuery("q-1", "empty", 0)
	q.Columns = nil

	if err := s.Save(ctx, q); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	got, err := s.Get(ctx, "q-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Columns == nil || len(got.Columns) != 0 {
		t.Errorf("Columns = %#v, want empty non-nil slice", got.Columns)
	}
}

func TestList_OrderedByCreatedAtThenID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, q := range []ir.SavedQuery{
		createTestQuery("c", "third", 10),
		createTestQuery("b", "second", 0),
		createTestQuery("a", "first", 0),
		// Sub-second ordering must survive the text encoding.
		createTestQuery("d", "fourth", 10),
	} {
		if q.ID == "d" {
			q.CreatedAt = q.CreatedAt.Add(500 * time.Millisecond)
		}
		if err := s.Save(ctx, q); err != nil {
			t.Fatalf("Save(%s) failed: %v", q.ID, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	var ids []string
	for _, q := range list {
		ids = append(ids, q.ID)
	}
	want := []string{"a", "b", "c", "d"}
	if len(ids) != len(want) {
		t.Fatalf("List() ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("List() ids = %v, want %v", ids, want)
		}
	}
}

func TestList_Empty(t *testing.T) {
	s := createTestStore(t)

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", list)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, session.ErrQueryNotFound) {
		t.Errorf("Get() error = %v, want ErrQueryNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, createTestQuery("q-1", "a", 0)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := s.Delete(ctx, "q-1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := s.Delete(ctx, "q-1"); !errors.Is(err, session.ErrQueryNotFound) {
		t.Errorf("second Delete() error = %v, want ErrQueryNotFound", err)
	}
}

func TestStore_BacksSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess := session.New(session.Options{
		Repository: s,
		IDs:        testutil.NewSequentialIDs("q"),
		Now:        testutil.NewDeterministicClock().Now,
	})
	if _, err := sess.SetColumnSelected("rtable1.rcol11", true); err != nil {
		t.Fatalf("SetColumnSelected() failed: %v", err)
	}
	if _, err := sess.SetColumnSelected("ttable1.tcol11", true); err != nil {
		t.Fatalf("SetColumnSelected() failed: %v", err)
	}
	want := sess.Current().Result.SQL

	if _, err := sess.Save(ctx, "joined"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := sess.SetColumnSelected("rtable1.rcol11", false); err != nil {
		t.Fatalf("SetColumnSelected() failed: %v", err)
	}

	_, update, err := sess.Load(ctx, "q-1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if update.Result.SQL != want {
		t.Errorf("loaded SQL = %q, want %q", update.Result.SQL, want)
	}
}
