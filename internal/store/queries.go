package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/blockql/internal/ir"
	"github.com/roach88/blockql/internal/session"
)

const selectColumns = `SELECT id, name, sql, columns, block_data, created_at FROM saved_queries`

// Save inserts q, replacing the stored row when the ID already exists.
// The original created_at is kept on replace.
func (s *Store) Save(ctx context.Context, q ir.SavedQuery) error {
	if q.ID == "" {
		return fmt.Errorf("save query: empty id")
	}
	colsJSON, err := marshalColumns(q.Columns)
	if err != nil {
		return fmt.Errorf("save query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saved_queries (id, name, sql, columns, block_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sql = excluded.sql,
			columns = excluded.columns,
			block_data = excluded.block_data
	`,
		q.ID,
		q.Name,
		q.SQL,
		colsJSON,
		q.BlockData,
		formatTime(q.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save query: %w", err)
	}
	return nil
}

// List returns every saved query ordered by created_at, then id.
func (s *Store) List(ctx context.Context) ([]ir.SavedQuery, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY created_at ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	queries := []ir.SavedQuery{}
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("list queries: %w", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	return queries, nil
}

// Get returns the saved query with the given ID.
// Returns an error wrapping session.ErrQueryNotFound when there is none.
func (s *Store) Get(ctx context.Context, id string) (ir.SavedQuery, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.SavedQuery{}, fmt.Errorf("%w: %s", session.ErrQueryNotFound, id)
	}
	if err != nil {
		return ir.SavedQuery{}, fmt.Errorf("get query %s: %w", id, err)
	}
	return q, nil
}

// Delete removes the saved query with the given ID.
// Returns an error wrapping session.ErrQueryNotFound when nothing was deleted.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_queries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete query %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete query %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", session.ErrQueryNotFound, id)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanQuery(row scanner) (ir.SavedQuery, error) {
	var (
		q         ir.SavedQuery
		colsJSON  string
		createdAt string
	)
	if err := row.Scan(&q.ID, &q.Name, &q.SQL, &colsJSON, &q.BlockData, &createdAt); err != nil {
		return ir.SavedQuery{}, err
	}

	cols, err := unmarshalColumns(colsJSON)
	if err != nil {
		return ir.SavedQuery{}, err
	}
	q.Columns = cols

	q.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return ir.SavedQuery{}, err
	}
	return q, nil
}
