package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/blockql/internal/session"
)

//go:embed schema.sql
var schemaSQL string

// currentSchemaVersion is stamped into PRAGMA user_version.
//
//	0 - file created before versioning, or a fresh file
//	1 - saved_queries with columns, block_data and the created_at index
const currentSchemaVersion = 1

// Store keeps saved queries in a SQLite file.
type Store struct {
	db *sql.DB
}

var _ session.Repository = (*Store)(nil)

// Open opens or creates the saved-query database at path, configures the
// connection and brings the schema up to date. Opening the same file again
// is a no-op.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open saved query store %s: %w", path, err)
	}
	// One connection: saves are rare and SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open saved query store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		return err
	}
	return applySchema(db)
}

// New wraps an already configured database. No pragmas or migrations are
// applied, so the caller owns the schema.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database. It is safe on a Store without one.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// connectionPragmas are set on every Open.
var connectionPragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

func applyPragmas(db *sql.DB) error {
	for _, p := range connectionPragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("set pragma %s: %w", p.name, err)
		}
	}
	return nil
}

// applySchema creates the saved_queries table and index, then records the
// schema version.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create saved_queries: %w", err)
	}
	return runMigrations(db)
}

// runMigrations upgrades the user_version of older files. A file written
// by a newer schema is refused rather than rewritten.
func runMigrations(db *sql.DB) error {
	var stamped int
	if err := db.QueryRow("PRAGMA user_version").Scan(&stamped); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch {
	case stamped > currentSchemaVersion:
		return fmt.Errorf("saved query schema version %d is newer than supported version %d",
			stamped, currentSchemaVersion)
	case stamped == currentSchemaVersion:
		return nil
	}

	// Version 0 files already match schema.sql once it has run; only the
	// stamp is missing.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	return nil
}

// verifyPragma reports an error unless PRAGMA name reads want.
func (s *Store) verifyPragma(name, want string) error {
	var got string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
		return fmt.Errorf("read pragma %s: %w", name, err)
	}
	if got != want {
		return fmt.Errorf("pragma %s is %q, want %q", name, got, want)
	}
	return nil
}
