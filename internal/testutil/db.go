package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cliossg/pagekit/pkg/cl/logger"
	"github.com/cliossg/pagekit/pkg/cl/migrate"
)

const migrationsDir = "assets/migrations/sqlite"

// NewTestDB creates a new in-memory SQLite database with all migrations applied.
func NewTestDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// Every new connection to :memory: is a fresh empty database.
	db.SetMaxOpenConns(1)

	if err := ApplyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot apply migrations: %w", err)
	}

	return db, nil
}

// ApplyMigrations applies all SQL migrations found in the repository to db.
func ApplyMigrations(db *sql.DB) error {
	root := findRepoRoot()
	if root == "" {
		return fmt.Errorf("migrations directory not found")
	}

	m := migrate.New(db, os.DirFS(root), migrationsDir, logger.NewNoopLogger())
	return m.Run(context.Background())
}

// findRepoRoot walks up from the test's working directory until it finds the
// migrations directory.
func findRepoRoot() string {
	paths := []string{
		".",
		"..",
		"../..",
		"../../..",
		"../../../..",
	}

	for _, p := range paths {
		if _, err := os.Stat(filepath.Join(p, migrationsDir)); err == nil {
			return p
		}
	}

	return ""
}

// TestDBProvider implements DBProvider for testing.
type TestDBProvider struct {
	DB *sql.DB
}

func (p *TestDBProvider) GetDB() *sql.DB {
	return p.DB
}
