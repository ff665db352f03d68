package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cliossg/pagekit/pkg/cl/logger"
	"github.com/cliossg/pagekit/pkg/cl/migrate"
)

// MigrationsDir is where migrations live inside the assets filesystem.
const MigrationsDir = "assets/migrations/sqlite"

// Database manages the SQLite database connection and lifecycle.
type Database struct {
	DB       *sql.DB
	path     string
	assetsFS fs.FS
	log      logger.Logger
}

// New creates a Database for the file at path. Nothing is opened until Start.
func New(path string, assetsFS fs.FS, log logger.Logger) *Database {
	return &Database{
		path:     path,
		assetsFS: assetsFS,
		log:      log,
	}
}

// Start opens the database connection and runs migrations.
func (d *Database) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	// WAL keeps readers (preview, manifest queries) from blocking a running build.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", d.path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("cannot ping database: %w", err)
	}

	d.DB = db
	d.log.Debugf("Database opened at %s", d.path)

	if err := migrate.New(d.DB, d.assetsFS, MigrationsDir, d.log).Run(ctx); err != nil {
		return fmt.Errorf("cannot run migrations: %w", err)
	}
	return nil
}

// Stop closes the database connection.
func (d *Database) Stop(ctx context.Context) error {
	if d.DB != nil {
		d.log.Debug("Closing database connection")
		return d.DB.Close()
	}
	return nil
}

// GetDB returns the underlying sql.DB.
func (d *Database) GetDB() *sql.DB {
	return d.DB
}
