package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/cliossg/pagekit/pkg/cl/logger"
	"github.com/google/uuid"
)

const sectionMarker = "-- +migrate "

// Migration is one <datetime>-<name>.sql file split into its Up and Down parts.
type Migration struct {
	Datetime string
	Name     string
	Up       string
	Down     string
}

// Migrator applies pending migrations from a filesystem and records them in
// the migrations table.
type Migrator struct {
	db     *sql.DB
	log    logger.Logger
	source fs.FS
	dir    string
}

// New creates a Migrator reading migrations from dir inside source.
func New(db *sql.DB, source fs.FS, dir string, log logger.Logger) *Migrator {
	return &Migrator{
		db:     db,
		source: source,
		dir:    dir,
		log:    log,
	}
}

// Run applies every migration not yet recorded, oldest first, each in its own transaction.
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("cannot create migrations table: %w", err)
	}

	fileMigrations, err := Load(m.source, m.dir)
	if err != nil {
		return fmt.Errorf("cannot load file migrations: %w", err)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return fmt.Errorf("cannot load database migrations: %w", err)
	}

	var pending []Migration
	for _, mig := range fileMigrations {
		if !applied[mig.Datetime+mig.Name] {
			pending = append(pending, mig)
		}
	}

	if len(pending) == 0 {
		m.log.Debug("No pending migrations")
		return nil
	}

	m.log.Infof("Running %d pending migration(s)", len(pending))
	for _, mig := range pending {
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("migration %s-%s failed: %w", mig.Datetime, mig.Name, err)
		}
		m.log.Debugf("Applied migration: %s-%s", mig.Datetime, mig.Name)
	}
	return nil
}

// Load reads and sorts the .sql migrations under dir.
func Load(source fs.FS, dir string) ([]Migration, error) {
	var migrations []Migration

	err := fs.WalkDir(source, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".sql") {
			return nil
		}

		datetime, name, ok := strings.Cut(path.Base(p), "-")
		if !ok {
			return fmt.Errorf("invalid migration filename: %s", d.Name())
		}

		content, err := fs.ReadFile(source, p)
		if err != nil {
			return fmt.Errorf("cannot read migration file %s: %w", p, err)
		}

		mig := Migration{Datetime: datetime, Name: strings.TrimSuffix(name, ".sql")}
		for _, section := range strings.Split(string(content), sectionMarker) {
			switch {
			case strings.HasPrefix(section, "Up"):
				mig.Up = strings.TrimPrefix(section, "Up\n")
			case strings.HasPrefix(section, "Down"):
				mig.Down = strings.TrimPrefix(section, "Down\n")
			}
		}
		migrations = append(migrations, mig)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Datetime < migrations[j].Datetime
	})
	return migrations, nil
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS migrations (
		id TEXT PRIMARY KEY,
		datetime TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT datetime, name FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var datetime, name string
		if err := rows.Scan(&datetime, &name); err != nil {
			return nil, err
		}
		done[datetime+name] = true
	}
	return done, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	if strings.TrimSpace(mig.Up) == "" {
		return fmt.Errorf("no Up section found in migration %s-%s", mig.Datetime, mig.Name)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.Up); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO migrations (id, datetime, name, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		uuid.New().String(), mig.Datetime, mig.Name); err != nil {
		return err
	}

	return tx.Commit()
}
