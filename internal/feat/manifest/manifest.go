// Package manifest keeps a history of builds and of the files each one wrote.
package manifest

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/cliossg/pagekit/internal/feat/page"
	"github.com/cliossg/pagekit/pkg/cl/logger"
	"github.com/cliossg/pagekit/pkg/cl/model"
)

var ErrNotFound = errors.New("build not found")

type DBProvider interface {
	GetDB() *sql.DB
}

// Build is one recorded run of the site builder.
type Build struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt *time.Time
	Pages      int
	Images     int
	Discarded  int
	Failed     int
}

// Item is a file a build wrote.
type Item struct {
	BuildID    uuid.UUID
	SourcePath string
	BuildPath  string
	FinalURL   string
	Kind       string
	Size       int64
	Checksum   string
}

// Store reads and writes the build manifest.
type Store struct {
	dbProvider DBProvider
	log        logger.Logger
	now        func() time.Time
}

func NewStore(dbProvider DBProvider, log logger.Logger) *Store {
	return &Store{
		dbProvider: dbProvider,
		log:        log,
		now:        time.Now,
	}
}

// BeginBuild inserts a new, unfinished build.
func (s *Store) BeginBuild(ctx context.Context) (*Build, error) {
	b := &Build{
		ID:        model.NewID(),
		StartedAt: s.now().UTC(),
	}

	_, err := s.dbProvider.GetDB().ExecContext(ctx,
		"INSERT INTO builds (id, started_at) VALUES (?, ?)",
		b.ID.String(), b.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("cannot begin build: %w", err)
	}

	s.log.Debugf("Build %s started", model.ShortID(b.ID))
	return b, nil
}

// RecordItem stores a written item under buildID, checksumming the file at
// its full build path.
func (s *Store) RecordItem(ctx context.Context, buildID uuid.UUID, c page.Content) error {
	sum, size, err := Checksum(c.FullBuildPath())
	if err != nil {
		return err
	}

	_, err = s.dbProvider.GetDB().ExecContext(ctx, `
		INSERT OR REPLACE INTO build_items
			(build_id, source_path, build_path, final_url, kind, size, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		buildID.String(), c.SourcePath(), c.BuildPath(), c.FinalURL(), c.Kind().String(), size, sum)
	if err != nil {
		return fmt.Errorf("cannot record %s: %w", c.SourcePath(), err)
	}
	return nil
}

// FinishBuild stamps b as finished and stores its counters.
func (s *Store) FinishBuild(ctx context.Context, b *Build) error {
	finished := s.now().UTC()

	res, err := s.dbProvider.GetDB().ExecContext(ctx, `
		UPDATE builds
		SET finished_at = ?, pages = ?, images = ?, discarded = ?, failed = ?
		WHERE id = ?`,
		finished, b.Pages, b.Images, b.Discarded, b.Failed, b.ID.String())
	if err != nil {
		return fmt.Errorf("cannot finish build: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	b.FinishedAt = &finished
	s.log.Debugf("Build %s finished", model.ShortID(b.ID))
	return nil
}

// LastBuild returns the most recently started build.
func (s *Store) LastBuild(ctx context.Context) (*Build, error) {
	row := s.dbProvider.GetDB().QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, pages, images, discarded, failed
		FROM builds
		ORDER BY started_at DESC, id DESC
		LIMIT 1`)

	var (
		id       string
		b        Build
		finished sql.NullTime
	)
	err := row.Scan(&id, &b.StartedAt, &finished, &b.Pages, &b.Images, &b.Discarded, &b.Failed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cannot get last build: %w", err)
	}

	b.ID = model.ParseID(id)
	b.FinishedAt = model.PtrFromNullTime(finished)
	return &b, nil
}

// ItemsForBuild lists the items of a build ordered by source path.
func (s *Store) ItemsForBuild(ctx context.Context, buildID uuid.UUID) ([]Item, error) {
	rows, err := s.dbProvider.GetDB().QueryContext(ctx, `
		SELECT source_path, build_path, final_url, kind, size, checksum
		FROM build_items
		WHERE build_id = ?
		ORDER BY source_path`, buildID.String())
	if err != nil {
		return nil, fmt.Errorf("cannot list build items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it := Item{BuildID: buildID}
		if err := rows.Scan(&it.SourcePath, &it.BuildPath, &it.FinalURL, &it.Kind, &it.Size, &it.Checksum); err != nil {
			return nil, fmt.Errorf("cannot scan build item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Checksum returns the hex BLAKE2b-256 digest and size of the file at path.
func Checksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
