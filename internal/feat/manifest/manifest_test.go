package manifest

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/cliossg/pagekit/internal/feat/page"
	"github.com/cliossg/pagekit/internal/testutil"
	"github.com/cliossg/pagekit/pkg/cl/logger"
)

type stubSite struct {
	root string
}

func (s *stubSite) URL() string                 { return "https://example.com" }
func (s *stubSite) PrettifyURLs() bool          { return true }
func (s *stubSite) Path() string                { return s.root }
func (s *stubSite) BuildPath() string           { return filepath.Join(s.root, ".build") }
func (s *stubSite) Context() page.Context       { return page.Context{} }
func (s *stubSite) Plugins() page.PluginManager { return nil }
func (s *stubSite) Engine() page.Engine         { return nil }

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := testutil.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewStore(&testutil.TestDBProvider{DB: db}, logger.NewNoopLogger())
}

func writeBuilt(t *testing.T, c page.Content, data string) {
	t.Helper()
	if err := page.EnsureDir(c.FullBuildPath()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.FullBuildPath(), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	sum, size, err := Checksum(path)
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	want := blake2b.Sum256([]byte("hello"))
	if sum != hex.EncodeToString(want[:]) {
		t.Errorf("Checksum() = %s", sum)
	}
	if size != 5 {
		t.Errorf("size = %d, want 5", size)
	}

	if _, _, err := Checksum(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLastBuildEmpty(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.LastBuild(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("LastBuild() error = %v, want ErrNotFound", err)
	}
}

func TestBuildLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	clock := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	b, err := s.BeginBuild(ctx)
	if err != nil {
		t.Fatalf("BeginBuild() error = %v", err)
	}

	site := &stubSite{root: t.TempDir()}
	img := page.NewImage(site, "img/logo.png")
	pg := page.NewPage(site, "about.html", logger.NewNoopLogger())
	writeBuilt(t, img, "PNG")
	writeBuilt(t, pg, "<p>about</p>")

	for _, c := range []page.Content{pg, img} {
		if err := s.RecordItem(ctx, b.ID, c); err != nil {
			t.Fatalf("RecordItem(%s) error = %v", c, err)
		}
	}

	last, err := s.LastBuild(ctx)
	if err != nil {
		t.Fatalf("LastBuild() error = %v", err)
	}
	if last.ID != b.ID || last.FinishedAt != nil {
		t.Errorf("unfinished build = %+v", last)
	}

	clock = clock.Add(2 * time.Second)
	b.Pages, b.Images, b.Discarded = 1, 1, 3
	if err := s.FinishBuild(ctx, b); err != nil {
		t.Fatalf("FinishBuild() error = %v", err)
	}

	last, err = s.LastBuild(ctx)
	if err != nil {
		t.Fatalf("LastBuild() error = %v", err)
	}
	if last.FinishedAt == nil || !last.FinishedAt.Equal(clock) {
		t.Errorf("FinishedAt = %v, want %v", last.FinishedAt, clock)
	}
	if last.Pages != 1 || last.Images != 1 || last.Discarded != 3 || last.Failed != 0 {
		t.Errorf("counters = %+v", last)
	}

	items, err := s.ItemsForBuild(ctx, b.ID)
	if err != nil {
		t.Fatalf("ItemsForBuild() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].SourcePath != "about.html" || items[0].Kind != "page" || items[0].BuildPath != "about/index.html" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[0].FinalURL != "/about/" {
		t.Errorf("items[0].FinalURL = %q", items[0].FinalURL)
	}
	if items[1].Kind != "image" || items[1].Size != 3 {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestLastBuildPicksNewest(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	if _, err := s.BeginBuild(ctx); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Hour)
	second, err := s.BeginBuild(ctx)
	if err != nil {
		t.Fatal(err)
	}

	last, err := s.LastBuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last.ID != second.ID {
		t.Errorf("LastBuild() = %s, want %s", last.ID, second.ID)
	}
}

func TestRecordItemMissingFile(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b, err := s.BeginBuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	img := page.NewImage(&stubSite{root: t.TempDir()}, "never-written.png")
	if err := s.RecordItem(ctx, b.ID, img); err == nil {
		t.Error("expected error when built file is missing")
	}
}

func TestFinishUnknownBuild(t *testing.T) {
	s := setupTestStore(t)
	err := s.FinishBuild(context.Background(), &Build{ID: uuid.New()})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishBuild() error = %v, want ErrNotFound", err)
	}
}
