package migrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/cliossg/pagekit/pkg/cl/logger"
	_ "github.com/mattn/go-sqlite3"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"m/20260102000000-second.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE b (id INTEGER);\n-- +migrate Down\nDROP TABLE b;\n")},
		"m/20260101000000-first.sql":  {Data: []byte("-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;\n")},
		"m/README.md":                  {Data: []byte("not a migration")},
	}
}

func TestLoadSortsAndSplits(t *testing.T) {
	migs, err := Load(testFS(), "m")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(migs) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migs))
	}
	if migs[0].Name != "first" || migs[1].Name != "second" {
		t.Errorf("order = %s, %s", migs[0].Name, migs[1].Name)
	}
	if migs[0].Up != "CREATE TABLE a (id INTEGER);\n" {
		t.Errorf("Up = %q", migs[0].Up)
	}
	if migs[0].Down != "DROP TABLE a;\n" {
		t.Errorf("Down = %q", migs[0].Down)
	}
}

func TestLoadInvalidName(t *testing.T) {
	fsys := fstest.MapFS{"m/nodash.sql": {Data: []byte("-- +migrate Up\nSELECT 1;")}}
	if _, err := Load(fsys, "m"); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	m := New(db, testFS(), "m", logger.NewNoopLogger())

	for i := 0; i < 2; i++ {
		if err := m.Run(ctx); err != nil {
			t.Fatalf("Run() #%d error = %v", i, err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("recorded migrations = %d, want 2", count)
	}
	if _, err := db.Exec("INSERT INTO b (id) VALUES (1)"); err != nil {
		t.Errorf("table from second migration missing: %v", err)
	}
}
