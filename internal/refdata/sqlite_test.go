package refdata

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
)

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tables, err := Read(ctx, NewDirSource("testdata"), DefaultLayout())
	if err != nil {
		t.Fatalf("Read fixture: %v", err)
	}

	path := filepath.Join(t.TempDir(), "ref", "reference.db")
	if err := WriteSQLite(ctx, path, tables); err != nil {
		t.Fatalf("WriteSQLite: %v", err)
	}
	// Writing twice replaces rather than appends.
	if err := WriteSQLite(ctx, path, tables); err != nil {
		t.Fatalf("second WriteSQLite: %v", err)
	}

	got, err := ReadSQLite(ctx, path)
	if err != nil {
		t.Fatalf("ReadSQLite: %v", err)
	}
	if diff := cmp.Diff(tables, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("sqlite round trip mismatch (-want +got):\n%s", diff)
	}

	store, err := LoadSQLite(ctx, path, nil)
	if err != nil {
		t.Fatalf("LoadSQLite: %v", err)
	}
	assertFixtureKB(t, store)
}

func TestLoadSQLite_MissingFile(t *testing.T) {
	_, err := LoadSQLite(context.Background(), filepath.Join(t.TempDir(), "absent.db"), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadSQLite_InvalidScenario(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bad.db")
	if err := WriteSQLite(ctx, path, &Tables{}); err != nil {
		t.Fatalf("WriteSQLite: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = db.Exec(`INSERT INTO scenarios VALUES ('S9', 'Broken', NULL, NULL, '[]', '["Global"]', 1, 1, 0)`)
	_ = db.Close()
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err = LoadSQLite(ctx, path, nil)
	if !errors.Is(err, core.ErrInvalidScenario) {
		t.Fatalf("err = %v, want ErrInvalidScenario", err)
	}
}
