package source

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ruslano69/tdtp-editor/pkg/adapters/sqlite"
	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

func createTestDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER, name TEXT)`,
		`CREATE TABLE orders (id INTEGER, item TEXT)`,
		`INSERT INTO users VALUES (1, 'Alice'), (2, 'Bob')`,
		`INSERT INTO orders VALUES (10, 'book')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestRelationalResult_Execute(t *testing.T) {
	ctx := context.Background()

	r, err := OpenDatabase(ctx, createTestDB(t), sqlite.Options{})
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}
	defer r.Close()

	if r.Kind() != KindRelational {
		t.Errorf("Expected KindRelational, got %s", r.Kind())
	}
	if r.VisibleTable().ColumnCount() != 0 {
		t.Error("Expected empty visible table before first statement")
	}

	tbl, ok, err := r.Execute(ctx, sqlite.SelectAllStatement("users"))
	if err != nil || !ok {
		t.Fatalf("Execute failed: ok=%v err=%v", ok, err)
	}
	if tbl.RowCount() != 2 || r.VisibleTable() != tbl {
		t.Errorf("Visible table not replaced")
	}

	t.Run("Statement without result set keeps table", func(t *testing.T) {
		before := r.VisibleTable()
		_, ok, err := r.Execute(ctx, "INSERT INTO users VALUES (3, 'Carol')")
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if ok {
			t.Error("Expected no result set")
		}
		if r.VisibleTable() != before || r.Statement() != sqlite.SelectAllStatement("users") {
			t.Error("Visible table changed by statement without result set")
		}
	})

	t.Run("SQL error keeps table", func(t *testing.T) {
		before := r.VisibleTable()
		_, _, err := r.Execute(ctx, "SELECT * FROM missing")
		if !errors.Is(err, table.ErrSQL) {
			t.Errorf("Expected ErrSQL, got %v", err)
		}
		if r.VisibleTable() != before {
			t.Error("Visible table changed after SQL error")
		}
	})

	t.Run("ReadTable does not touch visible", func(t *testing.T) {
		before := r.VisibleTable()
		orders, err := r.ReadTable(ctx, "orders")
		if err != nil {
			t.Fatalf("ReadTable failed: %v", err)
		}
		if orders.RowCount() != 1 {
			t.Errorf("Expected 1 order, got %d", orders.RowCount())
		}
		if r.VisibleTable() != before {
			t.Error("ReadTable replaced visible table")
		}
	})
}

func TestRelationalResult_Close(t *testing.T) {
	ctx := context.Background()

	r, err := OpenDatabase(ctx, createTestDB(t), sqlite.Options{})
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if !r.Closed() {
		t.Error("Expected closed")
	}
	if _, _, err := r.Execute(ctx, "SELECT 1"); !errors.Is(err, table.ErrSQL) {
		t.Errorf("Expected ErrSQL on closed handle, got %v", err)
	}
}
