package query

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ruslano69/tdtp-editor/pkg/adapters/sqlite"
	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	"github.com/ruslano69/tdtp-editor/pkg/source"
)

// openTestSource создает базу users/orders и открывает ее как RelationalResult
func openTestSource(t *testing.T) *source.RelationalResult {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER, name TEXT)`,
		`CREATE TABLE orders (id INTEGER, total REAL)`,
		`INSERT INTO users VALUES (1, 'Alice'), (2, 'Bob')`,
		`INSERT INTO orders VALUES (10, 9.5)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to exec %q: %v", stmt, err)
		}
	}
	db.Close()

	src, err := source.OpenDatabase(context.Background(), path, sqlite.Options{})
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func TestExecutor_SelectAll(t *testing.T) {
	ctx := context.Background()
	src := openTestSource(t)

	var traced []string
	e := NewExecutor(src, Options{Trace: func(s string) { traced = append(traced, s) }})

	tbl, err := e.SelectAll(ctx, "users")
	if err != nil {
		t.Fatalf("SelectAll failed: %v", err)
	}
	if tbl.RowCount() != 2 {
		t.Errorf("Expected 2 rows, got %d", tbl.RowCount())
	}
	if src.VisibleTable() != tbl {
		t.Error("SelectAll did not replace visible table")
	}

	// Один вызов - ровно один оператор
	if len(traced) != 1 || traced[0] != `SELECT * FROM "users"` {
		t.Errorf("Unexpected trace: %v", traced)
	}

	if _, err := e.SelectAll(ctx, "missing"); !errors.Is(err, table.ErrSQL) {
		t.Errorf("Expected ErrSQL for missing table, got %v", err)
	}
	if src.VisibleTable() != tbl {
		t.Error("Failed SelectAll changed visible table")
	}

	if _, err := e.SelectAll(ctx, ""); !errors.Is(err, table.ErrSQL) {
		t.Errorf("Expected ErrSQL for empty name, got %v", err)
	}
}

func TestExecutor_RunRaw(t *testing.T) {
	ctx := context.Background()
	src := openTestSource(t)
	e := NewExecutor(src, Options{})

	if _, err := e.SelectAll(ctx, "users"); err != nil {
		t.Fatalf("SelectAll failed: %v", err)
	}

	t.Run("Select", func(t *testing.T) {
		tbl, ok, err := e.RunRaw(ctx, "SELECT name FROM users WHERE id = 2")
		if err != nil || !ok {
			t.Fatalf("RunRaw failed: ok=%v err=%v", ok, err)
		}
		if got := tbl.Header(); len(got) != 1 || got[0] != "name" {
			t.Errorf("Unexpected header %v", got)
		}
		if v, _ := tbl.Cell(0, 0); table.FormatValue(v) != "Bob" {
			t.Errorf("Expected Bob, got %v", v)
		}
	})

	t.Run("No result set keeps previous table", func(t *testing.T) {
		before := src.VisibleTable()
		tbl, ok, err := e.RunRaw(ctx, "UPDATE users SET name = 'Robert' WHERE id = 2")
		if err != nil {
			t.Fatalf("RunRaw failed: %v", err)
		}
		if ok {
			t.Error("Expected no result set")
		}
		if tbl != before || src.VisibleTable() != before {
			t.Error("Visible table changed")
		}

		// Изменение сохранено в базе
		after, err := e.SelectAll(ctx, "users")
		if err != nil {
			t.Fatalf("SelectAll failed: %v", err)
		}
		if v, _ := after.Cell(1, 1); table.FormatValue(v) != "Robert" {
			t.Errorf("Update not persisted, got %v", v)
		}
	})

	t.Run("Error surfaces and keeps table", func(t *testing.T) {
		before := src.VisibleTable()
		if _, _, err := e.RunRaw(ctx, "SELEC oops"); !errors.Is(err, table.ErrSQL) {
			t.Errorf("Expected ErrSQL, got %v", err)
		}
		if src.VisibleTable() != before {
			t.Error("Visible table changed after error")
		}
	})

	t.Run("Empty statement", func(t *testing.T) {
		if _, _, err := e.RunRaw(ctx, "   "); !errors.Is(err, table.ErrSQL) {
			t.Errorf("Expected ErrSQL, got %v", err)
		}
	})
}

func TestExecutor_ReadOnly(t *testing.T) {
	ctx := context.Background()
	src := openTestSource(t)
	exec := NewExecutor(src, Options{ReadOnly: true})

	if _, err := exec.SelectAll(ctx, "users"); err != nil {
		t.Fatalf("SelectAll failed: %v", err)
	}

	var traced []string
	exec.trace = func(s string) { traced = append(traced, s) }

	_, _, err := exec.RunRaw(ctx, "DELETE FROM users")
	if !errors.Is(err, table.ErrSQL) {
		t.Fatalf("expected ErrSQL, got %v", err)
	}
	if len(traced) != 0 {
		t.Errorf("rejected statement reached the database: %v", traced)
	}

	tbl, ok, err := exec.RunRaw(ctx, "SELECT COUNT(*) AS n FROM users")
	if err != nil || !ok {
		t.Fatalf("RunRaw select failed: ok=%v err=%v", ok, err)
	}
	if got := table.FormatValue(tbl.Rows[0][0]); got != "2" {
		t.Errorf("rows after rejected delete = %s, want 2", got)
	}
}
