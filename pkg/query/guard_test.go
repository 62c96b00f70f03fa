package query

import (
	"errors"
	"testing"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

func TestGuard_Check(t *testing.T) {
	tests := []struct {
		name      string
		readOnly  bool
		statement string
		wantErr   bool
	}{
		{"off allows update", false, "UPDATE users SET age = 1", false},
		{"off allows script", false, "DELETE FROM a; DELETE FROM b", false},
		{"select", true, "SELECT * FROM users", false},
		{"lowercase select", true, "select name from users where age > 30;", false},
		{"cte", true, "WITH t AS (SELECT 1) SELECT * FROM t", false},
		{"column named like keyword", true, "SELECT updated_at, deleted FROM users", false},
		{"update", true, "UPDATE users SET age = 1", true},
		{"pragma", true, "PRAGMA table_info(users)", true},
		{"nested delete", true, "WITH x AS (DELETE FROM users) SELECT 1", true},
		{"two statements", true, "SELECT 1; SELECT 2", true},
		{"line comment", true, "SELECT 1 -- hidden", true},
		{"block comment", true, "SELECT /* x */ 1", true},
		{"empty", true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewGuard(tt.readOnly).Check(tt.statement)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check(%q) error = %v, wantErr %v", tt.statement, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, table.ErrSQL) {
				t.Errorf("expected ErrSQL, got %v", err)
			}
		})
	}
}

func TestGuard_NilIsPermissive(t *testing.T) {
	var g *Guard
	if g.ReadOnly() {
		t.Error("nil guard must not be read-only")
	}
	if err := g.Check("DROP TABLE users"); err != nil {
		t.Errorf("nil guard rejected statement: %v", err)
	}
}
