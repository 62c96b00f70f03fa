package catalog

import (
	"errors"
	"testing"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

func TestBuild(t *testing.T) {
	names := []string{"users", "orders", "items"}
	c := Build(names)

	if c.Len() != 3 {
		t.Fatalf("Expected 3 tables, got %d", c.Len())
	}
	if c.Selected() != NoSelection {
		t.Errorf("Expected no selection after Build, got %d", c.Selected())
	}
	if _, ok := c.SelectedName(); ok {
		t.Error("Expected no selected name")
	}

	// Каталог не зависит от исходного слайса
	names[0] = "changed"
	if got := c.Names(); got[0] != "users" || got[1] != "orders" || got[2] != "items" {
		t.Errorf("Unexpected order %v", got)
	}
}

func TestSelect(t *testing.T) {
	c := Build([]string{"users", "orders"})

	tests := []struct {
		name     string
		index    int
		want     string
		wantErr  bool
		selected int
	}{
		{"first", 0, "users", false, 0},
		{"second", 1, "orders", false, 1},
		{"same again", 1, "orders", false, 1},
		{"sentinel", NoSelection, "", false, 1},
		{"too large", 2, "", true, 1},
		{"negative", -2, "", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Select(tt.index)
			if tt.wantErr {
				if !errors.Is(err, table.ErrIndexOutOfRange) {
					t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
			if c.Selected() != tt.selected {
				t.Errorf("Expected selected %d, got %d", tt.selected, c.Selected())
			}
		})
	}
}

func TestIndexOfAndClear(t *testing.T) {
	c := Build([]string{"users", "orders"})

	if i, ok := c.IndexOf("orders"); !ok || i != 1 {
		t.Errorf("IndexOf(orders) = %d, %v", i, ok)
	}
	if _, ok := c.IndexOf("missing"); ok {
		t.Error("Expected missing table not found")
	}

	c.Select(0)
	c.Clear()
	if c.Len() != 0 || c.Selected() != NoSelection {
		t.Errorf("Clear left %d names, selection %d", c.Len(), c.Selected())
	}
	if _, err := c.Select(0); !errors.Is(err, table.ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange on empty catalog, got %v", err)
	}
}

func TestEmptyCatalog(t *testing.T) {
	c := Build(nil)
	if c.Len() != 0 || c.Selected() != NoSelection {
		t.Error("Expected empty catalog without selection")
	}
	if names := c.Names(); len(names) != 0 {
		t.Errorf("Expected no names, got %v", names)
	}
}

func TestName(t *testing.T) {
	c := Build([]string{"users", "orders"})

	name, err := c.Name(1)
	if err != nil || name != "orders" {
		t.Errorf("Name(1) = %q, %v", name, err)
	}
	// Name не меняет выбор
	if c.Selected() != NoSelection {
		t.Errorf("Name changed selection to %d", c.Selected())
	}
	if _, err := c.Name(NoSelection); !errors.Is(err, table.ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}
}
