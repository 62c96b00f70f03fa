package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

func testTable() *table.Table {
	return table.FromText([]string{"id", "name", "city"}, [][]string{
		{"1", "Alice", "Paris"},
		{"2", "Bob", "Berlin"},
		{"3", "Bobby", "Rome"},
		{"4", "bob", "Oslo"},
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		column  string
		pattern string
		wantErr error
	}{
		{"simple", "name=Bob", "name", "Bob", nil},
		{"split on first equals", "name=a=b", "name", "a=b", nil},
		{"empty pattern", "name=", "name", "", nil},
		{"no equals", "name", "", "", table.ErrInvalidFilter},
		{"empty column", "=Bob", "", "", table.ErrUnknownColumn},
		{"bad regexp", "name=(", "", "", table.ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if expr.Column != tt.column || expr.Pattern != tt.pattern {
				t.Errorf("Parse(%q) = %q/%q", tt.text, expr.Column, expr.Pattern)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tbl := testTable()

	tests := []struct {
		name string
		text string
		want []int
	}{
		// Поиск подстроки с учетом регистра
		{"substring", "name=Bob", []int{1, 2}},
		{"anchored", "name=^Bob$", []int{1}},
		{"case sensitive", "name=bob", []int{3}},
		{"regexp class", "city=^(Paris|Rome)$", []int{0, 2}},
		{"empty pattern", "name=", []int{0, 1, 2, 3}},
		{"no match", "name=Zed", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			res, err := Match(tbl, expr)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if !reflect.DeepEqual(res.Visible, tt.want) {
				t.Errorf("Visible = %v, want %v", res.Visible, tt.want)
			}
			if res.Total != 4 {
				t.Errorf("Total = %d, want 4", res.Total)
			}
		})
	}
}

func TestMatch_UnknownColumn(t *testing.T) {
	expr, err := Parse("nope=x")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := Match(testTable(), expr); !errors.Is(err, table.ErrUnknownColumn) {
		t.Errorf("Expected ErrUnknownColumn, got %v", err)
	}
}

func TestMatch_All(t *testing.T) {
	res, err := Match(testTable(), All())
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !reflect.DeepEqual(res.Visible, []int{0, 1, 2, 3}) {
		t.Errorf("Expected all rows, got %v", res.Visible)
	}
	if All().String() != "" {
		t.Errorf("Expected empty string for All()")
	}
}

func TestMatch_Idempotent(t *testing.T) {
	tbl := testTable()
	expr, _ := Parse("name=Bob")

	first, _ := Match(tbl, expr)
	second, _ := Match(tbl.Subset(first.Visible), expr)

	// Повторное применение к результату не меняет набор
	if len(second.Visible) != len(first.Visible) {
		t.Errorf("Filter not idempotent: %v vs %v", first.Visible, second.Visible)
	}
}
