package table

import (
	"errors"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   *Table
		wantErr bool
	}{
		{"valid", FromText([]string{"id", "name"}, [][]string{{"1", "Alice"}}), false},
		{"empty rows", FromText([]string{"id"}, nil), false},
		{"duplicate column", FromText([]string{"id", "id"}, nil), true},
		{"ragged row", FromText([]string{"id", "name"}, [][]string{{"1"}}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tbl := FromText([]string{"a", "b", "c"}, [][]string{
		{"1", "2", "3"},
		{"4"},
		{"5", "6", "7", "8"},
	})

	adjusted := tbl.Normalize()
	if adjusted != 2 {
		t.Errorf("Expected 2 adjusted rows, got %d", adjusted)
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("Table invalid after Normalize: %v", err)
	}

	// Короткая строка дополнена пустым текстом
	if got := tbl.Rows[1].Text(); got[1] != "" || got[2] != "" {
		t.Errorf("Expected padded row, got %v", got)
	}
	// Длинная строка обрезана
	if got := tbl.Rows[2].Text(); got[2] != "7" || len(got) != 3 {
		t.Errorf("Expected truncated row, got %v", got)
	}
}

func TestCellAccess(t *testing.T) {
	tbl := FromText([]string{"id", "name"}, [][]string{{"1", "Alice"}, {"2", "Bob"}})

	name, err := tbl.HeaderCell(1)
	if err != nil || name != "name" {
		t.Errorf("HeaderCell(1) = %q, %v", name, err)
	}

	v, err := tbl.Cell(1, 1)
	if err != nil || v != "Bob" {
		t.Errorf("Cell(1,1) = %v, %v", v, err)
	}

	if _, err := tbl.Cell(2, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := tbl.HeaderCell(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}

	if idx, ok := tbl.ColumnIndex("name"); !ok || idx != 1 {
		t.Errorf("ColumnIndex(name) = %d, %v", idx, ok)
	}
	if _, ok := tbl.ColumnIndex("Name"); ok {
		t.Error("ColumnIndex must be case-sensitive")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{int64(42), "42"},
		{float64(1.5), "1.5"},
		{float64(100000000), "100000000"},
		{[]byte("blob"), "blob"},
		{true, "1"},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{time.Date(2024, 1, 2, 10, 11, 12, 0, time.UTC), "2024-01-02 10:11:12"},
		{time.Date(2024, 1, 2, 10, 11, 12, 500000000, time.UTC), "2024-01-02 10:11:12.5"},
		{time.Date(2024, 1, 2, 10, 11, 12, 0, time.FixedZone("", 3*3600)), "2024-01-02 10:11:12+03:00"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInferAffinity(t *testing.T) {
	tbl := New([]string{"i", "r", "t", "b", "n", "mixed"}, []Row{
		{int64(1), float64(1.5), "x", []byte{1}, nil, int64(1)},
		{int64(2), int64(2), "y", []byte{2}, nil, "two"},
	})

	want := []Affinity{AffinityInteger, AffinityReal, AffinityText, AffinityBlob, AffinityText, AffinityText}
	for col, w := range want {
		if got := tbl.InferAffinity(col); got != w {
			t.Errorf("InferAffinity(%d) = %s, want %s", col, got, w)
		}
	}
}

func TestRemedy(t *testing.T) {
	if got := Remedy(ErrNoSource); got != "Please open file and try again." {
		t.Errorf("Unexpected remedy for ErrNoSource: %q", got)
	}
	if got := Remedy(ErrConnectionFailed); got != "Please try again." {
		t.Errorf("Unexpected remedy for ErrConnectionFailed: %q", got)
	}
	if got := Remedy(nil); got != "" {
		t.Errorf("Expected empty remedy for nil, got %q", got)
	}
}
