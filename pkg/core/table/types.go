package table

import (
	"fmt"
)

// Column описывает одну колонку таблицы
// Позиция колонки в Table.Columns является индексом значения в каждой строке
type Column struct {
	Name string

	// Type - объявленный тип колонки в базе (DATE, INTEGER, ...)
	// Пусто для CSV и для выражений в результате запроса
	Type string
}

// Row - упорядоченный набор значений, по одному на колонку
// Для CSV значения хранятся как string, для SQLite - как вернул драйвер
// (int64, float64, string, []byte, nil)
type Row []any

// Table - колонки + строки
// Пустая таблица (0 строк) валидна и сохраняет колонки
type Table struct {
	Columns []Column
	Rows    []Row
}

// New создает таблицу из заголовка и строк
func New(header []string, rows []Row) *Table {
	columns := make([]Column, len(header))
	for i, name := range header {
		columns[i] = Column{Name: name}
	}
	return &Table{Columns: columns, Rows: rows}
}

// FromText создает таблицу из текстовых строк (формат CSV)
func FromText(header []string, records [][]string) *Table {
	rows := make([]Row, len(records))
	for i, record := range records {
		row := make(Row, len(record))
		for j, v := range record {
			row[j] = v
		}
		rows[i] = row
	}
	return New(header, rows)
}

// Header возвращает имена колонок в порядке следования
func (t *Table) Header() []string {
	header := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Name
	}
	return header
}

// ColumnCount возвращает количество колонок
func (t *Table) ColumnCount() int {
	return len(t.Columns)
}

// RowCount возвращает количество строк
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnIndex ищет колонку по точному имени
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.Columns {
		if col.Name == name {
			return i, true
		}
	}
	return -1, false
}

// HeaderCell возвращает имя колонки по позиции
func (t *Table) HeaderCell(col int) (string, error) {
	if col < 0 || col >= len(t.Columns) {
		return "", fmt.Errorf("%w: column %d of %d", ErrIndexOutOfRange, col, len(t.Columns))
	}
	return t.Columns[col].Name, nil
}

// Cell возвращает значение ячейки по позиции
func (t *Table) Cell(row, col int) (any, error) {
	if row < 0 || row >= len(t.Rows) {
		return nil, fmt.Errorf("%w: row %d of %d", ErrIndexOutOfRange, row, len(t.Rows))
	}
	if col < 0 || col >= len(t.Rows[row]) {
		return nil, fmt.Errorf("%w: column %d of %d", ErrIndexOutOfRange, col, len(t.Rows[row]))
	}
	return t.Rows[row][col], nil
}

// TextRows возвращает все строки, приведенные к тексту
func (t *Table) TextRows() [][]string {
	result := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		result[i] = row.Text()
	}
	return result
}

// Text приводит все значения строки к тексту
func (r Row) Text() []string {
	values := make([]string, len(r))
	for i, v := range r {
		values[i] = FormatValue(v)
	}
	return values
}

// Subset возвращает таблицу с теми же колонками и строками по индексам
// Строки не копируются: подмножество разделяет их с исходной таблицей
func (t *Table) Subset(indexes []int) *Table {
	rows := make([]Row, 0, len(indexes))
	for _, idx := range indexes {
		rows = append(rows, t.Rows[idx])
	}
	return &Table{Columns: t.Columns, Rows: rows}
}

// Validate проверяет инварианты таблицы:
// уникальность имен колонок и длину каждой строки
func (t *Table) Validate() error {
	seen := make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		if prev, ok := seen[col.Name]; ok {
			return fmt.Errorf("duplicate column %q at positions %d and %d", col.Name, prev, i)
		}
		seen[col.Name] = i
	}

	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(t.Columns))
		}
	}

	return nil
}

// Normalize приводит строки к ширине заголовка:
// короткие дополняются пустым текстом, лишние значения отбрасываются.
// Возвращает количество измененных строк
func (t *Table) Normalize() int {
	width := len(t.Columns)
	adjusted := 0

	for i, row := range t.Rows {
		switch {
		case len(row) < width:
			padded := make(Row, width)
			copy(padded, row)
			for j := len(row); j < width; j++ {
				padded[j] = ""
			}
			t.Rows[i] = padded
			adjusted++
		case len(row) > width:
			t.Rows[i] = row[:width:width]
			adjusted++
		}
	}

	return adjusted
}

// Equal сравнивает заголовки и текстовое представление строк
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if len(t.Columns) != len(other.Columns) || len(t.Rows) != len(other.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i].Name != other.Columns[i].Name {
			return false
		}
	}
	for i := range t.Rows {
		a, b := t.Rows[i].Text(), other.Rows[i].Text()
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}
