package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	"github.com/ruslano69/tdtp-editor/pkg/filter"
	"github.com/ruslano69/tdtp-editor/pkg/processors"
)

var _ Source = (*MemoryTable)(nil)

// MemoryTable - таблица из CSV, целиком в памяти
// Исходная таблица не изменяется; фильтр меняет только список видимых строк
type MemoryTable struct {
	path     string
	data     *table.Table
	expr     filter.Expression
	visible  []int
	adjusted int
}

// NewMemoryTable создает источник поверх готовой таблицы
func NewMemoryTable(path string, data *table.Table) *MemoryTable {
	m := &MemoryTable{path: path, data: data}
	m.Reset()
	return m
}

// LoadCSV читает CSV файл: первая строка - заголовок, остальные - данные
// Файлы *.csv.zst распаковываются на лету
func LoadCSV(path string) (*MemoryTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", table.ErrMalformedCSV, err)
	}
	defer file.Close()

	var r io.Reader = file
	if processors.IsCompressed(path) {
		zr, err := processors.NewDecompressionReader(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", table.ErrMalformedCSV, err)
		}
		defer zr.Close()
		r = zr
	}

	data, adjusted, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", table.ErrMalformedCSV, path, err)
	}

	m := NewMemoryTable(path, data)
	m.adjusted = adjusted
	return m, nil
}

// ReadCSV разбирает CSV поток в таблицу
// Строки другой ширины приводятся к ширине заголовка (table.Normalize);
// второе значение - количество таких строк
func ReadCSV(r io.Reader) (*table.Table, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, errors.New("file is empty, header row expected")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}

	data := table.FromText(header, records)
	adjusted := data.Normalize()

	if err := data.Validate(); err != nil {
		return nil, 0, err
	}

	return data, adjusted, nil
}

// Kind реализует Source
func (m *MemoryTable) Kind() Kind {
	return KindMemory
}

// Path реализует Source
func (m *MemoryTable) Path() string {
	return m.path
}

// Close реализует Source; у таблицы в памяти нет внешних ресурсов
func (m *MemoryTable) Close() error {
	return nil
}

// Table возвращает исходную таблицу без учета фильтра
func (m *MemoryTable) Table() *table.Table {
	return m.data
}

// VisibleTable реализует Source
func (m *MemoryTable) VisibleTable() *table.Table {
	return m.data.Subset(m.visible)
}

// VisibleRows возвращает индексы видимых строк исходной таблицы
func (m *MemoryTable) VisibleRows() []int {
	out := make([]int, len(m.visible))
	copy(out, m.visible)
	return out
}

// Adjusted возвращает количество строк CSV, приведенных к ширине заголовка
func (m *MemoryTable) Adjusted() int {
	return m.adjusted
}

// Filter возвращает действующий фильтр
func (m *MemoryTable) Filter() filter.Expression {
	return m.expr
}

// ApplyFilter применяет фильтр column=pattern
// При ошибке (неизвестная колонка, неверный pattern) видимые строки не меняются
func (m *MemoryTable) ApplyFilter(text string) (filter.Result, error) {
	expr, err := filter.Parse(text)
	if err != nil {
		return filter.Result{}, err
	}
	return m.apply(expr)
}

// Reset возвращает видимость всех строк
func (m *MemoryTable) Reset() filter.Result {
	res, _ := m.apply(filter.All())
	return res
}

func (m *MemoryTable) apply(expr filter.Expression) (filter.Result, error) {
	res, err := filter.Match(m.data, expr)
	if err != nil {
		return filter.Result{}, err
	}
	m.expr = expr
	m.visible = res.Visible
	return res, nil
}

// HeaderCell возвращает имя колонки по позиции
func (m *MemoryTable) HeaderCell(col int) (string, error) {
	return m.data.HeaderCell(col)
}

// Cell возвращает текст ячейки исходной таблицы по позиции
func (m *MemoryTable) Cell(row, col int) (string, error) {
	v, err := m.data.Cell(row, col)
	if err != nil {
		return "", err
	}
	return table.FormatValue(v), nil
}
