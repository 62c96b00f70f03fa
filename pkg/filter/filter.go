// Package filter реализует фильтрацию строк по выражению column=pattern.
//
// Pattern - регулярное выражение (синтаксис RE2), которое ищется как подстрока
// в тексте ячейки с учетом регистра. Пустой pattern пропускает все строки.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

// Expression - разобранный фильтр
type Expression struct {
	// Column - имя колонки; пустое значение означает "все колонки"
	Column string

	// Pattern - исходный текст регулярного выражения
	Pattern string

	re *regexp.Regexp
}

// Parse разбирает текст фильтра вида column=pattern
// Разделение по первому '=': "expr=a=b" дает колонку "expr" и pattern "a=b"
func Parse(text string) (Expression, error) {
	column, pattern, found := strings.Cut(text, "=")
	if !found {
		return Expression{}, fmt.Errorf("%w: expected column=pattern, got %q", table.ErrInvalidFilter, text)
	}
	if column == "" {
		return Expression{}, fmt.Errorf("%w: empty column name", table.ErrUnknownColumn)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %w", table.ErrInvalidFilter, err)
	}

	return Expression{Column: column, Pattern: pattern, re: re}, nil
}

// All возвращает фильтр, пропускающий все строки (используется для Reset)
func All() Expression {
	return Expression{}
}

// AllColumns сообщает, применяется ли фильтр ко всем колонкам
func (e Expression) AllColumns() bool {
	return e.Column == ""
}

// String возвращает фильтр в исходном виде
func (e Expression) String() string {
	if e.AllColumns() && e.Pattern == "" {
		return ""
	}
	return e.Column + "=" + e.Pattern
}

// matches проверяет значение ячейки
func (e Expression) matches(value any) bool {
	if e.re == nil {
		return true
	}
	return e.re.MatchString(table.FormatValue(value))
}

// Result - итог применения фильтра
type Result struct {
	Expression Expression

	// Visible - индексы видимых строк исходной таблицы, по возрастанию
	Visible []int

	// Total - количество строк исходной таблицы
	Total int
}

// Match вычисляет индексы строк, прошедших фильтр
// Порядок строк сохраняется, таблица не изменяется
// Если колонка не найдена, возвращается table.ErrUnknownColumn
func Match(t *table.Table, expr Expression) (Result, error) {
	col := -1
	if !expr.AllColumns() {
		idx, ok := t.ColumnIndex(expr.Column)
		if !ok {
			return Result{}, fmt.Errorf("%w: %q", table.ErrUnknownColumn, expr.Column)
		}
		col = idx
	}

	visible := make([]int, 0, len(t.Rows))
	for i, row := range t.Rows {
		if rowMatches(row, col, expr) {
			visible = append(visible, i)
		}
	}

	return Result{Expression: expr, Visible: visible, Total: len(t.Rows)}, nil
}

func rowMatches(row table.Row, col int, expr Expression) bool {
	if expr.re == nil {
		return true
	}

	if col >= 0 {
		if col >= len(row) {
			return false
		}
		return expr.matches(row[col])
	}

	// Все колонки: достаточно совпадения в любой
	for _, v := range row {
		if expr.matches(v) {
			return true
		}
	}
	return false
}
