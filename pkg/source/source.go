// Package source описывает источники табличных данных редактора.
//
// Источник бывает двух видов:
//   - MemoryTable: таблица, целиком загруженная из CSV. Фильтр строит
//     представление поверх неизменной таблицы.
//   - RelationalResult: результат последнего запроса к открытой базе SQLite.
//     Новый запрос атомарно заменяет видимую таблицу.
//
// Операции, не определенные для вида источника, возвращают table.ErrNotSupported.
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

// Kind - вид источника
type Kind int

const (
	KindMemory Kind = iota + 1
	KindRelational
)

// String - строковое представление вида
func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindRelational:
		return "relational"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Source - общий интерфейс источников
type Source interface {
	// Kind возвращает вид источника
	Kind() Kind

	// Path возвращает путь к файлу, из которого открыт источник
	Path() string

	// VisibleTable возвращает отображаемую таблицу
	// (после фильтра для MemoryTable, после запроса для RelationalResult)
	VisibleTable() *table.Table

	// Close освобождает ресурсы; повторный вызов безопасен
	Close() error
}

// Format - формат файла, определяемый по расширению
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatCSVZstd
	FormatSQLite
	FormatXLSX
)

// String - строковое представление формата
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatCSVZstd:
		return "csv.zst"
	case FormatSQLite:
		return "sqlite"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// DetectFormat определяет формат по суффиксу пути
// Содержимое файла не анализируется
func DetectFormat(path string) (Format, error) {
	lower := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lower, ".csv.zst"):
		return FormatCSVZstd, nil
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(lower, ".db"),
		strings.HasSuffix(lower, ".sqlite"),
		strings.HasSuffix(lower, ".sqlite3"):
		return FormatSQLite, nil
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatXLSX, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", table.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// TrimFormatSuffix отрезает расширение формата от пути
// "out/data.csv.zst" -> "out/data"
func TrimFormatSuffix(path string) string {
	format, err := DetectFormat(path)
	if err != nil {
		return strings.TrimSuffix(path, filepath.Ext(path))
	}
	if format == FormatCSVZstd {
		return path[:len(path)-len(".csv.zst")]
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}
