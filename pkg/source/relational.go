package source

import (
	"context"
	"fmt"

	"github.com/ruslano69/tdtp-editor/pkg/adapters/sqlite"
	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

var _ Source = (*RelationalResult)(nil)

// RelationalResult - результат текущего запроса к открытой базе SQLite
// Данные не хранятся отдельно: видимая таблица - то, что вернул последний
// оператор с набором строк
type RelationalResult struct {
	adapter   *sqlite.Adapter
	statement string
	visible   *table.Table
}

// OpenDatabase открывает файл SQLite
// Ошибки открытия оборачивают table.ErrConnectionFailed
func OpenDatabase(ctx context.Context, path string, opts sqlite.Options) (*RelationalResult, error) {
	adapter, err := sqlite.Open(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return &RelationalResult{adapter: adapter, visible: &table.Table{}}, nil
}

// Kind реализует Source
func (r *RelationalResult) Kind() Kind {
	return KindRelational
}

// Path реализует Source
func (r *RelationalResult) Path() string {
	return r.adapter.Path()
}

// VisibleTable реализует Source
func (r *RelationalResult) VisibleTable() *table.Table {
	return r.visible
}

// Statement возвращает оператор, результат которого отображается
func (r *RelationalResult) Statement() string {
	return r.statement
}

// Close закрывает handle базы; повторный вызов безопасен
func (r *RelationalResult) Close() error {
	return r.adapter.Close()
}

// Closed сообщает, закрыт ли handle
func (r *RelationalResult) Closed() bool {
	return r.adapter.Closed()
}

// TableNames возвращает таблицы базы в порядке создания
func (r *RelationalResult) TableNames(ctx context.Context) ([]string, error) {
	return r.adapter.GetTableNames(ctx)
}

// Execute выполняет оператор и, если он вернул набор строк, заменяет видимую таблицу
// Оператор без набора строк (UPDATE/INSERT/DDL) оставляет прежнюю таблицу,
// второе значение в этом случае false
// При ошибке видимая таблица и текущий оператор не меняются
func (r *RelationalResult) Execute(ctx context.Context, statement string) (*table.Table, bool, error) {
	if r.adapter.Closed() {
		return nil, false, fmt.Errorf("%w: database is closed", table.ErrSQL)
	}

	tbl, ok, err := r.adapter.Query(ctx, statement)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return r.visible, false, nil
	}

	r.statement = statement
	r.visible = tbl
	return tbl, true, nil
}

// ReadTable читает всю таблицу, не затрагивая видимый результат
func (r *RelationalResult) ReadTable(ctx context.Context, tableName string) (*table.Table, error) {
	if r.adapter.Closed() {
		return nil, fmt.Errorf("%w: database is closed", table.ErrSQL)
	}
	return r.adapter.ReadTable(ctx, tableName)
}
