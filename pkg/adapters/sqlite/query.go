package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

// QuoteIdent экранирует имя таблицы или колонки для SQL
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SelectAllStatement формирует запрос выборки всей таблицы
func SelectAllStatement(tableName string) string {
	return "SELECT * FROM " + QuoteIdent(tableName)
}

// Query выполняет произвольный SQL и возвращает результат как таблицу
// Второе значение false, если оператор не вернул набор строк
// (UPDATE/INSERT/DDL): их эффект сохраняется в файле, таблица равна nil
func (a *Adapter) Query(ctx context.Context, statement string) (*table.Table, bool, error) {
	if a.db == nil {
		return nil, false, fmt.Errorf("%w: %w", table.ErrSQL, errNotConnected)
	}
	if strings.TrimSpace(statement) == "" {
		return nil, false, fmt.Errorf("%w: empty statement", table.ErrSQL)
	}

	rows, err := a.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", table.ErrSQL, err)
	}
	defer rows.Close()

	// Получаем информацию о колонках
	columns, err := rows.Columns()
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to get columns: %w", table.ErrSQL, err)
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to get column types: %w", table.ErrSQL, err)
	}

	result, err := scanRows(rows, len(columns))
	if err != nil {
		return nil, false, err
	}

	if len(columns) == 0 {
		a.log.Debug().Str("statement", statement).Msg("statement produced no result set")
		return nil, false, nil
	}

	tbl := table.New(columns, result)
	for i, ct := range types {
		tbl.Columns[i].Type = ct.DatabaseTypeName()
	}
	return tbl, true, nil
}

// timeDeclTypes - объявленные типы, текст которых драйвер разбирает в time.Time
var timeDeclTypes = map[string]bool{
	"DATE":      true,
	"DATETIME":  true,
	"TIMESTAMP": true,
}

// ReadTable читает все строки таблицы с сохраненными значениями
// Колонки DATE/DATETIME/TIMESTAMP выбираются как +"col": у выражения нет
// объявленного типа, и драйвер возвращает текст в том виде, как он хранится.
// Column.Type результата - объявленный тип колонки таблицы
func (a *Adapter) ReadTable(ctx context.Context, tableName string) (*table.Table, error) {
	declared, err := a.TableColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}

	tbl, ok, err := a.Query(ctx, readStatement(tableName, declared))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: table %s returned no result set", table.ErrSQL, tableName)
	}

	if len(declared) == len(tbl.Columns) {
		for i := range tbl.Columns {
			tbl.Columns[i].Type = declared[i].Type
		}
	}
	return tbl, nil
}

// TableColumns возвращает колонки таблицы с объявленными типами в порядке создания
// Вычисляемые колонки включаются, скрытые колонки виртуальных таблиц - нет
func (a *Adapter) TableColumns(ctx context.Context, tableName string) ([]table.Column, error) {
	if a.db == nil {
		return nil, fmt.Errorf("%w: %w", table.ErrSQL, errNotConnected)
	}

	rows, err := a.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_xinfo(?) WHERE hidden <> 1 ORDER BY cid", tableName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get columns of %s: %w", table.ErrSQL, tableName, err)
	}
	defer rows.Close()

	columns := []table.Column{}
	for rows.Next() {
		var col table.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("%w: failed to scan column of %s: %w", table.ErrSQL, tableName, err)
		}
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// readStatement формирует выборку всех колонок; без сведений о колонках - SELECT *
func readStatement(tableName string, columns []table.Column) string {
	if len(columns) == 0 {
		return SelectAllStatement(tableName)
	}

	fields := make([]string, len(columns))
	for i, col := range columns {
		name := QuoteIdent(col.Name)
		if timeDeclTypes[strings.ToUpper(col.Type)] {
			fields[i] = "+" + name + " AS " + name
		} else {
			fields[i] = name
		}
	}
	return "SELECT " + strings.Join(fields, ", ") + " FROM " + QuoteIdent(tableName)
}

// scanRows читает все строки, сохраняя типы значений драйвера
func scanRows(rows *sql.Rows, width int) ([]table.Row, error) {
	result := []table.Row{}

	// Подготавливаем scanner для всех колонок
	values := make([]any, width)
	scanArgs := make([]any, width)
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %w", table.ErrSQL, err)
		}

		row := make(table.Row, width)
		copy(row, values)
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error reading rows: %w", table.ErrSQL, err)
	}

	return result, nil
}
