package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

// ReplaceTable атомарно заменяет таблицу содержимым tbl
// DROP + CREATE + INSERT выполняются в одной транзакции
// Типы колонок: объявленный Column.Type, если он есть; иначе TEXT
// для текстовых данных или тип, выведенный по значениям
func (a *Adapter) ReplaceTable(ctx context.Context, tableName string, tbl *table.Table) error {
	if a.db == nil {
		return errNotConnected
	}
	if tbl.ColumnCount() == 0 {
		return fmt.Errorf("table %s has no columns", tableName)
	}

	start := time.Now()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(tableName)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}

	if _, err := tx.ExecContext(ctx, createTableStatement(tableName, tbl)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	if tbl.RowCount() > 0 {
		stmt, err := tx.PrepareContext(ctx, insertStatement(tableName, tbl))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		args := make([]any, tbl.ColumnCount())
		for rowIdx, row := range tbl.Rows {
			for i := range args {
				args[i] = nil
				if i < len(row) {
					args[i] = toSQLValue(row[i])
				}
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert row %d: %w", rowIdx, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	a.log.Debug().
		Str("table", tableName).
		Int("rows", tbl.RowCount()).
		Dur("duration", time.Since(start)).
		Msg("table replaced")

	return nil
}

func createTableStatement(tableName string, tbl *table.Table) string {
	columns := make([]string, tbl.ColumnCount())
	for i, col := range tbl.Columns {
		declType := col.Type
		if declType == "" {
			declType = string(tbl.InferAffinity(i))
		}
		columns[i] = fmt.Sprintf("%s %s", QuoteIdent(col.Name), declType)
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)",
		QuoteIdent(tableName),
		strings.Join(columns, ",\n  "))
}

func insertStatement(tableName string, tbl *table.Table) string {
	fieldNames := make([]string, tbl.ColumnCount())
	placeholders := make([]string, tbl.ColumnCount())
	for i, col := range tbl.Columns {
		fieldNames[i] = QuoteIdent(col.Name)
		placeholders[i] = "?"
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(tableName),
		strings.Join(fieldNames, ", "),
		strings.Join(placeholders, ", "))
}

// toSQLValue приводит значение ячейки к типу, который принимает драйвер
func toSQLValue(v any) any {
	switch val := v.(type) {
	case nil, string, []byte, int64, float64:
		return val
	case int:
		return int64(val)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return table.FormatValue(val)
	}
}
