package export

import (
	"context"
	"fmt"

	"github.com/ruslano69/tdtp-editor/pkg/adapters/sqlite"
	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

// InMemoryToDB создает (или дополняет) файл SQLite и заменяет в нем таблицу,
// названную по имени файла назначения
// Значения CSV текстовые, поэтому все колонки получают тип TEXT
func (e *Exporter) InMemoryToDB(ctx context.Context, tbl *table.Table, destPath string) (*Report, error) {
	name := TableNameFor(destPath)
	return e.writeDB(ctx, destPath, []string{name}, func(context.Context, string) (*table.Table, error) {
		return tbl, nil
	})
}

// RelationalToDB копирует каждую таблицу из names в таблицу с тем же именем
// в файле назначения, заменяя существующие
func (e *Exporter) RelationalToDB(ctx context.Context, reader TableReader, names []string, destPath string) (*Report, error) {
	return e.writeDB(ctx, destPath, names, reader.ReadTable)
}

func (e *Exporter) writeDB(ctx context.Context, destPath string, names []string, read func(context.Context, string) (*table.Table, error)) (*Report, error) {
	report := &Report{}

	adapter, err := sqlite.Create(ctx, destPath, sqlite.Options{Logger: e.opts.Logger})
	if err != nil {
		for _, name := range names {
			report.fail(destPath, name, err)
		}
		return e.finish(report)
	}

	var written []FileResult
	for _, name := range names {
		tbl, err := read(ctx, name)
		if err != nil {
			report.fail(destPath, name, err)
			continue
		}

		if err := adapter.ReplaceTable(ctx, name, tbl); err != nil {
			report.fail(destPath, name, fmt.Errorf("%w: %w", table.ErrExportIO, err))
			continue
		}

		written = append(written, FileResult{Path: destPath, Table: name, Rows: tbl.RowCount()})
	}

	if err := adapter.Close(); err != nil {
		report.fail(destPath, "", fmt.Errorf("%w: failed to close database: %w", table.ErrExportIO, err))
		return e.finish(report)
	}

	size, sum, err := fileChecksum(destPath)
	if err != nil {
		report.fail(destPath, "", fmt.Errorf("%w: %w", table.ErrExportIO, err))
	}

	for _, res := range written {
		res.Bytes = size
		res.Checksum = sum
		report.Files = append(report.Files, res)
		e.logFile(res)
	}

	return e.finish(report)
}
