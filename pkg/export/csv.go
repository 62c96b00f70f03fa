package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	"github.com/ruslano69/tdtp-editor/pkg/processors"
)

// InMemoryToCSV записывает заголовок и все строки таблицы в один файл
// Путь *.csv.zst сжимается zstd
func (e *Exporter) InMemoryToCSV(tbl *table.Table, destPath string) (*Report, error) {
	report := &Report{}

	res, err := e.writeCSVFile(tbl, destPath)
	if err != nil {
		report.fail(destPath, "", err)
		return e.finish(report)
	}

	report.Files = append(report.Files, res)
	e.logFile(res)
	return e.finish(report)
}

// RelationalToCSV записывает каждую таблицу из names в свой файл <base>_<table>.csv
// Ошибка чтения или записи одной таблицы не прерывает остальные
func (e *Exporter) RelationalToCSV(ctx context.Context, reader TableReader, names []string, destBase string) (*Report, error) {
	report := &Report{}

	for _, name := range names {
		path := FanOutPath(destBase, name)

		tbl, err := reader.ReadTable(ctx, name)
		if err != nil {
			report.fail(path, name, err)
			continue
		}

		res, err := e.writeCSVFile(tbl, path)
		if err != nil {
			report.fail(path, name, err)
			continue
		}

		res.Table = name
		report.Files = append(report.Files, res)
		e.logFile(res)
	}

	return e.finish(report)
}

// writeCSVFile пишет таблицу в файл; при ошибке частично записанный файл удаляется
func (e *Exporter) writeCSVFile(tbl *table.Table, path string) (FileResult, error) {
	file, err := os.Create(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("%w: %w", table.ErrExportIO, err)
	}

	checksum := processors.NewChecksumWriter()
	out := io.MultiWriter(file, checksum)

	err = e.writeCSV(out, tbl, processors.IsCompressed(path))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return FileResult{}, fmt.Errorf("%w: %s: %w", table.ErrExportIO, path, err)
	}

	return FileResult{
		Path:     path,
		Rows:     tbl.RowCount(),
		Bytes:    checksum.Size(),
		Checksum: checksum.Sum(),
	}, nil
}

// writeCSV сериализует таблицу в w, при compress - через zstd
func (e *Exporter) writeCSV(w io.Writer, tbl *table.Table, compress bool) error {
	if !compress {
		return e.encodeCSV(w, tbl)
	}

	zw, err := processors.NewCompressionWriter(w, e.opts.CompressLevel)
	if err != nil {
		return err
	}
	if err := e.encodeCSV(zw, tbl); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (e *Exporter) encodeCSV(w io.Writer, tbl *table.Table) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = e.opts.UseCRLF

	lineEnd := "\n"
	if e.opts.UseCRLF {
		lineEnd = "\r\n"
	}

	if err := writeRecord(writer, w, tbl.Header(), lineEnd); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range tbl.Rows {
		if err := writeRecord(writer, w, row.Text(), lineEnd); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// writeRecord пишет одну запись
// Одиночное пустое значение csv.Writer выводит пустой строкой, которую
// csv.Reader пропускает, поэтому оно пишется явно как ""
func writeRecord(writer *csv.Writer, w io.Writer, record []string, lineEnd string) error {
	if len(record) == 1 && record[0] == "" {
		writer.Flush()
		if err := writer.Error(); err != nil {
			return err
		}
		_, err := io.WriteString(w, `""`+lineEnd)
		return err
	}
	return writer.Write(record)
}
