package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	"github.com/ruslano69/tdtp-editor/pkg/processors"
)

// maxSheetNameLen is the Excel limit for sheet names
const maxSheetNameLen = 31

// InMemoryToXLSX - write a table to a single-sheet XLSX file
//
// Sheet name is Options.SheetName, or the destination file name.
func (e *Exporter) InMemoryToXLSX(tbl *table.Table, destPath string) (*Report, error) {
	sheet := e.opts.SheetName
	if sheet == "" {
		sheet = TableNameFor(destPath)
	}
	return e.writeXLSX(context.Background(), destPath, []string{sheet}, func(context.Context, string) (*table.Table, error) {
		return tbl, nil
	})
}

// RelationalToXLSX - write every table in names to its own sheet of one XLSX file
func (e *Exporter) RelationalToXLSX(ctx context.Context, reader TableReader, names []string, destPath string) (*Report, error) {
	return e.writeXLSX(ctx, destPath, names, reader.ReadTable)
}

func (e *Exporter) writeXLSX(ctx context.Context, destPath string, names []string, read func(context.Context, string) (*table.Table, error)) (*Report, error) {
	report := &Report{}

	f := excelize.NewFile()
	defer f.Close()

	// Create header style
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		report.fail(destPath, "", err)
		return e.finish(report)
	}

	used := make(map[string]bool)
	var written []FileResult

	for _, name := range names {
		tbl, err := read(ctx, name)
		if err != nil {
			report.fail(destPath, name, err)
			continue
		}

		sheet := uniqueSheetName(name, used)
		if err := writeSheet(f, sheet, tbl, headerStyle); err != nil {
			if !strings.EqualFold(sheet, "Sheet1") {
				f.DeleteSheet(sheet)
			}
			report.fail(destPath, name, err)
			continue
		}
		used[strings.ToLower(sheet)] = true

		written = append(written, FileResult{Path: destPath, Table: name, Rows: tbl.RowCount()})
	}

	if len(written) == 0 {
		// No sheet was written, the file is not created
		if len(report.Failures) == 0 {
			report.fail(destPath, "", fmt.Errorf("no tables to export"))
		}
		return e.finish(report)
	}

	// Drop the default sheet unless one of the tables took its name
	if !used["sheet1"] {
		f.DeleteSheet("Sheet1")
	}
	if idx, err := f.GetSheetIndex(firstSheet(f)); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	size, sum, err := saveWorkbook(f, destPath)
	if err != nil {
		report.fail(destPath, "", err)
		return e.finish(report)
	}

	for _, res := range written {
		res.Bytes = size
		res.Checksum = sum
		report.Files = append(report.Files, res)
		e.logFile(res)
	}

	return e.finish(report)
}

// writeSheet creates a sheet with a styled header row and data rows.
// Numbers stay numeric, NULL becomes an empty cell.
func writeSheet(f *excelize.File, sheet string, tbl *table.Table, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	// Write headers
	for col, name := range tbl.Header() {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	// Write data rows
	for rowIdx, row := range tbl.Rows {
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = excelValue(v)
		}
		if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(rowIdx+2), &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowIdx, err)
		}
	}

	// Fixed column width
	for col := range tbl.Columns {
		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		f.SetColWidth(sheet, colName, colName, 15)
	}

	return nil
}

// excelValue converts a cell value to a type excelize writes natively
func excelValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int64, int, float64, bool, string:
		return val
	default:
		return table.FormatValue(val)
	}
}

// saveWorkbook writes the workbook and returns its size and xxh3 checksum
func saveWorkbook(f *excelize.File, path string) (int64, string, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, "", err
	}

	checksum := processors.NewChecksumWriter()
	_, err = f.WriteTo(io.MultiWriter(file, checksum))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, "", err
	}

	return checksum.Size(), checksum.Sum(), nil
}

func firstSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	return sheets[0]
}

// SheetName converts a table name to a valid Excel sheet name:
// forbidden characters become '_', length is cut to 31 runes
func SheetName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	cleaned = strings.Trim(cleaned, "'")
	if cleaned == "" {
		cleaned = "Sheet"
	}

	runes := []rune(cleaned)
	if len(runes) > maxSheetNameLen {
		runes = runes[:maxSheetNameLen]
	}
	return string(runes)
}

// uniqueSheetName makes names distinct after sanitizing (Excel compares them case-insensitively)
func uniqueSheetName(name string, used map[string]bool) string {
	base := SheetName(name)
	if !used[strings.ToLower(base)] {
		return base
	}

	for i := 2; ; i++ {
		suffix := "_" + strconv.Itoa(i)
		runes := []rune(base)
		if len(runes)+len(suffix) > maxSheetNameLen {
			runes = runes[:maxSheetNameLen-len(suffix)]
		}
		candidate := string(runes) + suffix
		if !used[strings.ToLower(candidate)] {
			return candidate
		}
	}
}
