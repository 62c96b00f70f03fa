package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	"github.com/ruslano69/tdtp-editor/pkg/export"
)

// renderTable prints at most maxRows rows of tbl (0 = all)
func renderTable(out io.Writer, tbl *table.Table, maxRows int) {
	if tbl == nil || tbl.ColumnCount() == 0 {
		fmt.Fprintln(out, "(no columns)")
		return
	}

	tw := tablewriter.NewWriter(out)
	tw.SetHeader(tbl.Header())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)

	shown := tbl.RowCount()
	if maxRows > 0 && shown > maxRows {
		shown = maxRows
	}
	for _, row := range tbl.Rows[:shown] {
		tw.Append(row.Text())
	}
	tw.Render()

	if hidden := tbl.RowCount() - shown; hidden > 0 {
		fmt.Fprintf(out, "... %s more rows\n", humanize.Comma(int64(hidden)))
	}
	fmt.Fprintf(out, "%s rows, %d columns\n", humanize.Comma(int64(tbl.RowCount())), tbl.ColumnCount())
}

// renderReport prints the files written by an export and its failures
func renderReport(out io.Writer, report *export.Report) {
	if report == nil {
		return
	}

	if len(report.Files) > 0 {
		tw := tablewriter.NewWriter(out)
		tw.SetHeader([]string{"File", "Table", "Rows", "Size", "xxh3"})
		tw.SetAutoFormatHeaders(false)
		tw.SetAutoWrapText(false)
		for _, f := range report.Files {
			tw.Append([]string{
				f.Path,
				f.Table,
				humanize.Comma(int64(f.Rows)),
				humanize.Bytes(uint64(f.Bytes)),
				f.Checksum,
			})
		}
		tw.Render()
	}

	for _, f := range report.Failures {
		fmt.Fprintf(out, "FAILED: %v\n", f)
	}
}

// renderNames prints a numbered list of table names, marking the selected one
func renderNames(out io.Writer, names []string, selected string) {
	if len(names) == 0 {
		fmt.Fprintln(out, "(no tables)")
		return
	}

	tw := tablewriter.NewWriter(out)
	tw.SetHeader([]string{"#", "Table", ""})
	tw.SetAutoFormatHeaders(false)
	for i, name := range names {
		mark := ""
		if name == selected {
			mark = "*"
		}
		tw.Append([]string{fmt.Sprint(i), name, mark})
	}
	tw.Render()
}
