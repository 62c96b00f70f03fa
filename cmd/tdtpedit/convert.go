package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ruslano69/tdtp-editor/pkg/session"
)

// runConvert opens the source, applies --filter or --query and saves
func runConvert(ctx context.Context, sess *session.Session) error {
	if _, err := sess.Open(ctx, *convertSrc); err != nil {
		return err
	}

	if *convertFilter != "" {
		res, err := sess.Filter(*convertFilter)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d of %d rows match %s\n", len(res.Visible), res.Total, res.Expression)
	}

	if *convertQuery != "" {
		if _, _, err := sess.Query(ctx, *convertQuery); err != nil {
			return err
		}
	}

	report, err := sess.Save(ctx, *convertDst)
	renderReport(os.Stdout, report)
	if err != nil {
		return err
	}

	fmt.Printf("Converted %s rows into %d file(s)\n", humanize.Comma(int64(report.Rows())), len(report.Paths()))
	return nil
}

// runTables prints every table of a database with its row count
func runTables(ctx context.Context, sess *session.Session) error {
	mode, err := sess.Open(ctx, *tablesFile)
	if err != nil {
		return err
	}
	if mode != session.ModeQuery {
		return fmt.Errorf("%s is not a database", *tablesFile)
	}

	for i, name := range sess.Tables() {
		tbl, err := sess.SelectTable(ctx, i)
		if err != nil {
			fmt.Printf("%-30s error: %v\n", name, err)
			continue
		}
		fmt.Printf("%-30s %12s rows  %d columns\n", name, humanize.Comma(int64(tbl.RowCount())), tbl.ColumnCount())
	}
	return nil
}

// quoteArg quotes a path for the shell line parser
func quoteArg(s string) string {
	if !strings.ContainsAny(s, " \t'\"\\") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
