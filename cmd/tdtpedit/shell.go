package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/shlex"

	"github.com/ruslano69/tdtp-editor/pkg/audit"
	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	"github.com/ruslano69/tdtp-editor/pkg/session"
)

// errQuit ends the shell loop
var errQuit = errors.New("quit")

// Shell is the line-oriented front end over a session.
// Lines that do not start with a command are passed to Session.Submit,
// so "name=Bob" filters a CSV table and "SELECT ..." queries a database.
type Shell struct {
	sess    *session.Session
	out     io.Writer
	cfg     ShellConfig
	history *audit.DatabaseAppender
}

// shellCommand handles one command; args is the rest of the line
type shellCommand struct {
	usage   string
	help    string
	raw     bool // args passed verbatim instead of shell-split
	handler func(sh *Shell, ctx context.Context, args []string, raw string) error
}

var shellCommands map[string]shellCommand

func init() {
	shellCommands = map[string]shellCommand{
		"open":    {usage: "open <path>", help: "Open a .csv, .csv.zst or .db file", handler: (*Shell).cmdOpen},
		"show":    {usage: "show [n]", help: "Print the visible table (first n rows)", handler: (*Shell).cmdShow},
		"filter":  {usage: "filter <column=pattern>", help: "Filter a CSV table by regular expression", raw: true, handler: (*Shell).cmdFilter},
		"query":   {usage: "query <sql>", help: "Run a statement against the open database", raw: true, handler: (*Shell).cmdQuery},
		"tables":  {usage: "tables", help: "List database tables", handler: (*Shell).cmdTables},
		"use":     {usage: "use <index|name>", help: "Show all rows of a database table", handler: (*Shell).cmdUse},
		"reset":   {usage: "reset", help: "Clear the filter or re-read the selected table", handler: (*Shell).cmdReset},
		"save":    {usage: "save <path>", help: "Export to .csv, .csv.zst, .db or .xlsx", handler: (*Shell).cmdSave},
		"info":    {usage: "info", help: "Show what is open", handler: (*Shell).cmdInfo},
		"history": {usage: "history [n]", help: "Show recent audited operations", handler: (*Shell).cmdHistory},
		"help":    {usage: "help", help: "Show this help", handler: (*Shell).cmdHelp},
		"quit":    {usage: "quit", help: "Exit", handler: func(*Shell, context.Context, []string, string) error { return errQuit }},
	}
	shellCommands["exit"] = shellCommands["quit"]
}

// NewShell creates a shell over sess
func NewShell(sess *session.Session, out io.Writer, cfg ShellConfig, history *audit.DatabaseAppender) *Shell {
	return &Shell{sess: sess, out: out, cfg: cfg, history: history}
}

// Run reads commands from in until EOF or quit
func (sh *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for {
		fmt.Fprint(sh.out, sh.cfg.Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(sh.out)
			return scanner.Err()
		}

		err := sh.Execute(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			sh.printError(err)
		}
	}
}

// Execute runs a single command line
func (sh *Shell) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	word, rest, _ := strings.Cut(line, " ")
	cmd, ok := shellCommands[strings.ToLower(word)]
	if !ok {
		return sh.submit(ctx, line)
	}

	rest = strings.TrimSpace(rest)
	var args []string
	if !cmd.raw && rest != "" {
		var err error
		args, err = shlex.Split(rest)
		if err != nil {
			return fmt.Errorf("cannot parse arguments: %w", err)
		}
	}

	return cmd.handler(sh, ctx, args, rest)
}

func (sh *Shell) printError(err error) {
	if session.IsRecoverable(err) {
		fmt.Fprintf(sh.out, "%v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "Error: %v\n%s\n", err, table.Remedy(err))
}

func (sh *Shell) submit(ctx context.Context, text string) error {
	if sh.sess.Mode() == session.ModeQuery {
		return sh.cmdQuery(ctx, nil, text)
	}

	tbl, err := sh.sess.Submit(ctx, text)
	if err != nil {
		return err
	}
	renderTable(sh.out, tbl, sh.cfg.MaxRows)
	return nil
}

func (sh *Shell) show() error {
	tbl, err := sh.sess.VisibleTable()
	if err != nil {
		return err
	}
	renderTable(sh.out, tbl, sh.cfg.MaxRows)
	return nil
}

func (sh *Shell) cmdOpen(ctx context.Context, args []string, _ string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open <path>")
	}

	mode, err := sh.sess.Open(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(sh.out, "Opened %s (%s mode)\n", args[0], mode)
	if mode == session.ModeQuery {
		selected, _ := sh.sess.SelectedTable()
		renderNames(sh.out, sh.sess.Tables(), selected)
	}
	return sh.show()
}

func (sh *Shell) cmdShow(_ context.Context, args []string, _ string) error {
	tbl, err := sh.sess.VisibleTable()
	if err != nil {
		return err
	}

	limit := sh.cfg.MaxRows
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fmt.Errorf("usage: show [n]")
		}
		limit = n
	}
	renderTable(sh.out, tbl, limit)
	return nil
}

func (sh *Shell) cmdFilter(_ context.Context, _ []string, raw string) error {
	res, err := sh.sess.Filter(raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%d of %d rows match %s\n", len(res.Visible), res.Total, res.Expression)
	return sh.show()
}

func (sh *Shell) cmdQuery(ctx context.Context, _ []string, raw string) error {
	start := time.Now()
	tbl, ok, err := sh.sess.Query(ctx, raw)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(sh.out, "Statement executed in %v, no result set\n", time.Since(start).Round(time.Millisecond))
		return nil
	}
	renderTable(sh.out, tbl, sh.cfg.MaxRows)
	return nil
}

func (sh *Shell) cmdTables(context.Context, []string, string) error {
	if sh.sess.Mode() != session.ModeQuery {
		if sh.sess.Mode() == session.ModeNone {
			return table.ErrNoSource
		}
		return fmt.Errorf("%w: CSV files have no tables", table.ErrNotSupported)
	}
	selected, _ := sh.sess.SelectedTable()
	renderNames(sh.out, sh.sess.Tables(), selected)
	return nil
}

// cmdUse picks a catalog table by index or name
func (sh *Shell) cmdUse(ctx context.Context, args []string, _ string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: use <index|name>")
	}

	var (
		tbl *table.Table
		err error
	)
	if index, convErr := strconv.Atoi(args[0]); convErr == nil {
		tbl, err = sh.sess.SelectTable(ctx, index)
	} else {
		tbl, err = sh.sess.SelectTableByName(ctx, args[0])
	}
	if err != nil {
		return err
	}

	renderTable(sh.out, tbl, sh.cfg.MaxRows)
	return nil
}

func (sh *Shell) cmdReset(ctx context.Context, _ []string, _ string) error {
	tbl, err := sh.sess.Reset(ctx)
	if err != nil {
		return err
	}
	renderTable(sh.out, tbl, sh.cfg.MaxRows)
	return nil
}

func (sh *Shell) cmdSave(ctx context.Context, args []string, _ string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: save <path>")
	}

	report, err := sh.sess.Save(ctx, args[0])
	renderReport(sh.out, report)
	if err != nil {
		return err
	}

	fmt.Fprintf(sh.out, "Saved %s rows to %d file(s)\n", humanize.Comma(int64(report.Rows())), len(report.Paths()))
	return nil
}

func (sh *Shell) cmdInfo(context.Context, []string, string) error {
	info, err := sh.sess.Info()
	if err != nil {
		return err
	}

	fmt.Fprintf(sh.out, "File:     %s\n", info.Path)
	fmt.Fprintf(sh.out, "Mode:     %s\n", info.Mode)
	fmt.Fprintf(sh.out, "Columns:  %d\n", info.Columns)
	fmt.Fprintf(sh.out, "Rows:     %s visible of %s\n", humanize.Comma(int64(info.VisibleRows)), humanize.Comma(int64(info.Rows)))
	if info.Adjusted > 0 {
		fmt.Fprintf(sh.out, "Adjusted: %d rows padded or truncated to the header width\n", info.Adjusted)
	}
	if info.Filter != "" {
		fmt.Fprintf(sh.out, "Filter:   %s\n", info.Filter)
	}
	if info.Mode == session.ModeQuery {
		fmt.Fprintf(sh.out, "Tables:   %s\n", strings.Join(info.Tables, ", "))
		fmt.Fprintf(sh.out, "Selected: %s\n", info.Selected)
		fmt.Fprintf(sh.out, "Query:    %s\n", info.Statement)
	}
	return nil
}

func (sh *Shell) cmdHistory(ctx context.Context, args []string, _ string) error {
	if sh.history == nil {
		return fmt.Errorf("%w: set audit.database in the config to keep history", table.ErrNotSupported)
	}

	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("usage: history [n]")
		}
		limit = n
	}

	entries, err := sh.history.Query(ctx, audit.QueryFilter{Limit: limit})
	if err != nil {
		return err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Fprintf(sh.out, "%s  %-7s %-8s %s %s\n",
			humanize.Time(e.Timestamp), e.Operation, e.Status, e.Source, e.Resource)
	}
	return nil
}

func (sh *Shell) cmdHelp(context.Context, []string, string) error {
	names := []string{"open", "show", "filter", "query", "tables", "use", "reset", "save", "info", "history", "help", "quit"}
	for _, name := range names {
		cmd := shellCommands[name]
		fmt.Fprintf(sh.out, "  %-26s %s\n", cmd.usage, cmd.help)
	}
	fmt.Fprintln(sh.out, "Any other input is applied as a filter (CSV) or a query (database).")
	return nil
}
