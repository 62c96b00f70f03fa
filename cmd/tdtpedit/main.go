// Command tdtpedit is a terminal front end for the table editor core:
// open a CSV or SQLite file, filter or query it, and save it back as
// CSV, compressed CSV, SQLite or XLSX.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-editor/pkg/audit"
	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	"github.com/ruslano69/tdtp-editor/pkg/export"
	"github.com/ruslano69/tdtp-editor/pkg/session"
)

const version = "0.3.0"

var (
	app = kingpin.New("tdtpedit", "Table editor for CSV and SQLite files.")

	configPath = app.Flag("config", "Configuration file.").Short('c').Default("tdtpedit.yaml").String()
	logLevel   = app.Flag("log-level", "Override log.level (debug, info, warn, error).").String()
	verbose    = app.Flag("verbose", "Same as --log-level=debug.").Short('v').Bool()
	traceSQL   = app.Flag("trace-sql", "Print every SQL statement sent to the database.").Bool()
	readOnly   = app.Flag("read-only", "Reject statements other than SELECT and WITH in query mode.").Bool()

	shellCmd  = app.Command("shell", "Interactive editor shell.").Default()
	shellFile = shellCmd.Arg("file", "File to open on start.").String()

	convertCmd    = app.Command("convert", "Open a file and save it in another format.")
	convertSrc    = convertCmd.Arg("source", "Input .csv, .csv.zst or .db file.").Required().String()
	convertDst    = convertCmd.Arg("destination", "Output .csv, .csv.zst, .db or .xlsx file.").Required().String()
	convertFilter = convertCmd.Flag("filter", "column=pattern filter; only matching CSV rows are saved.").String()
	convertQuery  = convertCmd.Flag("query", "Statement run against the database before saving.").String()

	tablesCmd  = app.Command("tables", "List tables of a database with row counts.")
	tablesFile = tablesCmd.Arg("database", "SQLite file.").Required().String()

	configCmd       = app.Command("config", "Configuration helpers.")
	configInitCmd   = configCmd.Command("init", "Write a sample configuration file.")
	configInitOut   = configInitCmd.Flag("output", "Where to write the sample.").Short('o').Default("tdtpedit.yaml").String()
	configInitForce = configInitCmd.Flag("force", "Overwrite an existing file.").Bool()
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == configInitCmd.FullCommand() {
		app.FatalIfError(initConfig(*configInitOut, *configInitForce), "config init")
		return
	}

	config, err := LoadConfig(*configPath)
	app.FatalIfError(err, "Unable to load config file")

	if *logLevel != "" {
		config.Log.Level = *logLevel
	}
	if *verbose {
		config.Log.Level = "debug"
	}

	log, err := newLogger(config.Log, os.Stderr)
	app.FatalIfError(err, "Logging")

	ctx := context.Background()

	auditLog, history, err := newAuditLogger(ctx, config.Audit, log)
	app.FatalIfError(err, "Audit")
	defer auditLog.Close()

	sess := session.New(sessionOptions(config, &log, auditLog))
	defer sess.Close()

	switch command {
	case shellCmd.FullCommand():
		err = runShell(ctx, sess, config, history)
	case convertCmd.FullCommand():
		err = runConvert(ctx, sess)
	case tablesCmd.FullCommand():
		err = runTables(ctx, sess)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n%s\n", err, table.Remedy(err))
		sess.Close()
		auditLog.Close()
		os.Exit(1)
	}
}

func sessionOptions(config *Config, log *zerolog.Logger, auditLog *audit.Logger) session.Options {
	opts := session.Options{
		Logger: log,
		Audit:  auditLog,
		Export: export.Options{
			UseCRLF:       config.Export.CRLF,
			CompressLevel: config.Export.CompressLevel,
			SheetName:     config.Export.SheetName,
			Logger:        log,
		},
		VisibleOnly:   config.Export.VisibleOnly,
		BusyTimeoutMS: config.SQLite.BusyTimeoutMS,
		ReadOnly:      config.SQLite.ReadOnly || *readOnly,
	}
	if *traceSQL {
		opts.Trace = func(statement string) {
			fmt.Fprintf(os.Stderr, "SQL: %s\n", statement)
		}
	}
	return opts
}

func runShell(ctx context.Context, sess *session.Session, config *Config, history *audit.DatabaseAppender) error {
	sh := NewShell(sess, os.Stdout, config.Shell, history)

	if *shellFile != "" {
		if err := sh.Execute(ctx, "open "+quoteArg(*shellFile)); err != nil {
			sh.printError(err)
		}
	}

	return sh.Run(ctx, os.Stdin)
}

func initConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := SaveConfig(path, CreateSampleConfig()); err != nil {
		return err
	}
	fmt.Printf("Sample configuration written to %s\n", path)
	return nil
}
