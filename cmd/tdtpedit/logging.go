package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-editor/pkg/audit"
)

// newLogger builds the diagnostic logger.
// "auto" picks the console writer when out is a terminal and JSON otherwise.
func newLogger(cfg LogConfig, out io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	console := false
	switch cfg.Format {
	case "console":
		console = true
	case "json":
	default:
		if f, ok := out.(*os.File); ok {
			console = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}

	if console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// newAuditLogger wires the appenders enabled in the config.
// The returned DatabaseAppender is nil unless audit.database is set.
func newAuditLogger(ctx context.Context, cfg AuditConfig, log zerolog.Logger) (*audit.Logger, *audit.DatabaseAppender, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	level, err := audit.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	multi := audit.NewMultiAppender()
	var history *audit.DatabaseAppender

	if cfg.File != "" {
		fa, err := audit.NewFileAppender(audit.FileAppenderConfig{
			FilePath:   cfg.File,
			MaxSize:    int64(cfg.MaxSize),
			MaxBackups: cfg.MaxBackups,
			Level:      level,
			FormatJSON: cfg.FormatJSON,
		})
		if err != nil {
			return nil, nil, err
		}
		multi.Add(fa)
	}

	if cfg.Database != "" {
		history, err = audit.OpenDatabaseAppender(ctx, cfg.Database, level)
		if err != nil {
			multi.Close()
			return nil, nil, err
		}
		multi.Add(history)
	}

	if cfg.Console {
		multi.Add(audit.NewLogAppender(log, level))
	}

	logger := audit.NewLogger(audit.LoggerConfig{
		OnError: func(err error) {
			log.Warn().Err(err).Msg("audit write failed")
		},
	}, multi)

	return logger, history, nil
}
