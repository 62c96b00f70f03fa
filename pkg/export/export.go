// Package export сохраняет таблицы источников в CSV, SQLite и XLSX.
//
// Таблица в памяти сохраняется в один файл. Для базы данных экспорт
// проходит по всем таблицам каталога (fan-out): в CSV каждая таблица
// пишется в свой файл <base>_<table>.csv, в SQLite и XLSX - в одну
// таблицу/лист с тем же именем. Ошибка одной таблицы не прерывает
// экспорт остальных, все ошибки собираются в Report.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	"github.com/ruslano69/tdtp-editor/pkg/processors"
	"github.com/ruslano69/tdtp-editor/pkg/source"
)

// Options - настройки экспорта
type Options struct {
	// UseCRLF - окончания строк CSV в стиле Windows
	UseCRLF bool
	// CompressLevel - уровень zstd для *.csv.zst (0 = по умолчанию)
	CompressLevel int
	// SheetName - имя листа XLSX для таблицы в памяти (пусто = имя файла)
	SheetName string
	// Logger, nil - без логирования
	Logger *zerolog.Logger
}

// TableReader читает таблицу базы целиком
// Реализуется source.RelationalResult; чтение не меняет видимую таблицу
type TableReader interface {
	ReadTable(ctx context.Context, tableName string) (*table.Table, error)
}

// FileResult - результат записи одной таблицы
type FileResult struct {
	Path     string
	Table    string
	Rows     int
	Bytes    int64
	Checksum string
}

// Failure - ошибка экспорта одной таблицы
type Failure struct {
	Path  string
	Table string
	Err   error
}

// Error реализует error
func (f Failure) Error() string {
	if f.Table == "" {
		return fmt.Sprintf("%s: %v", f.Path, f.Err)
	}
	return fmt.Sprintf("table %s -> %s: %v", f.Table, f.Path, f.Err)
}

// Unwrap позволяет проверять причину через errors.Is
func (f Failure) Unwrap() error {
	return f.Err
}

// Report - итог экспорта
type Report struct {
	Files    []FileResult
	Failures []Failure
}

// Rows возвращает общее количество записанных строк
func (r *Report) Rows() int {
	total := 0
	for _, f := range r.Files {
		total += f.Rows
	}
	return total
}

// Paths возвращает пути записанных файлов без повторов
func (r *Report) Paths() []string {
	seen := make(map[string]bool, len(r.Files))
	paths := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		if !seen[f.Path] {
			seen[f.Path] = true
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// Err объединяет все ошибки отчета, nil если их нет
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (r *Report) fail(path, tableName string, err error) {
	if !errors.Is(err, table.ErrExportIO) && !errors.Is(err, table.ErrSQL) {
		err = fmt.Errorf("%w: %w", table.ErrExportIO, err)
	}
	r.Failures = append(r.Failures, Failure{Path: path, Table: tableName, Err: err})
}

// Exporter выполняет экспорт
type Exporter struct {
	opts Options
	log  zerolog.Logger
}

// New создает экспортер
func New(opts Options) *Exporter {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "export").Logger()
	}
	return &Exporter{opts: opts, log: log}
}

// FanOutPath строит путь файла таблицы при экспорте базы в CSV:
// "out/shop.csv" + "users" -> "out/shop_users.csv"
// Суффикс .csv.zst сохраняется
func FanOutPath(destBase, tableName string) string {
	suffix := ".csv"
	if format, _ := source.DetectFormat(destBase); format == source.FormatCSVZstd {
		suffix = ".csv.zst"
	}
	return source.TrimFormatSuffix(destBase) + "_" + tableName + suffix
}

// TableNameFor возвращает имя таблицы для экспорта в базу: имя файла без расширения
func TableNameFor(destPath string) string {
	return filepath.Base(source.TrimFormatSuffix(destPath))
}

func (e *Exporter) logFile(res FileResult) {
	e.log.Info().
		Str("path", res.Path).
		Str("table", res.Table).
		Int("rows", res.Rows).
		Str("size", humanize.Bytes(uint64(res.Bytes))).
		Str("xxh3", res.Checksum).
		Msg("table exported")
}

func (e *Exporter) logFailure(f Failure) {
	e.log.Warn().
		Err(f.Err).
		Str("path", f.Path).
		Str("table", f.Table).
		Msg("table export failed")
}

func (e *Exporter) finish(report *Report) (*Report, error) {
	for _, f := range report.Failures {
		e.logFailure(f)
	}
	return report, report.Err()
}

// fileChecksum считает размер и xxh3 готового файла
func fileChecksum(path string) (int64, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, "", err
	}
	return int64(len(data)), processors.ComputeChecksum(data), nil
}
