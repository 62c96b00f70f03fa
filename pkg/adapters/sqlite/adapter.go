package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	_ "modernc.org/sqlite"
)

const driverSqlite = "sqlite"

// Options - настройки подключения
type Options struct {
	// BusyTimeoutMS - сколько ждать снятия блокировки файла другим процессом
	BusyTimeoutMS int

	// Logger - логгер адаптера (nil = без логирования)
	Logger *zerolog.Logger
}

// Adapter представляет одно открытое подключение к файлу SQLite
// Пул ограничен одним соединением: редактор работает с одним handle
type Adapter struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// Open открывает существующий файл SQLite
// Файл должен существовать и быть валидной базой, иначе table.ErrConnectionFailed
func Open(ctx context.Context, path string, opts Options) (*Adapter, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", table.ErrConnectionFailed, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", table.ErrConnectionFailed, path)
	}

	a, err := connect(ctx, path, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", table.ErrConnectionFailed, err)
	}
	return a, nil
}

// Create открывает файл назначения экспорта, создавая его при необходимости
// Существующие таблицы, кроме заменяемых, сохраняются
func Create(ctx context.Context, path string, opts Options) (*Adapter, error) {
	a, err := connect(ctx, path, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", table.ErrExportIO, err)
	}

	// Для файлов экспорта ускоряем массовую вставку
	if err := a.applyPragmaOptimizations(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("%w: %w", table.ErrExportIO, err)
	}
	return a, nil
}

func connect(ctx context.Context, path string, opts Options) (*Adapter, error) {
	db, err := sql.Open(driverSqlite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// sql.Open ленивый: проверяем что файл действительно база SQLite
	if err := probe(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	busy := opts.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busy)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Adapter{db: db, path: path, log: logger}, nil
}

func probe(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&count); err != nil {
		return fmt.Errorf("not a valid sqlite database: %w", err)
	}
	return nil
}

// applyPragmaOptimizations применяет PRAGMA для быстрой записи в файл экспорта
// journal_mode не меняем: он сохраняется в файле пользователя
func (a *Adapter) applyPragmaOptimizations(ctx context.Context) error {
	pragmas := []string{
		// fsync только на критичных моментах
		"PRAGMA synchronous = NORMAL",

		// 64 MB кеша
		"PRAGMA cache_size = -64000",

		// Временные структуры в памяти
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := a.db.ExecContext(ctx, pragma); err != nil {
			// Не критично, продолжаем
			a.log.Warn().Err(err).Str("pragma", pragma).Msg("pragma failed")
		}
	}

	return nil
}

// Close закрывает соединение с БД
// Повторный вызов ничего не делает
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Closed сообщает, закрыт ли handle
func (a *Adapter) Closed() bool {
	return a.db == nil
}

// Path возвращает путь к файлу базы
func (a *Adapter) Path() string {
	return a.path
}

// Ping проверяет доступность БД
func (a *Adapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return errNotConnected
	}
	return a.db.PingContext(ctx)
}

// GetDatabaseVersion возвращает версию SQLite
func (a *Adapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	if a.db == nil {
		return "", errNotConnected
	}
	var version string
	if err := a.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return "SQLite " + version, nil
}

var errNotConnected = errors.New("adapter not connected")

// TableExists проверяет существование таблицы
func (a *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	if a.db == nil {
		return false, errNotConnected
	}

	query := `
		SELECT COUNT(*)
		FROM sqlite_master
		WHERE type='table' AND name=?
	`

	var count int
	if err := a.db.QueryRowContext(ctx, query, tableName).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}

	return count > 0, nil
}

// GetTableNames возвращает список пользовательских таблиц в порядке создания
// Служебные таблицы sqlite_* не включаются
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	if a.db == nil {
		return nil, errNotConnected
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY rowid
	`

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get table names: %w", table.ErrSQL, err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: failed to scan table name: %w", table.ErrSQL, err)
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}
