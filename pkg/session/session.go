// Package session - корневой объект редактора.
//
// Session владеет открытым источником, каталогом таблиц и состоянием
// фильтра/запроса. Интерфейс пользователя вызывает только методы Session
// и отображает возвращенные таблицы.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-editor/pkg/adapters/sqlite"
	"github.com/ruslano69/tdtp-editor/pkg/audit"
	"github.com/ruslano69/tdtp-editor/pkg/catalog"
	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	"github.com/ruslano69/tdtp-editor/pkg/export"
	"github.com/ruslano69/tdtp-editor/pkg/filter"
	"github.com/ruslano69/tdtp-editor/pkg/query"
	"github.com/ruslano69/tdtp-editor/pkg/source"
)

// Mode - какой ввод принимает открытый источник
type Mode int

const (
	// ModeNone - ничего не открыто
	ModeNone Mode = iota
	// ModeFilter - таблица в памяти, ввод column=pattern
	ModeFilter
	// ModeQuery - база данных, ввод SQL + выбор таблицы
	ModeQuery
)

// String - строковое представление режима
func (m Mode) String() string {
	switch m {
	case ModeFilter:
		return "filter"
	case ModeQuery:
		return "query"
	default:
		return "none"
	}
}

// Options - настройки сессии
type Options struct {
	// Logger, nil - без логирования
	Logger *zerolog.Logger
	// Audit - журнал операций, nil - без журнала
	Audit *audit.Logger
	// Export - настройки экспорта
	Export export.Options
	// Trace вызывается перед каждым SQL оператором
	Trace func(statement string)
	// VisibleOnly - сохранять только отфильтрованные строки таблицы в памяти
	VisibleOnly bool
	// BusyTimeoutMS - ожидание блокировки файла SQLite
	BusyTimeoutMS int
	// ReadOnly запрещает изменяющие операторы в режиме запросов
	ReadOnly bool
}

// Session - состояние редактора
type Session struct {
	opts     Options
	log      zerolog.Logger
	audit    *audit.Logger
	exporter *export.Exporter

	src        source.Source
	memory     *source.MemoryTable
	relational *source.RelationalResult
	executor   *query.Executor
	catalog    *catalog.Catalog

	lastInput string
}

// New создает пустую сессию
func New(opts Options) *Session {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "session").Logger()
	}
	if opts.Export.Logger == nil {
		opts.Export.Logger = opts.Logger
	}

	return &Session{
		opts:     opts,
		log:      log,
		audit:    opts.Audit,
		exporter: export.New(opts.Export),
		catalog:  catalog.Build(nil),
	}
}

// Mode возвращает режим ввода для открытого источника
func (s *Session) Mode() Mode {
	switch {
	case s.memory != nil:
		return ModeFilter
	case s.relational != nil:
		return ModeQuery
	default:
		return ModeNone
	}
}

// Source возвращает открытый источник или nil
func (s *Session) Source() source.Source {
	return s.src
}

// LastInput возвращает последний введенный фильтр или запрос
func (s *Session) LastInput() string {
	return s.lastInput
}

// Open открывает CSV или SQLite файл и заменяет текущий источник
// Новый источник открывается полностью до освобождения старого: при ошибке
// частично открытый handle закрывается, а состояние сессии не меняется.
// При успешном открытии старый и новый handle кратко существуют одновременно
func (s *Session) Open(ctx context.Context, path string) (mode Mode, err error) {
	start := time.Now()
	defer func() {
		s.audit.Record(ctx, audit.OpOpen, start, err, func(e *audit.Entry) {
			e.WithSource(path).WithMetadata("mode", mode.String())
			if s.src != nil && err == nil {
				e.WithRecordsAffected(s.src.VisibleTable().RowCount())
			}
		})
	}()

	format, err := source.DetectFormat(path)
	if err != nil {
		return s.Mode(), err
	}

	switch format {
	case source.FormatCSV, source.FormatCSVZstd:
		m, err := source.LoadCSV(path)
		if err != nil {
			return s.Mode(), err
		}
		if m.Adjusted() > 0 {
			s.log.Warn().
				Str("path", path).
				Int("rows", m.Adjusted()).
				Int("columns", m.Table().ColumnCount()).
				Msg("rows with a different number of fields were padded or truncated")
		}
		s.replace(m, nil, nil, catalog.Build(nil))

	case source.FormatSQLite:
		r, exec, cat, err := s.openDatabase(ctx, path)
		if err != nil {
			return s.Mode(), err
		}
		s.replace(nil, r, exec, cat)

	default:
		return s.Mode(), fmt.Errorf("%w: %s files can only be saved", table.ErrUnsupportedFormat, format)
	}

	s.log.Info().
		Str("path", path).
		Str("mode", s.Mode().String()).
		Int("rows", s.src.VisibleTable().RowCount()).
		Msg("file opened")

	return s.Mode(), nil
}

// openDatabase открывает базу, строит каталог и показывает первую таблицу
func (s *Session) openDatabase(ctx context.Context, path string) (*source.RelationalResult, *query.Executor, *catalog.Catalog, error) {
	r, err := source.OpenDatabase(ctx, path, sqlite.Options{
		BusyTimeoutMS: s.opts.BusyTimeoutMS,
		Logger:        s.opts.Logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	names, err := r.TableNames(ctx)
	if err != nil {
		r.Close()
		return nil, nil, nil, fmt.Errorf("%w: %w", table.ErrConnectionFailed, err)
	}

	cat := catalog.Build(names)
	exec := query.NewExecutor(r, query.Options{Trace: s.opts.Trace, Logger: s.opts.Logger, ReadOnly: s.opts.ReadOnly})

	// База без таблиц: выбор первой таблицы пропускается
	if cat.Len() > 0 {
		name, _ := cat.Name(0)
		if _, err := exec.SelectAll(ctx, name); err != nil {
			r.Close()
			return nil, nil, nil, err
		}
		cat.Select(0)
	}

	return r, exec, cat, nil
}

// replace освобождает текущий источник и устанавливает новый
func (s *Session) replace(m *source.MemoryTable, r *source.RelationalResult, exec *query.Executor, cat *catalog.Catalog) {
	s.release()

	s.memory = m
	s.relational = r
	s.executor = exec
	s.catalog = cat
	if m != nil {
		s.src = m
	} else {
		s.src = r
	}
	s.lastInput = ""
}

// release закрывает handle текущего источника
func (s *Session) release() {
	if s.src == nil {
		return
	}
	if err := s.src.Close(); err != nil {
		s.log.Warn().Err(err).Str("path", s.src.Path()).Msg("failed to close source")
	}
	s.catalog.Clear()
	s.src, s.memory, s.relational, s.executor = nil, nil, nil, nil
}

// Close закрывает открытый источник; повторный вызов безопасен
func (s *Session) Close() error {
	if s.src == nil {
		return nil
	}

	start := time.Now()
	path := s.src.Path()
	err := s.src.Close()
	s.audit.Record(context.Background(), audit.OpClose, start, err, func(e *audit.Entry) {
		e.WithSource(path)
	})

	s.catalog.Clear()
	s.src, s.memory, s.relational, s.executor = nil, nil, nil, nil
	s.lastInput = ""
	return err
}

// VisibleTable возвращает отображаемую таблицу
func (s *Session) VisibleTable() (*table.Table, error) {
	if s.src == nil {
		return nil, table.ErrNoSource
	}
	return s.src.VisibleTable(), nil
}

// Filter применяет фильтр column=pattern к таблице в памяти
// При ошибке отображаемые строки не меняются
func (s *Session) Filter(text string) (res filter.Result, err error) {
	if s.src == nil {
		return filter.Result{}, table.ErrNoSource
	}
	if s.memory == nil {
		return filter.Result{}, fmt.Errorf("%w: filter on %s source, use a query", table.ErrNotSupported, s.src.Kind())
	}

	start := time.Now()
	s.lastInput = text
	defer func() {
		s.audit.Record(context.Background(), audit.OpFilter, start, err, func(e *audit.Entry) {
			e.WithSource(s.memory.Path()).WithInput(text).WithRecordsAffected(len(res.Visible))
		})
	}()

	res, err = s.memory.ApplyFilter(text)
	if err != nil {
		s.log.Debug().Err(err).Str("filter", text).Msg("filter rejected")
		return filter.Result{}, err
	}
	return res, nil
}

// Query выполняет SQL над открытой базой
// Второе значение false, если оператор не вернул набор строк:
// отображается прежняя таблица
func (s *Session) Query(ctx context.Context, statement string) (tbl *table.Table, ok bool, err error) {
	if s.src == nil {
		return nil, false, table.ErrNoSource
	}
	if s.relational == nil {
		return nil, false, fmt.Errorf("%w: query on %s source, use a filter", table.ErrNotSupported, s.src.Kind())
	}

	start := time.Now()
	s.lastInput = statement
	defer func() {
		s.audit.Record(ctx, audit.OpQuery, start, err, func(e *audit.Entry) {
			e.WithSource(s.relational.Path()).WithInput(statement).WithMetadata("result_set", ok)
			if tbl != nil {
				e.WithRecordsAffected(tbl.RowCount())
			}
		})
	}()

	return s.executor.RunRaw(ctx, statement)
}

// Submit передает строку ввода фильтру или запросу в зависимости от режима
// и возвращает отображаемую таблицу
func (s *Session) Submit(ctx context.Context, text string) (*table.Table, error) {
	switch s.Mode() {
	case ModeFilter:
		if _, err := s.Filter(text); err != nil {
			return nil, err
		}
		return s.src.VisibleTable(), nil
	case ModeQuery:
		tbl, _, err := s.Query(ctx, text)
		return tbl, err
	default:
		return nil, table.ErrNoSource
	}
}

// Tables возвращает таблицы открытой базы (nil для CSV)
func (s *Session) Tables() []string {
	if s.relational == nil {
		return nil
	}
	return s.catalog.Names()
}

// SelectedTable возвращает выбранную таблицу базы
func (s *Session) SelectedTable() (string, bool) {
	return s.catalog.SelectedName()
}

// SelectTable показывает все строки таблицы с индексом index
// Запрос выполняется при каждом выборе, даже если индекс не изменился;
// catalog.NoSelection ничего не делает
func (s *Session) SelectTable(ctx context.Context, index int) (tbl *table.Table, err error) {
	if s.src == nil {
		return nil, table.ErrNoSource
	}
	if s.relational == nil {
		return nil, fmt.Errorf("%w: %s source has no tables", table.ErrNotSupported, s.src.Kind())
	}
	if index == catalog.NoSelection {
		return s.relational.VisibleTable(), nil
	}

	name, err := s.catalog.Name(index)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.audit.Record(ctx, audit.OpSelect, start, err, func(e *audit.Entry) {
			e.WithSource(s.relational.Path()).WithResource(name)
			if tbl != nil {
				e.WithRecordsAffected(tbl.RowCount())
			}
		})
	}()

	tbl, err = s.executor.SelectAll(ctx, name)
	if err != nil {
		return nil, err
	}
	s.catalog.Select(index)
	s.lastInput = ""
	return tbl, nil
}

// SelectTableByName - SelectTable по имени таблицы
func (s *Session) SelectTableByName(ctx context.Context, name string) (*table.Table, error) {
	if s.relational == nil {
		return s.SelectTable(ctx, 0)
	}
	index, ok := s.catalog.IndexOf(name)
	if !ok {
		return nil, fmt.Errorf("%w: no table named %q", table.ErrIndexOutOfRange, name)
	}
	return s.SelectTable(ctx, index)
}

// Reset снимает фильтр (CSV) или заново выбирает текущую таблицу (база)
func (s *Session) Reset(ctx context.Context) (tbl *table.Table, err error) {
	if s.src == nil {
		return nil, table.ErrNoSource
	}

	start := time.Now()
	defer func() {
		s.audit.Record(ctx, audit.OpReset, start, err, func(e *audit.Entry) {
			e.WithSource(s.src.Path())
			if tbl != nil {
				e.WithRecordsAffected(tbl.RowCount())
			}
		})
	}()

	s.lastInput = ""

	if s.memory != nil {
		s.memory.Reset()
		return s.memory.VisibleTable(), nil
	}

	name, ok := s.catalog.SelectedName()
	if !ok {
		return s.relational.VisibleTable(), nil
	}
	return s.executor.SelectAll(ctx, name)
}

// Save экспортирует источник в dest; формат определяется по расширению
// Таблица в памяти пишется в один файл, база - все таблицы каталога.
// Открытый источник и отображаемая таблица не меняются
func (s *Session) Save(ctx context.Context, dest string) (report *export.Report, err error) {
	if s.src == nil {
		return nil, table.ErrNoSource
	}

	format, err := source.DetectFormat(dest)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.audit.Record(ctx, audit.OpExport, start, err, func(e *audit.Entry) {
			e.WithSource(s.src.Path()).WithResource(dest).WithMetadata("format", format.String())
			if report != nil {
				e.WithRecordsAffected(report.Rows()).WithMetadata("files", len(report.Paths()))
				if len(report.Files) > 0 && len(report.Failures) > 0 {
					e.Status = audit.StatusPartial
				}
				if len(report.Files) > 0 {
					e.WithMetadata("xxh3", report.Files[0].Checksum)
				}
			}
		})
	}()

	if s.memory != nil {
		tbl := s.memory.Table()
		if s.opts.VisibleOnly {
			tbl = s.memory.VisibleTable()
		}

		switch format {
		case source.FormatCSV, source.FormatCSVZstd:
			return s.exporter.InMemoryToCSV(tbl, dest)
		case source.FormatSQLite:
			return s.exporter.InMemoryToDB(ctx, tbl, dest)
		case source.FormatXLSX:
			return s.exporter.InMemoryToXLSX(tbl, dest)
		}
	} else {
		names := s.catalog.Names()
		switch format {
		case source.FormatCSV, source.FormatCSVZstd:
			return s.exporter.RelationalToCSV(ctx, s.relational, names, dest)
		case source.FormatSQLite:
			return s.exporter.RelationalToDB(ctx, s.relational, names, dest)
		case source.FormatXLSX:
			return s.exporter.RelationalToXLSX(ctx, s.relational, names, dest)
		}
	}

	return nil, fmt.Errorf("%w: %s", table.ErrUnsupportedFormat, format)
}

// Info - сводка о текущем состоянии для интерфейса
type Info struct {
	Path        string
	Mode        Mode
	Columns     int
	Rows        int
	VisibleRows int
	Adjusted    int
	Filter      string
	Statement   string
	Tables      []string
	Selected    string
}

// Info возвращает сводку; без открытого источника - ErrNoSource
func (s *Session) Info() (Info, error) {
	if s.src == nil {
		return Info{}, table.ErrNoSource
	}

	visible := s.src.VisibleTable()
	info := Info{
		Path:        s.src.Path(),
		Mode:        s.Mode(),
		Columns:     visible.ColumnCount(),
		Rows:        visible.RowCount(),
		VisibleRows: visible.RowCount(),
	}

	if s.memory != nil {
		info.Rows = s.memory.Table().RowCount()
		info.Adjusted = s.memory.Adjusted()
		if expr := s.memory.Filter(); !expr.AllColumns() {
			info.Filter = expr.String()
		}
	}
	if s.relational != nil {
		info.Statement = s.relational.Statement()
		info.Tables = s.catalog.Names()
		info.Selected, _ = s.catalog.SelectedName()
	}

	return info, nil
}

// IsRecoverable сообщает, что ошибка не требует повторного открытия файла:
// отображаемая таблица осталась прежней
func IsRecoverable(err error) bool {
	return errors.Is(err, table.ErrUnknownColumn) ||
		errors.Is(err, table.ErrInvalidFilter) ||
		errors.Is(err, table.ErrSQL) ||
		errors.Is(err, table.ErrIndexOutOfRange) ||
		errors.Is(err, table.ErrNotSupported)
}
