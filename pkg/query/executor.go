package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-editor/pkg/adapters/sqlite"
	"github.com/ruslano69/tdtp-editor/pkg/core/table"
	"github.com/ruslano69/tdtp-editor/pkg/source"
)

// Options - настройки исполнителя
type Options struct {
	// Trace вызывается перед отправкой каждого оператора в базу
	Trace func(statement string)
	// Logger для отладочных сообщений, nil - без логирования
	Logger *zerolog.Logger
	// ReadOnly ограничивает RunRaw операторами SELECT и WITH
	ReadOnly bool
}

// Executor выполняет операторы над RelationalResult и заменяет его видимую таблицу
type Executor struct {
	src   *source.RelationalResult
	trace func(string)
	guard *Guard
	log   zerolog.Logger
}

// NewExecutor создает исполнитель для открытой базы
func NewExecutor(src *source.RelationalResult, opts Options) *Executor {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "query").Logger()
	}
	return &Executor{src: src, trace: opts.Trace, guard: NewGuard(opts.ReadOnly), log: log}
}

// Source возвращает источник, над которым работает исполнитель
func (e *Executor) Source() *source.RelationalResult {
	return e.src
}

// SelectAll выбирает все строки таблицы и делает их видимыми
func (e *Executor) SelectAll(ctx context.Context, tableName string) (*table.Table, error) {
	if tableName == "" {
		return nil, fmt.Errorf("%w: empty table name", table.ErrSQL)
	}

	tbl, ok, err := e.run(ctx, sqlite.SelectAllStatement(tableName))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: table %s returned no result set", table.ErrSQL, tableName)
	}
	return tbl, nil
}

// RunRaw выполняет текст оператора без изменений
// Если оператор не вернул набор строк, возвращается прежняя видимая таблица
// и false; изменения в файле базы при этом сохраняются
func (e *Executor) RunRaw(ctx context.Context, statement string) (*table.Table, bool, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, false, fmt.Errorf("%w: empty statement", table.ErrSQL)
	}
	if err := e.guard.Check(statement); err != nil {
		return nil, false, err
	}
	return e.run(ctx, statement)
}

func (e *Executor) run(ctx context.Context, statement string) (*table.Table, bool, error) {
	if e.trace != nil {
		e.trace(statement)
	}

	start := time.Now()
	tbl, ok, err := e.src.Execute(ctx, statement)
	if err != nil {
		e.log.Debug().Err(err).Str("statement", statement).Msg("statement failed")
		return nil, false, err
	}

	e.log.Debug().
		Str("statement", statement).
		Bool("result_set", ok).
		Int("rows", tbl.RowCount()).
		Dur("duration", time.Since(start)).
		Msg("statement executed")

	return tbl, ok, nil
}
