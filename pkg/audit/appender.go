package audit

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Appender - интерфейс для записи audit логов
type Appender interface {
	// Append - записать audit entry
	Append(ctx context.Context, entry *Entry) error

	// Close - закрыть appender
	Close() error
}

// MultiAppender - запись в несколько appenders
type MultiAppender struct {
	appenders []Appender
}

// NewMultiAppender - создать multi appender
func NewMultiAppender(appenders ...Appender) *MultiAppender {
	return &MultiAppender{
		appenders: appenders,
	}
}

// Append - записать во все appenders
// Ошибка одного appender не останавливает остальные
func (ma *MultiAppender) Append(ctx context.Context, entry *Entry) error {
	var errs []error
	for _, appender := range ma.appenders {
		if err := appender.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close - закрыть все appenders
func (ma *MultiAppender) Close() error {
	var errs []error
	for _, appender := range ma.appenders {
		if err := appender.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Add - добавить appender
func (ma *MultiAppender) Add(appender Appender) {
	ma.appenders = append(ma.appenders, appender)
}

// Len - количество appenders
func (ma *MultiAppender) Len() int {
	return len(ma.appenders)
}

// LogAppender - запись через zerolog
// Неудачные операции пишутся с уровнем warn, остальные - info
type LogAppender struct {
	log   zerolog.Logger
	level Level
}

// NewLogAppender - создать appender поверх zerolog логгера
func NewLogAppender(log zerolog.Logger, level Level) *LogAppender {
	return &LogAppender{log: log.With().Str("component", "audit").Logger(), level: level}
}

// Append - записать entry как событие лога
func (la *LogAppender) Append(_ context.Context, entry *Entry) error {
	filtered := entry.FilterByLevel(la.level)

	event := la.log.Info()
	if filtered.Status != StatusSuccess {
		event = la.log.Warn()
	}

	event = event.
		Str("audit_id", filtered.ID).
		Str("operation", string(filtered.Operation)).
		Str("status", string(filtered.Status)).
		Int64("records", filtered.RecordsAffected).
		Dur("duration", filtered.Duration)

	if filtered.SessionID != "" {
		event = event.Str("session", filtered.SessionID)
	}
	if filtered.Source != "" {
		event = event.Str("source", filtered.Source)
	}
	if filtered.Resource != "" {
		event = event.Str("resource", filtered.Resource)
	}
	if filtered.Input != "" {
		event = event.Str("input", filtered.Input)
	}
	if filtered.ErrorMessage != "" {
		event = event.Str("error", filtered.ErrorMessage)
	}
	if len(filtered.Metadata) > 0 {
		event = event.Fields(filtered.Metadata)
	}

	event.Msg("audit")
	return nil
}

// Close - ничего не делает
func (la *LogAppender) Close() error {
	return nil
}

// MemoryAppender - хранит записи в памяти (для тестов и истории команд)
type MemoryAppender struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewMemoryAppender - создать memory appender
func NewMemoryAppender() *MemoryAppender {
	return &MemoryAppender{}
}

// Append - сохранить копию записи
func (ma *MemoryAppender) Append(_ context.Context, entry *Entry) error {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.entries = append(ma.entries, entry.Clone())
	return nil
}

// Entries - копия сохраненных записей
func (ma *MemoryAppender) Entries() []*Entry {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return append([]*Entry(nil), ma.entries...)
}

// Close - ничего не делает
func (ma *MemoryAppender) Close() error {
	return nil
}
