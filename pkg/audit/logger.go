package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger - журнал операций одной сессии редактора
// Запись синхронная: редактор выполняет операции по одной
type Logger struct {
	mu        sync.Mutex
	appenders []Appender
	sessionID string
	onError   func(error)
	closed    bool
}

// LoggerConfig - конфигурация логгера
type LoggerConfig struct {
	// SessionID - идентификатор сессии (пусто = новый UUID)
	SessionID string

	// OnError - callback при ошибке записи
	OnError func(error)
}

// NewLogger - создать новый audit logger
func NewLogger(config LoggerConfig, appenders ...Appender) *Logger {
	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return &Logger{
		appenders: appenders,
		sessionID: sessionID,
		onError:   config.OnError,
	}
}

// SessionID - идентификатор сессии
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Log - записать entry во все appenders
// nil Logger ничего не делает
func (l *Logger) Log(ctx context.Context, entry *Entry) error {
	if l == nil {
		return nil
	}
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("audit logger is closed")
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SessionID == "" {
		entry.SessionID = l.sessionID
	}

	var firstError error
	for _, appender := range l.appenders {
		if err := appender.Append(ctx, entry); err != nil {
			if firstError == nil {
				firstError = err
			}
			l.handleError(fmt.Errorf("appender failed: %w", err))
		}
	}

	return firstError
}

// Record - записать результат операции, начатой в start
// Статус определяется по err
func (l *Logger) Record(ctx context.Context, op Operation, start time.Time, err error, fill func(*Entry)) {
	if l == nil {
		return
	}

	entry := NewEntry(op, StatusSuccess).WithDuration(time.Since(start))
	if fill != nil {
		fill(entry)
	}
	entry.WithError(err)

	// Ошибки appenders уже переданы в OnError
	l.Log(ctx, entry)
}

// Flush - сбросить буферы appenders, которые это поддерживают
func (l *Logger) Flush() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var firstError error
	for _, appender := range l.appenders {
		if flusher, ok := appender.(interface{ Flush() error }); ok {
			if err := flusher.Flush(); err != nil && firstError == nil {
				firstError = err
			}
		}
	}
	return firstError
}

// Close - закрыть logger и все appenders
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.Flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var firstError error
	for _, appender := range l.appenders {
		if err := appender.Close(); err != nil {
			if firstError == nil {
				firstError = err
			}
			l.handleError(fmt.Errorf("close failed: %w", err))
		}
	}

	return firstError
}

// handleError - обработка ошибки
func (l *Logger) handleError(err error) {
	if l.onError != nil {
		l.onError(err)
	}
}
