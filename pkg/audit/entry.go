package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level - уровень детализации записи
type Level int

const (
	// LevelMinimal - только операция, статус, ресурс и счетчики
	LevelMinimal Level = iota

	// LevelStandard - плюс метаданные и идентификатор сессии
	LevelStandard

	// LevelFull - плюс текст фильтра/запроса
	LevelFull
)

// String - строковое представление уровня
func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// ParseLevel - разбор уровня из конфигурации
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return LevelMinimal, nil
	case "", "standard":
		return LevelStandard, nil
	case "full":
		return LevelFull, nil
	default:
		return LevelStandard, fmt.Errorf("unknown audit level %q (expected minimal, standard or full)", s)
	}
}

// Operation - тип операции редактора
type Operation string

const (
	OpOpen   Operation = "open"
	OpFilter Operation = "filter"
	OpQuery  Operation = "query"
	OpSelect Operation = "select"
	OpReset  Operation = "reset"
	OpExport Operation = "export"
	OpClose  Operation = "close"
)

// Status - статус выполнения операции
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPartial Status = "partial"
)

// Entry - запись в audit логе
type Entry struct {
	// ID - уникальный идентификатор записи (UUID)
	ID string `json:"id"`

	// Timestamp - время операции
	Timestamp time.Time `json:"timestamp"`

	// Operation - тип операции
	Operation Operation `json:"operation"`

	// Status - статус выполнения
	Status Status `json:"status"`

	// SessionID - идентификатор сессии редактора
	SessionID string `json:"session_id,omitempty"`

	// Source - открытый файл
	Source string `json:"source,omitempty"`

	// Resource - таблица или файл назначения
	Resource string `json:"resource,omitempty"`

	// Input - текст фильтра или запроса (только LevelFull)
	Input string `json:"input,omitempty"`

	// RecordsAffected - количество видимых/записанных строк
	RecordsAffected int64 `json:"records_affected,omitempty"`

	// Duration - длительность операции
	Duration time.Duration `json:"duration,omitempty"`

	// ErrorMessage - сообщение об ошибке
	ErrorMessage string `json:"error_message,omitempty"`

	// Metadata - дополнительные данные (checksum, формат, ...)
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewEntry - создать новую audit запись
func NewEntry(operation Operation, status Status) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: operation,
		Status:    status,
		Metadata:  make(map[string]any),
	}
}

// WithSource - установить источник
func (e *Entry) WithSource(source string) *Entry {
	e.Source = source
	return e
}

// WithResource - установить ресурс
func (e *Entry) WithResource(resource string) *Entry {
	e.Resource = resource
	return e
}

// WithInput - установить текст фильтра/запроса
func (e *Entry) WithInput(input string) *Entry {
	e.Input = input
	return e
}

// WithRecordsAffected - установить количество записей
func (e *Entry) WithRecordsAffected(count int) *Entry {
	e.RecordsAffected = int64(count)
	return e
}

// WithDuration - установить длительность
func (e *Entry) WithDuration(duration time.Duration) *Entry {
	e.Duration = duration
	return e
}

// WithError - установить ошибку
// Для StatusPartial статус сохраняется
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.ErrorMessage = err.Error()
		if e.Status != StatusPartial {
			e.Status = StatusFailure
		}
	}
	return e
}

// WithMetadata - добавить метаданные
func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// ToJSON - преобразовать в JSON
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// String - строковое представление
func (e *Entry) String() string {
	s := fmt.Sprintf("[%s] %s %s (source=%s, resource=%s, records=%d, duration=%v)",
		e.Timestamp.Format(time.RFC3339),
		e.Operation,
		e.Status,
		e.Source,
		e.Resource,
		e.RecordsAffected,
		e.Duration,
	)
	if e.Input != "" {
		s += fmt.Sprintf(" input=%q", e.Input)
	}
	if e.ErrorMessage != "" {
		s += " error=" + e.ErrorMessage
	}
	return s
}

// Clone - создать копию записи
func (e *Entry) Clone() *Entry {
	clone := *e

	// Копируем map
	if e.Metadata != nil {
		clone.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}

	return &clone
}

// FilterByLevel - копия записи с полями, разрешенными уровнем
func (e *Entry) FilterByLevel(level Level) *Entry {
	filtered := e.Clone()

	switch level {
	case LevelMinimal:
		filtered.Metadata = nil
		filtered.SessionID = ""
		filtered.Input = ""

	case LevelStandard:
		// Текст запроса может содержать данные
		filtered.Input = ""

	case LevelFull:
	}

	return filtered
}
