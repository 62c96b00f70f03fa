package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DatabaseAppender - запись в таблицу SQLite
// Позволяет просматривать историю операций между запусками (команда history)
type DatabaseAppender struct {
	db         *sql.DB
	ownsDB     bool
	tableName  string
	level      Level
	insertStmt *sql.Stmt
}

// DatabaseAppenderConfig - конфигурация database appender
type DatabaseAppenderConfig struct {
	// DB - подключение к базе данных
	DB *sql.DB

	// TableName - имя таблицы для аудита
	TableName string

	// Level - уровень детализации
	Level Level
}

// OpenDatabaseAppender - открыть (создать) файл SQLite и appender поверх него
// Подключение закрывается вместе с appender
func OpenDatabaseAppender(ctx context.Context, path string, level Level) (*DatabaseAppender, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	db.SetMaxOpenConns(1)

	da, err := NewDatabaseAppender(ctx, DatabaseAppenderConfig{DB: db, Level: level})
	if err != nil {
		db.Close()
		return nil, err
	}
	da.ownsDB = true
	return da, nil
}

// NewDatabaseAppender - создать database appender, таблица создается при необходимости
func NewDatabaseAppender(ctx context.Context, config DatabaseAppenderConfig) (*DatabaseAppender, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if config.TableName == "" {
		config.TableName = "audit_log"
	}
	if strings.ContainsAny(config.TableName, "\"'` ;") {
		return nil, fmt.Errorf("invalid audit table name %q", config.TableName)
	}

	da := &DatabaseAppender{
		db:        config.DB,
		tableName: config.TableName,
		level:     config.Level,
	}

	if err := da.createTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}

	if err := da.prepareInsert(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	return da, nil
}

// createTable - создать таблицу для аудита
func (da *DatabaseAppender) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			operation TEXT NOT NULL,
			status TEXT NOT NULL,
			session_id TEXT,
			source TEXT,
			resource TEXT,
			input TEXT,
			records_affected INTEGER DEFAULT 0,
			duration_ms INTEGER DEFAULT 0,
			error_message TEXT,
			metadata TEXT
		)
	`, da.tableName)

	if _, err := da.db.ExecContext(ctx, query); err != nil {
		return err
	}

	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s(timestamp)", da.tableName, da.tableName)
	_, err := da.db.ExecContext(ctx, index)
	return err
}

// prepareInsert - подготовить insert statement
func (da *DatabaseAppender) prepareInsert(ctx context.Context) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, timestamp, operation, status, session_id, source, resource, input,
			records_affected, duration_ms, error_message, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, da.tableName)

	stmt, err := da.db.PrepareContext(ctx, query)
	if err != nil {
		return err
	}

	da.insertStmt = stmt
	return nil
}

// Append - записать entry в базу данных
func (da *DatabaseAppender) Append(ctx context.Context, entry *Entry) error {
	if err := da.checkOpen(); err != nil {
		return err
	}

	filtered := entry.FilterByLevel(da.level)

	metadataJSON := []byte("{}")
	if len(filtered.Metadata) > 0 {
		if data, err := json.Marshal(filtered.Metadata); err == nil {
			metadataJSON = data
		}
	}

	_, err := da.insertStmt.ExecContext(
		ctx,
		filtered.ID,
		filtered.Timestamp.UTC().Format(time.RFC3339Nano),
		string(filtered.Operation),
		string(filtered.Status),
		filtered.SessionID,
		filtered.Source,
		filtered.Resource,
		filtered.Input,
		filtered.RecordsAffected,
		filtered.Duration.Milliseconds(),
		filtered.ErrorMessage,
		string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// checkOpen - после Close подготовленного оператора нет
func (da *DatabaseAppender) checkOpen() error {
	if da.insertStmt == nil {
		return fmt.Errorf("audit database table %s is closed", da.tableName)
	}
	return nil
}

// Close - закрыть database appender
func (da *DatabaseAppender) Close() error {
	var err error
	if da.insertStmt != nil {
		err = da.insertStmt.Close()
		da.insertStmt = nil
	}
	if da.ownsDB && da.db != nil {
		if closeErr := da.db.Close(); err == nil {
			err = closeErr
		}
		da.db = nil
	}
	return err
}

// QueryFilter - фильтр для запроса audit entries
type QueryFilter struct {
	Operation Operation
	Status    Status
	SessionID string
	Since     time.Time
	Limit     int
}

// Query - последние записи, от новых к старым
func (da *DatabaseAppender) Query(ctx context.Context, filter QueryFilter) ([]*Entry, error) {
	if err := da.checkOpen(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, timestamp, operation, status, session_id, source, resource, input,
		records_affected, duration_ms, error_message, metadata FROM %s WHERE 1=1`, da.tableName)
	args := make([]any, 0)

	if filter.Operation != "" {
		query += " AND operation = ?"
		args = append(args, string(filter.Operation))
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}

	query += " ORDER BY timestamp DESC, rowid DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := da.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		entry := &Entry{}
		var (
			timestamp, operation, status string
			sessionID, source, resource  sql.NullString
			input, errorMessage          sql.NullString
			metadataJSON                 sql.NullString
			durationMs                   int64
		)

		if err := rows.Scan(&entry.ID, &timestamp, &operation, &status,
			&sessionID, &source, &resource, &input,
			&entry.RecordsAffected, &durationMs, &errorMessage, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		entry.Operation = Operation(operation)
		entry.Status = Status(status)
		entry.SessionID = sessionID.String
		entry.Source = source.String
		entry.Resource = resource.String
		entry.Input = input.String
		entry.ErrorMessage = errorMessage.String
		entry.Duration = time.Duration(durationMs) * time.Millisecond

		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "{}" {
			json.Unmarshal([]byte(metadataJSON.String), &entry.Metadata)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

// Count - количество записей
func (da *DatabaseAppender) Count(ctx context.Context) (int64, error) {
	if err := da.checkOpen(); err != nil {
		return 0, err
	}

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", da.tableName)
	if err := da.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}
