package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEntry_FilterByLevel(t *testing.T) {
	entry := NewEntry(OpQuery, StatusSuccess).
		WithSource("shop.db").
		WithInput("SELECT * FROM users").
		WithMetadata("rows", 2)
	entry.SessionID = "s1"

	tests := []struct {
		level       Level
		wantInput   bool
		wantMeta    bool
		wantSession bool
	}{
		{LevelMinimal, false, false, false},
		{LevelStandard, false, true, true},
		{LevelFull, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			f := entry.FilterByLevel(tt.level)
			if (f.Input != "") != tt.wantInput {
				t.Errorf("Input present = %v, want %v", f.Input != "", tt.wantInput)
			}
			if (f.Metadata != nil) != tt.wantMeta {
				t.Errorf("Metadata present = %v, want %v", f.Metadata != nil, tt.wantMeta)
			}
			if (f.SessionID != "") != tt.wantSession {
				t.Errorf("SessionID present = %v, want %v", f.SessionID != "", tt.wantSession)
			}
		})
	}

	// Исходная запись не изменилась
	if entry.Input == "" || entry.Metadata == nil {
		t.Error("FilterByLevel modified original entry")
	}
}

func TestEntry_WithError(t *testing.T) {
	e := NewEntry(OpOpen, StatusSuccess).WithError(nil)
	if e.Status != StatusSuccess || e.ErrorMessage != "" {
		t.Errorf("nil error changed entry: %+v", e)
	}

	e = NewEntry(OpOpen, StatusSuccess).WithError(errors.New("boom"))
	if e.Status != StatusFailure || e.ErrorMessage != "boom" {
		t.Errorf("Unexpected entry: %+v", e)
	}

	e = NewEntry(OpExport, StatusPartial).WithError(errors.New("one table failed"))
	if e.Status != StatusPartial {
		t.Errorf("Partial status overwritten: %s", e.Status)
	}

	if a, b := NewEntry(OpOpen, StatusSuccess), NewEntry(OpOpen, StatusSuccess); a.ID == b.ID {
		t.Error("Entry IDs must be unique")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"minimal", LevelMinimal, false},
		{"", LevelStandard, false},
		{"FULL", LevelFull, false},
		{"verbose", LevelStandard, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLogger_Record(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryAppender()
	logger := NewLogger(LoggerConfig{SessionID: "session-1"}, mem)

	logger.Record(ctx, OpFilter, time.Now(), nil, func(e *Entry) {
		e.WithSource("people.csv").WithInput("name=Bob").WithRecordsAffected(1)
	})
	logger.Record(ctx, OpOpen, time.Now(), errors.New("no such file"), nil)

	entries := mem.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].SessionID != "session-1" || entries[0].Status != StatusSuccess || entries[0].RecordsAffected != 1 {
		t.Errorf("Unexpected first entry %+v", entries[0])
	}
	if entries[1].Status != StatusFailure || entries[1].ErrorMessage != "no such file" {
		t.Errorf("Unexpected second entry %+v", entries[1])
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := logger.Log(ctx, NewEntry(OpClose, StatusSuccess)); err == nil {
		t.Error("Expected error after Close")
	}
}

func TestLogger_Nil(t *testing.T) {
	var logger *Logger
	logger.Record(context.Background(), OpOpen, time.Now(), nil, nil)
	if err := logger.Log(context.Background(), NewEntry(OpOpen, StatusSuccess)); err != nil {
		t.Errorf("nil logger returned %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("nil logger Close returned %v", err)
	}
}

type failingAppender struct{}

func (failingAppender) Append(context.Context, *Entry) error { return errors.New("disk full") }
func (failingAppender) Close() error                         { return nil }

func TestMultiAppender(t *testing.T) {
	mem := NewMemoryAppender()
	multi := NewMultiAppender(failingAppender{}, mem)

	err := multi.Append(context.Background(), NewEntry(OpOpen, StatusSuccess))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected disk full error, got %v", err)
	}
	// Второй appender получил запись несмотря на ошибку первого
	if len(mem.Entries()) != 1 {
		t.Error("MemoryAppender did not receive entry")
	}

	var reported []error
	logger := NewLogger(LoggerConfig{OnError: func(err error) { reported = append(reported, err) }}, failingAppender{})
	logger.Record(context.Background(), OpOpen, time.Now(), nil, nil)
	if len(reported) != 1 {
		t.Errorf("Expected 1 reported error, got %d", len(reported))
	}
}

func TestFileAppender(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "logs", "audit.log")

	fa, err := NewFileAppender(FileAppenderConfig{FilePath: path, Level: LevelFull, FormatJSON: true})
	if err != nil {
		t.Fatalf("NewFileAppender failed: %v", err)
	}

	entry := NewEntry(OpQuery, StatusSuccess).WithInput("SELECT 1")
	if err := fa.Append(ctx, entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := fa.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := fa.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var decoded Entry
	if err := json.Unmarshal(bytes.TrimSpace(data), &decoded); err != nil {
		t.Fatalf("Invalid JSON line %q: %v", data, err)
	}
	if decoded.ID != entry.ID || decoded.Input != "SELECT 1" {
		t.Errorf("Unexpected decoded entry %+v", decoded)
	}
}

func TestFileAppender_Rotation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.log")

	fa, err := NewFileAppender(FileAppenderConfig{FilePath: path, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileAppender failed: %v", err)
	}
	defer fa.Close()

	// Маленький лимит, чтобы каждая запись вызывала ротацию
	fa.maxSize = 10

	for i := 0; i < 4; i++ {
		entry := NewEntry(OpOpen, StatusSuccess).WithResource(fmt.Sprintf("file-%d", i))
		if err := fa.Append(ctx, entry); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Expected %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("Expected at most 2 backups")
	}

	current, _ := os.ReadFile(path)
	if !strings.Contains(string(current), "file-3") {
		t.Errorf("Current file should hold the last entry, got %q", current)
	}
	newest, _ := os.ReadFile(path + ".1")
	if !strings.Contains(string(newest), "file-2") {
		t.Errorf("First backup should hold the previous entry, got %q", newest)
	}
}

func TestLogAppender(t *testing.T) {
	var buf bytes.Buffer
	la := NewLogAppender(zerolog.New(&buf), LevelStandard)

	entry := NewEntry(OpExport, StatusPartial).
		WithResource("out.csv").
		WithInput("hidden at standard level").
		WithMetadata("files", 2)
	entry.ErrorMessage = "table b failed"

	if err := la.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Invalid log line %q: %v", buf.String(), err)
	}
	if line["level"] != "warn" || line["operation"] != "export" || line["resource"] != "out.csv" {
		t.Errorf("Unexpected log line %v", line)
	}
	if _, ok := line["input"]; ok {
		t.Error("Input must not be logged at standard level")
	}
	if line["files"] != float64(2) {
		t.Errorf("Expected metadata field files=2, got %v", line["files"])
	}
}

func TestDatabaseAppender(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.db")

	da, err := OpenDatabaseAppender(ctx, path, LevelFull)
	if err != nil {
		t.Fatalf("OpenDatabaseAppender failed: %v", err)
	}
	defer da.Close()

	logger := NewLogger(LoggerConfig{SessionID: "s-42"}, da)
	logger.Record(ctx, OpOpen, time.Now(), nil, func(e *Entry) { e.WithSource("shop.db") })
	logger.Record(ctx, OpQuery, time.Now(), errors.New("no such table"), func(e *Entry) {
		e.WithInput("SELECT * FROM missing").WithMetadata("kind", "relational")
	})

	count, err := da.Count(ctx)
	if err != nil || count != 2 {
		t.Fatalf("Count = %d, %v", count, err)
	}

	failures, err := da.Query(ctx, QueryFilter{Status: StatusFailure})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(failures))
	}
	f := failures[0]
	if f.Operation != OpQuery || f.Input != "SELECT * FROM missing" || f.SessionID != "s-42" {
		t.Errorf("Unexpected entry %+v", f)
	}
	if f.Metadata["kind"] != "relational" {
		t.Errorf("Metadata not restored: %v", f.Metadata)
	}

	recent, err := da.Query(ctx, QueryFilter{Limit: 1})
	if err != nil || len(recent) != 1 {
		t.Fatalf("Query with limit = %v, %v", recent, err)
	}
}

func TestDatabaseAppender_AfterClose(t *testing.T) {
	ctx := context.Background()

	da, err := OpenDatabaseAppender(ctx, filepath.Join(t.TempDir(), "audit.db"), LevelStandard)
	if err != nil {
		t.Fatalf("OpenDatabaseAppender failed: %v", err)
	}
	if err := da.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := da.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}

	if err := da.Append(ctx, NewEntry(OpClose, StatusSuccess)); err == nil {
		t.Error("Expected error appending to closed appender")
	}
	if _, err := da.Query(ctx, QueryFilter{}); err == nil {
		t.Error("Expected error querying closed appender")
	}
	if _, err := da.Count(ctx); err == nil {
		t.Error("Expected error counting closed appender")
	}

	var reported []error
	logger := NewLogger(LoggerConfig{OnError: func(err error) { reported = append(reported, err) }}, da)
	logger.Record(ctx, OpClose, time.Now(), nil, func(e *Entry) { e.WithSource("shop.db") })
	if len(reported) != 1 {
		t.Errorf("Expected 1 reported error, got %v", reported)
	}
}
