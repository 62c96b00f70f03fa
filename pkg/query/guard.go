package query

import (
	"fmt"
	"strings"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

// Guard проверяет операторы перед выполнением.
//
// В режиме только для чтения разрешены SELECT и WITH, блокируются
// изменяющие операции, множественные операторы и комментарии.
// Без этого режима оператор передается в базу как есть.
type Guard struct {
	readOnly bool
}

// NewGuard создает проверку; readOnly=false пропускает всё
func NewGuard(readOnly bool) *Guard {
	return &Guard{readOnly: readOnly}
}

// ReadOnly возвращает текущий режим
func (g *Guard) ReadOnly() bool {
	return g != nil && g.readOnly
}

// forbiddenKeywords - операции, запрещенные в режиме только для чтения
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "REPLACE", "UPSERT",
	"DROP", "CREATE", "ALTER",
	"PRAGMA", "ATTACH", "DETACH", "VACUUM", "REINDEX",
	"BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT",
}

// Check возвращает ErrSQL, если оператор нарушает режим
func (g *Guard) Check(statement string) error {
	if !g.ReadOnly() {
		return nil
	}

	normalized := strings.ToUpper(strings.TrimSpace(statement))
	if !strings.HasPrefix(normalized, "SELECT") && !strings.HasPrefix(normalized, "WITH") {
		return fmt.Errorf("%w: read-only mode allows SELECT and WITH, got %s", table.ErrSQL, statementKind(normalized))
	}

	if strings.Contains(statement, "--") || strings.Contains(statement, "/*") {
		return fmt.Errorf("%w: comments not allowed in read-only mode", table.ErrSQL)
	}

	trimmed := strings.TrimSuffix(strings.TrimSpace(statement), ";")
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("%w: multiple statements not allowed in read-only mode", table.ErrSQL)
	}

	// Ключевые слова ищем как отдельные слова, чтобы не ловить UPDATED_AT
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !(r == '_' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	for _, word := range words {
		for _, keyword := range forbiddenKeywords {
			if word == keyword {
				return fmt.Errorf("%w: keyword %s not allowed in read-only mode", table.ErrSQL, keyword)
			}
		}
	}

	return nil
}

func statementKind(normalized string) string {
	if parts := strings.Fields(normalized); len(parts) > 0 {
		return parts[0]
	}
	return "UNKNOWN"
}
