package table

import (
	"strconv"
	"time"
)

// FormatValue приводит значение ячейки к тексту для экспорта и отображения
// NULL представляется пустой строкой
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case time.Time:
		return formatTime(val)
	default:
		if s, ok := v.(interface{ String() string }); ok {
			return s.String()
		}
		return ""
	}
}

// formatTime выводит время в текстовом формате SQLite:
// дата без времени - YYYY-MM-DD, иначе YYYY-MM-DD HH:MM:SS[.SSS][±HH:MM]
func formatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	if t.Location() == time.UTC {
		return t.Format("2006-01-02 15:04:05.999999999")
	}
	return t.Format("2006-01-02 15:04:05.999999999-07:00")
}

// Affinity - тип колонки SQLite, выводимый по значениям
type Affinity string

const (
	AffinityText    Affinity = "TEXT"
	AffinityInteger Affinity = "INTEGER"
	AffinityReal    Affinity = "REAL"
	AffinityBlob    Affinity = "BLOB"
)

// InferAffinity определяет тип колонки по всем ее значениям
// Текстовые значения (CSV) всегда дают TEXT; NULL не влияет на выбор
func (t *Table) InferAffinity(col int) Affinity {
	var ints, floats, blobs, others int

	for _, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		switch row[col].(type) {
		case nil:
		case int64, int, bool:
			ints++
		case float64:
			floats++
		case []byte:
			blobs++
		default:
			others++
		}
	}

	switch {
	case others > 0:
		return AffinityText
	case blobs > 0 && ints == 0 && floats == 0:
		return AffinityBlob
	case blobs > 0:
		return AffinityText
	case floats > 0:
		return AffinityReal
	case ints > 0:
		return AffinityInteger
	default:
		return AffinityText
	}
}
