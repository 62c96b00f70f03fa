package table

import "errors"

// Таксономия ошибок редактора
// Все ошибки оборачиваются через fmt.Errorf("%w: ...") и проверяются errors.Is
var (
	// ErrMalformedCSV - CSV файл не читается или пуст (нет заголовка)
	ErrMalformedCSV = errors.New("malformed csv")

	// ErrConnectionFailed - файл не является базой SQLite или не открывается
	ErrConnectionFailed = errors.New("connection to database failed")

	// ErrUnknownColumn - фильтр ссылается на несуществующую колонку
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidFilter - текст фильтра не в формате column=pattern или pattern не regexp
	ErrInvalidFilter = errors.New("invalid filter expression")

	// ErrSQL - запрос завершился ошибкой на стороне движка
	ErrSQL = errors.New("sql error")

	// ErrIndexOutOfRange - индекс вне допустимого диапазона
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrExportIO - файл назначения недоступен для записи
	ErrExportIO = errors.New("export failed")

	// ErrUnsupportedFormat - расширение файла не поддерживается
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoSource - операция вызвана до открытия файла
	ErrNoSource = errors.New("no file is loaded")

	// ErrNotSupported - операция не определена для данного вида источника
	ErrNotSupported = errors.New("operation not supported for this source")
)

// Remedy возвращает подсказку пользователю для ошибки
func Remedy(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSource):
		return "Please open file and try again."
	case errors.Is(err, ErrMalformedCSV),
		errors.Is(err, ErrExportIO),
		errors.Is(err, ErrUnsupportedFormat):
		return "Please check the path and try again."
	case errors.Is(err, ErrUnknownColumn), errors.Is(err, ErrInvalidFilter):
		return "Use the form column=pattern with an existing column name."
	default:
		return "Please try again."
	}
}
