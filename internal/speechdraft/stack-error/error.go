// Пакет stack_error оборачивает ошибки слоя данных, накапливая контекст (проект, речь, ссылка)
// и места вызова, через которые прошла ошибка. Хендлер пишет такую ошибку в лог одной записью через GetError.
package stack_error

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/labstack/echo/v4"
)

type TrackerError struct {
	Context map[string]any
	Trace   []string
	cause   error
}

// TrackErrorStack оборачивает ошибку или дописывает место вызова в уже обернутую.
func TrackErrorStack(err error) *TrackerError {
	if err == nil {
		return nil
	}

	var te *TrackerError
	if !errors.As(err, &te) {
		te = &TrackerError{Context: map[string]any{}, cause: err}
	}
	te.Trace = append(te.Trace, caller(2))
	return te
}

// AddContext добавляет значение в контекст ошибки. Уже заданный ключ не перезаписывается.
func (te *TrackerError) AddContext(k string, v any) *TrackerError {
	if _, ok := te.Context[k]; !ok {
		te.Context[k] = v
	}
	return te
}

func (te *TrackerError) Error() string {
	return te.cause.Error()
}

func (te *TrackerError) Unwrap() error {
	return te.cause
}

// LogAttrs атрибуты для slog: ключи контекста по алфавиту, затем группа trace.
func (te *TrackerError) LogAttrs() []any {
	keys := make([]string, 0, len(te.Context))
	for k := range te.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys)+2)
	attrs = append(attrs, slog.String("err", te.cause.Error()))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, te.Context[k]))
	}

	trace := make([]any, len(te.Trace))
	for i, place := range te.Trace {
		trace[i] = slog.String(fmt.Sprint(i), place)
	}
	return append(attrs, slog.Group("trace", trace...))
}

// GetError пишет ошибку в лог вместе с контекстом, трассой и запросом.
func GetError(c echo.Context, err error) {
	var attrs []any
	var te *TrackerError
	if errors.As(err, &te) {
		attrs = te.LogAttrs()
	} else {
		attrs = []any{slog.String("raw_error", err.Error())}
	}

	if c != nil {
		attrs = append(attrs,
			slog.String("method", c.Request().Method),
			slog.String("url", c.Request().URL.String()))
	}

	slog.Error("stack error", attrs...)
}

func caller(skip int) string {
	_, path, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(path), line)
}
