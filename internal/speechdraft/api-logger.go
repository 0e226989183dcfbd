// Обработка ошибок API: ответы в формате DefinedError и запись ошибок в лог.
//
// Основные возможности:
//   - Единый формат ответа с ошибкой.
//   - Логирование ошибок API с контекстом (метод, URL, пользователь, место вызова).
//   - Преобразование ошибок слоя данных в определенные ошибки API.
package speechdraft

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/speechdraft/speechdraft/internal/speechdraft/apierrors"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
	"gorm.io/gorm"
)

// Ошибки слоя данных, для которых есть ответ API
var daoErrors = []struct {
	err     error
	defined apierrors.DefinedError
}{
	{dao.ErrMagicLinkExpired, apierrors.ErrMagicLinkExpired},
	{dao.ErrMagicLinkRevoked, apierrors.ErrMagicLinkRevoked},
	{dao.ErrMagicLinkExhausted, apierrors.ErrMagicLinkExhausted},
	{dao.ErrAlreadyMember, apierrors.ErrUserAlreadyInProject},
	{dao.ErrInvitationAccepted, apierrors.ErrInvitationAccepted},
}

// Возврат ошибки 400 с универсальным сообщением
func EError(c echo.Context, err error) error {
	var customErr apierrors.DefinedError
	if errors.As(err, &customErr) {
		return EErrorDefined(c, customErr)
	}
	for _, de := range daoErrors {
		if errors.Is(err, de.err) {
			return EErrorDefined(c, de.defined)
		}
	}
	if errors.Is(err, tiptap.ErrInvalidDocument) {
		return EErrorDefined(c, apierrors.ErrSpeechInvalidDocument.WithFormattedMessage(err.Error()))
	}

	user := contextUser(c)
	if err == nil {
		slog.Error("Unknown API error",
			"method", c.Request().Method,
			"url", c.Request().URL,
			"user", user,
			getCallerFile(),
		)
	} else {
		slog.Error("API error",
			"err", err,
			"method", c.Request().Method,
			"url", c.Request().URL,
			"user", user,
			getCallerFile(),
		)
	}
	return EErrorDefined(c, apierrors.ErrGeneric)
}

// Возврат ошибки <status> с сообщением ошибки (403 с пустой ошибкой не логируется)
func EErrorMsgStatus(c echo.Context, err error, status int) error {
	if status == http.StatusRequestEntityTooLarge {
		return EErrorDefined(c, apierrors.ErrEntityToLarge)
	}

	user := contextUser(c)
	er := apierrors.ErrGeneric
	er.StatusCode = status
	if err == nil {
		if status != http.StatusForbidden {
			slog.Error("Unknown API error",
				"method", c.Request().Method,
				slog.Int("status", status),
				"url", c.Request().URL,
				"user", user,
				getCallerFile(),
			)
		}
		return EErrorDefined(c, er)
	}

	// 404 не логируем
	if status != http.StatusNotFound {
		slog.Error("API error",
			"err", err,
			"method", c.Request().Method,
			slog.Int("status", status),
			"url", c.Request().URL,
			"user", user,
			getCallerFile(),
		)
	}
	er.Err = err.Error()
	return EErrorDefined(c, er)
}

// EErrorDefined возвращает JSON-ответ с кодом статуса ошибки. Для неизвестного кода используется 400 Bad Request.
func EErrorDefined(c echo.Context, err apierrors.DefinedError) error {
	if http.StatusText(err.StatusCode) == "" {
		err.StatusCode = http.StatusBadRequest
	}
	return c.JSON(err.StatusCode, err)
}

// notFoundOr возвращает ошибку notFound, если запись не найдена, иначе обычный ответ EError.
func notFoundOr(c echo.Context, err error, notFound apierrors.DefinedError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EErrorDefined(c, notFound)
	}
	return EError(c, err)
}

func contextUser(c echo.Context) *dao.User {
	switch ctx := c.(type) {
	case AuthContext:
		return ctx.User
	case ProjectContext:
		return ctx.User
	}
	return nil
}

// getCallerFile возвращает файл и строку, из которых был вызван обработчик ошибки.
func getCallerFile() slog.Attr {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return slog.Attr{}
	}
	_, file := filepath.Split(path)
	return slog.String("caller", fmt.Sprintf("%s:%d", file, no))
}
