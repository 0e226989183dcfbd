// Пакет содержит определения ошибок API. Каждая ошибка имеет код, HTTP статус и описание на английском и русском.
//
// Коды сгруппированы по тысячам:
//   - 1*** авторизация
//   - 2*** проекты и участники
//   - 3*** текст речи и экспорт
//   - 4*** приглашения и ссылки-приглашения
//   - 5*** валидация и общие ошибки
//   - 6*** анкеты
//   - 7*** планирование события (даты, площадки)
package apierrors

import (
	"fmt"
	"net/http"
	"strings"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	RuErr      string `json:"ru_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

var (
	// 1*** - auth errors
	ErrFailedLogin              = DefinedError{Code: 1001, StatusCode: http.StatusUnauthorized, Err: "invalid credentials", RuErr: "Неправильный email или пароль"}
	ErrLoginCredentialsRequired = DefinedError{Code: 1003, StatusCode: http.StatusUnauthorized, Err: "both email and password are required", RuErr: "Поля email и пароль не могут быть пустыми"}
	ErrSignupDisabled           = DefinedError{Code: 1006, StatusCode: http.StatusForbidden, Err: "sign up disabled", RuErr: "Регистрация отключена администратором"}
	ErrAccessTokenRequired      = DefinedError{Code: 1007, StatusCode: http.StatusUnauthorized, Err: "access token is required", RuErr: "Требуется токен доступа"}
	ErrUserAlreadyExist         = DefinedError{Code: 1008, StatusCode: http.StatusConflict, Err: "user already exist", RuErr: "Пользователь с указанным email уже зарегистрирован в системе"}
	ErrTokenExpired             = DefinedError{Code: 1102, StatusCode: http.StatusUnauthorized, Err: "token expired", RuErr: "Срок действия токена истек"}
	ErrTokenInvalid             = DefinedError{Code: 1103, StatusCode: http.StatusUnauthorized, Err: "invalid token", RuErr: "Неверный токен"}
	ErrUserInactive             = DefinedError{Code: 1104, StatusCode: http.StatusUnauthorized, Err: "user is inactive", RuErr: "Учетная запись отключена"}

	// 2*** - project errors
	ErrProjectNotFound            = DefinedError{Code: 2001, StatusCode: http.StatusNotFound, Err: "project not found", RuErr: "Проект не найден"}
	ErrProjectForbidden           = DefinedError{Code: 2002, StatusCode: http.StatusForbidden, Err: "not have permissions to perform this action", RuErr: "Недостаточно прав для совершения действия"}
	ErrDeleteProjectForbidden     = DefinedError{Code: 2003, StatusCode: http.StatusForbidden, Err: "deletion of project is forbidden", RuErr: "У вас недостаточно прав на удаление проекта"}
	ErrProjectTitleRequired       = DefinedError{Code: 2004, StatusCode: http.StatusBadRequest, Err: "project title is required", RuErr: "Поле название проекта не может быть пустым"}
	ErrUnsupportedOccasion        = DefinedError{Code: 2005, StatusCode: http.StatusBadRequest, Err: "unsupported occasion %s", RuErr: "Указан неизвестный повод"}
	ErrProjectMemberNotFound      = DefinedError{Code: 2006, StatusCode: http.StatusNotFound, Err: "project member not found", RuErr: "Участник проекта не найден"}
	ErrCannotRemoveProjectOwner   = DefinedError{Code: 2007, StatusCode: http.StatusBadRequest, Err: "cannot remove project owner from project", RuErr: "Нельзя удалить владельца проекта"}
	ErrUserAlreadyInProject       = DefinedError{Code: 2008, StatusCode: http.StatusConflict, Err: "user is already a member of the project", RuErr: "Пользователь уже является участником проекта"}
	ErrCannotRemoveHigherRoleUser = DefinedError{Code: 2009, StatusCode: http.StatusForbidden, Err: "you cannot remove a user having a higher role than you", RuErr: "У вас недостаточно прав для удаления пользователя с более высокой ролью, чем ваша"}

	// 3*** - speech errors
	ErrSpeechNotFound          = DefinedError{Code: 3001, StatusCode: http.StatusNotFound, Err: "speech not found", RuErr: "Текст речи не найден"}
	ErrSpeechVersionConflict   = DefinedError{Code: 3002, StatusCode: http.StatusConflict, Err: "speech was changed by another user, current version %d", RuErr: "Текст речи изменен другим пользователем"}
	ErrSpeechInvalidDocument   = DefinedError{Code: 3003, StatusCode: http.StatusBadRequest, Err: "invalid speech document: %s", RuErr: "Некорректный формат текста речи"}
	ErrSpeechEditForbidden     = DefinedError{Code: 3004, StatusCode: http.StatusForbidden, Err: "speech editing requires editor role", RuErr: "Для редактирования речи необходима роль редактора"}
	ErrUnsupportedExportFormat = DefinedError{Code: 3005, StatusCode: http.StatusBadRequest, Err: "unsupported export format %s", RuErr: "Неподдерживаемый формат экспорта"}
	ErrExportStorageDisabled   = DefinedError{Code: 3006, StatusCode: http.StatusServiceUnavailable, Err: "export storage is not configured", RuErr: "Хранилище экспортов не настроено"}
	ErrSpeechTooLarge          = DefinedError{Code: 3007, StatusCode: http.StatusRequestEntityTooLarge, Err: "speech document exceeds the allowed size", RuErr: "Текст речи превышает допустимый размер"}

	// 4*** - invitation errors
	ErrInvitationNotFound      = DefinedError{Code: 4001, StatusCode: http.StatusNotFound, Err: "invitation not found", RuErr: "Приглашение не найдено"}
	ErrInvitationExpired       = DefinedError{Code: 4002, StatusCode: http.StatusGone, Err: "invitation expired", RuErr: "Срок действия приглашения истек"}
	ErrInvitationAccepted      = DefinedError{Code: 4003, StatusCode: http.StatusConflict, Err: "invitation already accepted", RuErr: "Приглашение уже принято"}
	ErrInvitationEmailMismatch = DefinedError{Code: 4004, StatusCode: http.StatusForbidden, Err: "invitation was sent to another email", RuErr: "Приглашение отправлено на другой email"}
	ErrMagicLinkNotFound       = DefinedError{Code: 4010, StatusCode: http.StatusNotFound, Err: "magic link not found", RuErr: "Ссылка-приглашение не найдена"}
	ErrMagicLinkExpired        = DefinedError{Code: 4011, StatusCode: http.StatusGone, Err: "magic link expired", RuErr: "Срок действия ссылки истек"}
	ErrMagicLinkRevoked        = DefinedError{Code: 4012, StatusCode: http.StatusGone, Err: "magic link revoked", RuErr: "Ссылка отозвана"}
	ErrMagicLinkExhausted      = DefinedError{Code: 4013, StatusCode: http.StatusGone, Err: "magic link usage limit reached", RuErr: "Лимит использований ссылки исчерпан"}
	ErrMagicLinkOwnerRole      = DefinedError{Code: 4014, StatusCode: http.StatusBadRequest, Err: "magic link cannot grant owner role", RuErr: "Ссылка не может выдавать роль владельца"}

	// 5*** - validation and other errors
	ErrGeneric            = DefinedError{Code: 5000, StatusCode: http.StatusBadRequest, Err: "Something went wrong. Please try again later or contact the support team.", RuErr: "Что-то пошло не так. Повторите попытку позже или обратитесь в службу поддержки"}
	ErrInvalidEmail       = DefinedError{Code: 5001, StatusCode: http.StatusBadRequest, Err: "invalid email %s", RuErr: "Указан некорректный email"}
	ErrUnsupportedRole    = DefinedError{Code: 5006, StatusCode: http.StatusBadRequest, Err: "unsupported role %s", RuErr: "Указана некорректная роль"}
	ErrInvalidDayFormat   = DefinedError{Code: 5008, StatusCode: http.StatusBadRequest, Err: "date must be in YYYY-MM-DD format", RuErr: "Необходимо указать дату в формате: гггг-мм-дд"}
	ErrEntityToLarge      = DefinedError{Code: 5010, StatusCode: http.StatusRequestEntityTooLarge, Err: "size exceeds the allowed limit", RuErr: "Размер запроса превышает допустимый."}
	ErrInvalidID          = DefinedError{Code: 5013, StatusCode: http.StatusBadRequest, Err: "invalid ID", RuErr: "Указан неверный ID"}
	ErrValidation         = DefinedError{Code: 5014, StatusCode: http.StatusBadRequest, Err: "validation failed: %s", RuErr: "Некорректно заполнены поля запроса"}
	ErrInvalidRequestBody = DefinedError{Code: 5015, StatusCode: http.StatusBadRequest, Err: "invalid request body", RuErr: "Некорректное тело запроса"}

	// 6*** - questionnaire errors
	ErrQuestionnaireNotFound = DefinedError{Code: 6001, StatusCode: http.StatusNotFound, Err: "questionnaire not found", RuErr: "Анкета не найдена"}
	ErrQuestionsRequired     = DefinedError{Code: 6002, StatusCode: http.StatusBadRequest, Err: "questionnaire must have at least one question", RuErr: "Анкета должна содержать хотя бы один вопрос"}
	ErrAnswersCountMismatch  = DefinedError{Code: 6003, StatusCode: http.StatusBadRequest, Err: "expected %d answers", RuErr: "Количество ответов не совпадает с количеством вопросов"}

	// 7*** - event planning errors
	ErrDateOptionNotFound = DefinedError{Code: 7001, StatusCode: http.StatusNotFound, Err: "date option not found", RuErr: "Вариант даты не найден"}
	ErrDateOptionExists   = DefinedError{Code: 7002, StatusCode: http.StatusConflict, Err: "date option already exists", RuErr: "Такой вариант даты уже добавлен"}
	ErrAlreadyVoted       = DefinedError{Code: 7003, StatusCode: http.StatusConflict, Err: "already voted for this date", RuErr: "Вы уже проголосовали за эту дату"}
	ErrVoteNotFound       = DefinedError{Code: 7004, StatusCode: http.StatusNotFound, Err: "vote not found", RuErr: "Голос не найден"}
	ErrVenueNotFound      = DefinedError{Code: 7005, StatusCode: http.StatusNotFound, Err: "venue not found", RuErr: "Площадка не найдена"}
)

func (e DefinedError) WithFormattedMessage(args ...interface{}) DefinedError {
	if len(args) > 0 {
		e.Err = fmt.Sprintf(e.Err, args...)
		if strings.Contains(e.RuErr, "%") {
			e.RuErr = fmt.Sprintf(e.RuErr, args...)
		}
	} else {
		e.Err = strings.NewReplacer("%s", "", "%d", "").Replace(e.Err)
		e.RuErr = strings.NewReplacer("%s", "", "%d", "").Replace(e.RuErr)
	}
	return e
}
