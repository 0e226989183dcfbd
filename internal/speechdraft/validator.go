// Валидация тел запросов API на основе go-playground/validator.
//
// Основные возможности:
//   - Проверка названий проектов, имен и паролей по длине в символах.
//   - Проверка повода события и ролей участников по спискам известных значений.
package speechdraft

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/speechdraft/speechdraft/internal/speechdraft/apierrors"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
)

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	for tag, fn := range map[string]validator.Func{
		"projectTitle": projectTitleValidator,
		"personName":   personNameValidator,
		"password":     passwordValidator,
		"occasion":     occasionValidator,
		"memberRole":   memberRoleValidator,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validation %s: %v", tag, err))
		}
	}
	return &RequestValidator{v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		if _, ok := err.(validator.ValidationErrors); !ok {
			return nil
		}
		return err
	}
	return nil
}

// bindRequest читает тело запроса и проверяет его валидатором сервера.
func bindRequest(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		if errors.Is(err, tiptap.ErrInvalidDocument) {
			return apierrors.ErrSpeechInvalidDocument.WithFormattedMessage(tiptap.ErrInvalidDocument.Error())
		}
		return apierrors.ErrInvalidRequestBody
	}
	if err := c.Validate(req); err != nil {
		return apierrors.ErrValidation.WithFormattedMessage(err.Error())
	}
	return nil
}

func projectTitleValidator(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	lenStr := utf8.RuneCountInString(value)
	return lenStr >= 1 && lenStr <= 200
}

// Пустое имя допустимо
func personNameValidator(fl validator.FieldLevel) bool {
	return utf8.RuneCountInString(fl.Field().String()) <= 100
}

func passwordValidator(fl validator.FieldLevel) bool {
	lenStr := utf8.RuneCountInString(fl.Field().String())
	return lenStr >= 8 && lenStr <= 128
}

func occasionValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || dao.ValidOccasion(value)
}

// Роль, которую можно выдать приглашением или ссылкой. Владелец у проекта один.
func memberRoleValidator(fl validator.FieldLevel) bool {
	role := int(fl.Field().Int())
	return role == dao.RoleContributor || role == dao.RoleEditor
}
