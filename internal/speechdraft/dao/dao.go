// DAO (Data Access Object) - модели и запросы к базе данных сервиса подготовки речей.
//
// Основные возможности:
//   - Пользователи и хэши паролей.
//   - Проекты (событие, для которого пишется речь) и участники с ролями.
//   - Текст речи с оптимистичной блокировкой по версии.
//   - Приглашения по email и ссылки-приглашения с ограничением срока и числа использований.
//   - Анкеты для сбора историй от гостей.
//   - Голосование за дату события и выбор площадки.
//   - Сохраненные экспорты речи.
package dao

import (
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/sethvargo/go-password/password"
	"gorm.io/gorm"
)

var (
	ErrVersionConflict    = errors.New("version conflict")
	ErrMagicLinkExpired   = errors.New("magic link expired")
	ErrMagicLinkRevoked   = errors.New("magic link revoked")
	ErrMagicLinkExhausted = errors.New("magic link usage limit reached")
	ErrAlreadyMember      = errors.New("already a project member")
	ErrInvitationAccepted = errors.New("invitation already accepted")
)

// Models все модели для миграции.
var Models = []any{
	&User{},
	&Project{},
	&ProjectMember{},
	&Speech{},
	&Invitation{},
	&MagicLink{},
	&Questionnaire{},
	&QuestionnaireAnswer{},
	&DateOption{},
	&DateVote{},
	&Venue{},
	&SpeechExport{},
}

// GenID генерирует уникальный идентификатор в формате UUID.
func GenID() string {
	u2, _ := uuid.NewV4()
	return u2.String()
}

// GenToken генерирует случайный токен ссылки из 43 латинских букв и цифр, безопасный для URL.
func GenToken() (string, error) {
	token, err := password.Generate(43, 10, 0, false, true)
	if err != nil {
		return "", fmt.Errorf("gen token: %w", err)
	}
	return token, nil
}

// Migrate создает и обновляет таблицы. Сначала без внешних ключей, затем с ними.
func Migrate(db *gorm.DB) error {
	db.Config.DisableForeignKeyConstraintWhenMigrating = true
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto-migrate models without relations: %w", err)
	}
	db.Config.DisableForeignKeyConstraintWhenMigrating = false

	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto-migrate models with relations: %w", err)
	}
	return nil
}
