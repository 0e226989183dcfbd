// Пакет содержит периодические задачи обслуживания: удаление просроченных ссылок-приглашений
// и приглашений по email, очистку хранилища экспортов от файлов без записи в базе.
package maintenance

import (
	"log/slog"
	"time"

	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	"gorm.io/gorm"
)

type AccessCleaner struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAccessCleaner(db *gorm.DB) *AccessCleaner {
	return &AccessCleaner{db: db, now: time.Now}
}

// PurgeExpired удаляет просроченные ссылки и непринятые просроченные приглашения.
func (ac *AccessCleaner) PurgeExpired() {
	links, invitations, err := dao.PurgeExpiredAccess(ac.db, ac.now())
	if err != nil {
		slog.Error("Purge expired access", "err", err)
		return
	}
	if links > 0 || invitations > 0 {
		slog.Info("Expired access purged", "magicLinks", links, "invitations", invitations)
	}
}
