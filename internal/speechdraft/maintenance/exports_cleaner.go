package maintenance

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	filestorage "github.com/speechdraft/speechdraft/internal/speechdraft/file-storage"
	"gorm.io/gorm"
)

// Свежие файлы не трогаем: запись в базе создается после загрузки
const exportGracePeriod = time.Hour

type ExportsCleaner struct {
	db  *gorm.DB
	si  filestorage.FileStorage
	now func() time.Time
}

func NewExportsCleaner(db *gorm.DB, si filestorage.FileStorage) *ExportsCleaner {
	return &ExportsCleaner{db: db, si: si, now: time.Now}
}

// CleanExports удаляет из хранилища файлы экспортов, для которых нет записи speech_exports.
func (ec *ExportsCleaner) CleanExports() {
	slog.Info("Start exports cleaning")
	var deleted int
	if err := ec.si.ListRoot(func(fi filestorage.FileInfo) error {
		if ec.now().Sub(fi.CreatedAt) < exportGracePeriod {
			return nil
		}

		exportID, ok := exportIDFromName(fi.Name)
		if ok {
			var exist bool
			if err := ec.db.
				Model(&dao.SpeechExport{}).
				Select("count(*) > 0").
				Where("id = ?", exportID).
				Find(&exist).Error; err != nil {
				return err
			}
			if exist {
				return nil
			}
		}

		if err := ec.si.Delete(fi.Name); err != nil {
			return err
		}
		deleted++
		return nil
	}); err != nil {
		slog.Error("Clean exports fail", "err", err)
	}
	slog.Info("Finish exports cleaning", "deleted", deleted)
}

// exportIDFromName достает идентификатор экспорта из имени вида <project>/<export id>-<file>.
func exportIDFromName(name string) (string, bool) {
	_, rest, found := strings.Cut(name, "/")
	if !found || len(rest) < 36 {
		return "", false
	}
	id, err := uuid.FromString(rest[:36])
	if err != nil {
		return "", false
	}
	return id.String(), true
}
