package dao

import (
	"time"

	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
	"github.com/speechdraft/speechdraft/internal/speechdraft/types"
	"gorm.io/gorm"
)

// Текст речи. Content при чтении из базы всегда приводится к формату TipTap.
type Speech struct {
	ID          string              `gorm:"column:id;primaryKey" json:"id"`
	ProjectID   string              `json:"project_id" gorm:"uniqueIndex"`
	Content     types.SpeechContent `json:"content"`
	UpdatedByID *string             `json:"updated_by_id" extensions:"x-nullable"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Version     int                 `json:"version" gorm:"default:1"`

	UpdatedBy *User `json:"updated_by_detail,omitempty" gorm:"foreignKey:UpdatedByID" extensions:"x-nullable"`
}

func (Speech) TableName() string { return "speeches" }

// GetSpeech возвращает речь проекта.
func GetSpeech(db *gorm.DB, projectID string) (*Speech, error) {
	var speech Speech
	if err := db.Where("project_id = ?", projectID).
		Preload("UpdatedBy").
		First(&speech).Error; err != nil {
		return nil, err
	}
	return &speech, nil
}

// SaveSpeech сохраняет новый документ, если версия в базе совпадает с ожидаемой.
// При несовпадении возвращается ErrVersionConflict и текущая речь.
func SaveSpeech(db *gorm.DB, projectID string, expectedVersion int, doc *tiptap.Document, userID string) (*Speech, error) {
	res := db.Model(&Speech{}).
		Where("project_id = ?", projectID).
		Where("version = ?", expectedVersion).
		Updates(map[string]any{
			"content":       types.SpeechContent{Doc: doc},
			"updated_by_id": userID,
			"updated_at":    time.Now(),
			"version":       gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, res.Error
	}

	speech, err := GetSpeech(db, projectID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return speech, ErrVersionConflict
	}
	return speech, nil
}
