package dao

import (
	"time"

	"gorm.io/gorm"
)

// Сохраненный в объектном хранилище экспорт речи
type SpeechExport struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ProjectID   string    `json:"project_id" gorm:"index"`
	Format      string    `json:"format"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Version     int       `json:"speech_version"`
	CreatedByID string    `json:"created_by_id"`
}

func (SpeechExport) TableName() string { return "speech_exports" }

// ObjectName имя объекта в хранилище.
func (e *SpeechExport) ObjectName() string {
	return e.ProjectID + "/" + e.ID + "-" + e.FileName
}

func GetSpeechExport(db *gorm.DB, projectID, exportID string) (*SpeechExport, error) {
	var export SpeechExport
	if err := db.Where("project_id = ?", projectID).
		Where("id = ?", exportID).
		First(&export).Error; err != nil {
		return nil, err
	}
	return &export, nil
}

func GetSpeechExports(db *gorm.DB, projectID string) ([]SpeechExport, error) {
	var exports []SpeechExport
	err := db.Where("project_id = ?", projectID).Order("created_at desc").Find(&exports).Error
	return exports, err
}
