package dao

import (
	"time"

	"github.com/speechdraft/speechdraft/internal/speechdraft/types"
	"gorm.io/gorm"
)

// Анкета для сбора историй и воспоминаний от гостей
type Questionnaire struct {
	ID          string           `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	ProjectID   string           `json:"project_id" gorm:"index"`
	Title       string           `json:"title"`
	Questions   types.StringList `json:"questions"`
	CreatedByID string           `json:"created_by_id"`

	AnswersCount int `json:"answers_count" gorm:"->;-:migration"`
}

func (Questionnaire) TableName() string { return "questionnaires" }

// Ответ на анкету. Ответы хранятся простым текстом в порядке вопросов.
type QuestionnaireAnswer struct {
	ID              string           `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	QuestionnaireID string           `json:"questionnaire_id" gorm:"index"`
	AuthorName      string           `json:"author_name"`
	AuthorEmail     string           `json:"author_email"`
	Answers         types.StringList `json:"answers"`
	MagicLinkID     *string          `json:"magic_link_id,omitempty" extensions:"x-nullable"`
	MemberID        *string          `json:"member_id,omitempty" extensions:"x-nullable"`
}

func (QuestionnaireAnswer) TableName() string { return "questionnaire_answers" }

// GetQuestionnaires возвращает анкеты проекта с количеством ответов.
func GetQuestionnaires(db *gorm.DB, projectID string) ([]Questionnaire, error) {
	var list []Questionnaire
	err := db.Model(&Questionnaire{}).
		Select("questionnaires.*, (?) as answers_count",
			db.Model(&QuestionnaireAnswer{}).
				Select("count(*)").
				Where("questionnaire_answers.questionnaire_id = questionnaires.id"),
		).
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&list).Error
	return list, err
}

func GetQuestionnaire(db *gorm.DB, projectID, questionnaireID string) (*Questionnaire, error) {
	var q Questionnaire
	if err := db.Where("project_id = ?", projectID).
		Where("id = ?", questionnaireID).
		First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func GetQuestionnaireAnswers(db *gorm.DB, questionnaireID string) ([]QuestionnaireAnswer, error) {
	var answers []QuestionnaireAnswer
	err := db.Where("questionnaire_id = ?", questionnaireID).
		Order("created_at").
		Find(&answers).Error
	return answers, err
}
