package dao

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/speechdraft/speechdraft/internal/speechdraft/types"
	"gorm.io/gorm"
)

// Роли участников проекта
const (
	RoleContributor = 5
	RoleEditor      = 10
	RoleOwner       = 15
)

// ValidRole проверяет, что роль входит в список известных.
func ValidRole(role int) bool {
	return role == RoleContributor || role == RoleEditor || role == RoleOwner
}

// RoleName возвращает название роли.
func RoleName(role int) string {
	switch role {
	case RoleOwner:
		return "owner"
	case RoleEditor:
		return "editor"
	case RoleContributor:
		return "contributor"
	}
	return "unknown"
}

// Поводы для речи
const (
	OccasionWedding     = "wedding"
	OccasionBirthday    = "birthday"
	OccasionFuneral     = "funeral"
	OccasionRetirement  = "retirement"
	OccasionGraduation  = "graduation"
	OccasionAnniversary = "anniversary"
	OccasionOther       = "other"
)

var Occasions = []string{
	OccasionWedding,
	OccasionBirthday,
	OccasionFuneral,
	OccasionRetirement,
	OccasionGraduation,
	OccasionAnniversary,
	OccasionOther,
}

func ValidOccasion(o string) bool {
	return slices.Contains(Occasions, o)
}

// Проекты. Один проект - одно событие и одна речь.
type Project struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string      `json:"title"`
	Occasion    string      `json:"occasion" gorm:"default:other"`
	HonoreeName string      `json:"honoree_name"`
	EventDate   *types.Date `json:"event_date" extensions:"x-nullable"`
	OwnerID     string      `json:"owner_id" gorm:"index"`
	VenueID     *string     `json:"venue_id" extensions:"x-nullable"`

	Owner *User  `json:"owner_detail,omitempty" gorm:"foreignKey:OwnerID" extensions:"x-nullable"`
	Venue *Venue `json:"venue_detail,omitempty" gorm:"foreignKey:VenueID" extensions:"x-nullable"`

	CurrentUserRole int `json:"current_user_role,omitempty" gorm:"-"`
}

func (Project) TableName() string { return "projects" }

// Участники проекта
type ProjectMember struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectID string `json:"project_id" gorm:"uniqueIndex:project_members_idx,priority:1"`
	MemberID  string `json:"member_id" gorm:"index;uniqueIndex:project_members_idx,priority:2"`
	Role      int    `json:"role"`

	Member  *User    `json:"member,omitempty" gorm:"foreignKey:MemberID" extensions:"x-nullable"`
	Project *Project `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (ProjectMember) TableName() string { return "project_members" }

// CreateProject создает проект, делает автора владельцем и создает пустую речь.
func CreateProject(db *gorm.DB, project *Project, owner *User) error {
	return db.Transaction(func(tx *gorm.DB) error {
		project.ID = GenID()
		project.OwnerID = owner.ID
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		member := ProjectMember{
			ID:        GenID(),
			ProjectID: project.ID,
			MemberID:  owner.ID,
			Role:      RoleOwner,
		}
		if err := tx.Create(&member).Error; err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}

		speech := Speech{
			ID:        GenID(),
			ProjectID: project.ID,
			Content:   types.SpeechContent{},
			Version:   1,
		}
		if err := tx.Create(&speech).Error; err != nil {
			return fmt.Errorf("create speech: %w", err)
		}
		project.CurrentUserRole = RoleOwner
		return nil
	})
}

// GetUserProjects возвращает проекты, в которых пользователь состоит, с его ролью.
func GetUserProjects(db *gorm.DB, userID string) ([]Project, error) {
	var members []ProjectMember
	if err := db.Where("member_id = ?", userID).
		Preload("Project").
		Order("created_at desc").
		Find(&members).Error; err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(members))
	for _, m := range members {
		if m.Project == nil {
			continue
		}
		p := *m.Project
		p.CurrentUserRole = m.Role
		projects = append(projects, p)
	}
	return projects, nil
}

// GetProjectMember возвращает членство пользователя в проекте.
func GetProjectMember(db *gorm.DB, projectID, userID string) (*ProjectMember, error) {
	var member ProjectMember
	if err := db.Where("project_id = ?", projectID).
		Where("member_id = ?", userID).
		Preload("Project").
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// GetProjectMembers возвращает участников проекта, владельцы первыми.
func GetProjectMembers(db *gorm.DB, projectID string) ([]ProjectMember, error) {
	var members []ProjectMember
	err := db.Where("project_id = ?", projectID).
		Preload("Member").
		Order("role desc, created_at").
		Find(&members).Error
	return members, err
}

// AddProjectMember добавляет пользователя в проект.
// Если пользователь уже участник, роль повышается до переданной, но не понижается, и возвращается ErrAlreadyMember.
func AddProjectMember(db *gorm.DB, projectID, userID string, role int) (*ProjectMember, error) {
	var member *ProjectMember
	exists := false
	err := db.Transaction(func(tx *gorm.DB) error {
		existing, err := GetProjectMember(tx, projectID, userID)
		if err == nil {
			exists = true
			member = existing
			if existing.Role < role {
				existing.Role = role
				return tx.Model(&ProjectMember{}).Where("id = ?", existing.ID).UpdateColumn("role", role).Error
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		member = &ProjectMember{
			ID:        GenID(),
			ProjectID: projectID,
			MemberID:  userID,
			Role:      role,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}
	if exists {
		return member, ErrAlreadyMember
	}
	return member, nil
}

// DeleteProject удаляет проект со всеми связанными данными.
func DeleteProject(db *gorm.DB, projectID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var questionnaireIDs []string
		if err := tx.Model(&Questionnaire{}).Where("project_id = ?", projectID).Pluck("id", &questionnaireIDs).Error; err != nil {
			return err
		}
		if len(questionnaireIDs) > 0 {
			if err := tx.Where("questionnaire_id in (?)", questionnaireIDs).Delete(&QuestionnaireAnswer{}).Error; err != nil {
				return err
			}
		}

		var dateIDs []string
		if err := tx.Model(&DateOption{}).Where("project_id = ?", projectID).Pluck("id", &dateIDs).Error; err != nil {
			return err
		}
		if len(dateIDs) > 0 {
			if err := tx.Where("date_option_id in (?)", dateIDs).Delete(&DateVote{}).Error; err != nil {
				return err
			}
		}

		for _, model := range []any{
			&Questionnaire{}, &DateOption{}, &Invitation{}, &MagicLink{},
			&Speech{}, &SpeechExport{}, &ProjectMember{},
		} {
			if err := tx.Where("project_id = ?", projectID).Delete(model).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&Project{}).Where("id = ?", projectID).UpdateColumn("venue_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&Venue{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", projectID).Delete(&Project{}).Error
	})
}
