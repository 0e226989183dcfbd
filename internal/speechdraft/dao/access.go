package dao

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Приглашение по email
type Invitation struct {
	ID          string     `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	ProjectID   string     `json:"project_id" gorm:"index"`
	Email       string     `json:"email"`
	Role        int        `json:"role"`
	Token       string     `json:"-" gorm:"uniqueIndex"`
	CreatedByID string     `json:"created_by_id"`
	ExpiresAt   time.Time  `json:"expires_at"`
	AcceptedAt  *time.Time `json:"accepted_at" extensions:"x-nullable"`

	Project   *Project `json:"project_detail,omitempty" gorm:"foreignKey:ProjectID" extensions:"x-nullable"`
	CreatedBy *User    `json:"created_by_detail,omitempty" gorm:"foreignKey:CreatedByID" extensions:"x-nullable"`
}

func (Invitation) TableName() string { return "invitations" }

func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Ссылка-приглашение. Дает доступ к публичным анкетам и вступлению в проект с заданной ролью.
type MagicLink struct {
	ID          string     `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	ProjectID   string     `json:"project_id" gorm:"index"`
	Token       string     `json:"token" gorm:"uniqueIndex"`
	Role        int        `json:"role"`
	ExpiresAt   *time.Time `json:"expires_at" extensions:"x-nullable"`
	MaxUses     int        `json:"max_uses"`
	UseCount    int        `json:"use_count"`
	Revoked     bool       `json:"revoked"`
	CreatedByID string     `json:"created_by_id"`

	Project *Project `json:"-" gorm:"foreignKey:ProjectID"`
}

func (MagicLink) TableName() string { return "magic_links" }

// Check проверяет, что ссылкой можно воспользоваться.
func (l *MagicLink) Check(now time.Time) error {
	switch {
	case l.Revoked:
		return ErrMagicLinkRevoked
	case l.ExpiresAt != nil && !now.Before(*l.ExpiresAt):
		return ErrMagicLinkExpired
	case l.MaxUses > 0 && l.UseCount >= l.MaxUses:
		return ErrMagicLinkExhausted
	}
	return nil
}

// GetInvitationByToken возвращает приглашение вместе с проектом.
func GetInvitationByToken(db *gorm.DB, token string) (*Invitation, error) {
	var inv Invitation
	if err := db.Where("token = ?", token).Preload("Project").First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetProjectInvitations возвращает непринятые приглашения проекта.
func GetProjectInvitations(db *gorm.DB, projectID string) ([]Invitation, error) {
	var invitations []Invitation
	err := db.Where("project_id = ?", projectID).
		Where("accepted_at IS NULL").
		Preload("CreatedBy").
		Order("created_at desc").
		Find(&invitations).Error
	return invitations, err
}

func GetProjectMagicLinks(db *gorm.DB, projectID string) ([]MagicLink, error) {
	var links []MagicLink
	err := db.Where("project_id = ?", projectID).Order("created_at desc").Find(&links).Error
	return links, err
}

// GetMagicLinkByToken возвращает ссылку вместе с проектом.
func GetMagicLinkByToken(db *gorm.DB, token string) (*MagicLink, error) {
	var link MagicLink
	if err := db.Where("token = ?", token).Preload("Project").First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// GetValidMagicLink возвращает ссылку, если она существует и действует.
func GetValidMagicLink(db *gorm.DB, token string) (*MagicLink, error) {
	link, err := GetMagicLinkByToken(db, token)
	if err != nil {
		return nil, err
	}
	if err := link.Check(time.Now()); err != nil {
		return link, err
	}
	return link, nil
}

// ConsumeMagicLink увеличивает счетчик использований одним условным UPDATE,
// поэтому параллельные вступления не превысят MaxUses.
func ConsumeMagicLink(db *gorm.DB, token string) (*MagicLink, error) {
	link, err := GetValidMagicLink(db, token)
	if err != nil {
		return link, err
	}

	now := time.Now()
	res := db.Model(&MagicLink{}).
		Where("id = ?", link.ID).
		Where("revoked = ?", false).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Where("max_uses = 0 OR use_count < max_uses").
		UpdateColumn("use_count", gorm.Expr("use_count + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Ссылку успели исчерпать или отозвать между чтением и обновлением
		fresh, err := GetMagicLinkByToken(db, token)
		if err != nil {
			return nil, err
		}
		if err := fresh.Check(now); err != nil {
			return fresh, err
		}
		return fresh, ErrMagicLinkExhausted
	}
	link.UseCount++
	return link, nil
}

// RevokeMagicLink отзывает ссылку проекта.
func RevokeMagicLink(db *gorm.DB, projectID, linkID string) error {
	res := db.Model(&MagicLink{}).
		Where("project_id = ?", projectID).
		Where("id = ?", linkID).
		UpdateColumn("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AcceptInvitation добавляет пользователя в проект и помечает приглашение принятым.
func AcceptInvitation(db *gorm.DB, inv *Invitation, user *User) (*ProjectMember, error) {
	var member *ProjectMember
	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&Invitation{}).
			Where("id = ?", inv.ID).
			Where("accepted_at IS NULL").
			UpdateColumn("accepted_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationAccepted
		}
		inv.AcceptedAt = &now

		var err error
		member, err = AddProjectMember(tx, inv.ProjectID, user.ID, inv.Role)
		if errors.Is(err, ErrAlreadyMember) {
			return nil
		}
		return err
	})
	return member, err
}

// PurgeExpiredAccess удаляет просроченные ссылки и непринятые просроченные приглашения.
func PurgeExpiredAccess(db *gorm.DB, now time.Time) (links int64, invitations int64, err error) {
	res := db.Where("expires_at IS NOT NULL AND expires_at <= ?", now).Delete(&MagicLink{})
	if res.Error != nil {
		return 0, 0, res.Error
	}
	links = res.RowsAffected

	res = db.Where("accepted_at IS NULL AND expires_at <= ?", now).Delete(&Invitation{})
	if res.Error != nil {
		return links, 0, res.Error
	}
	return links, res.RowsAffected, nil
}
