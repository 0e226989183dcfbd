package dao

import (
	"time"

	"github.com/speechdraft/speechdraft/internal/speechdraft/types"
	"gorm.io/gorm"
)

// Вариант даты события для голосования
type DateOption struct {
	ID          string     `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	ProjectID   string     `json:"project_id" gorm:"uniqueIndex:date_options_idx,priority:1"`
	Date        types.Date `json:"date" gorm:"uniqueIndex:date_options_idx,priority:2"`
	CreatedByID string     `json:"created_by_id"`

	Votes     []DateVote `json:"votes" gorm:"foreignKey:DateOptionID"`
	VoteCount int        `json:"vote_count" gorm:"-"`
}

func (DateOption) TableName() string { return "date_options" }

// Голос участника за дату
type DateVote struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	DateOptionID string    `json:"date_option_id" gorm:"uniqueIndex:date_votes_idx,priority:1"`
	VoterID      string    `json:"voter_id" gorm:"uniqueIndex:date_votes_idx,priority:2"`
}

func (DateVote) TableName() string { return "date_votes" }

// Площадка для проведения события
type Venue struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ProjectID   string    `json:"project_id" gorm:"index"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	URL         string    `json:"url"`
	Notes       string    `json:"notes"`
	CreatedByID string    `json:"created_by_id"`
}

func (Venue) TableName() string { return "venues" }

// GetDateOptions возвращает варианты дат с голосами, по возрастанию даты.
func GetDateOptions(db *gorm.DB, projectID string) ([]DateOption, error) {
	var options []DateOption
	if err := db.Where("project_id = ?", projectID).
		Preload("Votes").
		Order("date").
		Find(&options).Error; err != nil {
		return nil, err
	}
	for i := range options {
		options[i].VoteCount = len(options[i].Votes)
	}
	return options, nil
}

func GetDateOption(db *gorm.DB, projectID, optionID string) (*DateOption, error) {
	var option DateOption
	if err := db.Where("project_id = ?", projectID).
		Where("id = ?", optionID).
		First(&option).Error; err != nil {
		return nil, err
	}
	return &option, nil
}

// Unvote удаляет голос. Возвращает gorm.ErrRecordNotFound, если голоса не было.
func Unvote(db *gorm.DB, optionID, voterID string) error {
	res := db.Where("date_option_id = ?", optionID).
		Where("voter_id = ?", voterID).
		Delete(&DateVote{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SelectEventDate фиксирует выбранную дату в проекте.
func SelectEventDate(db *gorm.DB, project *Project, option *DateOption) error {
	date := option.Date
	if err := db.Model(&Project{}).Where("id = ?", project.ID).UpdateColumn("event_date", date).Error; err != nil {
		return err
	}
	project.EventDate = &date
	return nil
}

func GetVenues(db *gorm.DB, projectID string) ([]Venue, error) {
	var venues []Venue
	err := db.Where("project_id = ?", projectID).Order("created_at").Find(&venues).Error
	return venues, err
}

func GetVenue(db *gorm.DB, projectID, venueID string) (*Venue, error) {
	var venue Venue
	if err := db.Where("project_id = ?", projectID).
		Where("id = ?", venueID).
		First(&venue).Error; err != nil {
		return nil, err
	}
	return &venue, nil
}

// SelectVenue фиксирует выбранную площадку в проекте.
func SelectVenue(db *gorm.DB, project *Project, venue *Venue) error {
	if err := db.Model(&Project{}).Where("id = ?", project.ID).UpdateColumn("venue_id", venue.ID).Error; err != nil {
		return err
	}
	project.VenueID = &venue.ID
	project.Venue = venue
	return nil
}
