package speechdraft

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/speechdraft/speechdraft/internal/speechdraft/apierrors"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	policy "github.com/speechdraft/speechdraft/internal/speechdraft/redactor-policy"
	"github.com/speechdraft/speechdraft/internal/speechdraft/types"
	"gorm.io/gorm"
)

// AddEventServices планирование события: голосование за дату и выбор площадки.
func (s *Services) AddEventServices(projectGroup *echo.Group) {
	projectGroup.GET("/dates/", s.getDateOptionList)
	projectGroup.POST("/dates/", s.createDateOption, editorOnly)
	projectGroup.DELETE("/dates/:dateId/", s.deleteDateOption, editorOnly)
	projectGroup.POST("/dates/:dateId/vote/", s.voteForDate)
	projectGroup.DELETE("/dates/:dateId/vote/", s.unvoteForDate)
	projectGroup.POST("/dates/:dateId/select/", s.selectDate, editorOnly)

	projectGroup.GET("/venues/", s.getVenueList)
	projectGroup.POST("/venues/", s.createVenue, editorOnly)
	projectGroup.POST("/venues/:venueId/select/", s.selectVenue, editorOnly)
}

// getDateOptionList godoc
// @id getDateOptionList
// @Summary Событие (даты): список вариантов даты
// @Description Возвращает варианты даты события с голосами участников.
// @Tags Event
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 {array} dao.DateOption "Варианты даты"
// @Failure 404 {object} apierrors.DefinedError "Проект не найден"
// @Router /api/auth/projects/{projectId}/dates/ [get]
func (s *Services) getDateOptionList(c echo.Context) error {
	project := c.(ProjectContext).Project

	options, err := dao.GetDateOptions(s.db, project.ID)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, options)
}

type CreateDateOptionRequest struct {
	Date string `json:"date"`
}

// createDateOption godoc
// @id createDateOption
// @Summary Событие (даты): добавление варианта даты
// @Description Добавляет вариант даты для голосования.
// @Tags Event
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param data body CreateDateOptionRequest true "Дата и комментарий"
// @Success 201 {object} dao.DateOption "Созданный вариант"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 409 {object} apierrors.DefinedError "Такая дата уже предложена"
// @Router /api/auth/projects/{projectId}/dates/ [post]
func (s *Services) createDateOption(c echo.Context) error {
	project := c.(ProjectContext).Project
	user := c.(ProjectContext).User

	var req CreateDateOptionRequest
	if err := c.Bind(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidRequestBody)
	}

	date, err := types.ParseDate(req.Date)
	if err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidDayFormat)
	}

	var exist bool
	if err := s.db.Model(&dao.DateOption{}).
		Select("count(*) > 0").
		Where("project_id = ?", project.ID).
		Where("date = ?", date).
		Find(&exist).Error; err != nil {
		return EError(c, err)
	}
	if exist {
		return EErrorDefined(c, apierrors.ErrDateOptionExists)
	}

	option := dao.DateOption{
		ID:          dao.GenID(),
		ProjectID:   project.ID,
		Date:        date,
		CreatedByID: user.ID,
		Votes:       []dao.DateVote{},
	}
	if err := s.db.Omit("Votes").Create(&option).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return EErrorDefined(c, apierrors.ErrDateOptionExists)
		}
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, option)
}

// deleteDateOption godoc
// @id deleteDateOption
// @Summary Событие (даты): удаление варианта даты
// @Description Удаляет вариант даты вместе с голосами.
// @Tags Event
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param dateId path string true "ID варианта даты"
// @Success 200 "Вариант удален"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 404 {object} apierrors.DefinedError "Вариант даты не найден"
// @Router /api/auth/projects/{projectId}/dates/{dateId}/ [delete]
func (s *Services) deleteDateOption(c echo.Context) error {
	project := c.(ProjectContext).Project

	option, err := dao.GetDateOption(s.db, project.ID, c.Param("dateId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrDateOptionNotFound)
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date_option_id = ?", option.ID).Delete(&dao.DateVote{}).Error; err != nil {
			return err
		}
		return tx.Delete(option).Error
	}); err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// voteForDate голос текущего участника. Повторный голос за ту же дату отклоняется.
// @id voteForDate
// @Summary Событие (даты): голос за дату
// @Description Сохраняет голос текущего участника за вариант даты.
// @Tags Event
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param dateId path string true "ID варианта даты"
// @Success 201 {object} dao.DateVote "Голос"
// @Failure 404 {object} apierrors.DefinedError "Вариант даты не найден"
// @Failure 409 {object} apierrors.DefinedError "Участник уже голосовал за эту дату"
// @Router /api/auth/projects/{projectId}/dates/{dateId}/vote/ [post]
func (s *Services) voteForDate(c echo.Context) error {
	project := c.(ProjectContext).Project
	user := c.(ProjectContext).User

	option, err := dao.GetDateOption(s.db, project.ID, c.Param("dateId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrDateOptionNotFound)
	}

	var exist bool
	if err := s.db.Model(&dao.DateVote{}).
		Select("count(*) > 0").
		Where("date_option_id = ?", option.ID).
		Where("voter_id = ?", user.ID).
		Find(&exist).Error; err != nil {
		return EError(c, err)
	}
	if exist {
		return EErrorDefined(c, apierrors.ErrAlreadyVoted)
	}

	vote := dao.DateVote{
		ID:           dao.GenID(),
		DateOptionID: option.ID,
		VoterID:      user.ID,
	}
	if err := s.db.Create(&vote).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return EErrorDefined(c, apierrors.ErrAlreadyVoted)
		}
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, vote)
}

// unvoteForDate godoc
// @id unvoteForDate
// @Summary Событие (даты): отмена голоса
// @Description Удаляет голос текущего участника за вариант даты.
// @Tags Event
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param dateId path string true "ID варианта даты"
// @Success 200 "Голос отменен"
// @Failure 404 {object} apierrors.DefinedError "Голос не найден"
// @Router /api/auth/projects/{projectId}/dates/{dateId}/vote/ [delete]
func (s *Services) unvoteForDate(c echo.Context) error {
	project := c.(ProjectContext).Project
	user := c.(ProjectContext).User

	option, err := dao.GetDateOption(s.db, project.ID, c.Param("dateId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrDateOptionNotFound)
	}

	if err := dao.Unvote(s.db, option.ID, user.ID); err != nil {
		return notFoundOr(c, err, apierrors.ErrVoteNotFound)
	}
	return c.NoContent(http.StatusOK)
}

// selectDate godoc
// @id selectDate
// @Summary Событие (даты): выбор даты
// @Description Назначает вариант даты датой события проекта.
// @Tags Event
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param dateId path string true "ID варианта даты"
// @Success 200 {object} dao.Project "Проект с выбранной датой"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 404 {object} apierrors.DefinedError "Вариант даты не найден"
// @Router /api/auth/projects/{projectId}/dates/{dateId}/select/ [post]
func (s *Services) selectDate(c echo.Context) error {
	project := c.(ProjectContext).Project

	option, err := dao.GetDateOption(s.db, project.ID, c.Param("dateId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrDateOptionNotFound)
	}

	if err := dao.SelectEventDate(s.db, &project, option); err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// getVenueList godoc
// @id getVenueList
// @Summary Событие (площадки): список площадок
// @Description Возвращает предложенные площадки события.
// @Tags Event
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 {array} dao.Venue "Список площадок"
// @Failure 404 {object} apierrors.DefinedError "Проект не найден"
// @Router /api/auth/projects/{projectId}/venues/ [get]
func (s *Services) getVenueList(c echo.Context) error {
	project := c.(ProjectContext).Project

	venues, err := dao.GetVenues(s.db, project.ID)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, venues)
}

type CreateVenueRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
	URL     string `json:"url" validate:"max=2000"`
	Notes   string `json:"notes" validate:"max=5000"`
}

// createVenue godoc
// @id createVenue
// @Summary Событие (площадки): добавление площадки
// @Description Добавляет площадку с адресом и ссылкой.
// @Tags Event
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param data body CreateVenueRequest true "Данные площадки"
// @Success 201 {object} dao.Venue "Созданная площадка"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Router /api/auth/projects/{projectId}/venues/ [post]
func (s *Services) createVenue(c echo.Context) error {
	project := c.(ProjectContext).Project
	user := c.(ProjectContext).User

	var req CreateVenueRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	venue := dao.Venue{
		ID:          dao.GenID(),
		ProjectID:   project.ID,
		Name:        policy.StripTags(req.Name),
		Address:     policy.StripTags(req.Address),
		URL:         policy.SafeHref(req.URL),
		Notes:       policy.StripTags(req.Notes),
		CreatedByID: user.ID,
	}
	if venue.Name == "" {
		return EErrorDefined(c, apierrors.ErrValidation.WithFormattedMessage("name is required"))
	}

	if err := s.db.Create(&venue).Error; err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, venue)
}

// selectVenue godoc
// @id selectVenue
// @Summary Событие (площадки): выбор площадки
// @Description Назначает площадку местом проведения события.
// @Tags Event
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param venueId path string true "ID площадки"
// @Success 200 {object} dao.Project "Проект с выбранной площадкой"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 404 {object} apierrors.DefinedError "Площадка не найдена"
// @Router /api/auth/projects/{projectId}/venues/{venueId}/select/ [post]
func (s *Services) selectVenue(c echo.Context) error {
	project := c.(ProjectContext).Project

	venue, err := dao.GetVenue(s.db, project.ID, c.Param("venueId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrVenueNotFound)
	}

	if err := dao.SelectVenue(s.db, &project, venue); err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}
