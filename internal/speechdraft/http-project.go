package speechdraft

import (
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/speechdraft/speechdraft/internal/speechdraft/apierrors"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	policy "github.com/speechdraft/speechdraft/internal/speechdraft/redactor-policy"
	stack_error "github.com/speechdraft/speechdraft/internal/speechdraft/stack-error"
	"github.com/speechdraft/speechdraft/internal/speechdraft/types"
)

// AddProjectServices регистрирует маршруты проектов и возвращает группу маршрутов конкретного проекта.
func (s *Services) AddProjectServices(g *echo.Group) *echo.Group {
	projectGroup := g.Group("projects/:projectId", s.ProjectMiddleware)

	g.GET("projects/", s.getProjectList)
	g.POST("projects/", s.createProject)

	projectGroup.GET("/", s.getProject)
	projectGroup.PATCH("/", s.updateProject, editorOnly)
	projectGroup.DELETE("/", s.deleteProject, RoleMiddleware(dao.RoleOwner, apierrors.ErrDeleteProjectForbidden))

	projectGroup.GET("/members/", s.getProjectMemberList)
	projectGroup.DELETE("/members/:memberId/", s.deleteProjectMember)

	return projectGroup
}

func occasionsList() []string {
	return dao.Occasions
}

type CreateProjectRequest struct {
	Title       string      `json:"title" validate:"max=200"`
	Occasion    string      `json:"occasion" validate:"occasion"`
	HonoreeName string      `json:"honoree_name" validate:"personName"`
	EventDate   *types.Date `json:"event_date"`
}

// getProjectList godoc
// @id getProjectList
// @Summary Проекты: получение списка проектов
// @Description Возвращает проекты, в которых состоит текущий пользователь, с его ролью в каждом.
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} dao.Project "Список проектов"
// @Failure 500 {object} apierrors.DefinedError "Внутренняя ошибка сервера"
// @Router /api/auth/projects/ [get]
func (s *Services) getProjectList(c echo.Context) error {
	user := c.(AuthContext).User

	projects, err := dao.GetUserProjects(s.db, user.ID)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

// createProject godoc
// @id createProject
// @Summary Проекты: создание проекта
// @Description Создает проект события. Создатель становится владельцем, вместе с проектом создается пустая речь.
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param data body CreateProjectRequest true "Данные проекта"
// @Success 201 {object} dao.Project "Созданный проект"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Router /api/auth/projects/ [post]
func (s *Services) createProject(c echo.Context) error {
	user := c.(AuthContext).User

	var req CreateProjectRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	project := dao.Project{
		Title:       policy.StripTags(req.Title),
		Occasion:    req.Occasion,
		HonoreeName: policy.StripTags(req.HonoreeName),
		EventDate:   req.EventDate,
	}
	if project.Title == "" {
		return EErrorDefined(c, apierrors.ErrProjectTitleRequired)
	}
	if project.Occasion == "" {
		project.Occasion = dao.OccasionOther
	}

	if err := dao.CreateProject(s.db, &project, user); err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, project)
}

// getProject godoc
// @id getProject
// @Summary Проекты: получение проекта
// @Description Возвращает проект по идентификатору с ролью текущего пользователя.
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 {object} dao.Project "Информация о проекте"
// @Failure 404 {object} apierrors.DefinedError "Проект не найден"
// @Router /api/auth/projects/{projectId}/ [get]
func (s *Services) getProject(c echo.Context) error {
	project := c.(ProjectContext).Project

	if project.VenueID != nil {
		venue, err := dao.GetVenue(s.db, project.ID, *project.VenueID)
		if err == nil {
			project.Venue = venue
		}
	}
	return c.JSON(http.StatusOK, project)
}

type UpdateProjectRequest struct {
	Title       *string     `json:"title" validate:"omitempty,projectTitle"`
	Occasion    *string     `json:"occasion" validate:"omitempty,occasion"`
	HonoreeName *string     `json:"honoree_name" validate:"omitempty,personName"`
	EventDate   *types.Date `json:"event_date"`
}

// updateProject godoc
// @id updateProject
// @Summary Проекты: изменение проекта
// @Description Обновляет название, повод, имя виновника торжества и дату события. Доступно редактору и владельцу.
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param data body UpdateProjectRequest true "Изменяемые поля проекта"
// @Success 200 {object} dao.Project "Проект после изменения"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 404 {object} apierrors.DefinedError "Проект не найден"
// @Router /api/auth/projects/{projectId}/ [patch]
func (s *Services) updateProject(c echo.Context) error {
	project := c.(ProjectContext).Project

	var req UpdateProjectRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	updates := map[string]any{}
	if req.Title != nil {
		title := policy.StripTags(*req.Title)
		if title == "" {
			return EErrorDefined(c, apierrors.ErrProjectTitleRequired)
		}
		project.Title = title
		updates["title"] = title
	}
	if req.Occasion != nil {
		if !dao.ValidOccasion(*req.Occasion) {
			return EErrorDefined(c, apierrors.ErrUnsupportedOccasion.WithFormattedMessage(*req.Occasion))
		}
		project.Occasion = *req.Occasion
		updates["occasion"] = *req.Occasion
	}
	if req.HonoreeName != nil {
		project.HonoreeName = policy.StripTags(*req.HonoreeName)
		updates["honoree_name"] = project.HonoreeName
	}
	if req.EventDate != nil {
		project.EventDate = req.EventDate
		updates["event_date"] = *req.EventDate
	}

	if len(updates) > 0 {
		if err := s.db.Model(&dao.Project{}).Where("id = ?", project.ID).Updates(updates).Error; err != nil {
			return EError(c, err)
		}
	}
	return c.JSON(http.StatusOK, project)
}

// deleteProject godoc
// @id deleteProject
// @Summary Проекты: удаление проекта
// @Description Удаляет проект со всеми данными. Доступно только владельцу.
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 "Проект удален"
// @Failure 403 {object} apierrors.DefinedError "Нет прав на удаление проекта"
// @Failure 404 {object} apierrors.DefinedError "Проект не найден"
// @Router /api/auth/projects/{projectId}/ [delete]
func (s *Services) deleteProject(c echo.Context) error {
	project := c.(ProjectContext).Project

	exports, err := dao.GetSpeechExports(s.db, project.ID)
	if err != nil {
		return EError(c, err)
	}

	if err := dao.DeleteProject(s.db, project.ID); err != nil {
		return EError(c, err)
	}

	// Оставшиеся файлы удалит очистка экспортов
	if s.storage != nil {
		for _, export := range exports {
			if err := s.storage.Delete(export.ObjectName()); err != nil {
				stack_error.GetError(c, stack_error.TrackErrorStack(err).AddContext("export_id", export.ID))
			}
		}
	}
	return c.NoContent(http.StatusOK)
}

// getProjectMemberList godoc
// @id getProjectMemberList
// @Summary Проекты (участники): получение списка участников
// @Description Возвращает участников проекта с ролями.
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 {array} dao.ProjectMember "Список участников"
// @Failure 404 {object} apierrors.DefinedError "Проект не найден"
// @Router /api/auth/projects/{projectId}/members/ [get]
func (s *Services) getProjectMemberList(c echo.Context) error {
	project := c.(ProjectContext).Project

	members, err := dao.GetProjectMembers(s.db, project.ID)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

// deleteProjectMember удаляет участника. Участник может выйти из проекта сам,
// удалить другого можно только участника с ролью ниже своей. Владельца удалить нельзя.
// @id deleteProjectMember
// @Summary Проекты (участники): удаление участника
// @Description Удаляет участника из проекта или выход из проекта самого пользователя.
// @Tags Projects
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param memberId path string true "ID участника"
// @Success 200 "Участник удален"
// @Failure 400 {object} apierrors.DefinedError "Некорректный ID участника"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 404 {object} apierrors.DefinedError "Участник не найден"
// @Router /api/auth/projects/{projectId}/members/{memberId}/ [delete]
func (s *Services) deleteProjectMember(c echo.Context) error {
	project := c.(ProjectContext).Project
	requester := c.(ProjectContext).ProjectMember

	memberId := c.Param("memberId")
	if _, err := uuid.FromString(memberId); err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidID)
	}

	target, err := dao.GetProjectMember(s.db, project.ID, memberId)
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrProjectMemberNotFound)
	}

	if target.Role == dao.RoleOwner {
		return EErrorDefined(c, apierrors.ErrCannotRemoveProjectOwner)
	}
	if target.MemberID != requester.MemberID && requester.Role <= target.Role {
		return EErrorDefined(c, apierrors.ErrCannotRemoveHigherRoleUser)
	}

	if err := s.db.Where("id = ?", target.ID).Delete(&dao.ProjectMember{}).Error; err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusOK)
}
