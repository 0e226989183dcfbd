package speechdraft

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/speechdraft/speechdraft/internal/speechdraft/apierrors"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	stack_error "github.com/speechdraft/speechdraft/internal/speechdraft/stack-error"
	"gorm.io/gorm"
)

// AddAccessServices регистрирует приглашения по email и ссылки-приглашения.
func (s *Services) AddAccessServices(g *echo.Group, projectGroup *echo.Group) {
	projectGroup.GET("/invitations/", s.getInvitationList, editorOnly)
	projectGroup.POST("/invitations/", s.createInvitation, editorOnly)

	projectGroup.GET("/magic-links/", s.getMagicLinkList, ownerOnly)
	projectGroup.POST("/magic-links/", s.createMagicLink, ownerOnly)
	projectGroup.DELETE("/magic-links/:linkId/", s.revokeMagicLink, ownerOnly)

	g.POST("invitations/:token/accept/", s.acceptInvitation)
	g.POST("magic-links/:token/join/", s.joinByMagicLink)
}

type CreateInvitationRequest struct {
	Email string `json:"email" validate:"required"`
	Role  int    `json:"role" validate:"memberRole"`
	Note  string `json:"note" validate:"max=1000"`
}

// getInvitationList godoc
// @id getInvitationList
// @Summary Проекты (приглашения): список приглашений
// @Description Возвращает приглашения по email, отправленные в проект.
// @Tags Invitations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 {array} dao.Invitation "Список приглашений"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Router /api/auth/projects/{projectId}/invitations/ [get]
func (s *Services) getInvitationList(c echo.Context) error {
	project := c.(ProjectContext).Project

	invitations, err := dao.GetProjectInvitations(s.db, project.ID)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, invitations)
}

// createInvitation создает приглашение и отправляет письмо. Роль приглашенного не выше роли пригласившего.
// @id createInvitation
// @Summary Проекты (приглашения): приглашение по email
// @Description Создает приглашение и отправляет письмо. Роль приглашенного не может быть выше роли пригласившего.
// @Tags Invitations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param data body CreateInvitationRequest true "Email, роль и сообщение приглашения"
// @Success 201 {object} dao.Invitation "Созданное приглашение"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 409 {object} apierrors.DefinedError "Пользователь уже участник проекта"
// @Router /api/auth/projects/{projectId}/invitations/ [post]
func (s *Services) createInvitation(c echo.Context) error {
	project := c.(ProjectContext).Project
	member := c.(ProjectContext).ProjectMember
	user := c.(ProjectContext).User

	var req CreateInvitationRequest
	if err := c.Bind(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidRequestBody)
	}
	if req.Role == 0 {
		req.Role = dao.RoleContributor
	}
	if err := c.Validate(&req); err != nil {
		if !dao.ValidRole(req.Role) || req.Role == dao.RoleOwner {
			return EErrorDefined(c, apierrors.ErrUnsupportedRole.WithFormattedMessage(dao.RoleName(req.Role)))
		}
		return EErrorDefined(c, apierrors.ErrValidation.WithFormattedMessage(err.Error()))
	}
	if req.Role > member.Role {
		return EErrorDefined(c, apierrors.ErrProjectForbidden)
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !ValidateEmail(req.Email) {
		return EErrorDefined(c, apierrors.ErrInvalidEmail.WithFormattedMessage(req.Email))
	}

	if invited, err := dao.GetUserByEmail(s.db, req.Email); err == nil {
		if _, err := dao.GetProjectMember(s.db, project.ID, invited.ID); err == nil {
			return EErrorDefined(c, apierrors.ErrUserAlreadyInProject)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return EError(c, err)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return EError(c, err)
	}

	token, err := dao.GenToken()
	if err != nil {
		return EError(c, err)
	}

	inv := dao.Invitation{
		ID:          dao.GenID(),
		ProjectID:   project.ID,
		Email:       req.Email,
		Role:        req.Role,
		Token:       token,
		CreatedByID: user.ID,
		ExpiresAt:   time.Now().Add(s.cfg.InvitationTTL()),
	}
	if err := s.db.Create(&inv).Error; err != nil {
		return EError(c, err)
	}

	if err := s.emailService.ProjectInvitation(inv, project, user, req.Note); err != nil {
		stack_error.GetError(c, stack_error.TrackErrorStack(err).
			AddContext("invitation_id", inv.ID).
			AddContext("project_id", project.ID))
	}

	return c.JSON(http.StatusCreated, inv)
}

// acceptInvitation добавляет текущего пользователя в проект по приглашению, отправленному на его email.
// @id acceptInvitation
// @Summary Проекты (приглашения): принятие приглашения
// @Description Добавляет текущего пользователя в проект. Email пользователя должен совпадать с email приглашения.
// @Tags Invitations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param token path string true "Токен приглашения"
// @Success 200 {object} JoinResponse "Участник и проект"
// @Failure 403 {object} apierrors.DefinedError "Приглашение отправлено на другой email"
// @Failure 404 {object} apierrors.DefinedError "Приглашение не найдено"
// @Failure 409 {object} apierrors.DefinedError "Приглашение уже принято"
// @Failure 410 {object} apierrors.DefinedError "Срок действия приглашения истек"
// @Router /api/auth/invitations/{token}/accept/ [post]
func (s *Services) acceptInvitation(c echo.Context) error {
	user := c.(AuthContext).User

	inv, err := dao.GetInvitationByToken(s.db, c.Param("token"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrInvitationNotFound)
	}
	if inv.AcceptedAt != nil {
		return EErrorDefined(c, apierrors.ErrInvitationAccepted)
	}
	if inv.Expired(time.Now()) {
		return EErrorDefined(c, apierrors.ErrInvitationExpired)
	}
	if !strings.EqualFold(inv.Email, user.Email) {
		return EErrorDefined(c, apierrors.ErrInvitationEmailMismatch)
	}

	member, err := dao.AcceptInvitation(s.db, inv, user)
	if err != nil {
		return EError(c, err)
	}
	if member == nil {
		member, err = dao.GetProjectMember(s.db, inv.ProjectID, user.ID)
		if err != nil {
			return EError(c, err)
		}
	}
	return c.JSON(http.StatusOK, joinResponse(member, inv.Project))
}

type CreateMagicLinkRequest struct {
	Role           int  `json:"role"`
	MaxUses        *int `json:"max_uses" validate:"omitempty,min=0"`
	ExpiresInHours *int `json:"expires_in_hours" validate:"omitempty,min=0"`
}

type MagicLinkResponse struct {
	dao.MagicLink
	URL string `json:"url"`
}

func (s *Services) magicLinkResponse(link dao.MagicLink) MagicLinkResponse {
	return MagicLinkResponse{
		MagicLink: link,
		URL:       strings.TrimSuffix(s.cfg.WebURL.String(), "/") + "/join/" + link.Token + "/",
	}
}

// getMagicLinkList godoc
// @id getMagicLinkList
// @Summary Проекты (ссылки-приглашения): список ссылок
// @Description Возвращает ссылки-приглашения проекта с адресами для отправки. Доступно только владельцу.
// @Tags Invitations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 {array} MagicLinkResponse "Список ссылок"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Router /api/auth/projects/{projectId}/magic-links/ [get]
func (s *Services) getMagicLinkList(c echo.Context) error {
	project := c.(ProjectContext).Project

	links, err := dao.GetProjectMagicLinks(s.db, project.ID)
	if err != nil {
		return EError(c, err)
	}

	res := make([]MagicLinkResponse, 0, len(links))
	for _, link := range links {
		res = append(res, s.magicLinkResponse(link))
	}
	return c.JSON(http.StatusOK, res)
}

// createMagicLink создает ссылку-приглашение. Без max_uses и expires_in_hours берутся значения из конфигурации,
// expires_in_hours = 0 создает бессрочную ссылку.
// @id createMagicLink
// @Summary Проекты (ссылки-приглашения): создание ссылки
// @Description Создает ссылку-приглашение с ролью, сроком действия и лимитом использований.
// @Tags Invitations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param data body CreateMagicLinkRequest true "Параметры ссылки"
// @Success 201 {object} MagicLinkResponse "Созданная ссылка"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Router /api/auth/projects/{projectId}/magic-links/ [post]
func (s *Services) createMagicLink(c echo.Context) error {
	project := c.(ProjectContext).Project
	user := c.(ProjectContext).User

	var req CreateMagicLinkRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	switch {
	case req.Role == 0:
		req.Role = dao.RoleContributor
	case req.Role == dao.RoleOwner:
		return EErrorDefined(c, apierrors.ErrMagicLinkOwnerRole)
	case !dao.ValidRole(req.Role):
		return EErrorDefined(c, apierrors.ErrUnsupportedRole.WithFormattedMessage(dao.RoleName(req.Role)))
	}

	token, err := dao.GenToken()
	if err != nil {
		return EError(c, err)
	}

	link := dao.MagicLink{
		ID:          dao.GenID(),
		ProjectID:   project.ID,
		Token:       token,
		Role:        req.Role,
		MaxUses:     s.cfg.MagicLinkMaxUses,
		CreatedByID: user.ID,
	}
	if req.MaxUses != nil {
		link.MaxUses = *req.MaxUses
	}

	ttl := s.cfg.MagicLinkTTL()
	if req.ExpiresInHours != nil {
		ttl = time.Duration(*req.ExpiresInHours) * time.Hour
	}
	if ttl > 0 {
		expiresAt := time.Now().Add(ttl)
		link.ExpiresAt = &expiresAt
	}

	if err := s.db.Create(&link).Error; err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, s.magicLinkResponse(link))
}

// revokeMagicLink godoc
// @id revokeMagicLink
// @Summary Проекты (ссылки-приглашения): отзыв ссылки
// @Description Отзывает ссылку-приглашение. Отозванная ссылка перестает работать для новых участников и гостей.
// @Tags Invitations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param linkId path string true "ID ссылки"
// @Success 200 "Ссылка отозвана"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 404 {object} apierrors.DefinedError "Ссылка не найдена"
// @Router /api/auth/projects/{projectId}/magic-links/{linkId}/ [delete]
func (s *Services) revokeMagicLink(c echo.Context) error {
	project := c.(ProjectContext).Project

	if err := dao.RevokeMagicLink(s.db, project.ID, c.Param("linkId")); err != nil {
		return notFoundOr(c, err, apierrors.ErrMagicLinkNotFound)
	}
	return c.NoContent(http.StatusOK)
}

// joinByMagicLink добавляет пользователя в проект с ролью ссылки.
// Использование засчитывается только при вступлении нового участника.
// @id joinByMagicLink
// @Summary Проекты (ссылки-приглашения): вступление по ссылке
// @Description Добавляет текущего пользователя в проект с ролью ссылки. Для участника проекта возвращает его членство без расходования использования.
// @Tags Invitations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param token path string true "Токен ссылки"
// @Success 200 {object} JoinResponse "Участник и проект"
// @Failure 404 {object} apierrors.DefinedError "Ссылка не найдена"
// @Failure 410 {object} apierrors.DefinedError "Ссылка истекла, отозвана или исчерпана"
// @Router /api/auth/magic-links/{token}/join/ [post]
func (s *Services) joinByMagicLink(c echo.Context) error {
	user := c.(AuthContext).User
	token := c.Param("token")

	link, err := dao.GetMagicLinkByToken(s.db, token)
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrMagicLinkNotFound)
	}

	// Участник может повторно открыть ссылку, даже если она уже исчерпана
	if member, err := dao.GetProjectMember(s.db, link.ProjectID, user.ID); err == nil {
		return c.JSON(http.StatusOK, joinResponse(member, link.Project))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return EError(c, err)
	}

	if err := link.Check(time.Now()); err != nil {
		return EError(c, err)
	}

	var member *dao.ProjectMember
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		consumed, err := dao.ConsumeMagicLink(tx, token)
		if err != nil {
			return err
		}
		// Если участника добавил параллельный запрос, ErrAlreadyMember откатит использование
		member, err = dao.AddProjectMember(tx, consumed.ProjectID, user.ID, consumed.Role)
		return err
	}); err != nil {
		if errors.Is(err, dao.ErrAlreadyMember) && member != nil {
			return c.JSON(http.StatusOK, joinResponse(member, link.Project))
		}
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, joinResponse(member, link.Project))
}

type JoinResponse struct {
	Member  *dao.ProjectMember `json:"member"`
	Project *dao.Project       `json:"project"`
}

func joinResponse(member *dao.ProjectMember, project *dao.Project) JoinResponse {
	if project != nil {
		project.CurrentUserRole = member.Role
	}
	return JoinResponse{Member: member, Project: project}
}
