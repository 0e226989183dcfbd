package speechdraft

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/speechdraft/speechdraft/internal/speechdraft/apierrors"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	policy "github.com/speechdraft/speechdraft/internal/speechdraft/redactor-policy"
	stack_error "github.com/speechdraft/speechdraft/internal/speechdraft/stack-error"
	"github.com/speechdraft/speechdraft/internal/speechdraft/types"
)

func (s *Services) AddQuestionnaireServices(projectGroup *echo.Group) {
	projectGroup.GET("/questionnaires/", s.getQuestionnaireList)
	projectGroup.POST("/questionnaires/", s.createQuestionnaire, editorOnly)
	projectGroup.GET("/questionnaires/:questionnaireId/", s.getQuestionnaire)
	projectGroup.DELETE("/questionnaires/:questionnaireId/", s.deleteQuestionnaire, editorOnly)
	projectGroup.GET("/questionnaires/:questionnaireId/answers/", s.getQuestionnaireAnswers)
	projectGroup.POST("/questionnaires/:questionnaireId/answers/", s.answerQuestionnaire)
}

// AddPublicServices маршруты гостей по ссылке-приглашению. Запросы не расходуют использования ссылки.
func (s *Services) AddPublicServices(g *echo.Group) {
	publicGroup := g.Group("public/:token", s.MagicLinkMiddleware)

	publicGroup.GET("/", s.getPublicProject)
	publicGroup.GET("/questionnaires/", s.getPublicQuestionnaireList)
	publicGroup.POST("/questionnaires/:questionnaireId/answers/", s.answerPublicQuestionnaire)
}

type CreateQuestionnaireRequest struct {
	Title     string           `json:"title" validate:"required,max=200"`
	Questions types.StringList `json:"questions" validate:"max=50,dive,max=1000"`
}

// getQuestionnaireList godoc
// @id getQuestionnaireList
// @Summary Анкеты: список анкет
// @Description Возвращает анкеты проекта с количеством ответов.
// @Tags Questionnaires
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 {array} dao.Questionnaire "Список анкет"
// @Failure 404 {object} apierrors.DefinedError "Проект не найден"
// @Router /api/auth/projects/{projectId}/questionnaires/ [get]
func (s *Services) getQuestionnaireList(c echo.Context) error {
	project := c.(ProjectContext).Project

	list, err := dao.GetQuestionnaires(s.db, project.ID)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// createQuestionnaire godoc
// @id createQuestionnaire
// @Summary Анкеты: создание анкеты
// @Description Создает анкету для сбора историй. Пустые вопросы отбрасываются.
// @Tags Questionnaires
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param data body CreateQuestionnaireRequest true "Название и вопросы анкеты"
// @Success 201 {object} dao.Questionnaire "Созданная анкета"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Router /api/auth/projects/{projectId}/questionnaires/ [post]
func (s *Services) createQuestionnaire(c echo.Context) error {
	project := c.(ProjectContext).Project
	user := c.(ProjectContext).User

	var req CreateQuestionnaireRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	questions := make(types.StringList, 0, len(req.Questions))
	for _, q := range req.Questions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return EErrorDefined(c, apierrors.ErrQuestionsRequired)
	}

	title := policy.StripTags(req.Title)
	if title == "" {
		return EErrorDefined(c, apierrors.ErrValidation.WithFormattedMessage("title is required"))
	}

	q := dao.Questionnaire{
		ID:          dao.GenID(),
		ProjectID:   project.ID,
		Title:       title,
		Questions:   questions,
		CreatedByID: user.ID,
	}
	if err := s.db.Create(&q).Error; err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, q)
}

// getQuestionnaire godoc
// @id getQuestionnaire
// @Summary Анкеты: получение анкеты
// @Description Возвращает анкету по идентификатору.
// @Tags Questionnaires
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param questionnaireId path string true "ID анкеты"
// @Success 200 {object} dao.Questionnaire "Анкета"
// @Failure 404 {object} apierrors.DefinedError "Анкета не найдена"
// @Router /api/auth/projects/{projectId}/questionnaires/{questionnaireId}/ [get]
func (s *Services) getQuestionnaire(c echo.Context) error {
	project := c.(ProjectContext).Project

	q, err := dao.GetQuestionnaire(s.db, project.ID, c.Param("questionnaireId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrQuestionnaireNotFound)
	}
	return c.JSON(http.StatusOK, q)
}

// deleteQuestionnaire godoc
// @id deleteQuestionnaire
// @Summary Анкеты: удаление анкеты
// @Description Удаляет анкету вместе с ответами.
// @Tags Questionnaires
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param questionnaireId path string true "ID анкеты"
// @Success 200 "Анкета удалена"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 404 {object} apierrors.DefinedError "Анкета не найдена"
// @Router /api/auth/projects/{projectId}/questionnaires/{questionnaireId}/ [delete]
func (s *Services) deleteQuestionnaire(c echo.Context) error {
	project := c.(ProjectContext).Project

	q, err := dao.GetQuestionnaire(s.db, project.ID, c.Param("questionnaireId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrQuestionnaireNotFound)
	}

	if err := s.db.Where("questionnaire_id = ?", q.ID).Delete(&dao.QuestionnaireAnswer{}).Error; err != nil {
		return EError(c, err)
	}
	if err := s.db.Delete(q).Error; err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// getQuestionnaireAnswers godoc
// @id getQuestionnaireAnswers
// @Summary Анкеты: ответы на анкету
// @Description Возвращает ответы участников и гостей, новые первыми.
// @Tags Questionnaires
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param questionnaireId path string true "ID анкеты"
// @Success 200 {array} dao.QuestionnaireAnswer "Список ответов"
// @Failure 404 {object} apierrors.DefinedError "Анкета не найдена"
// @Router /api/auth/projects/{projectId}/questionnaires/{questionnaireId}/answers/ [get]
func (s *Services) getQuestionnaireAnswers(c echo.Context) error {
	project := c.(ProjectContext).Project

	q, err := dao.GetQuestionnaire(s.db, project.ID, c.Param("questionnaireId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrQuestionnaireNotFound)
	}

	answers, err := dao.GetQuestionnaireAnswers(s.db, q.ID)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, answers)
}

type AnswerRequest struct {
	AuthorName  string           `json:"author_name" validate:"personName"`
	AuthorEmail string           `json:"author_email" validate:"max=254"`
	Answers     types.StringList `json:"answers" validate:"dive,max=10000"`
}

// answerQuestionnaire ответ участника проекта. Имя и email берутся из профиля.
// @id answerQuestionnaire
// @Summary Анкеты: ответ участника
// @Description Сохраняет ответ участника проекта. Количество ответов должно совпадать с количеством вопросов.
// @Tags Questionnaires
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param questionnaireId path string true "ID анкеты"
// @Param data body AnswerRequest true "Ответы на вопросы"
// @Success 201 {object} dao.QuestionnaireAnswer "Сохраненный ответ"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Failure 404 {object} apierrors.DefinedError "Анкета не найдена"
// @Router /api/auth/projects/{projectId}/questionnaires/{questionnaireId}/answers/ [post]
func (s *Services) answerQuestionnaire(c echo.Context) error {
	project := c.(ProjectContext).Project
	user := c.(ProjectContext).User

	q, err := dao.GetQuestionnaire(s.db, project.ID, c.Param("questionnaireId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrQuestionnaireNotFound)
	}

	var req AnswerRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	answer := dao.QuestionnaireAnswer{
		AuthorName:  user.FullName(),
		AuthorEmail: user.Email,
		Answers:     req.Answers,
		MemberID:    &user.ID,
	}
	return s.saveAnswer(c, project, *q, answer)
}

type PublicProject struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Occasion    string      `json:"occasion"`
	HonoreeName string      `json:"honoree_name"`
	EventDate   *types.Date `json:"event_date" extensions:"x-nullable"`
}

// getPublicProject godoc
// @id getPublicProject
// @Summary Гости: информация о проекте
// @Description Возвращает краткую информацию о проекте по ссылке-приглашению.
// @Tags Public
// @Produce json
// @Param token path string true "Токен ссылки-приглашения"
// @Success 200 {object} PublicProject "Краткая информация о проекте"
// @Failure 404 {object} apierrors.DefinedError "Ссылка не найдена, истекла или отозвана"
// @Router /api/public/{token}/ [get]
func (s *Services) getPublicProject(c echo.Context) error {
	project := c.(MagicLinkContext).Project

	return c.JSON(http.StatusOK, PublicProject{
		ID:          project.ID,
		Title:       project.Title,
		Occasion:    project.Occasion,
		HonoreeName: project.HonoreeName,
		EventDate:   project.EventDate,
	})
}

// getPublicQuestionnaireList godoc
// @id getPublicQuestionnaireList
// @Summary Гости: список анкет
// @Description Возвращает анкеты проекта по ссылке-приглашению без количества ответов.
// @Tags Public
// @Produce json
// @Param token path string true "Токен ссылки-приглашения"
// @Success 200 {array} dao.Questionnaire "Список анкет"
// @Failure 404 {object} apierrors.DefinedError "Ссылка не найдена, истекла или отозвана"
// @Router /api/public/{token}/questionnaires/ [get]
func (s *Services) getPublicQuestionnaireList(c echo.Context) error {
	project := c.(MagicLinkContext).Project

	list, err := dao.GetQuestionnaires(s.db, project.ID)
	if err != nil {
		return EError(c, err)
	}
	// Гостям не показываем количество ответов
	for i := range list {
		list[i].AnswersCount = 0
	}
	return c.JSON(http.StatusOK, list)
}

// answerPublicQuestionnaire ответ гостя по ссылке-приглашению.
// @id answerPublicQuestionnaire
// @Summary Гости: ответ на анкету
// @Description Сохраняет ответ гостя. Ответы гостей не расходуют использования ссылки.
// @Tags Public
// @Accept json
// @Produce json
// @Param token path string true "Токен ссылки-приглашения"
// @Param questionnaireId path string true "ID анкеты"
// @Param data body AnswerRequest true "Имя гостя и ответы на вопросы"
// @Success 201 {object} dao.QuestionnaireAnswer "Сохраненный ответ"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Failure 404 {object} apierrors.DefinedError "Ссылка или анкета не найдена"
// @Router /api/public/{token}/questionnaires/{questionnaireId}/answers/ [post]
func (s *Services) answerPublicQuestionnaire(c echo.Context) error {
	project := c.(MagicLinkContext).Project
	link := c.(MagicLinkContext).MagicLink

	q, err := dao.GetQuestionnaire(s.db, project.ID, c.Param("questionnaireId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrQuestionnaireNotFound)
	}

	var req AnswerRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	req.AuthorEmail = strings.ToLower(strings.TrimSpace(req.AuthorEmail))
	if req.AuthorEmail != "" && !ValidateEmail(req.AuthorEmail) {
		return EErrorDefined(c, apierrors.ErrInvalidEmail.WithFormattedMessage(req.AuthorEmail))
	}

	answer := dao.QuestionnaireAnswer{
		AuthorName:  policy.StripTags(req.AuthorName),
		AuthorEmail: req.AuthorEmail,
		Answers:     req.Answers,
		MagicLinkID: &link.ID,
	}
	return s.saveAnswer(c, project, *q, answer)
}

// saveAnswer проверяет число ответов, сохраняет ответ и уведомляет автора анкеты.
func (s *Services) saveAnswer(c echo.Context, project dao.Project, q dao.Questionnaire, answer dao.QuestionnaireAnswer) error {
	if len(answer.Answers) != len(q.Questions) {
		return EErrorDefined(c, apierrors.ErrAnswersCountMismatch.WithFormattedMessage(len(q.Questions)))
	}

	answer.ID = dao.GenID()
	answer.QuestionnaireID = q.ID
	if err := s.db.Create(&answer).Error; err != nil {
		return EError(c, err)
	}

	if answer.MemberID == nil || *answer.MemberID != q.CreatedByID {
		var author dao.User
		if err := s.db.Where("id = ?", q.CreatedByID).First(&author).Error; err != nil {
			stack_error.GetError(c, stack_error.TrackErrorStack(err).AddContext("questionnaire_id", q.ID))
		} else if err := s.emailService.QuestionnaireAnswered(&author, project, q, answer); err != nil {
			stack_error.GetError(c, stack_error.TrackErrorStack(err).AddContext("questionnaire_id", q.ID))
		}
	}

	return c.JSON(http.StatusCreated, answer)
}
