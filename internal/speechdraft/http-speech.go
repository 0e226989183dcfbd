package speechdraft

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/speechdraft/speechdraft/internal/speechdraft/apierrors"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
	"github.com/speechdraft/speechdraft/internal/speechdraft/export"
	filestorage "github.com/speechdraft/speechdraft/internal/speechdraft/file-storage"
	"github.com/speechdraft/speechdraft/internal/speechdraft/readability"
	policy "github.com/speechdraft/speechdraft/internal/speechdraft/redactor-policy"
	"github.com/speechdraft/speechdraft/internal/speechdraft/types"
	"gorm.io/gorm"
)

// Предел длины текста речи в символах
const maxSpeechChars = 100000

func (s *Services) AddSpeechServices(projectGroup *echo.Group) {
	projectGroup.GET("/speech/", s.getSpeech)
	projectGroup.PUT("/speech/", s.updateSpeech, RoleMiddleware(dao.RoleEditor, apierrors.ErrSpeechEditForbidden))
	projectGroup.GET("/speech/analysis/", s.getSpeechAnalysis)
	projectGroup.GET("/speech/export/", s.exportSpeech)
	projectGroup.POST("/speech/export/store/", s.storeSpeechExport, editorOnly)

	projectGroup.GET("/speech/exports/", s.getSpeechExportList)
	projectGroup.GET("/speech/exports/:exportId/", s.downloadSpeechExport)
	projectGroup.DELETE("/speech/exports/:exportId/", s.deleteSpeechExport, editorOnly)
}

// loadSpeech возвращает речь проекта, документ всегда в формате TipTap.
func (s *Services) loadSpeech(projectID string) (*dao.Speech, error) {
	speech, err := dao.GetSpeech(s.db, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrSpeechNotFound
		}
		return nil, err
	}
	normalizationsCounter.WithLabelValues(speech.Content.SourceFormat.String()).Inc()
	if speech.Content.Doc == nil {
		speech.Content.Doc = tiptap.EmptyDocument()
	}
	return speech, nil
}

// getSpeech godoc
// @id getSpeech
// @Summary Речь: получение текста речи
// @Description Возвращает текст речи в формате TipTap. Документы старого формата конвертируются при чтении.
// @Tags Speech
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 {object} dao.Speech "Речь с текущей версией"
// @Failure 404 {object} apierrors.DefinedError "Речь не найдена"
// @Router /api/auth/projects/{projectId}/speech/ [get]
func (s *Services) getSpeech(c echo.Context) error {
	project := c.(ProjectContext).Project

	speech, err := s.loadSpeech(project.ID)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, speech)
}

type UpdateSpeechRequest struct {
	Content types.SpeechContent `json:"content"`
	Version int                 `json:"version" validate:"min=1"`
}

// updateSpeech сохраняет документ TipTap, если речь не менялась с версии из запроса.
// @id updateSpeech
// @Summary Речь: сохранение текста речи
// @Description Сохраняет документ TipTap. Версия из запроса должна совпадать с текущей версией речи.
// @Tags Speech
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param data body UpdateSpeechRequest true "Документ и версия, на основе которой он изменен"
// @Success 200 {object} dao.Speech "Речь с новой версией"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 409 {object} apierrors.DefinedError "Речь изменена другим участником"
// @Failure 413 {object} apierrors.DefinedError "Речь превышает допустимый размер"
// @Router /api/auth/projects/{projectId}/speech/ [put]
func (s *Services) updateSpeech(c echo.Context) error {
	project := c.(ProjectContext).Project
	user := c.(ProjectContext).User

	var req UpdateSpeechRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	doc := req.Content.Doc
	if doc == nil {
		doc = tiptap.EmptyDocument()
	}
	if err := tiptap.Validate(doc); err != nil {
		return EErrorDefined(c, apierrors.ErrSpeechInvalidDocument.WithFormattedMessage(err.Error()))
	}
	if utf8.RuneCountInString(tiptap.PlainText(doc)) > maxSpeechChars {
		return EErrorDefined(c, apierrors.ErrSpeechTooLarge)
	}
	doc.Content = sanitizeLinks(doc.Content)

	speech, err := dao.SaveSpeech(s.db, project.ID, req.Version, doc, user.ID)
	if err != nil {
		if errors.Is(err, dao.ErrVersionConflict) {
			return EErrorDefined(c, apierrors.ErrSpeechVersionConflict.WithFormattedMessage(speech.Version))
		}
		return notFoundOr(c, err, apierrors.ErrSpeechNotFound)
	}
	return c.JSON(http.StatusOK, speech)
}

// sanitizeLinks удаляет метки ссылок с адресами, не прошедшими LinkPolicy.
func sanitizeLinks(nodes []tiptap.Node) []tiptap.Node {
	for i := range nodes {
		if len(nodes[i].Marks) > 0 {
			marks := nodes[i].Marks[:0]
			for _, mark := range nodes[i].Marks {
				if mark.Type == tiptap.MarkLink {
					href := policy.SafeHref(mark.AttrString("href"))
					if href == "" {
						continue
					}
					mark = tiptap.LinkMark(href)
				}
				marks = append(marks, mark)
			}
			if len(marks) == 0 {
				marks = nil
			}
			nodes[i].Marks = marks
		}
		nodes[i].Content = sanitizeLinks(nodes[i].Content)
	}
	return nodes
}

type SpeechAnalysisResponse struct {
	Version int `json:"version"`
	readability.Report
}

// getSpeechAnalysis godoc
// @id getSpeechAnalysis
// @Summary Речь: анализ читаемости
// @Description Возвращает индексы читаемости, сложные предложения, наречия, пассивный залог и время произнесения.
// @Tags Speech
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 {object} SpeechAnalysisResponse "Отчет о читаемости"
// @Failure 404 {object} apierrors.DefinedError "Речь не найдена"
// @Failure 500 {object} apierrors.DefinedError "Внутренняя ошибка сервера"
// @Router /api/auth/projects/{projectId}/speech/analysis/ [get]
func (s *Services) getSpeechAnalysis(c echo.Context) error {
	project := c.(ProjectContext).Project

	speech, err := s.loadSpeech(project.ID)
	if err != nil {
		return EError(c, err)
	}

	report, err := readability.Analyze(tiptap.PlainText(speech.Content.Doc), readability.Options{
		WordsPerMinute: s.cfg.SpeakingWPM,
	})
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, SpeechAnalysisResponse{speech.Version, report})
}

func (s *Services) renderSpeech(project dao.Project, format string) (*dao.Speech, *bytes.Buffer, error) {
	if export.ContentType(format) == "" {
		return nil, nil, apierrors.ErrUnsupportedExportFormat.WithFormattedMessage(format)
	}

	speech, err := s.loadSpeech(project.ID)
	if err != nil {
		return nil, nil, err
	}

	var buf bytes.Buffer
	if err := export.Write(format, project.Title, speech.Content.Doc, &buf); err != nil {
		return nil, nil, err
	}
	return speech, &buf, nil
}

// exportSpeech отдает речь файлом в формате из параметра format (md по умолчанию).
// @id exportSpeech
// @Summary Речь (экспорт): выгрузка файла
// @Description Отдает речь файлом в формате md или pdf.
// @Tags Speech
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param format query string false "Формат файла: md или pdf" default(md)
// @Success 200 {file} binary "Файл речи"
// @Failure 400 {object} apierrors.DefinedError "Неподдерживаемый формат"
// @Failure 404 {object} apierrors.DefinedError "Речь не найдена"
// @Router /api/auth/projects/{projectId}/speech/export/ [get]
func (s *Services) exportSpeech(c echo.Context) error {
	project := c.(ProjectContext).Project

	format := c.QueryParam("format")
	if format == "" {
		format = export.FormatMarkdown
	}

	_, buf, err := s.renderSpeech(project, format)
	if err != nil {
		return EError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, attachmentHeader(exportFileName(project.Title, format)))
	return c.Blob(http.StatusOK, export.ContentType(format), buf.Bytes())
}

type StoreExportRequest struct {
	Format string `json:"format"`
}

// storeSpeechExport сохраняет экспорт текущей версии речи в хранилище.
// @id storeSpeechExport
// @Summary Речь (экспорт): сохранение экспорта
// @Description Сохраняет экспорт текущей версии речи в файловое хранилище.
// @Tags Speech
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param data body StoreExportRequest true "Формат экспорта"
// @Success 201 {object} dao.SpeechExport "Сохраненный экспорт"
// @Failure 400 {object} apierrors.DefinedError "Неподдерживаемый формат"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 503 {object} apierrors.DefinedError "Хранилище экспортов не настроено"
// @Router /api/auth/projects/{projectId}/speech/export/store/ [post]
func (s *Services) storeSpeechExport(c echo.Context) error {
	project := c.(ProjectContext).Project
	user := c.(ProjectContext).User

	if s.storage == nil {
		return EErrorDefined(c, apierrors.ErrExportStorageDisabled)
	}

	var req StoreExportRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}
	if req.Format == "" {
		req.Format = export.FormatPDF
	}

	speech, buf, err := s.renderSpeech(project, req.Format)
	if err != nil {
		return EError(c, err)
	}

	exp := dao.SpeechExport{
		ID:          dao.GenID(),
		ProjectID:   project.ID,
		Format:      req.Format,
		FileName:    exportFileName(project.Title, req.Format),
		ContentType: export.ContentType(req.Format),
		Size:        int64(buf.Len()),
		Version:     speech.Version,
		CreatedByID: user.ID,
	}

	if err := s.storage.Save(buf.Bytes(), exp.ObjectName(), exp.ContentType, &filestorage.Metadata{
		ProjectId: project.ID,
		ExportId:  exp.ID,
		Format:    exp.Format,
	}); err != nil {
		return EError(c, err)
	}

	if err := s.db.Create(&exp).Error; err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, exp)
}

// getSpeechExportList godoc
// @id getSpeechExportList
// @Summary Речь (экспорт): список сохраненных экспортов
// @Description Возвращает сохраненные экспорты речи, новые первыми.
// @Tags Speech
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Success 200 {array} dao.SpeechExport "Список экспортов"
// @Failure 404 {object} apierrors.DefinedError "Проект не найден"
// @Router /api/auth/projects/{projectId}/speech/exports/ [get]
func (s *Services) getSpeechExportList(c echo.Context) error {
	project := c.(ProjectContext).Project

	exports, err := dao.GetSpeechExports(s.db, project.ID)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, exports)
}

// downloadSpeechExport godoc
// @id downloadSpeechExport
// @Summary Речь (экспорт): скачивание экспорта
// @Description Отдает сохраненный файл экспорта из хранилища.
// @Tags Speech
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param exportId path string true "ID экспорта"
// @Success 200 {file} binary "Файл экспорта"
// @Failure 404 {object} apierrors.DefinedError "Экспорт не найден"
// @Failure 503 {object} apierrors.DefinedError "Хранилище экспортов не настроено"
// @Router /api/auth/projects/{projectId}/speech/exports/{exportId}/ [get]
func (s *Services) downloadSpeechExport(c echo.Context) error {
	project := c.(ProjectContext).Project

	if s.storage == nil {
		return EErrorDefined(c, apierrors.ErrExportStorageDisabled)
	}

	exp, err := dao.GetSpeechExport(s.db, project.ID, c.Param("exportId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrSpeechNotFound)
	}

	reader, err := s.storage.LoadReader(exp.ObjectName())
	if err != nil {
		if errors.Is(err, filestorage.ErrNotFound) {
			return EErrorDefined(c, apierrors.ErrSpeechNotFound)
		}
		return EError(c, err)
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, attachmentHeader(exp.FileName))
	return c.Stream(http.StatusOK, exp.ContentType, reader)
}

// deleteSpeechExport godoc
// @id deleteSpeechExport
// @Summary Речь (экспорт): удаление экспорта
// @Description Удаляет сохраненный экспорт и его файл.
// @Tags Speech
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param projectId path string true "ID проекта"
// @Param exportId path string true "ID экспорта"
// @Success 200 "Экспорт удален"
// @Failure 403 {object} apierrors.DefinedError "Недостаточно прав для выполнения операции"
// @Failure 404 {object} apierrors.DefinedError "Экспорт не найден"
// @Router /api/auth/projects/{projectId}/speech/exports/{exportId}/ [delete]
func (s *Services) deleteSpeechExport(c echo.Context) error {
	project := c.(ProjectContext).Project

	exp, err := dao.GetSpeechExport(s.db, project.ID, c.Param("exportId"))
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrSpeechNotFound)
	}

	if s.storage != nil {
		if err := s.storage.Delete(exp.ObjectName()); err != nil {
			return EError(c, err)
		}
	}
	if err := s.db.Delete(exp).Error; err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// exportFileName собирает имя файла из названия проекта: буквы и цифры сохраняются, остальное заменяется дефисом.
func exportFileName(title, format string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteRune('-')
			dash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "speech"
	}
	if utf8.RuneCountInString(name) > 80 {
		name = string([]rune(name)[:80])
	}
	return fmt.Sprintf("%s.%s", name, format)
}

func attachmentHeader(fileName string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
}
