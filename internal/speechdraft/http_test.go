package speechdraft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/speechdraft/speechdraft/internal/speechdraft/apierrors"
	"github.com/speechdraft/speechdraft/internal/speechdraft/config"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
	filestorage "github.com/speechdraft/speechdraft/internal/speechdraft/file-storage"
	"github.com/speechdraft/speechdraft/internal/speechdraft/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

type testServer struct {
	t  *testing.T
	e  *echo.Echo
	db *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, dao.Migrate(db))

	webURL, _ := url.Parse("https://speechdraft.test")
	cfg := &config.Config{
		SecretKey:         testSecret,
		WebURL:            webURL,
		SignUpEnable:      true,
		SpeakingWPM:       130,
		MagicLinkTTLHours: 24,
		InvitationTTLDays: 7,
	}

	storage, err := filestorage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	es := notifications.NewEmailService(cfg)
	t.Cleanup(es.Stop)

	s := NewServices(db, cfg, storage, es)
	return &testServer{t: t, e: s.newEcho("test"), db: db}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

// user создает активного пользователя и возвращает его токен доступа.
func (ts *testServer) user(email string) (*dao.User, string) {
	ts.t.Helper()

	u := &dao.User{
		ID:        dao.GenID(),
		Email:     email,
		Password:  dao.GenPasswordHash("password123"),
		FirstName: "Test",
		IsActive:  true,
	}
	require.NoError(ts.t, ts.db.Create(u).Error)

	token, err := GenJwtToken([]byte(testSecret), "access", u.ID)
	require.NoError(ts.t, err)
	return u, token.SignedString
}

func (ts *testServer) project(token string) dao.Project {
	ts.t.Helper()

	rec := ts.do(http.MethodPost, "/api/auth/projects/", token, map[string]any{
		"title":        "Anna & Ben",
		"occasion":     dao.OccasionWedding,
		"honoree_name": "Anna",
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())

	var p dao.Project
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func (ts *testServer) addMember(projectID string, user *dao.User, role int) {
	ts.t.Helper()
	_, err := dao.AddProjectMember(ts.db, projectID, user.ID, role)
	require.NoError(ts.t, err)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var e apierrors.DefinedError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e.Code
}

func projectPath(p dao.Project, rest string) string {
	return fmt.Sprintf("/api/auth/projects/%s/%s", p.ID, rest)
}

func TestSignUpAndSignIn(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/sign-up/", "", map[string]string{
		"email":      "  Anna@Example.com ",
		"password":   "password123",
		"first_name": "Anna",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string   `json:"access_token"`
		User        dao.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "anna@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)

	rec = ts.do(http.MethodGet, "/api/auth/users/me/", resp.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anna@example.com")

	tests := []struct {
		name     string
		path     string
		body     map[string]string
		wantCode int
		wantErr  int
	}{
		{"duplicate sign up", "/api/sign-up/", map[string]string{"email": "anna@example.com", "password": "password123"}, http.StatusConflict, apierrors.ErrUserAlreadyExist.Code},
		{"short password", "/api/sign-up/", map[string]string{"email": "ben@example.com", "password": "short"}, http.StatusBadRequest, apierrors.ErrValidation.Code},
		{"wrong password", "/api/sign-in/", map[string]string{"email": "anna@example.com", "password": "password124"}, http.StatusUnauthorized, apierrors.ErrFailedLogin.Code},
		{"unknown user", "/api/sign-in/", map[string]string{"email": "nobody@example.com", "password": "password123"}, http.StatusUnauthorized, apierrors.ErrFailedLogin.Code},
		{"empty credentials", "/api/sign-in/", map[string]string{"email": "anna@example.com"}, http.StatusUnauthorized, apierrors.ErrLoginCredentialsRequired.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, errorCode(t, rec))
		})
	}

	rec = ts.do(http.MethodPost, "/api/sign-in/", "", map[string]string{
		"email":    "anna@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Result().Cookies())
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/auth/projects/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierrors.ErrAccessTokenRequired.Code, errorCode(t, rec))

	rec = ts.do(http.MethodGet, "/api/auth/projects/", "broken", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierrors.ErrTokenInvalid.Code, errorCode(t, rec))

	u, _ := ts.user("refresh@example.com")
	refresh, err := GenJwtToken([]byte(testSecret), "refresh", u.ID)
	require.NoError(t, err)
	rec = ts.do(http.MethodGet, "/api/auth/projects/", refresh.SignedString, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProjects(t *testing.T) {
	ts := newTestServer(t)
	_, ownerToken := ts.user("owner@example.com")
	_, strangerToken := ts.user("stranger@example.com")

	p := ts.project(ownerToken)
	assert.Equal(t, "Anna & Ben", p.Title)
	assert.Equal(t, dao.RoleOwner, p.CurrentUserRole)

	rec := ts.do(http.MethodGet, "/api/auth/projects/", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []dao.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	rec = ts.do(http.MethodGet, projectPath(p, ""), strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.ErrProjectNotFound.Code, errorCode(t, rec))

	rec = ts.do(http.MethodGet, "/api/auth/projects/not-a-uuid/", ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/projects/", ownerToken, map[string]string{"title": "<b></b>"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.ErrProjectTitleRequired.Code, errorCode(t, rec))

	rec = ts.do(http.MethodPost, "/api/auth/projects/", ownerToken, map[string]string{"title": "Party", "occasion": "picnic"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.ErrValidation.Code, errorCode(t, rec))
}

func TestGetSpeechNormalizesLexical(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user("owner@example.com")
	p := ts.project(token)

	legacy := `{"root":{"type":"root","children":[
		{"type":"paragraph","children":[{"type":"text","text":"Hello","format":1}]},
		{"type":"quote","children":[{"type":"text","text":"Love is patient","format":2}]}
	]}}`
	require.NoError(t, ts.db.Exec("UPDATE speeches SET content = ? WHERE project_id = ?", legacy, p.ID).Error)

	rec := ts.do(http.MethodGet, projectPath(p, "speech/"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var speech struct {
		Content tiptap.Document `json:"content"`
		Version int             `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &speech))

	assert.Equal(t, 1, speech.Version)
	assert.Equal(t, tiptap.NodeDoc, speech.Content.Type)
	require.Len(t, speech.Content.Content, 2)

	paragraph := speech.Content.Content[0]
	assert.Equal(t, tiptap.NodeParagraph, paragraph.Type)
	require.Len(t, paragraph.Content, 1)
	assert.Equal(t, "Hello", paragraph.Content[0].Text)
	assert.True(t, paragraph.Content[0].HasMark(tiptap.MarkBold))

	quote := speech.Content.Content[1]
	assert.Equal(t, tiptap.NodeBlockquote, quote.Type)
	require.Len(t, quote.Content, 1)
	assert.Equal(t, tiptap.NodeText, quote.Content[0].Type)
	assert.True(t, quote.Content[0].HasMark(tiptap.MarkItalic))
}

func TestGetSpeechEmpty(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user("owner@example.com")
	p := ts.project(token)

	rec := ts.do(http.MethodGet, projectPath(p, "speech/"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":{"type":"doc","content":[{"type":"paragraph"}]}`)
}

func TestUpdateSpeech(t *testing.T) {
	ts := newTestServer(t)
	_, ownerToken := ts.user("owner@example.com")
	contributor, contributorToken := ts.user("contributor@example.com")
	p := ts.project(ownerToken)
	ts.addMember(p.ID, contributor, dao.RoleContributor)

	doc := `{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"text","text":"Dear friends","marks":[{"type":"link","attrs":{"href":"javascript:alert(1)"}}]}
	]}]}`
	body := func(version int) string {
		return fmt.Sprintf(`{"content":%s,"version":%d}`, doc, version)
	}

	rec := ts.do(http.MethodPut, projectPath(p, "speech/"), ownerToken, body(1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"version":2`)
	assert.NotContains(t, rec.Body.String(), "javascript")

	tests := []struct {
		name     string
		token    string
		body     string
		wantCode int
		wantErr  int
	}{
		{"stale version", ownerToken, body(1), http.StatusConflict, apierrors.ErrSpeechVersionConflict.Code},
		{"contributor", contributorToken, body(2), http.StatusForbidden, apierrors.ErrSpeechEditForbidden.Code},
		{"lexical rejected", ownerToken, `{"content":{"root":{"children":[]}},"version":2}`, http.StatusBadRequest, apierrors.ErrSpeechInvalidDocument.Code},
		{"missing version", ownerToken, fmt.Sprintf(`{"content":%s}`, doc), http.StatusBadRequest, apierrors.ErrValidation.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPut, projectPath(p, "speech/"), tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, errorCode(t, rec))
		})
	}

	rec = ts.do(http.MethodGet, projectPath(p, "speech/analysis/"), contributorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":2`)
}

func TestExportSpeech(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user("owner@example.com")
	p := ts.project(token)

	legacy := `{"root":{"children":[{"type":"paragraph","children":[{"type":"text","text":"Hello","format":1}]}]}}`
	require.NoError(t, ts.db.Exec("UPDATE speeches SET content = ? WHERE project_id = ?", legacy, p.ID).Error)

	rec := ts.do(http.MethodGet, projectPath(p, "speech/export/?format=md"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "Anna-Ben.md")
	assert.Contains(t, rec.Body.String(), "# Anna & Ben")
	assert.Contains(t, rec.Body.String(), "**Hello**")

	rec = ts.do(http.MethodGet, projectPath(p, "speech/export/?format=docx"), token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.ErrUnsupportedExportFormat.Code, errorCode(t, rec))

	rec = ts.do(http.MethodPost, projectPath(p, "speech/export/store/"), token, map[string]string{"format": "md"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var exp dao.SpeechExport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exp))

	rec = ts.do(http.MethodGet, projectPath(p, "speech/exports/"+exp.ID+"/"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "**Hello**")

	rec = ts.do(http.MethodDelete, projectPath(p, "speech/exports/"+exp.ID+"/"), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodGet, projectPath(p, "speech/exports/"+exp.ID+"/"), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMagicLinkJoin(t *testing.T) {
	ts := newTestServer(t)
	_, ownerToken := ts.user("owner@example.com")
	_, guestToken := ts.user("guest@example.com")
	_, lateToken := ts.user("late@example.com")
	p := ts.project(ownerToken)

	rec := ts.do(http.MethodPost, projectPath(p, "magic-links/"), ownerToken, map[string]any{"role": dao.RoleOwner})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.ErrMagicLinkOwnerRole.Code, errorCode(t, rec))

	rec = ts.do(http.MethodPost, projectPath(p, "magic-links/"), ownerToken, map[string]any{"max_uses": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var link MagicLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.Equal(t, dao.RoleContributor, link.Role)
	assert.Equal(t, "https://speechdraft.test/join/"+link.Token+"/", link.URL)
	require.NotNil(t, link.ExpiresAt)

	joinPath := "/api/auth/magic-links/" + link.Token + "/join/"

	rec = ts.do(http.MethodPost, joinPath, guestToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var join struct {
		Member  dao.ProjectMember `json:"member"`
		Project dao.Project       `json:"project"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &join))
	assert.Equal(t, dao.RoleContributor, join.Member.Role)
	assert.Equal(t, p.ID, join.Project.ID)

	// Повторное вступление участника не расходует использование
	rec = ts.do(http.MethodPost, joinPath, guestToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, joinPath, lateToken, nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, apierrors.ErrMagicLinkExhausted.Code, errorCode(t, rec))

	rec = ts.do(http.MethodGet, projectPath(p, "magic-links/"), guestToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodDelete, projectPath(p, "magic-links/"+link.ID+"/"), ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodGet, "/api/public/"+link.Token+"/", "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, apierrors.ErrMagicLinkRevoked.Code, errorCode(t, rec))
}

func TestInvitationAccept(t *testing.T) {
	ts := newTestServer(t)
	_, ownerToken := ts.user("owner@example.com")
	_, invitedToken := ts.user("invited@example.com")
	_, otherToken := ts.user("other@example.com")
	p := ts.project(ownerToken)

	rec := ts.do(http.MethodPost, projectPath(p, "invitations/"), ownerToken, map[string]any{
		"email": "Invited@Example.com",
		"role":  dao.RoleEditor,
		"note":  "<script>x</script>Please help with the toast",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var inv dao.Invitation
	require.NoError(t, ts.db.Where("project_id = ?", p.ID).First(&inv).Error)
	assert.Equal(t, "invited@example.com", inv.Email)

	acceptPath := "/api/auth/invitations/" + inv.Token + "/accept/"

	rec = ts.do(http.MethodPost, acceptPath, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apierrors.ErrInvitationEmailMismatch.Code, errorCode(t, rec))

	rec = ts.do(http.MethodPost, acceptPath, invitedToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`"role":%d`, dao.RoleEditor))

	rec = ts.do(http.MethodPost, acceptPath, invitedToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierrors.ErrInvitationAccepted.Code, errorCode(t, rec))

	rec = ts.do(http.MethodPost, projectPath(p, "invitations/"), ownerToken, map[string]any{"email": "invited@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierrors.ErrUserAlreadyInProject.Code, errorCode(t, rec))
}

func TestPublicQuestionnaire(t *testing.T) {
	ts := newTestServer(t)
	_, ownerToken := ts.user("owner@example.com")
	p := ts.project(ownerToken)

	rec := ts.do(http.MethodPost, projectPath(p, "questionnaires/"), ownerToken, map[string]any{
		"title":     "Stories about Anna",
		"questions": []string{"How did you meet?", " ", "Funniest moment?"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var q dao.Questionnaire
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Len(t, q.Questions, 2)

	rec = ts.do(http.MethodPost, projectPath(p, "magic-links/"), ownerToken, map[string]any{"max_uses": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	var link MagicLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))

	publicPath := "/api/public/" + link.Token + "/"
	answerPath := publicPath + "questionnaires/" + q.ID + "/answers/"

	rec = ts.do(http.MethodGet, publicPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var public PublicProject
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &public))
	assert.Equal(t, "Anna & Ben", public.Title)
	assert.Equal(t, p.ID, public.ID)

	rec = ts.do(http.MethodPost, answerPath, "", map[string]any{
		"author_name": "Carl",
		"answers":     []string{"At school"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.ErrAnswersCountMismatch.Code, errorCode(t, rec))

	// Ответы гостей не расходуют использования ссылки
	for i := 0; i < 2; i++ {
		rec = ts.do(http.MethodPost, answerPath, "", map[string]any{
			"author_name":  "Carl",
			"author_email": "carl@example.com",
			"answers":      []string{"At school", "The cake"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodGet, projectPath(p, "questionnaires/"+q.ID+"/answers/"), ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var answers []dao.QuestionnaireAnswer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answers))
	assert.Len(t, answers, 2)

	rec = ts.do(http.MethodGet, "/api/public/unknown-token/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDateVoting(t *testing.T) {
	ts := newTestServer(t)
	_, ownerToken := ts.user("owner@example.com")
	contributor, contributorToken := ts.user("contributor@example.com")
	p := ts.project(ownerToken)
	ts.addMember(p.ID, contributor, dao.RoleContributor)

	day := time.Now().AddDate(0, 1, 0).Format("2006-01-02")

	rec := ts.do(http.MethodPost, projectPath(p, "dates/"), contributorToken, map[string]string{"date": day})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, projectPath(p, "dates/"), ownerToken, map[string]string{"date": "13/05/2026"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.ErrInvalidDayFormat.Code, errorCode(t, rec))

	rec = ts.do(http.MethodPost, projectPath(p, "dates/"), ownerToken, map[string]string{"date": day})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var option dao.DateOption
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &option))

	rec = ts.do(http.MethodPost, projectPath(p, "dates/"), ownerToken, map[string]string{"date": day})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierrors.ErrDateOptionExists.Code, errorCode(t, rec))

	votePath := projectPath(p, "dates/"+option.ID+"/vote/")

	rec = ts.do(http.MethodPost, votePath, contributorToken, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(http.MethodPost, votePath, contributorToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierrors.ErrAlreadyVoted.Code, errorCode(t, rec))

	rec = ts.do(http.MethodDelete, votePath, contributorToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodDelete, votePath, contributorToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.ErrVoteNotFound.Code, errorCode(t, rec))

	rec = ts.do(http.MethodPost, projectPath(p, "dates/"+option.ID+"/select/"), ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var selected dao.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &selected))
	require.NotNil(t, selected.EventDate)
	assert.Equal(t, day, selected.EventDate.String())
}

func TestVersionEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/version/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
	assert.Contains(t, rec.Body.String(), `"exports":true`)
	assert.Equal(t, "SpeechDraft", rec.Header().Get(echo.HeaderServer))

	rec = ts.do(http.MethodGet, "/api/_health/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProjectMembers(t *testing.T) {
	ts := newTestServer(t)
	owner, ownerToken := ts.user("owner@example.com")
	editor, editorToken := ts.user("editor@example.com")
	contributor, contributorToken := ts.user("contributor@example.com")
	p := ts.project(ownerToken)
	ts.addMember(p.ID, editor, dao.RoleEditor)
	ts.addMember(p.ID, contributor, dao.RoleContributor)

	rec := ts.do(http.MethodGet, projectPath(p, "members/"), contributorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []dao.ProjectMember
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	require.Len(t, members, 3)
	assert.Equal(t, owner.ID, members[0].MemberID)

	tests := []struct {
		name     string
		token    string
		memberId string
		wantCode int
		wantErr  int
	}{
		{"invalid id", ownerToken, "nope", http.StatusBadRequest, apierrors.ErrInvalidID.Code},
		{"owner", editorToken, owner.ID, http.StatusBadRequest, apierrors.ErrCannotRemoveProjectOwner.Code},
		{"higher role", contributorToken, editor.ID, http.StatusForbidden, apierrors.ErrCannotRemoveHigherRoleUser.Code},
		{"unknown member", ownerToken, dao.GenID(), http.StatusNotFound, apierrors.ErrProjectMemberNotFound.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodDelete, projectPath(p, "members/"+tt.memberId+"/"), tt.token, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, errorCode(t, rec))
		})
	}

	rec = ts.do(http.MethodDelete, projectPath(p, "members/"+contributor.ID+"/"), editorToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, projectPath(p, ""), contributorToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
