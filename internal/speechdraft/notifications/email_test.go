package notifications

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/speechdraft/speechdraft/internal/speechdraft/config"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	"github.com/speechdraft/speechdraft/internal/speechdraft/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*gomail.Message
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m...)
	return nil
}

func testConfig(host string) *config.Config {
	u, _ := url.Parse("https://speechdraft.test")
	return &config.Config{
		WebURL:       u,
		EmailHost:    host,
		EmailFrom:    "noreply@speechdraft.test",
		EmailWorkers: 2,
	}
}

func testInvitation() (dao.Invitation, dao.Project, *dao.User) {
	inviter := &dao.User{FirstName: "Anna", LastName: "Smith", Email: "anna@example.com"}
	project := dao.Project{ID: "p1", Title: "Ben's 40th"}
	inv := dao.Invitation{
		Email:     "guest@example.com",
		Role:      dao.RoleEditor,
		Token:     "tok123",
		ExpiresAt: time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC),
	}
	return inv, project, inviter
}

func TestProjectInvitationMail(t *testing.T) {
	es := &EmailService{cfg: testConfig("")}
	inv, project, inviter := testInvitation()

	m, err := es.projectInvitationMail(inv, project, inviter, `Please help! <script>alert(1)</script><b>Thanks</b>`)
	require.NoError(t, err)

	assert.Equal(t, "guest@example.com", m.To)
	assert.Equal(t, "Anna Smith invited you to write a speech for Ben's 40th", m.Subject)
	assert.Contains(t, m.Content, "https://speechdraft.test/invitations/tok123/")
	assert.Contains(t, m.Content, "<b>Thanks</b>")
	assert.NotContains(t, m.Content, "<script>")
	assert.Contains(t, m.TextContent, "editor")
	assert.Contains(t, m.TextContent, "Nov 2, 2026")
	assert.NotContains(t, m.TextContent, "<p>")
}

func TestQuestionnaireAnswerMail(t *testing.T) {
	es := &EmailService{cfg: testConfig("")}
	q := dao.Questionnaire{ID: "q1", Title: "Memories", Questions: types.StringList{"How did you meet?", "Funniest moment?"}}
	answer := dao.QuestionnaireAnswer{Answers: types.StringList{"At university"}}

	m, err := es.questionnaireAnswerMail(&dao.User{Email: "owner@example.com"}, dao.Project{ID: "p1", Title: "Wedding"}, q, answer)
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", m.To)
	assert.Equal(t, `New answer to "Memories"`, m.Subject)
	assert.Contains(t, m.TextContent, "A guest answered the questionnaire")
	assert.Contains(t, m.TextContent, "At university")
	assert.Contains(t, m.Content, "https://speechdraft.test/projects/p1/questionnaires/q1/")
}

func TestEmailServiceWorkers(t *testing.T) {
	es := NewEmailService(testConfig("smtp.speechdraft.test"))
	sender := &fakeSender{}
	es.d = sender

	inv, project, inviter := testInvitation()
	for i := 0; i < 5; i++ {
		require.NoError(t, es.ProjectInvitation(inv, project, inviter, ""))
	}
	es.Stop()

	require.Len(t, sender.sent, 5)
	assert.Equal(t, []string{"guest@example.com"}, sender.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"noreply@speechdraft.test"}, sender.sent[0].GetHeader("From"))

	assert.ErrorIs(t, es.ProjectInvitation(inv, project, inviter, ""), ErrServiceStopped)
	// Повторная остановка безопасна
	es.Stop()
}

func TestEmailServiceDisabled(t *testing.T) {
	es := NewEmailService(testConfig(""))
	sender := &fakeSender{}
	es.d = sender

	inv, project, inviter := testInvitation()
	require.NoError(t, es.ProjectInvitation(inv, project, inviter, ""))
	es.Stop()

	assert.Empty(t, sender.sent)
}
