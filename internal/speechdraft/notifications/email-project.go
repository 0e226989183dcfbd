package notifications

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"time"

	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	policy "github.com/speechdraft/speechdraft/internal/speechdraft/redactor-policy"
)

func (es *EmailService) projectInvitationMail(inv dao.Invitation, project dao.Project, inviter *dao.User, note string) (mail, error) {
	link := es.cfg.WebURL.ResolveReference(&url.URL{Path: "/invitations/" + inv.Token + "/"})

	body, err := render("project_invitation.html", struct {
		Inviter       *dao.User
		ProjectTitle  string
		RoleName      string
		Note          template.HTML
		InvitationURL string
		ExpiresAt     time.Time
	}{
		Inviter:       inviter,
		ProjectTitle:  project.Title,
		RoleName:      dao.RoleName(inv.Role),
		Note:          template.HTML(policy.EmailPolicy.Sanitize(note)),
		InvitationURL: link.String(),
		ExpiresAt:     inv.ExpiresAt,
	})
	if err != nil {
		return mail{}, err
	}

	subject := fmt.Sprintf("%s invited you to write a speech for %s", inviter.FullName(), project.Title)
	return buildMail(inv.Email, subject, "Invitation to SpeechDraft", body)
}

// ProjectInvitation отправляет приглашение в проект. note - необязательное сообщение от приглашающего.
func (es *EmailService) ProjectInvitation(inv dao.Invitation, project dao.Project, inviter *dao.User, note string) error {
	m, err := es.projectInvitationMail(inv, project, inviter, note)
	if err != nil {
		slog.Error("Render project invitation email", "project", project.ID, "err", err)
		return err
	}
	return es.Send(m)
}

type answerItem struct {
	Question string
	Answer   string
}

func (es *EmailService) questionnaireAnswerMail(to *dao.User, project dao.Project, q dao.Questionnaire, answer dao.QuestionnaireAnswer) (mail, error) {
	items := make([]answerItem, 0, len(q.Questions))
	for i, question := range q.Questions {
		item := answerItem{Question: question}
		if i < len(answer.Answers) {
			item.Answer = answer.Answers[i]
		}
		items = append(items, item)
	}

	link := es.cfg.WebURL.ResolveReference(&url.URL{Path: fmt.Sprintf("/projects/%s/questionnaires/%s/", project.ID, q.ID)})

	author := answer.AuthorName
	if author == "" {
		author = "A guest"
	}

	body, err := render("questionnaire_answer.html", struct {
		AuthorName         string
		QuestionnaireTitle string
		ProjectTitle       string
		Items              []answerItem
		AnswersURL         string
	}{
		AuthorName:         author,
		QuestionnaireTitle: q.Title,
		ProjectTitle:       project.Title,
		Items:              items,
		AnswersURL:         link.String(),
	})
	if err != nil {
		return mail{}, err
	}

	subject := fmt.Sprintf("New answer to %q", q.Title)
	return buildMail(to.Email, subject, "New questionnaire answer", body)
}

// QuestionnaireAnswered уведомляет автора анкеты о новом ответе.
func (es *EmailService) QuestionnaireAnswered(to *dao.User, project dao.Project, q dao.Questionnaire, answer dao.QuestionnaireAnswer) error {
	m, err := es.questionnaireAnswerMail(to, project, q, answer)
	if err != nil {
		slog.Error("Render questionnaire answer email", "questionnaire", q.ID, "err", err)
		return err
	}
	return es.Send(m)
}
