// Пакет отправляет письма участникам проекта: приглашения и уведомления о новых ответах на анкеты.
// Письма собираются из встроенных HTML шаблонов и отправляются как HTML и как простой текст.
//
// Основные возможности:
//   - Пул воркеров для отправки через SMTP.
//   - Режим без SMTP: письма только пишутся в лог.
//   - Очистка пользовательского текста в письмах.
package notifications

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/speechdraft/speechdraft/internal/speechdraft/config"
	policy "github.com/speechdraft/speechdraft/internal/speechdraft/redactor-policy"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
	"golang.org/x/sync/errgroup"
	"gopkg.in/gomail.v2"
)

var ErrServiceStopped = errors.New("email service stopped")

var minifier *minify.M = minify.New()

//go:embed templates/*
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

var blankLines = regexp.MustCompile(`\n\s*\n+`)

func init() {
	minifier.AddFunc("text/html", html.Minify)
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailService struct {
	d        mailSender
	cfg      *config.Config
	disabled bool

	mu        sync.RWMutex
	stopped   bool
	emailChan chan mail
	eg        errgroup.Group
}

type mail struct {
	To          string
	Subject     string
	Content     string
	TextContent string
}

// NewEmailService запускает EMAIL_WORKERS воркеров. Без EMAIL_HOST письма не отправляются, а пишутся в лог.
func NewEmailService(cfg *config.Config) *EmailService {
	es := &EmailService{
		d:         gomail.NewDialer(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPassword),
		cfg:       cfg,
		disabled:  cfg.EmailHost == "",
		emailChan: make(chan mail),
	}
	if es.disabled {
		slog.Warn("EMAIL_HOST is empty, emails will be logged only")
		return es
	}

	for i := 0; i < max(cfg.EmailWorkers, 1); i++ {
		es.eg.Go(func() error {
			return es.worker(es.emailChan)
		})
	}
	return es
}

// Stop дожидается отправки принятых писем.
func (es *EmailService) Stop() {
	es.mu.Lock()
	if es.stopped {
		es.mu.Unlock()
		return
	}
	es.stopped = true
	close(es.emailChan)
	es.mu.Unlock()

	if es.disabled {
		return
	}

	slog.Info("Closing email workers")
	if err := es.eg.Wait(); err != nil {
		slog.Error("Email worker", "err", err)
	}
	slog.Info("Email workers successfully stopped")
}

func (es *EmailService) Send(e mail) error {
	es.mu.RLock()
	defer es.mu.RUnlock()

	if es.stopped {
		return ErrServiceStopped
	}
	if es.disabled {
		slog.Info("Email skipped", "to", e.To, "subject", e.Subject, "text", e.TextContent)
		return nil
	}
	es.emailChan <- e
	return nil
}

func (es *EmailService) sendEmail(e mail) error {
	m := gomail.NewMessage()
	m.SetHeader("From", es.cfg.EmailFrom)
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/plain", e.TextContent)
	m.AddAlternative("text/html", e.Content)

	return es.d.DialAndSend(m)
}

func (es *EmailService) worker(emailChan <-chan mail) error {
	for e := range emailChan {
		if err := es.sendEmail(e); err != nil {
			slog.Error("Send email", "to", e.To, "subject", e.Subject, "err", err)
		}
	}
	return nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// buildMail оборачивает тело письма в общий шаблон и готовит текстовую версию.
func buildMail(to, subject, title, body string) (mail, error) {
	content, err := render("body.html", struct {
		Title     string
		Body      template.HTML
		CreatedAt time.Time
	}{
		Title:     title,
		Body:      template.HTML(body),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return mail{}, err
	}

	text := policy.StripTags(content)
	text = blankLines.ReplaceAllString(text, "\n\n")

	minified, err := minifier.String("text/html", content)
	if err != nil {
		slog.Warn("Minify email", "subject", subject, "err", err)
		minified = content
	}

	return mail{
		To:          to,
		Subject:     subject,
		Content:     minified,
		TextContent: strings.TrimSpace(text),
	}, nil
}
