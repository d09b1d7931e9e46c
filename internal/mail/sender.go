package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	gomail "gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender renders a template and ships it over SMTP.
type Sender struct {
	dialer    *gomail.Dialer
	from      string
	baseURL   string
	templates *template.Template
}

func NewSender(host string, port int, username, password, from, baseURL string) (*Sender, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &Sender{
		dialer:    gomail.NewDialer(host, port, username, password),
		from:      from,
		baseURL:   baseURL,
		templates: templates,
	}, nil
}

// Render выполняет именованный шаблон в строку.
func (s *Sender) Render(templateName string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		return "", fmt.Errorf("render %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func (s *Sender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func (s *Sender) verifyLink(token string) string {
	return fmt.Sprintf("%s/auth/verify?token=%s", s.baseURL, token)
}

func (s *Sender) resetLink(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
}
