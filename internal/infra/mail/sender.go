package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/lead-followup/internal/config"
	"github.com/xavierca1/lead-followup/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var messageTemplate = template.Must(template.ParseFS(templateFS, "templates/message.html"))

// Dialer is the part of gomail.Dialer the sender uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	From        string
	TrackingURL string
	dialer      Dialer
}

// NewEmailSender sends through the configured SMTP relay. gomail upgrades
// the connection with STARTTLS when the server offers it.
func NewEmailSender(cfg config.SMTP, trackingURL string) *EmailSender {
	return NewEmailSenderWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, trackingURL)
}

func NewEmailSenderWithDialer(d Dialer, from, trackingURL string) *EmailSender {
	return &EmailSender{
		From:        from,
		TrackingURL: strings.TrimRight(trackingURL, "/"),
		dialer:      d,
	}
}

// Send renders msg as HTML and mails it. It returns the rendered body.
func (s *EmailSender) Send(ctx context.Context, to, recipientName string, msg entity.Outbound) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := s.Render(to, recipientName, msg)
	if err != nil {
		return "", err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return body, nil
}

// Render builds the HTML body. Reply buttons become tracking links that carry
// the recipient email and the stage template.
func (s *EmailSender) Render(to, recipientName string, msg entity.Outbound) (string, error) {
	data := MessageEmailData{
		Subject:    msg.Subject,
		Name:       recipientName,
		Paragraphs: paragraphs(msg.Text),
	}

	tmpl := msg.Stage.TrackingTemplate()
	for _, b := range msg.Buttons {
		data.Buttons = append(data.Buttons, LinkButton{
			Label: b.Title,
			URL:   s.TrackingLink(b.ID, to, tmpl),
		})
	}

	var buf bytes.Buffer
	if err := messageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

func (s *EmailSender) TrackingLink(response, email, tmpl string) string {
	q := url.Values{}
	q.Set("response", response)
	q.Set("email", email)
	if tmpl != "" {
		q.Set("template", tmpl)
	}
	return s.TrackingURL + "/track_click?" + q.Encode()
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
