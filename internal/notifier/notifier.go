// Package notifier delivers outbound email.
package notifier

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"yamdb/internal/models"
)

// Notifier sends one email. Implementations are synchronous: a nil error
// means the message was handed off to its transport.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Template renders the confirmation email. The body may reference
// {{.Username}} and {{.Code}}.
type Template struct {
	subject string
	body    *template.Template
}

func NewTemplate(subject, body string) (*Template, error) {
	tmpl, err := template.New("confirmation").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email body template: %w", err)
	}
	return &Template{subject: subject, body: tmpl}, nil
}

func (t *Template) Render(username, code string) (subject, body string, err error) {
	var buf bytes.Buffer
	data := struct {
		Username string
		Code     string
	}{Username: username, Code: code}
	if err := t.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render email body: %w", err)
	}
	return t.subject, buf.String(), nil
}

// ConfirmationMailer sends confirmation codes through a Notifier.
type ConfirmationMailer struct {
	notifier Notifier
	template *Template
}

func NewConfirmationMailer(n Notifier, t *Template) *ConfirmationMailer {
	return &ConfirmationMailer{notifier: n, template: t}
}

// SendCode emails code to user. Delivery errors are returned as is.
func (m *ConfirmationMailer) SendCode(ctx context.Context, user *models.User, code string) error {
	subject, body, err := m.template.Render(user.Username, code)
	if err != nil {
		return err
	}
	return m.notifier.Send(ctx, user.Email, subject, body)
}
