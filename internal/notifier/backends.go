package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"yamdb/pkg/logger"
	"yamdb/pkg/rabbitmq"
)

// SMTPNotifier delivers mail through an SMTP relay.
type SMTPNotifier struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPNotifier{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: from,
		auth: auth,
		send: smtp.SendMail,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.send(n.addr, n.auth, n.from, []string{to}, buildMessage(n.from, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// LogNotifier writes emails to the log instead of sending them. Meant for
// local development.
type LogNotifier struct {
	log logger.Log
}

func NewLogNotifier(log logger.Log) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.log.Info("email", "to", to, "subject", subject, "body", body)
	return nil
}

// EmailPublisher is the part of the broker client QueueNotifier needs.
type EmailPublisher interface {
	PublishEmail(msg rabbitmq.EmailMessage) error
}

// QueueNotifier hands emails to the broker; a consumer delivers them later.
type QueueNotifier struct {
	publisher EmailPublisher
}

func NewQueueNotifier(p EmailPublisher) *QueueNotifier {
	return &QueueNotifier{publisher: p}
}

func (n *QueueNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.publisher.PublishEmail(rabbitmq.EmailMessage{To: to, Subject: subject, Body: body})
}

// Deliver returns a broker message handler that sends each job through n.
func Deliver(ctx context.Context, n Notifier) func(rabbitmq.EmailMessage) error {
	return func(msg rabbitmq.EmailMessage) error {
		return n.Send(ctx, msg.To, msg.Subject, msg.Body)
	}
}
