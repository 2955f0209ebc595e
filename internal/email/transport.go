package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Transport hands a rendered message to a mail provider.
type Transport interface {
	Deliver(ctx context.Context, job Job) error
	Name() string
}

type smtpTransport struct {
	from     string
	fromName string
	host     string
	port     string
	user     string
	pass     string
}

func NewSMTPTransport(from, fromName, host, port, user, pass string) Transport {
	return &smtpTransport{from: from, fromName: fromName, host: host, port: port, user: user, pass: pass}
}

func (t *smtpTransport) Name() string { return "smtp" }

func (t *smtpTransport) Deliver(_ context.Context, job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", t.fromName, t.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if t.user != "" && t.pass != "" {
		auth = smtp.PlainAuth("", t.user, t.pass, t.host)
	}

	return smtp.SendMail(t.host+":"+t.port, auth, t.from, []string{job.To}, []byte(message))
}

type sendGridTransport struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridTransport(apiKey, from, fromName string) Transport {
	return &sendGridTransport{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, from),
	}
}

func (t *sendGridTransport) Name() string { return "sendgrid" }

func (t *sendGridTransport) Deliver(ctx context.Context, job Job) error {
	to := mail.NewEmail(job.Name, job.To)
	message := mail.NewSingleEmail(t.from, job.Subject, to, job.Body, "")

	resp, err := t.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
