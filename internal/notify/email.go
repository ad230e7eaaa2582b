package notify

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// Notifier delivers operational messages to the store owner.
type Notifier interface {
	SendOwnerDigest(subject string, body string) error
}

// NoopNotifier is used when SMTP is not configured.
type NoopNotifier struct{}

func (NoopNotifier) SendOwnerDigest(_ string, _ string) error {
	return nil
}

type EmailNotifier struct {
	host       string
	port       string
	username   string
	password   string
	sender     string
	ownerEmail string
}

func NewEmailNotifier(host, port, username, password, sender, ownerEmail string) *EmailNotifier {
	return &EmailNotifier{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		sender:     sender,
		ownerEmail: ownerEmail,
	}
}

func (n *EmailNotifier) SendOwnerDigest(subject string, body string) error {
	e := email.NewEmail()
	e.From = n.sender
	e.To = []string{n.ownerEmail}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", n.host, n.port)
	auth := smtp.PlainAuth("", n.username, n.password, n.host)
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("send owner digest: %w", err)
	}
	return nil
}
