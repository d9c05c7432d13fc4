package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends plain text email through an SMTP relay.
type Mailer struct {
	host     string
	port     string
	sender   string
	password string
	send     SendFunc
}

func NewMailer(host, port, sender, password string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		sender:   sender,
		password: password,
		send:     smtp.SendMail,
	}
}

// WithSendFunc replaces the transport, mainly for tests.
func (m *Mailer) WithSendFunc(fn SendFunc) *Mailer {
	m.send = fn
	return m
}

// SendEmail sends a plain text email using SMTP.
func (m *Mailer) SendEmail(to, subject, body string) error {
	var auth smtp.Auth
	if m.password != "" {
		auth = smtp.PlainAuth("", m.sender, m.password, m.host)
	}

	msg := []byte("From: " + m.sender + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body + "\r\n")

	address := m.host + ":" + m.port

	if err := m.send(address, auth, m.sender, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// BuildResetLink appends the reset code to the continue URL.
func BuildResetLink(continueURL, code string) string {
	sep := "?"
	if strings.Contains(continueURL, "?") {
		sep = "&"
	}
	return continueURL + sep + "oobCode=" + code
}
