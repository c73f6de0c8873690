// Package mailer delivers the member-update and end-of-day notification
// emails over SMTP with implicit TLS, and renders their bodies from
// text templates.
package mailer

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/lwedwards3/dhp-sync/pkg/config"
)

type Mailer struct {
	cfg config.EmailCreds
	log *zap.Logger
}

func New(cfg config.EmailCreds, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: logger}
}

// Send transmits one message. Addresses in bcc receive the message but do
// not appear in the headers. There is no delivery guarantee beyond the
// server accepting the message.
func (m *Mailer) Send(to, bcc []string, subject, body string) error {
	recipients := make([]string, 0, len(to)+len(bcc))
	recipients = append(recipients, to...)
	recipients = append(recipients, bcc...)
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	headerTo := strings.Join(to, ", ")
	if headerTo == "" {
		headerTo = m.cfg.Address
	}

	var msg strings.Builder
	msg.WriteString("From: " + m.cfg.From + "\r\n")
	msg.WriteString("To: " + headerTo + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	serverAddr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("could not connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("could not create SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", m.cfg.Address, m.cfg.Password, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(m.cfg.Address); err != nil {
		return fmt.Errorf("could not set sender: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("could not add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("could not open data connection: %w", err)
	}
	if _, err := w.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("could not write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("could not close data connection: %w", err)
	}

	m.log.Info("email sent",
		zap.Strings("to", to),
		zap.Int("bcc", len(bcc)),
		zap.String("subject", subject))
	return client.Quit()
}
