package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"github.com/jkalnina/authgate/internal/common"
)

// SMTPSender sends mail over implicit TLS (port 465 style). Each Send
// opens its own connection.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPSender(host, port, username, password, from string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", s.from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			htmlBody,
	)

	addr := net.JoinHostPort(s.host, s.port)

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", common.ErrNotificationFailed, addr, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("%w: auth: %v", common.ErrNotificationFailed, err)
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}

	return nil
}
