package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"mailsched/internal/models"
)

const DefaultSendTimeout = 10 * time.Second

// SMTPSender speaks plain SMTP against the host carried in the job payload.
// The whole conversation runs under a single deadline so one stalled server
// cannot hold a dispatch slot forever.
type SMTPSender struct {
	timeout time.Duration
}

func NewSMTPSender(timeout time.Duration) *SMTPSender {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &SMTPSender{timeout: timeout}
}

func (s *SMTPSender) Send(ctx context.Context, p models.Payload) (string, error) {
	addr := net.JoinHostPort(p.Host, strconv.Itoa(p.Port))

	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("smtp dial %s: %w", addr, err)
	}

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return "", err
	}

	client, err := smtp.NewClient(conn, p.Host)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: p.Host}); err != nil {
			return "", fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if p.User != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", p.User, p.Pass, p.Host)
			if err := client.Auth(auth); err != nil {
				return "", fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(p.User); err != nil {
		return "", fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(p.To); err != nil {
		return "", fmt.Errorf("smtp rcpt to: %w", err)
	}

	messageID := NewMessageID(p.Host)
	w, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(BuildMessage(messageID, p, time.Now())); err != nil {
		return "", fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("smtp close data: %w", err)
	}

	if err := client.Quit(); err != nil {
		return "", fmt.Errorf("smtp quit: %w", err)
	}
	return messageID, nil
}
