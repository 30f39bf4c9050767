package contact

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"portfolio-site-api/internal/config"
)

// ErrMailDisabled is returned by a mailer built from a disabled config.
var ErrMailDisabled = errors.New("smtp: delivery disabled")

// Email is one outbound message.
type Email struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer delivers contact notifications.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

type smtpClient interface {
	Mail(string) error
	Rcpt(string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
	Auth(smtp.Auth) error
}

type dialFunc func(ctx context.Context, cfg config.EmailConfig) (smtpClient, error)

type smtpMailer struct {
	cfg  config.EmailConfig
	dial dialFunc
}

// NewSMTPMailer validates cfg and returns a mailer. A disabled config yields a
// mailer whose Send returns ErrMailDisabled.
func NewSMTPMailer(cfg config.EmailConfig) (Mailer, error) {
	if cfg.Enabled {
		if strings.TrimSpace(cfg.Host) == "" {
			return nil, errors.New("smtp: host is required when enabled")
		}
		if cfg.Port == 0 {
			return nil, errors.New("smtp: port is required when enabled")
		}
		if _, err := mail.ParseAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("smtp: invalid from address: %w", err)
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &smtpMailer{cfg: cfg, dial: dialSMTP}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Email) error {
	if !m.cfg.Enabled {
		return ErrMailDisabled
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("smtp: invalid recipient %q: %w", msg.To, err)
	}

	client, err := m.dial(ctx, m.cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp: rcpt to %s: %w", msg.To, err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data command: %w", err)
	}
	if _, err := io.WriteString(wc, formatEmail(m.cfg.From, msg)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("smtp: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp: close data writer: %w", err)
	}
	return client.Quit()
}

func dialSMTP(ctx context.Context, cfg config.EmailConfig) (smtpClient, error) {
	address := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s: %w", address, err)
	}
	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp: new client: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp: start tls: %w", err)
		}
	}
	return client, nil
}

func formatEmail(from string, msg Email) string {
	headers := []string{
		"From: " + from,
		"To: " + msg.To,
	}
	if msg.ReplyTo != "" {
		headers = append(headers, "Reply-To: "+headerSafe(msg.ReplyTo))
	}
	headers = append(headers,
		"Subject: "+headerSafe(msg.Subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
	)
	return strings.Join(headers, "\r\n") + "\r\n" + msg.Body
}

func headerSafe(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
