package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/go-mail/mail"
)

// SMTPConfig configures an SMTPSender.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// TLSMode is one of "auto", "starttls", "ssl" or "none".
	TLSMode            string `yaml:"tlsMode"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

// SMTPSender is an EmailSender backed by an SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(*mail.Message) error
}

// NewSMTPSender dials cfg.Host for every message.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	s := &SMTPSender{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

// SendEmail implements EmailSender.
func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string, html bool) error {
	if to == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.message(to, subject, body, html)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) message(to, subject, body string, html bool) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	if html {
		m.SetBody("text/html", body)
	} else {
		m.SetBody("text/plain", body)
	}
	return m
}

func (s *SMTPSender) dialAndSend(m *mail.Message) error {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify,
	}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.cfg.InsecureSkipVerify}
	}
	return d.DialAndSend(m)
}
