// Package notify delivers email notifications. Delivery is best effort:
// callers log failures and never retry.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"it-inventory-api/internal/config"
)

// ErrNotConfigured is returned by senders that have no mail transport.
var ErrNotConfigured = errors.New("email delivery is not configured")

// Sender delivers one HTML message to a list of recipients
type Sender interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// NewSender returns an SMTP sender when credentials are configured and a
// logging sender otherwise.
func NewSender(cfg config.SMTPConfig, log logrus.FieldLogger) Sender {
	if !cfg.Configured() {
		log.Warn("SMTP is not configured; emails will be logged and dropped")
		return &LogSender{log: log}
	}
	return &SMTPSender{cfg: cfg, log: log, send: smtp.SendMail}
}

// SMTPSender sends mail through an SMTP relay using STARTTLS when offered.
type SMTPSender struct {
	cfg  config.SMTPConfig
	log  logrus.FieldLogger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := s.cfg.From
	envelopeFrom := addressOf(from)
	msg := buildMessage(from, to, subject, htmlBody, time.Now())
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)

	if err := s.send(s.cfg.Addr(), auth, envelopeFrom, to, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	s.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("email sent")
	return nil
}

// LogSender logs messages instead of sending them.
type LogSender struct {
	log logrus.FieldLogger
}

func (s *LogSender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	s.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Warn("email service not configured, skipping send")
	return ErrNotConfigured
}

// Message is a delivered message as seen by a Recorder
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Recorder keeps every message in memory. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (r *Recorder) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.messages = append(r.messages, Message{To: append([]string(nil), to...), Subject: subject, Body: htmlBody})
	return nil
}

// Messages returns a copy of what was sent so far
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func buildMessage(from string, to []string, subject, htmlBody string, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(htmlBody, "\n", "\r\n"))
	return b.Bytes()
}

// addressOf extracts the bare address from "Name <addr>".
func addressOf(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return strings.TrimSpace(from)
}
