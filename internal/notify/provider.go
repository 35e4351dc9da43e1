// Package notify delivers rendered notification messages through a pluggable
// provider. Delivery is best-effort; callers never block a state transition
// on the outcome.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cargodesk/cargodesk/internal/config"
)

// Message is a rendered notification.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Provider sends a message to its recipients.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NewProvider selects an implementation from configuration. Unknown kinds
// fall back to the log provider.
func NewProvider(cfg config.NotificationConfig, logger *zap.Logger) Provider {
	switch strings.ToLower(cfg.Provider) {
	case "smtp":
		if cfg.SMTPAddr == "" {
			logger.Warn("smtp provider selected without NOTIFY_SMTP_ADDR; falling back to log")
			return &logProvider{logger: logger}
		}
		return &smtpProvider{
			addr: cfg.SMTPAddr,
			from: cfg.EmailFrom,
			user: cfg.SMTPUser,
			pass: cfg.SMTPPass,
		}
	case "webhook":
		if cfg.WebhookURL == "" {
			logger.Warn("webhook provider selected without NOTIFY_WEBHOOK_URL; falling back to log")
			return &logProvider{logger: logger}
		}
		return &webhookProvider{
			url:    cfg.WebhookURL,
			client: &http.Client{Timeout: 10 * time.Second},
		}
	default:
		return &logProvider{logger: logger}
	}
}

type logProvider struct {
	logger *zap.Logger
}

func (p *logProvider) Send(_ context.Context, msg Message) error {
	p.logger.Info("notification",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

type smtpProvider struct {
	addr string
	from string
	user string
	pass string
}

func (p *smtpProvider) Send(_ context.Context, msg Message) error {
	var payload bytes.Buffer
	fmt.Fprintf(&payload, "From: %s\r\n", p.from)
	fmt.Fprintf(&payload, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&payload, "Subject: %s\r\n", msg.Subject)
	payload.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	payload.WriteString(msg.Body)

	var auth smtp.Auth
	if p.user != "" {
		host := p.addr
		if idx := strings.Index(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		auth = smtp.PlainAuth("", p.user, p.pass, host)
	}
	return smtp.SendMail(p.addr, auth, p.from, msg.To, payload.Bytes())
}

type webhookProvider struct {
	url    string
	client *http.Client
}

func (p *webhookProvider) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
