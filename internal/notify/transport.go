package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/elitedental/clinic-server/internal/config"
)

// NewMailer selects the transport named by EMAIL_PROVIDER.
func NewMailer(cfg config.Config, log zerolog.Logger) (Mailer, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	switch cfg.EmailProvider {
	case "log", "":
		return &LogMailer{log: log}, nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required for EMAIL_PROVIDER=smtp")
		}
		return &SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}, nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("RESEND_API_KEY is required for EMAIL_PROVIDER=resend")
		}
		return &ResendMailer{APIKey: cfg.ResendAPIKey, Client: client}, nil
	case "postmark":
		if cfg.PostmarkToken == "" {
			return nil, fmt.Errorf("POSTMARK_SERVER_TOKEN is required for EMAIL_PROVIDER=postmark")
		}
		return &PostmarkMailer{Token: cfg.PostmarkToken, Client: client}, nil
	case "brevo":
		if cfg.BrevoAPIKey == "" {
			return nil, fmt.Errorf("BREVO_API_KEY is required for EMAIL_PROVIDER=brevo")
		}
		return &BrevoMailer{APIKey: cfg.BrevoAPIKey, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}

// LogMailer writes messages to the log instead of delivering them. Default in
// dev, where no provider credentials exist.
type LogMailer struct {
	log zerolog.Logger
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("email (log transport)")
	return nil
}

// SMTPMailer delivers over authenticated SMTP (e.g. a Gmail app password).
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Text)

	addr := m.Host + ":" + m.Port
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := smtp.SendMail(addr, auth, msg.From, []string{msg.To}, b.Bytes()); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// ResendMailer posts to the Resend HTTP API.
type ResendMailer struct {
	APIKey string
	Client *http.Client
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"from":    msg.From,
		"to":      []string{msg.To},
		"subject": msg.Subject,
		"text":    msg.Text,
	}
	return postJSON(ctx, m.Client, "https://api.resend.com/emails", payload, map[string]string{
		"Authorization": "Bearer " + m.APIKey,
	})
}

// PostmarkMailer posts to the Postmark HTTP API.
type PostmarkMailer struct {
	Token  string
	Client *http.Client
}

func (m *PostmarkMailer) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"From":     msg.From,
		"To":       msg.To,
		"Subject":  msg.Subject,
		"TextBody": msg.Text,
	}
	return postJSON(ctx, m.Client, "https://api.postmarkapp.com/email", payload, map[string]string{
		"X-Postmark-Server-Token": m.Token,
	})
}

// BrevoMailer posts to the Brevo transactional email API.
type BrevoMailer struct {
	APIKey string
	Client *http.Client
}

func (m *BrevoMailer) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"sender":      map[string]string{"email": msg.From},
		"to":          []map[string]string{{"email": msg.To}},
		"subject":     msg.Subject,
		"textContent": msg.Text,
	}
	return postJSON(ctx, m.Client, "https://api.brevo.com/v3/smtp/email", payload, map[string]string{
		"api-key": m.APIKey,
	})
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// MockMailer is a test double that records every send.
type MockMailer struct {
	mu         sync.Mutex
	calls      []Message
	ShouldFail bool
	FailError  string
}

func (m *MockMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, msg)
	if m.ShouldFail {
		return fmt.Errorf("%s", m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded messages.
func (m *MockMailer) Calls() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.calls))
	copy(out, m.calls)
	return out
}
