package delivery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"
	"gopkg.in/gomail.v2"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

// EmailSender delivers the finished digest over SMTP with a plain-text body
// and an HTML alternative rendered from the digest markdown.
type EmailSender struct {
	cfg    config.EmailConfig
	logger *slog.Logger
	send   func(*gomail.Message) error
}

var _ ports.Deliverer = (*EmailSender)(nil)

// NewEmailSender builds a sender from configuration.
func NewEmailSender(cfg config.EmailConfig, logger *slog.Logger) *EmailSender {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &EmailSender{
		cfg:    cfg,
		logger: logger,
		send: func(m *gomail.Message) error {
			return dialer.DialAndSend(m)
		},
	}
}

// Deliver sends the digest. Delivery is best-effort: the caller treats an
// error here as a degradation, not a run failure.
func (e *EmailSender) Deliver(_ context.Context, digest domain.Digest) error {
	if e.cfg.Host == "" || e.cfg.To == "" {
		return fmt.Errorf("email sender misconfigured")
	}

	from := e.cfg.From
	if from == "" {
		from = e.cfg.Username
	}

	html, err := renderHTML(digest.Markdown)
	if err != nil {
		return fmt.Errorf("render digest html: %w", err)
	}

	message := gomail.NewMessage()
	message.SetHeader("From", from)
	message.SetHeader("To", e.cfg.To)
	message.SetHeader("Subject", fmt.Sprintf("Daily Digest - %s", digest.GeneratedAt.Format("January 2, 2006")))
	message.SetBody("text/plain", digest.Markdown)
	message.AddAlternative("text/html", html)

	if err := e.send(message); err != nil {
		return fmt.Errorf("send digest email: %w", err)
	}

	if e.logger != nil {
		e.logger.Info("digest emailed", "to", e.cfg.To)
	}
	return nil
}

// renderHTML converts the digest markdown to a self-contained HTML document.
func renderHTML(markdown string) (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &body); err != nil {
		return "", err
	}

	return fmt.Sprintf(`<html>
  <head>
    <style>
      body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif;
             line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
      h1 { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
      h2 { color: #34495e; margin-top: 30px; }
      a { color: #3498db; text-decoration: none; }
      a:hover { text-decoration: underline; }
      hr { border: none; border-top: 1px solid #eee; margin: 30px 0; }
    </style>
  </head>
  <body>
%s  </body>
</html>
`, body.String()), nil
}
