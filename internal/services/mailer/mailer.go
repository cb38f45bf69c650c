// Package mailer delivers password reset links.
//
// In development no SMTP server is configured, so the link is written to the
// log instead. That keeps the forgot-password flow usable locally.
package mailer

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/wneessen/go-mail"
)

// Sender delivers a password reset link to a user.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

// Config holds SMTP settings. An empty Host selects the log sender.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// New returns an SMTP sender, or a log sender when no host is configured.
func New(cfg Config) Sender {
	if cfg.Host == "" {
		log.Println("⚠️  SMTP_HOST not set, password reset links will be logged instead of mailed")
		return LogSender{}
	}
	return &SMTPSender{cfg: cfg}
}

// ResetLink appends the token to the frontend's reset page URL.
func ResetLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid reset URL base: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	cfg Config
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, name, link string) error {
	msg, err := resetMessage(s.cfg.From, to, name, link)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}
	return nil
}

func resetMessage(from, to, name, link string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("Reset your Result Analyser password")
	msg.SetBodyString(mail.TypeTextPlain, resetBody(name, link))
	return msg, nil
}

func resetBody(name, link string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`Hi %s,

Someone asked to reset the password for your Result Analyser account.
Open the link below within one hour to choose a new password:

%s

If you didn't ask for this, you can ignore this email.
`, name, link)
}

// LogSender writes reset links to the application log.
type LogSender struct{}

func (LogSender) SendPasswordReset(_ context.Context, to, _, link string) error {
	log.Printf("📧 Password reset for %s: %s", to, link)
	return nil
}
