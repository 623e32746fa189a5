// mailer/smtp.go
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/dalemusser/leadcapture/lead"
)

// Config holds SMTP server configuration.
type Config struct {
	// Host is the SMTP server hostname.
	Host string

	// Port is the SMTP server port (typically 587 for STARTTLS, 465 for SSL).
	Port int

	// Username and Password for SMTP authentication. Empty Username disables auth.
	Username string
	Password string

	// FromAddress is the sender email address.
	FromAddress string

	// FromName is the sender display name (optional).
	FromName string

	// UseSSL enables implicit SSL/TLS (for port 465). Otherwise STARTTLS is
	// mandatory.
	UseSSL bool

	// Timeout for SMTP operations (default: 30 seconds).
	Timeout time.Duration

	// Subject overrides the default confirmation subject line.
	Subject string
}

const defaultSubject = "Thanks for your interest"

// SMTP sends confirmation emails over SMTP.
type SMTP struct {
	cfg Config
}

// NewSMTP creates an SMTP sender with the given configuration.
func NewSMTP(cfg Config) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Subject == "" {
		cfg.Subject = defaultSubject
	}
	return &SMTP{cfg: cfg}
}

// SendConfirmation sends the confirmation message to the lead's (normalized)
// email address, carrying the request id as an X-Request-ID header.
func (s *SMTP) SendConfirmation(ctx context.Context, in lead.FormInput, requestID string) error {
	in = in.Normalize()

	m := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := m.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
			return fmt.Errorf("mailer: invalid from address: %w", err)
		}
	} else {
		if err := m.From(s.cfg.FromAddress); err != nil {
			return fmt.Errorf("mailer: invalid from address: %w", err)
		}
	}

	if err := m.To(in.Email); err != nil {
		return fmt.Errorf("mailer: invalid to address: %w", err)
	}

	m.Subject(s.cfg.Subject)
	m.SetGenHeader("X-Request-ID", requestID)
	m.SetBodyString(mail.TypeTextPlain, confirmationBody(in))

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	if s.cfg.UseSSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: failed to create client: %w", err)
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mailer: failed to send: %w", err)
	}
	return nil
}

func confirmationBody(in lead.FormInput) string {
	return fmt.Sprintf(
		"Hi %s,\n\n"+
			"Thanks for reaching out. We received your details (industry: %s) "+
			"and will be in touch shortly.\n\n"+
			"If you didn't submit this form, you can ignore this message.\n",
		in.Name, in.Industry,
	)
}
