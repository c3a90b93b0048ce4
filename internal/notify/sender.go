package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/jessyrel/wedding-rsvp/internal/config"
)

// Message is one outgoing email with a plain text and an HTML body.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends through an SMTP relay. A client is built per send so a
// dropped connection never poisons later submissions.
type SMTPSender struct {
	cfg config.MailConfig
}

// NewSMTPSender returns a sender for the relay described by cfg.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Password),
		)
	}

	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return c, nil
}

// Send builds a multipart/alternative message and delivers it.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.From()); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	c, err := s.client()
	if err != nil {
		return err
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// Verify dials the relay, authenticates and hangs up.
func (s *SMTPSender) Verify(ctx context.Context) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	if err := c.DialWithContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	return c.Close()
}

// LogSender writes messages to the log instead of sending them. Used in
// development when no SMTP host is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("mail transport disabled, message not sent")
	s.log.Debug().Str("to", msg.To).Msg(msg.Text)
	return nil
}
