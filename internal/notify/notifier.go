package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jessyrel/wedding-rsvp/internal/config"
	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Kind names one of the two messages sent per submission.
type Kind string

const (
	KindGuest     Kind = "GuestConfirmation"
	KindOrganizer Kind = "OrganizerNotification"
)

// ErrNoRecipient is returned when a message has nowhere to go.
var ErrNoRecipient = errors.New("no recipient address")

// SendError is a failed notification. It never fails the submission.
type SendError struct {
	Kind Kind
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Outcome holds the result of each message; a nil field means it was sent.
type Outcome struct {
	Guest     error
	Organizer error
}

// Failed lists the kinds of the messages that were not sent.
func (o Outcome) Failed() []string {
	var failed []string
	if o.Guest != nil {
		failed = append(failed, string(KindGuest))
	}
	if o.Organizer != nil {
		failed = append(failed, string(KindOrganizer))
	}
	return failed
}

// Notifier renders and sends the guest confirmation and the organizer
// notification for a stored record.
type Notifier struct {
	sender    Sender
	event     config.EventConfig
	location  *time.Location
	organizer string
	timeout   time.Duration
	log       zerolog.Logger
	nowFunc   func() time.Time

	text *texttemplate.Template
	html *htmltemplate.Template
}

// New builds a Notifier. The organizer address falls back to the sender
// address when COUPLE_EMAIL is not set.
func New(sender Sender, mailCfg config.MailConfig, event config.EventConfig, log zerolog.Logger) (*Notifier, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}

	organizer := mailCfg.OrganizerAddr
	if organizer == "" {
		organizer = mailCfg.From()
	}
	timeout := mailCfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Notifier{
		sender:    sender,
		event:     event,
		location:  event.Location(),
		organizer: organizer,
		timeout:   timeout,
		log:       log.With().Str("component", "notifier").Logger(),
		nowFunc:   time.Now,
		text:      text,
		html:      html,
	}, nil
}

type templateData struct {
	Record        rsvp.Record
	Guests        int
	Event         config.EventConfig
	OrganizerAddr string
	ReceivedAt    string
}

// Notify sends both messages concurrently and waits for both. Each send has
// its own timeout and its own result; one failing never affects the other.
func (n *Notifier) Notify(ctx context.Context, rec rsvp.Record) Outcome {
	data := templateData{
		Record:        rec,
		Guests:        rec.GuestCount(),
		Event:         n.event,
		OrganizerAddr: n.organizer,
		ReceivedAt:    n.nowFunc().In(n.location).Format("Monday, January 2, 2006 at 03:04 PM MST"),
	}

	var (
		out Outcome
		g   errgroup.Group
	)
	g.Go(func() error {
		out.Guest = n.send(ctx, KindGuest, rec.Email, n.guestSubject(), "guest", data)
		return nil
	})
	g.Go(func() error {
		out.Organizer = n.send(ctx, KindOrganizer, n.organizer, organizerSubject(rec), "organizer", data)
		return nil
	})
	_ = g.Wait()

	return out
}

func (n *Notifier) send(ctx context.Context, kind Kind, to, subject, tmpl string, data templateData) (err error) {
	log := n.log.With().Str("message", string(kind)).Int64("rsvp_id", data.Record.ID).Logger()
	defer func() {
		if r := recover(); r != nil {
			err = &SendError{Kind: kind, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			log.Warn().Err(err).Msg("notification failed")
			return
		}
		log.Info().Str("to", to).Msg("notification sent")
	}()

	if to == "" {
		return &SendError{Kind: kind, Err: ErrNoRecipient}
	}

	msg, err := n.render(tmpl, data)
	if err != nil {
		return &SendError{Kind: kind, Err: err}
	}
	msg.To = to
	msg.Subject = subject

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.sender.Send(ctx, msg); err != nil {
		return &SendError{Kind: kind, Err: err}
	}
	return nil
}

func (n *Notifier) render(name string, data templateData) (Message, error) {
	var text, html bytes.Buffer
	if err := n.text.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := n.html.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return Message{Text: text.String(), HTML: html.String()}, nil
}

func (n *Notifier) guestSubject() string {
	return fmt.Sprintf("RSVP Confirmation - %s's Wedding", n.event.CoupleNames)
}

func organizerSubject(rec rsvp.Record) string {
	status := "NOT ATTENDING"
	if rec.Attending {
		status = "ATTENDING"
	}
	return fmt.Sprintf("New RSVP: %s - %s", rec.Name, status)
}
