package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jessyrel/wedding-rsvp/internal/notify"
	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
	"github.com/jessyrel/wedding-rsvp/internal/storage"
	"github.com/jessyrel/wedding-rsvp/internal/validation"
)

// maxIDAttempts bounds how often Submit draws a new id after another
// instance sharing the store took the same one.
const maxIDAttempts = 5

// State is a step of a submission.
type State string

const (
	StateReceived     State = "received"
	StateValidated    State = "validated"
	StatePersisted    State = "persisted"
	StateNotified     State = "notified"
	StateAcknowledged State = "acknowledged"
	StateError        State = "error"
)

// Notifier sends the messages for a stored record.
type Notifier interface {
	Notify(ctx context.Context, rec rsvp.Record) notify.Outcome
}

// MetricsRecorder counts accepted submissions and failed notifications.
type MetricsRecorder interface {
	PublishSubmission(ctx context.Context, attending bool, failedMessages []string) error
}

type nopMetrics struct{}

func (nopMetrics) PublishSubmission(context.Context, bool, []string) error { return nil }

// Deps are the collaborators of a Pipeline. Metrics and IDs are optional.
type Deps struct {
	Validator *validation.Validator
	Store     storage.Store
	Notifier  Notifier
	Metrics   MetricsRecorder
	IDs       *rsvp.IDSource
	Logger    zerolog.Logger
}

// Pipeline runs one submission through validation, persistence and
// notification.
type Pipeline struct {
	validator *validation.Validator
	store     storage.Store
	notifier  Notifier
	metrics   MetricsRecorder
	ids       *rsvp.IDSource
	log       zerolog.Logger
	nowFunc   func() time.Time
}

func New(deps Deps) *Pipeline {
	p := &Pipeline{
		validator: deps.Validator,
		store:     deps.Store,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		ids:       deps.IDs,
		log:       deps.Logger.With().Str("component", "pipeline").Logger(),
		nowFunc:   time.Now,
	}
	if p.validator == nil {
		p.validator = validation.New()
	}
	if p.metrics == nil {
		p.metrics = nopMetrics{}
	}
	if p.ids == nil {
		p.ids = rsvp.NewIDSource(nil)
	}
	return p
}

// Submit validates req, appends the record and sends the notifications.
// A *validation.Error or a *storage.Error is returned before anything is
// sent; notification failures are logged and never returned.
func (p *Pipeline) Submit(ctx context.Context, req validation.SubmitRequest, submitterAddr string) (rsvp.Record, error) {
	log := p.log.With().Str("email", req.Email).Logger()
	log.Debug().Str("state", string(StateReceived)).Msg("submission received")

	if err := p.validator.Validate(&req); err != nil {
		log.Info().Err(err).Str("state", string(StateError)).Msg("submission rejected")
		return rsvp.Record{}, err
	}
	log.Debug().Str("state", string(StateValidated)).Msg("submission valid")

	rec := req.Record()
	rec.Timestamp = p.nowFunc().UTC()
	rec.SubmitterAddress = submitterAddr

	if err := p.append(ctx, &rec); err != nil {
		log.Error().Err(err).Int64("rsvp_id", rec.ID).Str("state", string(StateError)).Msg("failed to store RSVP")
		return rsvp.Record{}, err
	}
	log = log.With().Int64("rsvp_id", rec.ID).Logger()
	log.Info().Bool("attending", rec.Attending).Str("state", string(StatePersisted)).Msg("RSVP stored")

	// The record is committed; a client hanging up must not cut the
	// notifications short.
	ctx = context.WithoutCancel(ctx)

	out := p.notifier.Notify(ctx, rec)
	failed := out.Failed()
	if len(failed) > 0 {
		log.Warn().Strs("failed", failed).Str("state", string(StateNotified)).Msg("RSVP stored but some notifications failed")
	} else {
		log.Debug().Str("state", string(StateNotified)).Msg("notifications sent")
	}

	if err := p.metrics.PublishSubmission(ctx, rec.Attending, failed); err != nil {
		log.Warn().Err(err).Msg("failed to publish metrics")
	}

	log.Debug().Str("state", string(StateAcknowledged)).Msg("submission complete")
	return rec, nil
}

// append stores rec under a fresh id, drawing another one when the id is
// already taken.
func (p *Pipeline) append(ctx context.Context, rec *rsvp.Record) error {
	var err error
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		rec.ID = p.ids.Next()
		err = p.store.Append(ctx, *rec)
		if !errors.Is(err, storage.ErrDuplicateID) {
			return err
		}
		p.log.Warn().Int64("rsvp_id", rec.ID).Int("attempt", attempt).Msg("id already taken, retrying")
	}
	return err
}
