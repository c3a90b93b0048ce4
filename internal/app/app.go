package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jessyrel/wedding-rsvp/internal/aws"
	"github.com/jessyrel/wedding-rsvp/internal/config"
	"github.com/jessyrel/wedding-rsvp/internal/notify"
	"github.com/jessyrel/wedding-rsvp/internal/pipeline"
	"github.com/jessyrel/wedding-rsvp/internal/storage"
)

// App holds the wired components shared by the API and the admin CLI.
type App struct {
	Config   *config.Config
	Store    storage.Store
	Sender   notify.Sender
	Notifier *notify.Notifier
	Pipeline *pipeline.Pipeline
	Logger   zerolog.Logger
}

// needsAWS reports whether any component talks to AWS.
func needsAWS(cfg *config.Config) bool {
	return cfg.Store.Driver == config.DriverDynamoDB || cfg.MetricsNamespace != ""
}

// New builds the store, mail sender, notifier and pipeline for cfg.
// AWS clients are only created when the DynamoDB store or metrics are
// configured.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	var clients *aws.AWSClients
	if needsAWS(cfg) {
		var err error
		clients, err = aws.NewAWSClients(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to init aws clients: %w", err)
		}
	}

	deps := storage.Deps{Logger: log}
	if clients != nil {
		deps.DynamoDB = clients.DynamoDB
	}
	store, err := storage.Open(ctx, cfg.Store, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	var sender notify.Sender
	if cfg.Mail.Enabled() {
		sender = notify.NewSMTPSender(cfg.Mail)
	} else {
		log.Warn().Msg("EMAIL_HOST not set, notifications will only be logged")
		sender = notify.NewLogSender(log.With().Str("component", "mail").Logger())
	}

	notifier, err := notify.New(sender, cfg.Mail, cfg.Event, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var metrics pipeline.MetricsRecorder
	if cfg.MetricsNamespace != "" {
		metrics = aws.NewMetricsPublisher(clients.CloudWatch, cfg.MetricsNamespace)
	}

	p := pipeline.New(pipeline.Deps{
		Store:    store,
		Notifier: notifier,
		Metrics:  metrics,
		Logger:   log,
	})

	return &App{
		Config:   cfg,
		Store:    store,
		Sender:   sender,
		Notifier: notifier,
		Pipeline: p,
		Logger:   log,
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
