package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jessyrel/wedding-rsvp/internal/config"
	"github.com/jessyrel/wedding-rsvp/internal/notify"
	"github.com/jessyrel/wedding-rsvp/internal/storage"
	"github.com/jessyrel/wedding-rsvp/internal/validation"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:   config.EnvDevelopment,
		Port:  5000,
		Store: config.StoreConfig{Driver: config.DriverFile, DataFile: filepath.Join(t.TempDir(), "rsvp.json")},
		Mail:  config.MailConfig{Timeout: time.Second, FromAddress: "wedding@example.com"},
		Event: config.EventConfig{CoupleNames: "Jesseca & Syrel", TimeZone: "UTC"},
	}
}

func TestNew_DevelopmentWithoutSMTP(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &storage.FileStore{}, a.Store)
	assert.IsType(t, &notify.LogSender{}, a.Sender)

	rec, err := a.Pipeline.Submit(context.Background(), validation.SubmitRequest{
		Name:      "Ana Cruz",
		Email:     "ana@example.com",
		Attending: validation.Attend(true),
	}, "")
	require.NoError(t, err)

	records, err := a.Store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestNew_SMTPSenderWhenHostSet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mail.Host = "smtp.example.com"
	cfg.Mail.Port = 587

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &notify.SMTPSender{}, a.Sender)
}

func TestNeedsAWS(t *testing.T) {
	cfg := testConfig(t)
	assert.False(t, needsAWS(cfg))

	cfg.MetricsNamespace = "WeddingRSVP"
	assert.True(t, needsAWS(cfg))

	cfg.MetricsNamespace = ""
	cfg.Store.Driver = config.DriverDynamoDB
	assert.True(t, needsAWS(cfg))
}
