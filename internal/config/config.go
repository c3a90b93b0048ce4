package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Environments recognised by APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers recognised by STORE_DRIVER.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverDynamoDB = "dynamodb"
)

// Config is the configuration for the API and the admin CLI.
type Config struct {
	// Env is the environment we're executing in
	Env string `env:"APP_ENV" envDefault:"development"`

	// Port is the listening port when running as a plain HTTP server
	Port int `env:"PORT" envDefault:"5000"`

	// RunLocal selects the HTTP server instead of the Lambda adapter
	RunLocal bool `env:"RUN_LOCAL" envDefault:"false"`

	// BasePath prefixes every route, e.g. "/api"
	BasePath string `env:"BASE_PATH"`

	// FrontendURL is the allowed CORS origin; empty allows any origin
	FrontendURL string `env:"FRONTEND_URL"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// AdminToken gates the administrative routes
	AdminToken string `env:"ADMIN_TOKEN"`

	// MetricsNamespace enables CloudWatch metrics when set
	MetricsNamespace string `env:"METRICS_NAMESPACE"`

	Store StoreConfig
	Mail  MailConfig
	Event EventConfig
}

// StoreConfig selects and configures the RSVP store backend.
type StoreConfig struct {
	Driver   string `env:"STORE_DRIVER" envDefault:"file"`
	DataFile string `env:"DATA_FILE" envDefault:"data/rsvp.json"`
	DSN      string `env:"STORE_DSN"`
	Table    string `env:"RSVP_TABLE"`
}

// MailConfig configures the SMTP transport and the organizer address.
type MailConfig struct {
	Host          string        `env:"EMAIL_HOST"`
	Port          int           `env:"EMAIL_PORT" envDefault:"587"`
	Secure        bool          `env:"EMAIL_SECURE" envDefault:"false"`
	User          string        `env:"EMAIL_USER"`
	Password      string        `env:"EMAIL_PASS"`
	FromName      string        `env:"EMAIL_FROM_NAME" envDefault:"Jesseca & Syrel Wedding"`
	FromAddress   string        `env:"EMAIL_FROM"`
	OrganizerAddr string        `env:"COUPLE_EMAIL"`
	Timeout       time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
}

// From returns the sender address, falling back to the SMTP user.
func (m MailConfig) From() string {
	if m.FromAddress != "" {
		return m.FromAddress
	}
	return m.User
}

// Enabled reports whether an SMTP transport is configured.
func (m MailConfig) Enabled() bool { return m.Host != "" }

// EventConfig holds the details printed in the guest confirmation.
type EventConfig struct {
	CoupleNames string `env:"COUPLE_NAMES" envDefault:"Jesseca & Syrel"`
	Date        string `env:"EVENT_DATE" envDefault:"October 16, 2025"`
	Time        string `env:"EVENT_TIME" envDefault:"9:30 AM"`
	Venue       string `env:"EVENT_VENUE" envDefault:"St. Anthony Parish Church"`
	Address     string `env:"EVENT_ADDRESS" envDefault:"Poblacion Norte, Carmen, Bohol"`
	DressCode   string `env:"DRESS_CODE" envDefault:"Formal attire in shades of maroon and beige"`
	TimeZone    string `env:"EVENT_TIMEZONE" envDefault:"UTC"`
}

// Location resolves TimeZone, falling back to UTC.
func (e EventConfig) Location() *time.Location {
	loc, err := time.LoadLocation(e.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Error lists every configuration problem found.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// Validate returns a *Error when the configuration cannot serve requests.
// Production requires a working mail transport and an admin token so these
// problems surface at startup rather than per request.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		add("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}

	if c.Port < 1 || c.Port > 65535 {
		add("PORT out of range: %d", c.Port)
	}
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		add("BASE_PATH must start with /")
	}
	if c.FrontendURL != "" && !strings.HasPrefix(c.FrontendURL, "http://") && !strings.HasPrefix(c.FrontendURL, "https://") {
		add("FRONTEND_URL must be an http:// or https:// origin")
	}

	switch c.Store.Driver {
	case DriverFile:
		if c.Store.DataFile == "" {
			add("DATA_FILE is required for the file store")
		}
	case DriverSQLite, DriverMySQL:
		if c.Store.DSN == "" {
			add("STORE_DSN is required for the %s store", c.Store.Driver)
		}
	case DriverDynamoDB:
		if c.Store.Table == "" {
			add("RSVP_TABLE is required for the dynamodb store")
		}
	default:
		add("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Mail.Timeout <= 0 {
		add("NOTIFY_TIMEOUT must be positive")
	}
	if c.Mail.Enabled() {
		if c.Mail.Port < 1 || c.Mail.Port > 65535 {
			add("EMAIL_PORT out of range: %d", c.Mail.Port)
		}
		if c.Mail.From() == "" {
			add("EMAIL_FROM or EMAIL_USER is required to send mail")
		}
	}

	if c.IsProduction() {
		if !c.Mail.Enabled() {
			add("EMAIL_HOST is required in production")
		}
		if c.Mail.User == "" || c.Mail.Password == "" {
			add("EMAIL_USER and EMAIL_PASS are required in production")
		}
		if c.Mail.OrganizerAddr == "" {
			add("COUPLE_EMAIL is required in production")
		}
		if c.AdminToken == "" {
			add("ADMIN_TOKEN is required in production")
		}
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}
