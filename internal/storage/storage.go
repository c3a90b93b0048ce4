package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jessyrel/wedding-rsvp/internal/aws"
	"github.com/jessyrel/wedding-rsvp/internal/config"
	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
)

// Store is the durable, append-only RSVP collection.
type Store interface {
	// Initialize makes sure the backing container exists and holds a valid
	// collection. It is idempotent and cheap enough to call before every
	// operation.
	Initialize(ctx context.Context) error
	// Append adds one record. A reader never observes a partial write.
	Append(ctx context.Context, rec rsvp.Record) error
	// ReadAll returns every record in insertion order.
	ReadAll(ctx context.Context) ([]rsvp.Record, error)
	// Statistics summarises the collection.
	Statistics(ctx context.Context) (rsvp.Statistics, error)
	Close() error
}

// ErrDuplicateID is returned by Append when a record with the same id exists.
var ErrDuplicateID = errors.New("record id already exists")

// Error is a failed store operation. It is fatal to the request that caused it.
type Error struct {
	Op  string // initialize, read, append, statistics
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// Deps carries the clients a backend may need.
type Deps struct {
	DynamoDB aws.DynamoDBAPI
	Logger   zerolog.Logger
}

// Open builds the backend selected by cfg.Driver and initializes it.
func Open(ctx context.Context, cfg config.StoreConfig, deps Deps) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.DriverFile:
		s = NewFileStore(cfg.DataFile, deps.Logger)
	case config.DriverSQLite, config.DriverMySQL:
		s, err = OpenSQLStore(cfg.Driver, cfg.DSN)
	case config.DriverDynamoDB:
		if deps.DynamoDB == nil {
			return nil, fmt.Errorf("dynamodb store requires a DynamoDB client")
		}
		s = NewDynamoStore(deps.DynamoDB, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Initialize(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
