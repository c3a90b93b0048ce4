package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS rsvps (
	id BIGINT NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(32) NOT NULL DEFAULT '',
	attending BOOLEAN NOT NULL,
	guests INTEGER NULL,
	dietary_restrictions TEXT NOT NULL,
	message TEXT NOT NULL,
	created_at VARCHAR(40) NOT NULL,
	submitter_address VARCHAR(64) NOT NULL DEFAULT ''
)`

const sqlInsert = `
INSERT INTO rsvps (id, name, email, phone, attending, guests, dietary_restrictions, message, created_at, submitter_address)
VALUES (:id, :name, :email, :phone, :attending, :guests, :dietary_restrictions, :message, :created_at, :submitter_address)`

const sqlSelectAll = `
SELECT id, name, email, phone, attending, guests, dietary_restrictions, message, created_at, submitter_address
FROM rsvps
ORDER BY id`

const sqlStatistics = `
SELECT
	COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN attending THEN 1 ELSE 0 END), 0) AS attending,
	COALESCE(SUM(CASE WHEN attending THEN 0 ELSE 1 END), 0) AS not_attending,
	COALESCE(SUM(CASE WHEN attending THEN COALESCE(guests, 1) ELSE 0 END), 0) AS total_guests
FROM rsvps`

// sqlRow is a record as stored in the rsvps table; the timestamp is kept
// as RFC 3339 text so sqlite and mysql read it back the same way.
type sqlRow struct {
	rsvp.Record
	CreatedAt string `db:"created_at"`
}

// SQLStore persists records in a relational table through sqlx. Each append
// is a single INSERT, so atomicity and write ordering come from the database.
type SQLStore struct {
	db *sqlx.DB
}

// OpenSQLStore connects with driver ("sqlite3" or "mysql") and dsn.
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	if driver == "sqlite3" {
		// sqlite allows one writer; an in-memory database also lives on a
		// single connection.
		db.SetMaxOpenConns(1)
	}
	return NewSQLStore(db), nil
}

// NewSQLStore wraps an open connection pool.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Initialize creates the rsvps table when missing.
func (s *SQLStore) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqlSchema); err != nil {
		return &Error{Op: "initialize", Err: fmt.Errorf("create table: %w", err)}
	}
	return nil
}

func (s *SQLStore) Append(ctx context.Context, rec rsvp.Record) error {
	row := sqlRow{Record: rec, CreatedAt: rec.Timestamp.UTC().Format(time.RFC3339Nano)}
	if _, err := s.db.NamedExecContext(ctx, sqlInsert, row); err != nil {
		if isDuplicateKey(err) {
			return &Error{Op: "append", Err: ErrDuplicateID}
		}
		return &Error{Op: "append", Err: fmt.Errorf("insert: %w", err)}
	}
	return nil
}

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a primary key or unique violation.
func isDuplicateKey(err error) bool {
	var le sqlite3.Error
	if errors.As(err, &le) {
		return le.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || le.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return false
}

func (s *SQLStore) ReadAll(ctx context.Context) ([]rsvp.Record, error) {
	var rows []sqlRow
	if err := s.db.SelectContext(ctx, &rows, sqlSelectAll); err != nil {
		return nil, &Error{Op: "read", Err: fmt.Errorf("select: %w", err)}
	}

	records := make([]rsvp.Record, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			return nil, &Error{Op: "read", Err: fmt.Errorf("record %d timestamp: %w", row.ID, err)}
		}
		rec := row.Record
		rec.Timestamp = ts
		records = append(records, rec)
	}
	return records, nil
}

// Statistics aggregates in the database rather than loading every row.
func (s *SQLStore) Statistics(ctx context.Context) (rsvp.Statistics, error) {
	var stats rsvp.Statistics
	if err := s.db.GetContext(ctx, &stats, sqlStatistics); err != nil {
		return rsvp.Statistics{}, &Error{Op: "statistics", Err: err}
	}
	return stats, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
