package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
)

// FileStore keeps the collection in one JSON document. Every operation holds
// the mutex for its whole read-modify-write, so concurrent appends within the
// process are serialized and none is lost.
type FileStore struct {
	mu      sync.Mutex
	path    string
	log     zerolog.Logger
	nowFunc func() time.Time
}

// NewFileStore creates a store backed by the file at path. Nothing touches
// the disk until the first operation.
func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{
		path:    path,
		log:     log.With().Str("component", "file-store").Logger(),
		nowFunc: time.Now,
	}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Initialize creates the file if it is missing, empty or unparseable. A valid
// file is left byte-for-byte untouched.
func (s *FileStore) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wrap("initialize", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.load()
	return wrap("initialize", err)
}

// Append reads the collection, adds rec and writes it back atomically.
func (s *FileStore) Append(ctx context.Context, rec rsvp.Record) error {
	if err := ctx.Err(); err != nil {
		return wrap("append", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.load()
	if err != nil {
		return wrap("append", err)
	}
	for _, r := range col.RSVPs {
		if r.ID == rec.ID {
			return &Error{Op: "append", Err: ErrDuplicateID}
		}
	}
	col.RSVPs = append(col.RSVPs, rec)
	return wrap("append", s.save(col))
}

// ReadAll returns the records in insertion order. A corrupt file reads as
// empty (and is reset) instead of failing the request.
func (s *FileStore) ReadAll(ctx context.Context) ([]rsvp.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("read", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.load()
	if err != nil {
		return nil, wrap("read", err)
	}
	return col.RSVPs, nil
}

// Statistics scans the whole collection.
func (s *FileStore) Statistics(ctx context.Context) (rsvp.Statistics, error) {
	records, err := s.ReadAll(ctx)
	if err != nil {
		return rsvp.Statistics{}, wrap("statistics", err)
	}
	return rsvp.ComputeStatistics(records), nil
}

func (s *FileStore) Close() error { return nil }

// load returns the current collection, repairing the file when needed.
// Caller must hold mu.
func (s *FileStore) load() (rsvp.Collection, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.reset(false)
	}
	if err != nil {
		return rsvp.Collection{}, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s.reset(false)
	}

	var doc struct {
		RSVPs *[]rsvp.Record `json:"rsvps"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || doc.RSVPs == nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("RSVP file is corrupt, resetting")
		return s.reset(true)
	}
	return rsvp.Collection{RSVPs: *doc.RSVPs}, nil
}

// reset writes the canonical empty collection. With keepCorrupt the current
// file is first renamed aside so its contents can be recovered by hand.
func (s *FileStore) reset(keepCorrupt bool) (rsvp.Collection, error) {
	if keepCorrupt {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, s.nowFunc().UnixNano())
		if err := os.Rename(s.path, backup); err != nil {
			return rsvp.Collection{}, fmt.Errorf("failed to move corrupt file aside: %w", err)
		}
		s.log.Warn().Str("backup", backup).Msg("corrupt RSVP file preserved")
	}

	col := rsvp.Collection{RSVPs: []rsvp.Record{}}
	if err := s.save(col); err != nil {
		return rsvp.Collection{}, err
	}
	s.log.Info().Str("path", s.path).Msg("RSVP data file initialized")
	return col, nil
}

// save writes col to a temp file in the same directory and renames it over
// the target, so readers see either the old or the new document.
func (s *FileStore) save(col rsvp.Collection) error {
	if col.RSVPs == nil {
		col.RSVPs = []rsvp.Record{}
	}
	data, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}
