package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "data", "rsvp.json"), zerolog.Nop())
}

func intPtr(n int) *int { return &n }

func record(id int64, attending bool, guests *int) rsvp.Record {
	return rsvp.Record{
		ID:        id,
		Name:      "Guest",
		Email:     "guest@example.com",
		Attending: attending,
		Guests:    guests,
		Timestamp: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFileStore_InitializeCreatesEmptyCollection(t *testing.T) {
	s := newTestFileStore(t)

	require.NoError(t, s.Initialize(context.Background()))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"rsvps": []}`, string(data))
}

func TestFileStore_InitializeIsIdempotent(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, record(1, true, intPtr(2))))
	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Initialize(ctx))
	}

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileStore_CorruptFileIsReplacedAndPreserved(t *testing.T) {
	for name, content := range map[string]string{
		"invalid json":  "{not json",
		"empty":         "   \n",
		"missing rsvps": `{"guests": []}`,
		"null rsvps":    `{"rsvps": null}`,
	} {
		t.Run(name, func(t *testing.T) {
			s := newTestFileStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
			require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

			records, err := s.ReadAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, records)

			data, err := os.ReadFile(s.Path())
			require.NoError(t, err)
			assert.JSONEq(t, `{"rsvps": []}`, string(data))

			backups, err := filepath.Glob(s.Path() + ".corrupt-*")
			require.NoError(t, err)
			if name == "empty" {
				assert.Empty(t, backups, "an empty file has nothing to preserve")
			} else {
				assert.Len(t, backups, 1)
			}
		})
	}
}

func TestFileStore_AppendPreservesOrder(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, s.Append(ctx, record(id, true, nil)))
	}

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, int64(i+1), r.ID)
	}
	assert.True(t, records[0].Timestamp.Equal(time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)))
}

func TestFileStore_AppendRejectsDuplicateID(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, record(7, true, nil)))
	err := s.Append(ctx, record(7, false, nil))
	assert.ErrorIs(t, err, ErrDuplicateID)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "append", se.Op)
}

func TestFileStore_ConcurrentAppendsKeepEveryRecord(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, record(id, id%2 == 0, nil)))
		}(int64(i))
	}
	wg.Wait()

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, n)

	seen := map[int64]bool{}
	for _, r := range records {
		seen[r.ID] = true
	}
	assert.Len(t, seen, n)
}

func TestFileStore_Statistics(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, record(1, true, intPtr(2))))
	require.NoError(t, s.Append(ctx, record(2, false, nil)))
	require.NoError(t, s.Append(ctx, record(3, true, intPtr(1))))

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, rsvp.Statistics{Total: 3, Attending: 2, NotAttending: 1, TotalGuests: 3}, stats)
}

func TestFileStore_CanceledContext(t *testing.T) {
	s := newTestFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Append(ctx, record(1, true, nil))
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr), "nothing may be written after cancellation")
}
