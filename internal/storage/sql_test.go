package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLStore("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestSQLStore_InitializeIsIdempotent(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, record(1, true, nil)))
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLStore_AppendAndReadAll(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	first := record(10, true, intPtr(2))
	first.Phone = "+639171234567"
	first.DietaryRestrictions = "no nuts"
	first.SubmitterAddress = "203.0.113.9"
	second := record(11, false, nil)
	second.Message = "Congratulations!"

	require.NoError(t, s.Append(ctx, first))
	require.NoError(t, s.Append(ctx, second))

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, "+639171234567", records[0].Phone)
	assert.Equal(t, "no nuts", records[0].DietaryRestrictions)
	require.NotNil(t, records[0].Guests)
	assert.Equal(t, 2, *records[0].Guests)
	assert.True(t, records[0].Attending)
	assert.True(t, records[0].Timestamp.Equal(first.Timestamp))

	assert.False(t, records[1].Attending)
	assert.Nil(t, records[1].Guests)
	assert.Equal(t, "Congratulations!", records[1].Message)
}

func TestSQLStore_DuplicateIDFails(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, record(1, true, nil)))
	err := s.Append(ctx, record(1, true, nil))

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "append", se.Op)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'PRIMARY'"}))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1146, Message: "Table 'rsvps' doesn't exist"}))
	assert.False(t, isDuplicateKey(errors.New("connection refused")))
}

func TestSQLStore_Statistics(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, rsvp.Statistics{}, stats)

	require.NoError(t, s.Append(ctx, record(1, true, intPtr(2))))
	require.NoError(t, s.Append(ctx, record(2, false, nil)))
	require.NoError(t, s.Append(ctx, record(3, true, intPtr(1))))
	require.NoError(t, s.Append(ctx, record(4, true, nil)))

	stats, err = s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, rsvp.Statistics{Total: 4, Attending: 3, NotAttending: 1, TotalGuests: 4}, stats)
}
