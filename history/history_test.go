package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	j, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteJournal_RecordAndRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, Entry{
		Username:  "alice",
		Outcome:   "ConnectionError",
		Reason:    "login page elements not found",
		Attempt:   1,
		Headless:  true,
		StartedAt: base,
		Duration:  1500 * time.Millisecond,
	}))
	require.NoError(t, j.Record(ctx, Entry{
		ID:        "fixed-id",
		Username:  "alice",
		Outcome:   "Success",
		Attempt:   2,
		Headless:  true,
		StartedAt: base.Add(time.Minute),
		Duration:  3 * time.Second,
	}))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "fixed-id", entries[0].ID)
	assert.Equal(t, "Success", entries[0].Outcome)
	assert.Equal(t, 2, entries[0].Attempt)
	assert.Equal(t, 3*time.Second, entries[0].Duration)
	assert.True(t, entries[0].StartedAt.Equal(base.Add(time.Minute)))

	assert.NotEmpty(t, entries[1].ID)
	assert.Equal(t, "login page elements not found", entries[1].Reason)
	assert.True(t, entries[1].Headless)
}

func TestSQLiteJournal_RecentLimit(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, Entry{
			Username:  "bob",
			Outcome:   "UnknownFailure",
			Attempt:   i + 1,
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 5, entries[0].Attempt)
	assert.Equal(t, 3, entries[2].Attempt)

	entries, err = j.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), Entry{Username: "carol", Outcome: "Success", StartedAt: time.Now()}))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "carol", entries[0].Username)
}
