package persistence

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mindbike/internal/sketch"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "mindbike.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIdeasRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	require.NoError(t, db.StartSession(ctx, SessionInfo{ID: "s1", Seed: 42, Width: 800, Height: 600, Analyzer: "local"}))

	ideas := []sketch.IdeaRecord{
		{Index: 1, Text: "seed", Intent: "question", X: 400, Y: 300, Frame: 0},
		{Index: 2, Text: "grow", Intent: "constructive argument", X: 450.5, Y: 280.25, Distance: 52.1, Frame: 140},
	}
	for _, r := range ideas {
		require.NoError(t, db.SaveIdea(ctx, "s1", r))
	}

	got, err := db.LoadIdeas(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ideas, got)

	none, err := db.LoadIdeas(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDuplicateIdeaIndexRejected(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	require.NoError(t, db.StartSession(ctx, SessionInfo{ID: "s1"}))

	r := sketch.IdeaRecord{Index: 1, Text: "once"}
	require.NoError(t, db.SaveIdea(ctx, "s1", r))
	assert.Error(t, db.SaveIdea(ctx, "s1", r))
}

func TestRecentSessions(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, db.StartSession(ctx, SessionInfo{
			ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour), Analyzer: "local",
		}))
	}
	require.NoError(t, db.SaveIdea(ctx, "mid", sketch.IdeaRecord{Index: 1, Text: "x"}))

	got, err := db.RecentSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, 1, got[1].Ideas)

	info, err := db.GetSession(ctx, "mid")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Ideas)
	assert.True(t, info.StartedAt.Equal(base.Add(time.Hour)))

	_, err = db.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMeta(t *testing.T) {
	db := openTest(t)
	require.NoError(t, db.SaveMeta("last_session", "a"))
	require.NoError(t, db.SaveMeta("last_session", "b"))

	v, err := db.GetMeta("last_session")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = db.GetMeta("absent")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestInMemory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SaveMeta("k", "v"))
}
