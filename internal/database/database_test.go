package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "pixelbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewCreatesSchema(t *testing.T) {
	db := newTestDB(t)

	var n int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('runs','files')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, column := range []string{"decoder", "encoding"} {
		var exists bool
		err = db.db.QueryRow(`SELECT COUNT(*) > 0 FROM pragma_table_info('files') WHERE name = ?`, column).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, column)
	}
}

func TestNewMigratesOlderLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixelbox.db")

	old, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = old.Exec(`CREATE TABLE files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		fingerprint TEXT NOT NULL DEFAULT '',
		target TEXT NOT NULL,
		background TEXT NOT NULL,
		status TEXT NOT NULL,
		phase TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		source_format TEXT NOT NULL DEFAULT '',
		stride INTEGER NOT NULL DEFAULT 0,
		output_bytes INTEGER NOT NULL DEFAULT 0,
		output_path TEXT NOT NULL DEFAULT '',
		processed_at INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	_, err = old.Exec(`INSERT INTO files (run_id, name, fingerprint, target, background, status, processed_at)
		VALUES ('r0', 'a.png', 'abc', '8x8', '#000000', 'processed', 1)`)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	db, err := New(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	// Rows from before the encoding column never match a current key.
	got, err := db.LastProcessed(context.Background(), "a.png",
		OutputKey{Fingerprint: "abc", Target: "8x8", Background: "#000000", Encoding: "png"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewReopensExistingLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixelbox.db")
	ctx := context.Background()

	db, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.BeginRun(ctx, Run{ID: "r1", Trigger: "startup", StartedAt: time.Now(), Target: "4x4", Background: "#000000"}))
	require.NoError(t, db.Close())

	db, err = New(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, path, db.Path())

	runs, err := db.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
}

func TestRunLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	started := time.Now().Add(-time.Second)

	require.NoError(t, db.BeginRun(ctx, Run{ID: "a", Trigger: "api", StartedAt: started, Target: "1280x720", Background: "#000000"}))
	require.NoError(t, db.FinishRun(ctx, Run{ID: "a", FinishedAt: time.Now(), Processed: 3, Skipped: 1, Failed: 2}))

	runs, err := db.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, "api", r.Trigger)
	assert.Equal(t, 3, r.Processed)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 2, r.Failed)
	assert.Equal(t, started.UnixMilli(), r.StartedAt.UnixMilli())
	assert.False(t, r.FinishedAt.IsZero())
}

func TestFinishRunUnknownID(t *testing.T) {
	db := newTestDB(t)
	err := db.FinishRun(context.Background(), Run{ID: "missing", FinishedAt: time.Now()})
	assert.Error(t, err)
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, db.BeginRun(ctx, Run{
			ID: id, Trigger: "watch", StartedAt: base.Add(time.Duration(i) * time.Minute),
			Target: "4x4", Background: "#000000",
		}))
	}

	runs, err := db.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.True(t, runs[0].FinishedAt.IsZero())
}

func TestLastProcessed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.BeginRun(ctx, Run{ID: "r", Trigger: "startup", StartedAt: time.Now(), Target: "8x8", Background: "#000000"}))

	rec := FileRecord{
		RunID: "r", Name: "a.png", Fingerprint: "abc", Target: "8x8", Background: "#000000",
		Encoding: "png", Status: StatusProcessed, SourceFormat: "png", Decoder: "native", Stride: 2,
		OutputBytes: 123, OutputPath: "/out/a.png", ProcessedAt: time.Now(),
	}
	require.NoError(t, db.RecordFile(ctx, rec))
	require.NoError(t, db.RecordFile(ctx, FileRecord{
		RunID: "r", Name: "b.png", Fingerprint: "def", Target: "8x8", Background: "#000000",
		Encoding: "png", Status: StatusFailed, Phase: "decode", Error: "boom", ProcessedAt: time.Now(),
	}))

	key := OutputKey{Fingerprint: "abc", Target: "8x8", Background: "#000000", Encoding: "png"}
	got, err := db.LastProcessed(ctx, "a.png", key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "native", got.Decoder)
	assert.Equal(t, 2, got.Stride)
	assert.Equal(t, int64(123), got.OutputBytes)
	assert.Equal(t, "/out/a.png", got.OutputPath)

	assert.Equal(t, "png", got.Encoding)

	tests := []struct {
		name string
		file string
		key  OutputKey
	}{
		{"different content", "a.png", OutputKey{"zzz", "8x8", "#000000", "png"}},
		{"different target", "a.png", OutputKey{"abc", "4x4", "#000000", "png"}},
		{"different background", "a.png", OutputKey{"abc", "8x8", "#ffffff", "png"}},
		{"different encoding", "a.png", OutputKey{"abc", "8x8", "#000000", "jpeg q=80"}},
		{"failed only", "b.png", OutputKey{"def", "8x8", "#000000", "png"}},
		{"unknown file", "c.png", OutputKey{"abc", "8x8", "#000000", "png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.LastProcessed(ctx, tt.file, tt.key)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.BeginRun(ctx, Run{ID: "r", Trigger: "startup", StartedAt: time.Now(), Target: "8x8", Background: "#000000"}))

	for _, status := range []string{StatusProcessed, StatusProcessed, StatusSkipped, StatusFailed} {
		require.NoError(t, db.RecordFile(ctx, FileRecord{
			RunID: "r", Name: "x.png", Target: "8x8", Background: "#000000", Status: status, ProcessedAt: time.Now(),
		}))
	}

	stats := db.GetStats()
	assert.Equal(t, 1, stats.Runs)
	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Positive(t, stats.DBMainBytes)
}

func TestVacuum(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Vacuum())
}
