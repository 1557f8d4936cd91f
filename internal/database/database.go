package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"pixelbox/internal/logging"
	"pixelbox/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database is the run ledger.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (or creates) the ledger at dbPath. The parent directory must
// already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		trigger TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		processed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		target TEXT NOT NULL,
		background TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
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
	);

	CREATE INDEX IF NOT EXISTS idx_files_lookup ON files(name, fingerprint, target, background, status);
	CREATE INDEX IF NOT EXISTS idx_files_run ON files(run_id);
	`

	if _, err = d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	err = d.runMigrations(ctx)
	return err
}

// fileColumnMigrations are columns added to the files table after its
// first release, in order.
var fileColumnMigrations = []struct {
	column string
	ddl    string
}{
	// 1: which decoder produced the frame
	{"decoder", `ALTER TABLE files ADD COLUMN decoder TEXT NOT NULL DEFAULT ''`},
	// 2: encoder settings, part of the skip-unchanged key
	{"encoding", `ALTER TABLE files ADD COLUMN encoding TEXT NOT NULL DEFAULT ''`},
}

// runMigrations applies schema changes to ledgers created by older builds.
func (d *Database) runMigrations(ctx context.Context) error {
	for _, m := range fileColumnMigrations {
		var columnExists bool
		err := d.db.QueryRowContext(ctx, `
			SELECT COUNT(*) > 0
			FROM pragma_table_info('files')
			WHERE name = ?
		`, m.column).Scan(&columnExists)
		if err != nil {
			return fmt.Errorf("failed to check for %s column: %w", m.column, err)
		}
		if columnExists {
			continue
		}

		logging.Info("Migrating database: adding %s column to files table", m.column)
		if _, err := d.db.ExecContext(ctx, m.ddl); err != nil {
			return fmt.Errorf("failed to add %s column: %w", m.column, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// BeginRun records the start of a run.
func (d *Database) BeginRun(ctx context.Context, run Run) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("begin_run", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO runs (id, trigger, started_at, target, background)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Trigger, run.StartedAt.UnixMilli(), run.Target, run.Background,
	)
	return err
}

// FinishRun stores the final counts of a run.
func (d *Database) FinishRun(ctx context.Context, run Run) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("finish_run", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	res, err = d.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, processed = ?, skipped = ?, failed = ?
		WHERE id = ?`,
		run.FinishedAt.UnixMilli(), run.Processed, run.Skipped, run.Failed, run.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("run %s not found", run.ID)
	}
	return err
}

// RecordFile stores the outcome of one file.
func (d *Database) RecordFile(ctx context.Context, rec FileRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("record_file", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO files (run_id, name, fingerprint, target, background, encoding, status, phase, error,
			source_format, decoder, stride, output_bytes, output_path, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Name, rec.Fingerprint, rec.Target, rec.Background, rec.Encoding, rec.Status, rec.Phase, rec.Error,
		rec.SourceFormat, rec.Decoder, rec.Stride, rec.OutputBytes, rec.OutputPath, rec.ProcessedAt.UnixMilli(),
	)
	return err
}

// LastProcessed returns the most recent successful record of name that
// matches key exactly, or nil if there is none.
func (d *Database) LastProcessed(ctx context.Context, name string, key OutputKey) (*FileRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("last_processed", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec FileRecord
	var processedAt int64
	err = d.db.QueryRowContext(ctx, `
		SELECT run_id, name, fingerprint, target, background, encoding, status, source_format, decoder,
			stride, output_bytes, output_path, processed_at
		FROM files
		WHERE name = ? AND fingerprint = ? AND target = ? AND background = ? AND encoding = ? AND status = ?
		ORDER BY processed_at DESC, id DESC
		LIMIT 1`,
		name, key.Fingerprint, key.Target, key.Background, key.Encoding, StatusProcessed,
	).Scan(&rec.RunID, &rec.Name, &rec.Fingerprint, &rec.Target, &rec.Background, &rec.Encoding, &rec.Status,
		&rec.SourceFormat, &rec.Decoder, &rec.Stride, &rec.OutputBytes, &rec.OutputPath, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.ProcessedAt = time.UnixMilli(processedAt)
	return &rec, nil
}

// RecentRuns returns up to limit runs, newest first.
func (d *Database) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("recent_runs", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, trigger, started_at, COALESCE(finished_at, 0), processed, skipped, failed, target, background
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt, finishedAt int64
		if err = rows.Scan(&r.ID, &r.Trigger, &startedAt, &finishedAt, &r.Processed, &r.Skipped, &r.Failed, &r.Target, &r.Background); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(startedAt)
		if finishedAt > 0 {
			r.FinishedAt = time.UnixMilli(finishedAt)
		}
		runs = append(runs, r)
	}
	err = rows.Err()
	return runs, err
}

// GetStats returns ledger totals. It implements metrics.StatsProvider.
func (d *Database) GetStats() metrics.Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stats metrics.Stats
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&stats.Runs); err != nil {
		logging.Warn("Failed to count runs: %v", err)
	}

	rows, err := d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM files GROUP BY status`)
	if err != nil {
		logging.Warn("Failed to count files: %v", err)
	} else {
		defer rows.Close()
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				logging.Warn("Failed to scan file counts: %v", err)
				break
			}
			switch status {
			case StatusProcessed:
				stats.FilesProcessed = n
			case StatusSkipped:
				stats.FilesSkipped = n
			case StatusFailed:
				stats.FilesFailed = n
			}
		}
	}

	stats.DBMainBytes = fileSize(d.dbPath)
	stats.DBWALBytes = fileSize(d.dbPath + "-wal")
	stats.DBSHMBytes = fileSize(d.dbPath + "-shm")
	return stats
}

// Vacuum optimizes the database.
func (d *Database) Vacuum() error {
	start := time.Now()
	var err error
	defer func() { recordQuery("vacuum", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "VACUUM")
	return err
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("%s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
			if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
				logging.Error("Failed to fix permissions on %s: %v", path, chmodErr)
			} else {
				logging.Info("Fixed permissions on %s", path)
			}
		}
	}

	return nil
}
