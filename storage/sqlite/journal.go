// Package sqlite provides a SQLite-backed implementation of the
// flowsync.Journal audit log.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	stdSync "sync"
	"time"

	syncErrors "github.com/c0deZ3R0/go-flow-sync/errors"
	"github.com/c0deZ3R0/go-flow-sync/flowsync"
	"github.com/c0deZ3R0/go-flow-sync/logging"

	// Go SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrJournalClosed is returned by every method after Close.
var ErrJournalClosed = errors.New("journal is closed")

// Config holds configuration options for the SQLite journal.
type Config struct {
	// DataSourceName is the connection string for the SQLite database.
	// Example: "file:flowsync.db?_journal_mode=WAL"
	DataSourceName string

	// EnableWAL enables Write-Ahead Logging mode for better concurrency.
	// Enabled by default via DefaultConfig.
	EnableWAL bool

	// Connection pool settings. Defaults: MaxOpen=10, MaxIdle=2,
	// Lifetime=1h, IdleTime=5m.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.EnableWAL {
		if !strings.Contains(c.DataSourceName, "?_journal_mode=") {
			c.DataSourceName += "?_journal_mode=WAL"
		}
	}
}

// DefaultConfig returns a Config with production-ready defaults.
func DefaultConfig(dataSourceName string) *Config {
	config := &Config{
		DataSourceName: dataSourceName,
		EnableWAL:      true,
	}
	config.setDefaults()
	return config
}

// Journal persists conflict resolutions and mode transitions to SQLite.
type Journal struct {
	db     *sql.DB
	mu     stdSync.RWMutex
	closed bool
}

var _ flowsync.Journal = (*Journal)(nil)

// New opens (or creates) the journal database and sets up its schema.
func New(config *Config) (*Journal, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	config.setDefaults()

	if config.DataSourceName == "" {
		return nil, fmt.Errorf("DataSourceName is required")
	}

	logger := logging.WithComponent(logging.Component("sqlite-journal"))
	logger.InfoContext(context.Background(), "Opening journal database",
		slog.String("data_source", config.DataSourceName),
		slog.Bool("wal_enabled", config.EnableWAL),
	)

	db, err := sql.Open("sqlite3", config.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.setupSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup journal schema: %w", err)
	}
	return j, nil
}

// NewWithDataSource is a convenience constructor using DefaultConfig.
func NewWithDataSource(dataSourceName string) (*Journal, error) {
	return New(DefaultConfig(dataSourceName))
}

func (j *Journal) setupSchema() error {
	query := `
    CREATE TABLE IF NOT EXISTS resolutions (
        id              TEXT PRIMARY KEY,
        conflict_id     TEXT NOT NULL,
        conflict_type   TEXT NOT NULL,
        target_key      TEXT NOT NULL,
        resolution      TEXT NOT NULL,
        auto            INTEGER NOT NULL,
        resolved_at     TIMESTAMP NOT NULL,
        details         TEXT
    );
    CREATE INDEX IF NOT EXISTS idx_resolutions_conflict_type ON resolutions (conflict_type);
    CREATE INDEX IF NOT EXISTS idx_resolutions_resolved_at ON resolutions (resolved_at);

    CREATE TABLE IF NOT EXISTS transitions (
        id              TEXT PRIMARY KEY,
        from_mode       TEXT NOT NULL,
        to_mode         TEXT NOT NULL,
        at              TIMESTAMP NOT NULL,
        snapshot        BLOB
    );
    CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions (at);
    `
	_, err := j.db.Exec(query)
	return err
}

// RecordResolution writes one resolution audit entry.
func (j *Journal) RecordResolution(ctx context.Context, rec flowsync.ResolutionRecord) error {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return ErrJournalClosed
	}
	j.mu.RUnlock()

	var detailsJSON []byte
	if rec.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(rec.Details)
		if err != nil {
			return syncErrors.NewStorageError(syncErrors.OpJournal, err)
		}
	}

	query := `INSERT INTO resolutions (id, conflict_id, conflict_type, target_key, resolution, auto, resolved_at, details)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, query,
		rec.ID,
		rec.ConflictID,
		string(rec.ConflictType),
		rec.TargetKey,
		string(rec.Resolution),
		boolToInt(rec.Auto),
		rec.ResolvedAt.UTC(),
		string(detailsJSON))
	if err != nil {
		return syncErrors.NewStorageError(syncErrors.OpJournal, err)
	}
	return nil
}

// RecordTransition writes one mode transition audit entry.
func (j *Journal) RecordTransition(ctx context.Context, rec flowsync.TransitionRecord) error {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return ErrJournalClosed
	}
	j.mu.RUnlock()

	query := `INSERT INTO transitions (id, from_mode, to_mode, at, snapshot) VALUES (?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, query,
		rec.ID,
		string(rec.FromMode),
		string(rec.ToMode),
		rec.At.UTC(),
		rec.Snapshot)
	if err != nil {
		return syncErrors.NewStorageError(syncErrors.OpJournal, err)
	}
	return nil
}

// ResolutionsByType returns resolution entries for one conflict type,
// newest first.
func (j *Journal) ResolutionsByType(ctx context.Context, ct flowsync.ConflictType) ([]flowsync.ResolutionRecord, error) {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return nil, ErrJournalClosed
	}
	j.mu.RUnlock()

	query := `SELECT id, conflict_id, conflict_type, target_key, resolution, auto, resolved_at, details
	          FROM resolutions WHERE conflict_type = ? ORDER BY resolved_at DESC`
	rows, err := j.db.QueryContext(ctx, query, string(ct))
	if err != nil {
		return nil, syncErrors.NewStorageError(syncErrors.OpJournal, err)
	}
	defer rows.Close()

	return scanResolutions(rows)
}

// ResolutionsSince returns resolution entries recorded at or after t,
// oldest first.
func (j *Journal) ResolutionsSince(ctx context.Context, t time.Time) ([]flowsync.ResolutionRecord, error) {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return nil, ErrJournalClosed
	}
	j.mu.RUnlock()

	query := `SELECT id, conflict_id, conflict_type, target_key, resolution, auto, resolved_at, details
	          FROM resolutions WHERE resolved_at >= ? ORDER BY resolved_at ASC`
	rows, err := j.db.QueryContext(ctx, query, t.UTC())
	if err != nil {
		return nil, syncErrors.NewStorageError(syncErrors.OpJournal, err)
	}
	defer rows.Close()

	return scanResolutions(rows)
}

// Transitions returns mode transition entries, oldest first.
func (j *Journal) Transitions(ctx context.Context) ([]flowsync.TransitionRecord, error) {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return nil, ErrJournalClosed
	}
	j.mu.RUnlock()

	query := `SELECT id, from_mode, to_mode, at, snapshot FROM transitions ORDER BY at ASC`
	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, syncErrors.NewStorageError(syncErrors.OpJournal, err)
	}
	defer rows.Close()

	var records []flowsync.TransitionRecord
	for rows.Next() {
		var rec flowsync.TransitionRecord
		var from, to string
		if err := rows.Scan(&rec.ID, &from, &to, &rec.At, &rec.Snapshot); err != nil {
			return nil, syncErrors.NewStorageError(syncErrors.OpJournal, err)
		}
		rec.FromMode = flowsync.ViewMode(from)
		rec.ToMode = flowsync.ViewMode(to)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, syncErrors.NewStorageError(syncErrors.OpJournal, err)
	}
	return records, nil
}

// Close closes the underlying database. Safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.db.Close(); err != nil {
		return syncErrors.NewStorageError(syncErrors.OpClose, err)
	}
	return nil
}

func scanResolutions(rows *sql.Rows) ([]flowsync.ResolutionRecord, error) {
	var records []flowsync.ResolutionRecord
	for rows.Next() {
		var rec flowsync.ResolutionRecord
		var ct, res, details string
		var auto int
		if err := rows.Scan(&rec.ID, &rec.ConflictID, &ct, &rec.TargetKey, &res, &auto, &rec.ResolvedAt, &details); err != nil {
			return nil, syncErrors.NewStorageError(syncErrors.OpJournal, err)
		}
		rec.ConflictType = flowsync.ConflictType(ct)
		rec.Resolution = flowsync.Resolution(res)
		rec.Auto = auto != 0
		if details != "" {
			if err := json.Unmarshal([]byte(details), &rec.Details); err != nil {
				return nil, syncErrors.NewStorageError(syncErrors.OpJournal, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, syncErrors.NewStorageError(syncErrors.OpJournal, err)
	}
	return records, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
