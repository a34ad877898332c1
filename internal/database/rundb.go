package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/knowledgemesh/internal/model"
)

// RunDB stores pipeline run results in a SQLite database.
//
// Design decision: one database file for all targets rather than a file
// per target. History queries span targets, and a single file keeps
// backup and cleanup trivial.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB under the given directory.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, "knowledgemesh.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite DSN: mode=rw prevents creating new files.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per pipeline run, successful or failed
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		stage TEXT NOT NULL,
		heuristic_mode INTEGER DEFAULT 0,
		node_count INTEGER DEFAULT 0,
		edge_count INTEGER DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores one run result. The node and edge counts are the graph
// totals after the run, so consecutive rows show growth over time.
func (rdb *RunDB) SaveRun(ctx context.Context, result *model.PipelineResult, nodeCount, edgeCount int) (int64, error) {
	if result == nil {
		return 0, errors.New("nil run result")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run result: %w", err)
	}

	heuristic := 0
	if result.HeuristicMode {
		heuristic = 1
	}

	query := `
	INSERT INTO runs (url, stage, heuristic_mode, node_count, edge_count, result_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := rdb.db.ExecContext(ctx, query,
		result.URL,
		result.Stage.String(),
		heuristic,
		nodeCount,
		edgeCount,
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	return res.LastInsertId()
}

// RunMetadata summarizes a stored run without the full result payload.
type RunMetadata struct {
	// ID is the row identifier.
	ID int64

	// URL is the normalized target URL.
	URL string

	// Timestamp is when the run was stored.
	Timestamp time.Time

	// Stage is the terminal stage of the run.
	Stage model.Stage

	// HeuristicMode reports that the extraction fallback ran.
	HeuristicMode bool

	// NodeCount is the graph node total after the run.
	NodeCount int

	// EdgeCount is the graph edge total after the run.
	EdgeCount int
}

// ListRuns returns run metadata, newest first. An empty url lists runs
// for every target.
func (rdb *RunDB) ListRuns(ctx context.Context, url string, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, url, timestamp, stage, heuristic_mode, node_count, edge_count
	FROM runs
	`
	args := make([]any, 0, 2)
	if url != "" {
		query += " WHERE url = ?"
		args = append(args, url)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string
		var stage string
		var heuristic int

		if err := rows.Scan(&meta.ID, &meta.URL, &timestamp, &stage,
			&heuristic, &meta.NodeCount, &meta.EdgeCount); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)
		meta.Stage = model.Stage(stage)
		meta.HeuristicMode = heuristic != 0
		results = append(results, meta)
	}
	return results, rows.Err()
}

// GetRun retrieves a stored run result by its row ID. Returns nil when
// no row matches.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*model.PipelineResult, error) {
	query := `SELECT result_json FROM runs WHERE id = ?`

	var resultJSON string
	err := rdb.db.QueryRowContext(ctx, query, id).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var result model.PipelineResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse run result: %w", err)
	}
	return &result, nil
}

// LatestRuns returns the newest stored results for a target, newest
// first, up to limit. Used by the diff command to compare consecutive
// runs of the same page.
func (rdb *RunDB) LatestRuns(ctx context.Context, url string, limit int) ([]*model.PipelineResult, error) {
	query := `
	SELECT result_json FROM runs
	WHERE url = ?
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := rdb.db.QueryContext(ctx, query, url, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest runs: %w", err)
	}
	defer rows.Close()

	var results []*model.PipelineResult
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		var result model.PipelineResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			continue // Skip malformed rows
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

// ListTargets returns the distinct target URLs with stored runs.
func (rdb *RunDB) ListTargets(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT url FROM runs ORDER BY url`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may
// return. More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp parses a SQLite timestamp, trying each known format.
// Returns zero time if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
