package trace

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/weftrun/weft/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteDriver persists runs and execution records to a SQLite database.
// Uses WAL mode so readers can inspect a trace while a run is writing.
type SQLiteDriver struct {
	db *sql.DB
}

// OpenSQLite creates or opens a trace database at path (":memory:" for
// tests). Pragmas and schema are applied automatically; opening an
// existing database is idempotent.
func OpenSQLite(path string) (*SQLiteDriver, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect trace db: %w", err)
	}

	// SQLite supports a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply trace schema: %w", err)
	}

	return &SQLiteDriver{db: db}, nil
}

// OnRunStart implements Driver.
func (d *SQLiteDriver) OnRunStart(runID, pipelineID string, canonicalSpec ir.Object) error {
	spec, err := ir.MarshalCanonical(canonicalSpec)
	if err != nil {
		return fmt.Errorf("marshal canonical spec: %w", err)
	}
	_, err = d.db.Exec(
		`INSERT INTO runs (run_id, pipeline_id, canonical_spec) VALUES (?, ?, ?)`,
		runID, pipelineID, string(spec),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// OnNodeRecord implements Driver.
func (d *SQLiteDriver) OnNodeRecord(rec *ExecutionRecord) error {
	data, err := rec.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = d.db.Exec(
		`INSERT INTO records (run_id, seq, node_id, status, record) VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, rec.Seq, rec.NodeID, rec.Status, string(data),
	)
	if err != nil {
		return fmt.Errorf("insert record (run=%s seq=%d): %w", rec.RunID, rec.Seq, err)
	}
	return nil
}

// OnRunEnd implements Driver.
func (d *SQLiteDriver) OnRunEnd(runID string, summary RunSummary) error {
	_, err := d.db.Exec(
		`UPDATE runs SET status = ?, node_count = ? WHERE run_id = ?`,
		summary.Status, summary.Nodes, runID,
	)
	if err != nil {
		return fmt.Errorf("finalize run %s: %w", runID, err)
	}
	return nil
}

// Flush implements Driver. Writes are synchronous; nothing is buffered.
func (d *SQLiteDriver) Flush() error { return nil }

// Close implements Driver.
func (d *SQLiteDriver) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// RecordCount returns the number of records persisted for a run.
func (d *SQLiteDriver) RecordCount(runID string) (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM records WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records for %s: %w", runID, err)
	}
	return n, nil
}

// ReadRecords returns the persisted records for a run in seq order, as
// decoded JSON objects.
func (d *SQLiteDriver) ReadRecords(runID string) ([]map[string]any, error) {
	rows, err := d.db.Query(
		`SELECT record FROM records WHERE run_id = ? ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("read records for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}
