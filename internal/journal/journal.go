// Package journal implements an optional SQLite operation journal.
//
// Every tool call gets one row: which tool ran, whether it succeeded, and a
// short detail line. The journal is strictly supplemental — the YAML layer
// files remain the source of truth, and a broken or missing journal never
// blocks an operation.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Outcome values for journal entries.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Entry is one recorded tool invocation.
type Entry struct {
	ID        string `json:"id"`
	Tool      string `json:"tool"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Journal is the append-mostly operation log backed by SQLite.
type Journal struct {
	db *sql.DB
}

// Open creates dataDir if needed, opens journal.db inside it with WAL mode,
// and runs migrations.
func Open(dataDir string) (*Journal, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "journal.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			id         TEXT PRIMARY KEY,
			tool       TEXT NOT NULL,
			outcome    TEXT NOT NULL,
			detail     TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_entries_tool    ON entries(tool);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends one entry. The generated id is returned.
func (j *Journal) Record(tool, outcome, detail string) (string, error) {
	id := uuid.NewString()
	_, err := j.db.Exec(
		`INSERT INTO entries (id, tool, outcome, detail) VALUES (?, ?, ?, ?)`,
		id, tool, outcome, detail,
	)
	if err != nil {
		return "", fmt.Errorf("journal: record: %w", err)
	}
	return id, nil
}

// Recent returns the newest entries, most recent first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.Query(
		`SELECT id, tool, outcome, COALESCE(detail, ''), created_at
		 FROM entries
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Tool, &e.Outcome, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// CountByTool returns invocation counts per tool, highest first.
func (j *Journal) CountByTool() (map[string]int, error) {
	rows, err := j.db.Query(`SELECT tool, COUNT(*) FROM entries GROUP BY tool`)
	if err != nil {
		return nil, fmt.Errorf("journal: count: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[string]int{}
	for rows.Next() {
		var tool string
		var n int
		if err := rows.Scan(&tool, &n); err != nil {
			return nil, err
		}
		counts[tool] = n
	}
	return counts, rows.Err()
}
