// Package archive keeps a cross-project history of completed command
// runs and their findings in SQLite with FTS5 search. It is a
// convenience layer: when it cannot be opened, the rest of the system
// keeps working without it.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ccplugins/workbench/internal/session"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Run is one archived command completion.
type Run struct {
	ID          int64  `json:"id"`
	Command     string `json:"command"`
	Project     string `json:"project"`
	CompletedAt string `json:"completedAt"`
}

// Finding is one archived finding, joined to its run.
type Finding struct {
	ID          int64  `json:"id"`
	RunID       int64  `json:"runId"`
	FindingID   string `json:"findingId"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Remediation string `json:"remediation,omitempty"`
	Status      string `json:"status"`
	Command     string `json:"command"`
	Project     string `json:"project"`
	CreatedAt   string `json:"createdAt"`
}

// SearchOptions filters archive searches.
type SearchOptions struct {
	Severity string `json:"severity,omitempty"`
	Project  string `json:"project,omitempty"`
	Command  string `json:"command,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Stats holds aggregate archive statistics.
type Stats struct {
	TotalRuns     int      `json:"totalRuns"`
	TotalFindings int      `json:"totalFindings"`
	Projects      []string `json:"projects"`
}

// Config holds archive configuration.
type Config struct {
	DataDir          string
	MaxSearchResults int
}

// DefaultConfig returns the default archive configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:          filepath.Join(home, ".workbench"),
		MaxSearchResults: 20,
	}
}

// Store is the finding archive backed by SQLite + FTS5.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens the archive database, creating the data directory and
// running migrations as needed.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("archive: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "archive.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("archive: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("archive: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			command      TEXT NOT NULL,
			project      TEXT NOT NULL,
			completed_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
		CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project);

		CREATE TABLE IF NOT EXISTS findings (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      INTEGER NOT NULL,
			finding_id  TEXT    NOT NULL,
			type        TEXT    NOT NULL,
			severity    TEXT    NOT NULL,
			description TEXT    NOT NULL,
			location    TEXT,
			remediation TEXT,
			status      TEXT    NOT NULL DEFAULT 'open',
			created_at  TEXT    NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_findings_run      ON findings(run_id);
		CREATE INDEX IF NOT EXISTS idx_findings_severity ON findings(severity);

		CREATE VIRTUAL TABLE IF NOT EXISTS findings_fts USING fts5(
			description,
			remediation,
			content='findings',
			content_rowid='id'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS triggers, created once.
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='findings_fts_insert'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER findings_fts_insert AFTER INSERT ON findings BEGIN
				INSERT INTO findings_fts(rowid, description, remediation)
				VALUES (new.id, new.description, new.remediation);
			END;

			CREATE TRIGGER findings_fts_delete AFTER DELETE ON findings BEGIN
				INSERT INTO findings_fts(findings_fts, rowid, description, remediation)
				VALUES ('delete', old.id, old.description, old.remediation);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}

// RecordRun archives a completed run and its findings in one
// transaction.
func (s *Store) RecordRun(command, project string, findings []session.Finding) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(
		`INSERT INTO runs (command, project) VALUES (?, ?)`,
		command, project,
	)
	if err != nil {
		return 0, fmt.Errorf("archive: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, f := range findings {
		if _, err := tx.Exec(
			`INSERT INTO findings (run_id, finding_id, type, severity, description, location, remediation, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, f.ID, f.Type, string(f.Severity), f.Description, f.Location, f.Remediation, f.Status,
		); err != nil {
			return 0, fmt.Errorf("archive: insert finding %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("archive: commit: %w", err)
	}
	return runID, nil
}

// Search performs full-text search across archived findings. An empty
// query returns the most recent findings instead.
func (s *Store) Search(query string, opts SearchOptions) ([]Finding, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	ftsQuery := sanitizeFTS(query)
	var sqlStr string
	var args []any
	if ftsQuery == "" {
		sqlStr = `
			SELECT f.id, f.run_id, f.finding_id, f.type, f.severity, f.description,
			       ifnull(f.location, ''), ifnull(f.remediation, ''), f.status,
			       r.command, r.project, f.created_at
			FROM findings f
			JOIN runs r ON r.id = f.run_id
			WHERE 1=1
		`
	} else {
		sqlStr = `
			SELECT f.id, f.run_id, f.finding_id, f.type, f.severity, f.description,
			       ifnull(f.location, ''), ifnull(f.remediation, ''), f.status,
			       r.command, r.project, f.created_at
			FROM findings_fts fts
			JOIN findings f ON f.id = fts.rowid
			JOIN runs r ON r.id = f.run_id
			WHERE findings_fts MATCH ?
		`
		args = append(args, ftsQuery)
	}

	if opts.Severity != "" {
		sqlStr += " AND f.severity = ?"
		args = append(args, opts.Severity)
	}
	if opts.Project != "" {
		sqlStr += " AND r.project = ?"
		args = append(args, opts.Project)
	}
	if opts.Command != "" {
		sqlStr += " AND r.command = ?"
		args = append(args, opts.Command)
	}

	if ftsQuery == "" {
		sqlStr += " ORDER BY f.created_at DESC, f.id DESC LIMIT ?"
	} else {
		sqlStr += " ORDER BY fts.rank LIMIT ?"
	}
	args = append(args, limit)

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(
			&f.ID, &f.RunID, &f.FindingID, &f.Type, &f.Severity, &f.Description,
			&f.Location, &f.Remediation, &f.Status, &f.Command, &f.Project, &f.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

// Stats returns aggregate archive statistics.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	_ = s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM findings").Scan(&stats.TotalFindings)

	rows, err := s.db.Query("SELECT project FROM runs GROUP BY project ORDER BY MAX(completed_at) DESC")
	if err != nil {
		return stats, nil
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err == nil {
			stats.Projects = append(stats.Projects, p)
		}
	}
	return stats, nil
}

// sanitizeFTS quotes each term so user input cannot break the FTS5
// query syntax.
func sanitizeFTS(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " ")
}
