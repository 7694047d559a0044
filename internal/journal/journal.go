// Package journal keeps a local SQLite history of label upload outcomes.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JohnDeved/labelctl/internal/uploader"
)

// DB wraps the SQLite database for the upload journal.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates the SQLite database at the given path.
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		sku TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT DEFAULT '',
		label_id INTEGER DEFAULT 0,
		version INTEGER DEFAULT 0,
		started_at DATETIME,
		completed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_batch ON uploads(batch_id);
	CREATE INDEX IF NOT EXISTS idx_uploads_sku ON uploads(sku);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return migrateFTS(db)
}

const ftsSchema = `
	CREATE VIRTUAL TABLE uploads_fts USING fts5(
		file_name,
		sku,
		error,
		content=uploads,
		content_rowid=id,
		tokenize='unicode61 remove_diacritics 2'
	);

	CREATE TRIGGER uploads_ai AFTER INSERT ON uploads BEGIN
		INSERT INTO uploads_fts(rowid, file_name, sku, error) VALUES (new.id, new.file_name, new.sku, new.error);
	END;

	CREATE TRIGGER uploads_ad AFTER DELETE ON uploads BEGIN
		INSERT INTO uploads_fts(uploads_fts, rowid, file_name, sku, error) VALUES('delete', old.id, old.file_name, old.sku, old.error);
	END;

	CREATE TRIGGER uploads_au AFTER UPDATE ON uploads BEGIN
		INSERT INTO uploads_fts(uploads_fts, rowid, file_name, sku, error) VALUES('delete', old.id, old.file_name, old.sku, old.error);
		INSERT INTO uploads_fts(rowid, file_name, sku, error) VALUES (new.id, new.file_name, new.sku, new.error);
	END;

	INSERT INTO uploads_fts(uploads_fts) VALUES('rebuild');
`

// migrateFTS creates the search index, or recreates it when an older journal
// indexed fewer columns.
func migrateFTS(db *sql.DB) error {
	var ddl string
	err := db.QueryRow(`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'uploads_fts'`).Scan(&ddl)
	switch {
	case err == nil && strings.Contains(ddl, "error"):
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`
		DROP TRIGGER IF EXISTS uploads_ai;
		DROP TRIGGER IF EXISTS uploads_ad;
		DROP TRIGGER IF EXISTS uploads_au;
		DROP TABLE IF EXISTS uploads_fts;
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(ftsSchema); err != nil {
		return fmt.Errorf("creating search index: %w", err)
	}
	return tx.Commit()
}

// Record is one journaled upload.
type Record struct {
	ID          int64     `json:"id" yaml:"id"`
	BatchID     string    `json:"batchId" yaml:"batchId"`
	FileName    string    `json:"fileName" yaml:"fileName"`
	SKU         string    `json:"sku" yaml:"sku"`
	Status      string    `json:"status" yaml:"status"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	LabelID     int64     `json:"labelId,omitempty" yaml:"labelId,omitempty"`
	Version     int       `json:"version,omitempty" yaml:"version,omitempty"`
	StartedAt   time.Time `json:"startedAt" yaml:"startedAt"`
	CompletedAt time.Time `json:"completedAt" yaml:"completedAt"`
}

// Succeeded reports whether the upload went through.
func (r Record) Succeeded() bool {
	return r.Status == uploader.StatusSuccess.String()
}

// RecordUpload stores one settled upload. It satisfies uploader.Recorder.
func (d *DB) RecordUpload(ctx context.Context, o uploader.Outcome) error {
	errText := ""
	if o.Err != nil {
		errText = o.Err.Error()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO uploads (batch_id, file_name, sku, status, error, label_id, version, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.BatchID, o.FileName, o.SKU, o.Status.String(), errText, o.LabelID, o.Version,
		o.StartedAt.UTC(), o.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording upload of %s: %w", o.FileName, err)
	}
	return nil
}

const recordColumns = `u.id, u.batch_id, u.file_name, u.sku, u.status, u.error, u.label_id, u.version, u.started_at, u.completed_at`

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var errText sql.NullString
		var started, completed sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.BatchID, &r.FileName, &r.SKU, &r.Status, &errText,
			&r.LabelID, &r.Version, &started, &completed,
		); err != nil {
			return nil, err
		}
		r.Error = errText.String
		if started.Valid {
			r.StartedAt = started.Time
		}
		if completed.Valid {
			r.CompletedAt = completed.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Recent returns the latest uploads, newest first.
func (d *DB) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.Query(`SELECT `+recordColumns+` FROM uploads u ORDER BY u.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// Batch returns every upload of one batch in the order they settled.
func (d *DB) Batch(batchID string) ([]Record, error) {
	rows, err := d.db.Query(`SELECT `+recordColumns+` FROM uploads u WHERE u.batch_id = ? ORDER BY u.id`, batchID)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// sanitizeFTS5Query quotes each word so user input cannot produce FTS5
// syntax errors. Words are ANDed.
func sanitizeFTS5Query(query string) string {
	var quoted []string
	strip := strings.NewReplacer("(", "", ")", "", "[", "", "]", "", "{", "", "}", "", "^", "", "*", "")
	for _, w := range strings.Fields(query) {
		w = strip.Replace(strings.ReplaceAll(w, `"`, `""`))
		if w == "" {
			continue
		}
		quoted = append(quoted, `"`+w+`"`)
	}
	return strings.Join(quoted, " ")
}

// Search finds uploads whose file name, SKU or error message match query.
func (d *DB) Search(query string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	sanitized := sanitizeFTS5Query(query)
	if sanitized == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT `+recordColumns+`
		FROM uploads_fts fts
		JOIN uploads u ON u.id = fts.rowid
		WHERE uploads_fts MATCH ?
		ORDER BY u.id DESC
		LIMIT ?
	`, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	return scanRecords(rows)
}

// Stats summarises the journal.
type Stats struct {
	Batches   int `json:"batches" yaml:"batches"`
	Uploads   int `json:"uploads" yaml:"uploads"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
}

// GetStats returns counts over every journaled upload.
func (d *DB) GetStats() (Stats, error) {
	var s Stats
	if err := d.db.QueryRow("SELECT COUNT(DISTINCT batch_id) FROM uploads").Scan(&s.Batches); err != nil {
		return s, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM uploads").Scan(&s.Uploads); err != nil {
		return s, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM uploads WHERE status = ?", uploader.StatusSuccess.String()).Scan(&s.Succeeded); err != nil {
		return s, err
	}
	s.Failed = s.Uploads - s.Succeeded
	return s, nil
}
