package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/promptsort/pkg/promptsort/stylewords"
)

// SQLiteSink appends every run to a history database.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a history database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteSink{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	root TEXT,
	started_at TEXT,
	finished_at TEXT,
	total INTEGER NOT NULL,
	succeeded INTEGER NOT NULL,
	failed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	run_id TEXT NOT NULL,
	path TEXT NOT NULL,
	state TEXT NOT NULL,
	reason TEXT,
	model TEXT,
	raw_tags TEXT,
	cleaned_tags TEXT,
	core_keywords TEXT NOT NULL,
	keywords TEXT NOT NULL,
	score REAL,
	UNIQUE(run_id, path),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS style_phrases (
	run_id TEXT NOT NULL,
	phrase TEXT NOT NULL,
	count INTEGER NOT NULL,
	first_seen INTEGER NOT NULL,
	kind TEXT NOT NULL,
	UNIQUE(run_id, phrase, kind),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_records_path ON records(path);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

type keywordJSON struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Write implements Sink. The whole run is stored in one transaction.
func (s *SQLiteSink) Write(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, command, root, started_at, finished_at, total, succeeded, failed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Command,
		run.Root,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Summary.Total,
		run.Summary.Succeeded,
		run.Summary.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	if err := insertRecords(ctx, tx, run); err != nil {
		return err
	}
	if err := insertPhrases(ctx, tx, run.ID, run.Styles, "learned"); err != nil {
		return err
	}
	if err := insertPhrases(ctx, tx, run.ID, run.Refined, "refined"); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRecords(ctx context.Context, tx *sql.Tx, run Run) error {
	if len(run.Records) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO records (run_id, path, state, reason, model, raw_tags, cleaned_tags, core_keywords, keywords, score)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range run.Records {
		kws := make([]keywordJSON, len(rec.Keywords))
		for i, k := range rec.Keywords {
			kws[i] = keywordJSON{Term: k.Term, Weight: k.Weight}
		}
		kwData, err := json.Marshal(kws)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID,
			rec.Path,
			rec.State.String(),
			rec.Reason,
			rec.Info.Model,
			rec.RawTags,
			rec.CleanedTags,
			rec.CoreKeywords,
			string(kwData),
			rec.Score,
		); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.Path, err)
		}
	}
	return nil
}

func insertPhrases(ctx context.Context, tx *sql.Tx, runID string, t stylewords.Table, kind string) error {
	if t.Len() == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO style_phrases (run_id, phrase, count, first_seen, kind)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range t.Phrases() {
		if _, err := stmt.ExecContext(ctx, runID, p.Text, p.Count, p.FirstSeen, kind); err != nil {
			return err
		}
	}
	return nil
}

// RunInfo is one row of the run history.
type RunInfo struct {
	ID        string
	Command   string
	Root      string
	Total     int
	Succeeded int
	Failed    int
}

// Runs lists stored runs, newest first.
func (s *SQLiteSink) Runs(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, command, root, total, succeeded, failed
FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.ID, &r.Command, &r.Root, &r.Total, &r.Succeeded, &r.Failed); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// History returns the core keywords stored for path across runs, newest
// first.
func (s *SQLiteSink) History(ctx context.Context, path string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT core_keywords FROM records WHERE path = ? ORDER BY run_id DESC`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}

// StylePhrases returns the learned phrases of a run with their counts.
func (s *SQLiteSink) StylePhrases(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT phrase, count FROM style_phrases WHERE run_id = ? AND kind = 'learned'`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var phrase string
		var n int
		if err := rows.Scan(&phrase, &n); err != nil {
			return nil, err
		}
		out[phrase] = n
	}
	return out, rows.Err()
}
