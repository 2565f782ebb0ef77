// Package archive indexes run summaries in SQLite so runs can be ranked
// and compared across environments and policies.
package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/san-kum/conservation/internal/storage"
)

// DB wraps a SQLite connection holding run summaries.
type DB struct {
	conn *sqlx.DB
}

// RunSummary is one archived run.
type RunSummary struct {
	ID           string    `db:"id"`
	Env          string    `db:"env"`
	Policy       string    `db:"policy"`
	Seed         int64     `db:"seed"`
	Repetitions  int       `db:"repetitions"`
	Horizon      int       `db:"horizon"`
	CreatedAt    time.Time `db:"created_at"`
	MeanReward   float64   `db:"mean_reward"`
	CollapseRate float64   `db:"collapse_rate"`
	ParamsJSON   string    `db:"params_json"`
	MetricsJSON  string    `db:"metrics_json"`
}

// EpisodeRow is one archived episode.
type EpisodeRow struct {
	RunID     string  `db:"run_id"`
	Rep       int     `db:"rep"`
	Steps     int     `db:"steps"`
	Reward    float64 `db:"reward"`
	Collapsed bool    `db:"collapsed"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		env TEXT NOT NULL,
		policy TEXT NOT NULL,
		seed INTEGER NOT NULL,
		repetitions INTEGER NOT NULL,
		horizon INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		mean_reward REAL NOT NULL,
		collapse_rate REAL NOT NULL,
		params_json TEXT NOT NULL,
		metrics_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS episodes (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		rep INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		reward REAL NOT NULL,
		collapsed INTEGER NOT NULL,
		PRIMARY KEY (run_id, rep)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_env ON runs(env);
	CREATE INDEX IF NOT EXISTS idx_runs_reward ON runs(mean_reward);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Record stores a saved run and its episodes, replacing an earlier record
// with the same ID.
func (db *DB) Record(meta storage.RunMetadata) error {
	paramsJSON, err := json.Marshal(meta.Params)
	if err != nil {
		return err
	}
	metricsJSON, err := json.Marshal(meta.Metrics)
	if err != nil {
		return err
	}

	collapsed := 0
	for _, ep := range meta.Episodes {
		if ep.Collapsed {
			collapsed++
		}
	}
	rate := 0.0
	if len(meta.Episodes) > 0 {
		rate = float64(collapsed) / float64(len(meta.Episodes))
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM episodes WHERE run_id = ?", meta.ID); err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO runs
		(id, env, policy, seed, repetitions, horizon, created_at,
		 mean_reward, collapse_rate, params_json, metrics_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Env, meta.Policy, int64(meta.Seed), meta.Repetitions, meta.Horizon,
		meta.Timestamp.UTC(), meta.MeanReward(), rate, string(paramsJSON), string(metricsJSON),
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO episodes
		(run_id, rep, steps, reward, collapsed) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ep := range meta.Episodes {
		c := 0
		if ep.Collapsed {
			c = 1
		}
		if _, err := stmt.Exec(meta.ID, ep.Rep, ep.Steps, ep.Reward, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("run archived", "id", meta.ID, "episodes", len(meta.Episodes))
	return nil
}

// Best returns the highest-reward runs, optionally restricted to one env.
func (db *DB) Best(env string, limit int) ([]RunSummary, error) {
	var runs []RunSummary
	var err error
	if env == "" {
		err = db.conn.Select(&runs,
			"SELECT * FROM runs ORDER BY mean_reward DESC LIMIT ?", limit)
	} else {
		err = db.conn.Select(&runs,
			"SELECT * FROM runs WHERE env = ? ORDER BY mean_reward DESC LIMIT ?", env, limit)
	}
	return runs, err
}

// Recent returns the most recently recorded runs.
func (db *DB) Recent(limit int) ([]RunSummary, error) {
	var runs []RunSummary
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY created_at DESC LIMIT ?", limit)
	return runs, err
}

// Episodes returns the episodes of one run in repetition order.
func (db *DB) Episodes(runID string) ([]EpisodeRow, error) {
	var eps []EpisodeRow
	err := db.conn.Select(&eps,
		"SELECT run_id, rep, steps, reward, collapsed FROM episodes WHERE run_id = ? ORDER BY rep",
		runID,
	)
	return eps, err
}

// Count returns the number of archived runs.
func (db *DB) Count() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM runs")
	return n, err
}

// Sync records every run in the store that is not archived yet.
func (db *DB) Sync(st *storage.Store) (int, error) {
	runs, err := st.List()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, meta := range runs {
		var exists int
		if err := db.conn.Get(&exists, "SELECT COUNT(*) FROM runs WHERE id = ?", meta.ID); err != nil {
			return added, err
		}
		if exists > 0 {
			continue
		}
		if err := db.Record(meta); err != nil {
			return added, fmt.Errorf("record %s: %w", meta.ID, err)
		}
		added++
	}
	return added, nil
}
