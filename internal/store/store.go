package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	created_at       TEXT NOT NULL,
	config_json      TEXT,
	scenario         TEXT NOT NULL,
	num_agents       INTEGER NOT NULL,
	episodes         INTEGER NOT NULL DEFAULT 0,
	total_collisions INTEGER NOT NULL DEFAULT 0,
	mean_eval_return REAL,
	status           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS episodes (
	run_id                TEXT NOT NULL,
	episode               INTEGER NOT NULL,
	reward                REAL NOT NULL,
	collisions            INTEGER NOT NULL,
	cumulative_collisions INTEGER NOT NULL,
	steps                 INTEGER NOT NULL,
	interventions         INTEGER NOT NULL,
	infeasible            INTEGER NOT NULL,
	PRIMARY KEY (run_id, episode),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS eval_returns (
	run_id   TEXT NOT NULL,
	episode  INTEGER NOT NULL,
	value    REAL NOT NULL,
	PRIMARY KEY (run_id, episode),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS update_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL,
	episode        INTEGER NOT NULL,
	decision       TEXT NOT NULL,
	reason         TEXT,
	passes         INTEGER NOT NULL,
	update_time_ms INTEGER NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// #endregion schema

// #region store-struct
// Store keeps run history in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region create-run
// CreateRun inserts a run in the "running" state. An empty RunID is filled in.
func (s *Store) CreateRun(run Run) (Run, error) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Status = "running"

	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, created_at, config_json, scenario, num_agents, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAt.Format(time.RFC3339Nano), nullIfEmpty(run.ConfigJSON),
		run.Scenario, run.NumAgents, run.Status,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// #endregion create-run

// #region save-episodes
// SaveEpisodes writes every training episode of a run and its totals in one
// transaction, moving the run to "persisted".
func (s *Store) SaveEpisodes(runID string, rows []EpisodeRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO episodes (run_id, episode, reward, collisions, cumulative_collisions, steps, interventions, infeasible)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare episode insert: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, r := range rows {
		if _, err := stmt.Exec(runID, r.Episode, r.Reward, r.Collisions, r.CumulativeCollisions,
			r.Steps, r.Interventions, boolToInt(r.Infeasible)); err != nil {
			return fmt.Errorf("insert episode %d: %w", r.Episode, err)
		}
		total = r.CumulativeCollisions
	}

	res, err := tx.Exec(
		`UPDATE runs SET episodes = ?, total_collisions = ?, status = 'persisted' WHERE run_id = ?`,
		len(rows), total, runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return tx.Commit()
}

// #endregion save-episodes

// #region save-eval
// SaveEval records the evaluation returns and their mean, completing the run.
func (s *Store) SaveEval(runID string, returns []float64, mean float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, r := range returns {
		if _, err := tx.Exec(`INSERT INTO eval_returns (run_id, episode, value) VALUES (?, ?, ?)`, runID, i, r); err != nil {
			return fmt.Errorf("insert eval return %d: %w", i, err)
		}
	}
	res, err := tx.Exec(`UPDATE runs SET mean_eval_return = ?, status = 'complete' WHERE run_id = ?`, mean, runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return tx.Commit()
}

// #endregion save-eval

// #region queries
const runColumns = `run_id, created_at, config_json, scenario, num_agents, episodes, total_collisions, mean_eval_return, status`

// GetRun retrieves one run by ID.
func (s *Store) GetRun(id string) (Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id))
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetEpisodes returns a run's training episodes in order.
func (s *Store) GetEpisodes(runID string) ([]EpisodeRow, error) {
	rows, err := s.db.Query(
		`SELECT episode, reward, collisions, cumulative_collisions, steps, interventions, infeasible
		 FROM episodes WHERE run_id = ? ORDER BY episode`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get episodes: %w", err)
	}
	defer rows.Close()

	var out []EpisodeRow
	for rows.Next() {
		var r EpisodeRow
		var infeasible int
		if err := rows.Scan(&r.Episode, &r.Reward, &r.Collisions, &r.CumulativeCollisions,
			&r.Steps, &r.Interventions, &infeasible); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		r.Infeasible = infeasible != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetEvalReturns returns a run's evaluation returns in episode order.
func (s *Store) GetEvalReturns(runID string) ([]float64, error) {
	rows, err := s.db.Query(`SELECT value FROM eval_returns WHERE run_id = ? ORDER BY episode`, runID)
	if err != nil {
		return nil, fmt.Errorf("get eval returns: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan eval return: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetUpdates returns a run's update log in insertion order.
func (s *Store) GetUpdates(runID string) ([]UpdateRow, error) {
	rows, err := s.db.Query(
		`SELECT run_id, episode, decision, reason, passes, update_time_ms, created_at
		 FROM update_log WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	defer rows.Close()

	var out []UpdateRow
	for rows.Next() {
		var u UpdateRow
		var reason sql.NullString
		var created string
		if err := rows.Scan(&u.RunID, &u.Episode, &u.Decision, &reason, &u.Passes, &u.UpdateTimeMs, &created); err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		u.Reason = reason.String
		u.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, u)
	}
	return out, rows.Err()
}

// #endregion queries

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var created string
	var cfg sql.NullString
	var mean sql.NullFloat64
	if err := sc.Scan(&run.RunID, &created, &cfg, &run.Scenario, &run.NumAgents, &run.Episodes,
		&run.TotalCollisions, &mean, &run.Status); err != nil {
		return Run{}, err
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	run.ConfigJSON = cfg.String
	run.MeanEvalReturn = mean.Float64
	run.HasEval = mean.Valid
	return run, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
