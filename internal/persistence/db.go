// Package persistence stores simulation runs in SQLite: run metadata, one
// row per species per day, and notable events. Stored runs back the query
// subcommand after a run finishes.
package persistence

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/biosim/internal/sim"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
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
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		days INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		day INTEGER NOT NULL,
		species TEXT NOT NULL,
		population REAL NOT NULL,
		agents_alive INTEGER NOT NULL,
		temperature REAL NOT NULL,
		humidity REAL NOT NULL,
		PRIMARY KEY (run_id, day, species)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		day INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_day ON snapshots(run_id, day);
	CREATE INDEX IF NOT EXISTS idx_events_day ON events(run_id, day);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Recorder persists one run's daily snapshots. It implements sim.Recorder.
type Recorder struct {
	db    *DB
	runID int64
}

// NewRun registers a run and returns a recorder bound to it.
func (db *DB) NewRun(mode sim.Mode, days int, seed int64) (*Recorder, error) {
	res, err := db.conn.Exec(
		"INSERT INTO runs (mode, days, seed) VALUES (?, ?, ?)",
		string(mode), days, seed,
	)
	if err != nil {
		return nil, fmt.Errorf("register run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	slog.Info("run registered", "run", id, "mode", mode, "days", days, "seed", seed)
	return &Recorder{db: db, runID: id}, nil
}

// RunID returns the database id of the recorded run.
func (r *Recorder) RunID() int64 {
	return r.runID
}

// RecordDay writes one day's snapshot in a single transaction.
func (r *Recorder) RecordDay(snap sim.DaySnapshot) error {
	tx, err := r.db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for speciesID, pop := range snap.Totals {
		_, err := tx.Exec(`INSERT OR REPLACE INTO snapshots
			(run_id, day, species, population, agents_alive, temperature, humidity)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.runID, snap.Day, speciesID, pop, snap.AgentsAlive[speciesID],
			snap.Temperature, snap.Humidity,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot %s day %d: %w", speciesID, snap.Day, err)
		}
	}
	// Agent-only runs have no projected totals; record the agent counts.
	if len(snap.Totals) == 0 {
		for speciesID, alive := range snap.AgentsAlive {
			_, err := tx.Exec(`INSERT OR REPLACE INTO snapshots
				(run_id, day, species, population, agents_alive, temperature, humidity)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				r.runID, snap.Day, speciesID, float64(alive), alive,
				snap.Temperature, snap.Humidity,
			)
			if err != nil {
				return fmt.Errorf("insert agent snapshot %s day %d: %w", speciesID, snap.Day, err)
			}
		}
	}

	for _, e := range snap.Events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, day, description, category) VALUES (?, ?, ?, ?)",
			r.runID, e.Day, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SnapshotRow is one stored species-day reading.
type SnapshotRow struct {
	Day         int     `db:"day"`
	Species     string  `db:"species"`
	Population  float64 `db:"population"`
	AgentsAlive int     `db:"agents_alive"`
	Temperature float64 `db:"temperature"`
	Humidity    float64 `db:"humidity"`
}

// SpeciesHistory returns the day-ordered population series of one species in
// a run.
func (db *DB) SpeciesHistory(runID int64, speciesID string) ([]SnapshotRow, error) {
	var rows []SnapshotRow
	err := db.conn.Select(&rows, `SELECT day, species, population, agents_alive, temperature, humidity
		FROM snapshots WHERE run_id = ? AND species = ? ORDER BY day`,
		runID, speciesID,
	)
	return rows, err
}

// DaySnapshot returns every species row for one day of a run.
func (db *DB) DaySnapshot(runID int64, day int) ([]SnapshotRow, error) {
	var rows []SnapshotRow
	err := db.conn.Select(&rows, `SELECT day, species, population, agents_alive, temperature, humidity
		FROM snapshots WHERE run_id = ? AND day = ? ORDER BY species`,
		runID, day,
	)
	return rows, err
}

// RecentEvents returns the most recent N events of a run.
func (db *DB) RecentEvents(runID int64, limit int) ([]sim.Event, error) {
	var events []sim.Event
	err := db.conn.Select(&events,
		"SELECT day, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}

// RunInfo describes one stored run.
type RunInfo struct {
	ID        int64  `db:"id"`
	Mode      string `db:"mode"`
	Days      int    `db:"days"`
	Seed      int64  `db:"seed"`
	StartedAt string `db:"started_at"`
}

// Runs lists stored runs, newest first.
func (db *DB) Runs(limit int) ([]RunInfo, error) {
	var runs []RunInfo
	err := db.conn.Select(&runs,
		"SELECT id, mode, days, seed, started_at FROM runs ORDER BY id DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// LatestRunID returns the id of the most recent run, or an error when the
// database is empty.
func (db *DB) LatestRunID() (int64, error) {
	var id int64
	err := db.conn.Get(&id, "SELECT id FROM runs ORDER BY id DESC LIMIT 1")
	return id, err
}
